// Package history reads and lays out the on-disk market history captured by
// the downloader: monthly parquet files for bars and ticks plus a JSON
// specification per symbol. The tester replays from this store, so a test
// run needs no terminal connection at all.
//
// Layout under the history root:
//
//	Bars/{SYMBOL}/{TF}/{YYYY}-{MM}.parquet
//	Ticks/{SYMBOL}/{YYYY}-{MM}.parquet
//	Symbols/{SYMBOL}.json
package history

import (
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rxtech-lab/mtsim/internal/types"
)

const (
	barsDirName    = "Bars"
	ticksDirName   = "Ticks"
	symbolsDirName = "Symbols"
)

// BarsDir returns the directory holding the monthly bar files of a symbol
// and timeframe.
func BarsDir(root, symbol string, tf types.Timeframe) string {
	return filepath.Join(root, barsDirName, symbol, tf.String())
}

// TicksDir returns the directory holding the monthly tick files of a symbol.
func TicksDir(root, symbol string) string {
	return filepath.Join(root, ticksDirName, symbol)
}

// SymbolsDir returns the directory holding the captured symbol
// specifications.
func SymbolsDir(root string) string {
	return filepath.Join(root, symbolsDirName)
}

// SpecPath returns the JSON file a symbol's captured specification lives in.
func SpecPath(root, symbol string) string {
	return filepath.Join(SymbolsDir(root), symbol+".json")
}

// MonthFileName returns the parquet file name for the month of t, e.g.
// "2025-01.parquet".
func MonthFileName(t time.Time) string {
	return t.UTC().Format("2006-01") + ".parquet"
}

var viewNameSanitizer = regexp.MustCompile(`[^A-Za-z0-9]`)

// viewName builds a valid SQL identifier for a symbol-scoped view. Symbol
// names can carry broker suffixes like "EURUSD.m".
func viewName(kind, symbol string, tf types.Timeframe) string {
	name := fmt.Sprintf("%s_%s", kind, viewNameSanitizer.ReplaceAllString(symbol, "_"))
	if tf != 0 {
		name += "_" + tf.String()
	}

	return name
}
