// Package writer persists downloaded market data as parquet files laid out
// the way the history store reads them back: one file per symbol and month.
package writer

import (
	"github.com/rxtech-lab/mtsim/internal/types"
)

// Writer is the shared lifecycle of the parquet writers. Initialize opens
// the staging table, Finalize exports the staged rows to the output file,
// Close releases whatever is still held. A writer covers exactly one output
// file; the download loop creates a fresh one per month.
type Writer interface {
	// Initialize sets up the staging table and the insert statement.
	Initialize() error
	// Finalize commits the staged rows and exports them to the output file.
	Finalize() (outputPath string, err error)
	// Close releases any resources held by the writer.
	Close() error
	// OutputPath returns the configured output file path.
	OutputPath() string
}

// BarWriter persists chart bars into one parquet file.
type BarWriter interface {
	Writer
	BarSink
}

// TickWriter persists ticks into one parquet file.
type TickWriter interface {
	Writer
	TickSink
}

// BarSink is the write-only side of a BarWriter. Download sources depend on
// this instead of the full lifecycle.
type BarSink interface {
	Write(bar types.Rate) error
}

// TickSink is the write-only side of a TickWriter.
type TickSink interface {
	Write(tick types.Tick) error
}
