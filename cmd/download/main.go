package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/mtsim/internal/history"
	"github.com/rxtech-lab/mtsim/internal/logger"
	"github.com/rxtech-lab/mtsim/internal/marketdata"
	"github.com/rxtech-lab/mtsim/internal/marketdata/provider"
	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/pkg/errors"
)

// downloadAction fetches history for every requested symbol: first the
// symbol specification, then the bars or ticks of the requested range.
func downloadAction(ctx context.Context, cmd *cli.Command) error {
	sourceType, err := provider.ParseSourceType(cmd.String("source"))
	if err != nil {
		return err
	}

	symbols := splitSymbols(cmd.String("symbols"))
	if len(symbols) == 0 {
		return errors.New(errors.ErrCodeMissingParameter, "at least one symbol is required")
	}

	timeframe, err := types.ParseTimeframe(strings.ToUpper(cmd.String("timeframe")))
	if err != nil {
		return err
	}

	startDate := cmd.Timestamp("start")
	endDate := cmd.Timestamp("end")

	appLogger, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer appLogger.Sync()

	store, err := history.NewStore(cmd.String("data"), appLogger)
	if err != nil {
		return fmt.Errorf("failed to open the history store: %w", err)
	}
	defer store.Close()

	source, err := provider.NewSource(ctx, sourceType, provider.Config{
		BridgeURL:        cmd.String("bridge"),
		BinanceAPIKey:    os.Getenv("BINANCE_API_KEY"),
		BinanceSecretKey: os.Getenv("BINANCE_SECRET_KEY"),
		PolygonAPIKey:    os.Getenv("POLYGON_API_KEY"),
	}, appLogger)
	if err != nil {
		return err
	}
	defer source.Close()

	downloader := marketdata.NewDownloader(source, store, appLogger)

	log.Printf("Starting download of %s from %s to %s using the %s source...",
		strings.Join(symbols, ", "), startDate.Format("2006-01-02"), endDate.Format("2006-01-02"), sourceType)

	for _, symbol := range symbols {
		if err := downloader.DownloadSymbolSpec(ctx, symbol); err != nil {
			return err
		}

		if cmd.Bool("ticks") {
			err = downloader.DownloadTicks(ctx, symbol, startDate, endDate, downloadProgress())
		} else {
			err = downloader.DownloadBars(ctx, symbol, timeframe, startDate, endDate, downloadProgress())
		}

		if err != nil {
			return err
		}
	}

	log.Println("Download completed successfully.")

	return nil
}

// downloadProgress drives one progress bar per symbol. The bar is created on
// the first callback, once the month count is known.
func downloadProgress() marketdata.OnProgress {
	var bar *progressbar.ProgressBar

	return func(current, total float64, message string) {
		if bar == nil {
			bar = progressbar.Default(int64(total))
		}

		bar.Describe(message)
		_ = bar.Set(int(current))
	}
}

// splitSymbols parses the comma-separated symbol list. Symbol names pass
// through as typed; brokers use case-sensitive suffixes like EURUSD.m.
func splitSymbols(input string) []string {
	parts := strings.Split(input, ",")
	symbols := make([]string, 0, len(parts))

	for _, part := range parts {
		if symbol := strings.TrimSpace(part); symbol != "" {
			symbols = append(symbols, symbol)
		}
	}

	return symbols
}

func main() {
	// A .env in the working directory fills the API key variables, if present.
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "download",
		Usage: "Download historical bars or ticks into the history store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "source",
				Aliases:  []string{"p"},
				Usage:    fmt.Sprintf("Market data source (%s, %s, %s)", provider.SourceTypeTerminal, provider.SourceTypeBinance, provider.SourceTypePolygon),
				Value:    string(provider.SourceTypeBinance),
				Required: false,
			},
			&cli.StringFlag{
				Name:     "symbols",
				Aliases:  []string{"t"},
				Usage:    "Comma-separated symbols to download",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "timeframe",
				Aliases:  []string{"f"},
				Usage:    "Bar timeframe (M1, M5, H1, D1, ...), ignored with --ticks",
				Value:    "H1",
				Required: false,
			},
			&cli.BoolFlag{
				Name:  "ticks",
				Usage: "Download ticks instead of bars",
			},
			&cli.TimestampFlag{
				Name:    "start",
				Aliases: []string{"s"},
				Usage:   "Start date in `YYYY-MM-DD` format (or other RFC3339 compatible)",
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
				Required: true,
			},
			&cli.TimestampFlag{
				Name:     "end",
				Aliases:  []string{"e"},
				Usage:    "End date in `YYYY-MM-DD` format (or other RFC3339 compatible). Defaults to today.",
				Value:    time.Now(),
				Required: false,
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "History root directory the files land under",
				Value:    "history",
				Required: false,
			},
			&cli.StringFlag{
				Name:     "bridge",
				Aliases:  []string{"b"},
				Usage:    "Bridge URL of a running terminal, used by the terminal source",
				Value:    "http://127.0.0.1:5005",
				Required: false,
			},
		},
		Action: downloadAction,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal, stopping download...")
		cancel()
	}()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
