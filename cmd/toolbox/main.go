package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rxtech-lab/mtsim/internal/gateway"
	"github.com/rxtech-lab/mtsim/internal/gateway/bridge"
	"github.com/rxtech-lab/mtsim/internal/logger"
	"github.com/rxtech-lab/mtsim/internal/types"
)

func main() {
	bridgeURL := flag.String("bridge", "", "Bridge URL of a running terminal (e.g. http://127.0.0.1:5005)")
	reportPath := flag.String("report", "", "Path to a tester run directory or its stats.yaml")
	symbolsFlag := flag.String("symbols", "", "Comma-separated symbols to select when attaching (optional)")
	refresh := flag.Duration("refresh", time.Second, "Poll interval in gateway mode")
	flag.Parse()

	if (*bridgeURL == "") == (*reportPath == "") {
		fmt.Println("Error: exactly one of -bridge or -report is required")
		flag.Usage()
		os.Exit(1)
	}

	var model Model

	if *reportPath != "" {
		stats, err := loadReport(*reportPath)
		if err != nil {
			log.Fatalf("Failed to load the report: %v", err)
		}

		model = NewReportModel(stats)
	} else {
		term, err := attachGateway(*bridgeURL, splitSymbols(*symbolsFlag))
		if err != nil {
			log.Fatalf("Failed to attach to the bridge: %v", err)
		}
		defer term.Shutdown()

		model = NewGatewayModel(term, *refresh)
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Toolbox failed: %v", err)
	}
}

// loadReport accepts either the run directory or the stats.yaml inside it.
func loadReport(path string) (types.RunStats, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, "stats.yaml")
	}

	return types.ReadRunStats(path)
}

// attachGateway connects to a running bridge and hands back the live
// terminal. Logging is discarded; zap output would tear the TUI apart.
func attachGateway(url string, symbols []string) (*gateway.Gateway, error) {
	nopLogger := logger.NewNopLogger()

	client, err := bridge.NewClient(bridge.Config{BaseURL: url}, nopLogger)
	if err != nil {
		return nil, err
	}

	gw := gateway.NewGateway(client, symbols, nopLogger)
	if err := gw.Initialize(context.Background()); err != nil {
		return nil, err
	}

	return gw, nil
}

// splitSymbols parses the comma-separated symbol list, passing names through
// as typed.
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
