package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"

	"github.com/rxtech-lab/mtsim/examples/smacross"
	"github.com/rxtech-lab/mtsim/internal/history"
	"github.com/rxtech-lab/mtsim/internal/logger"
	"github.com/rxtech-lab/mtsim/internal/tester"
	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/pkg/errors"
	"github.com/rxtech-lab/mtsim/pkg/strategy"
)

// Fallback directories when the config leaves them unset.
const (
	defaultDataDir   = "history"
	defaultReportDir = "reports"
)

// registerStrategies fills the registry with the robots this build ships.
func registerStrategies(registry strategy.Registry) error {
	return registry.Register("sma_cross", smacross.New)
}

func main() {
	configPath := flag.String("config", "", "Path to the tester config YAML (required)")
	strategyName := flag.String("strategy", "sma_cross", "Registered strategy to run")
	strategyConfigPath := flag.String("strategy-config", "", "Path to the strategy's own config file (optional)")
	listStrategies := flag.Bool("list", false, "List registered strategies and exit")
	flag.Parse()

	registry := strategy.NewRegistry()
	if err := registerStrategies(registry); err != nil {
		log.Fatalf("Failed to register strategies: %v", err)
	}

	if *listStrategies {
		for _, name := range registry.List() {
			fmt.Println(name)
		}

		return
	}

	if *configPath == "" {
		fmt.Println("Error: -config flag is required")
		flag.Usage()
		os.Exit(1)
	}

	data, err := os.ReadFile(*configPath)
	if err != nil {
		log.Fatalf("Failed to read config %s: %v", *configPath, err)
	}

	config, err := tester.ParseConfig(data)
	if err != nil {
		log.Fatalf("Invalid tester config: %v", err)
	}

	strat, err := registry.Get(*strategyName)
	if err != nil {
		log.Fatalf("Failed to resolve strategy: %v (registered: %s)", err, strings.Join(registry.List(), ", "))
	}

	strategyConfig := ""

	if *strategyConfigPath != "" {
		raw, err := os.ReadFile(*strategyConfigPath)
		if err != nil {
			log.Fatalf("Failed to read strategy config %s: %v", *strategyConfigPath, err)
		}

		strategyConfig = string(raw)
	}

	appLogger, err := logger.NewFileLogger(config.ReportDir.TakeOr(defaultReportDir), "tester")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLogger.Sync()

	store, err := history.NewStore(config.DataDir.TakeOr(defaultDataDir), appLogger)
	if err != nil {
		log.Fatalf("Failed to open the history store: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal, stopping replay...")
		cancel()
	}()

	simulator := tester.NewSimulator(config, store, appLogger)
	if err := simulator.Initialize(ctx); err != nil {
		log.Fatalf("Failed to initialize the tester: %v", err)
	}
	defer simulator.Shutdown()

	var bar *progressbar.ProgressBar

	onTick := tester.OnTickCallback(func(processed, total int) {
		if bar == nil {
			bar = progressbar.Default(int64(total))
			bar.Describe(fmt.Sprintf("Replaying %s", strings.Join(config.Symbols, ", ")))
		}

		_ = bar.Set(processed)
	})

	if err := simulator.Run(ctx, strat, strategyConfig, optional.Some(onTick)); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Println("Replay interrupted, no report written.")

			return
		}

		log.Fatalf("Replay failed: %v", err)
	}

	if bar != nil {
		_ = bar.Finish()
	}

	stats, reportDir, err := simulator.WriteReport(strat.Name())
	if err != nil {
		log.Fatalf("Failed to write the report: %v", err)
	}

	fmt.Printf("\nReport written to %s\n\n", reportDir)
	printStats(os.Stdout, stats)
}

// printStats renders the run summary the way the terminal's tester tab
// does: the account block first, then one row per traded symbol.
func printStats(w io.Writer, stats types.RunStats) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Strategy:\t%s\n", stats.Strategy)
	fmt.Fprintf(tw, "Period:\t%s - %s\n", stats.StartDate.Format(tester.DateLayout), stats.EndDate.Format(tester.DateLayout))
	fmt.Fprintf(tw, "Modelling:\t%s\n", stats.Modelling)
	fmt.Fprintf(tw, "Deposit:\t%.2f\n", stats.Account.Deposit)
	fmt.Fprintf(tw, "Balance:\t%.2f\n", stats.Account.Balance)
	fmt.Fprintf(tw, "Equity:\t%.2f\n", stats.Account.Equity)
	fmt.Fprintf(tw, "Net profit:\t%.2f\n", stats.Account.NetProfit)
	fmt.Fprintf(tw, "Gross profit:\t%.2f\n", stats.Account.GrossProfit)
	fmt.Fprintf(tw, "Gross loss:\t%.2f\n", stats.Account.GrossLoss)
	fmt.Fprintf(tw, "Profit factor:\t%.2f\n", stats.Account.ProfitFactor)
	fmt.Fprintf(tw, "Trades:\t%d\n", stats.Account.Trades)
	fmt.Fprintf(tw, "Win rate:\t%.1f%%\n", stats.Account.WinRate*100)
	fmt.Fprintf(tw, "Balance drawdown:\t%.2f (%.1f%%)\n", stats.Account.BalanceDrawdown, stats.Account.BalanceDrawdownPercent*100)
	fmt.Fprintf(tw, "Equity drawdown:\t%.2f\n", stats.Account.EquityDrawdown)
	fmt.Fprintf(tw, "Commission:\t%.2f\n", stats.Account.Commission)
	tw.Flush()

	if len(stats.Symbols) == 0 {
		return
	}

	fmt.Fprintln(w)

	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Symbol\tTrades\tWin rate\tGross profit\tGross loss\tNet profit\tProfit factor")

	for _, symbol := range stats.Symbols {
		summary := symbol.Summary
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\t%.2f\t%.2f\t%.2f\t%.2f\n",
			symbol.Symbol, summary.Trades, summary.WinRate*100,
			summary.GrossProfit, summary.GrossLoss, summary.NetProfit, summary.ProfitFactor)
	}

	tw.Flush()
}
