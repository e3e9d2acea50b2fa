package types

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/mtsim/pkg/errors"
)

// EquityPoint is one sample of the account curve recorded during a replay.
type EquityPoint struct {
	Time    int64   `yaml:"time" json:"time"`
	Balance float64 `yaml:"balance" json:"balance"`
	Equity  float64 `yaml:"equity" json:"equity"`
	Margin  float64 `yaml:"margin" json:"margin"`
}

// TradeHoldingTime summarizes how long round trips stayed open, in seconds.
type TradeHoldingTime struct {
	// Minimum holding time of a closed trade.
	Min int `yaml:"min"`
	// Maximum holding time of a closed trade.
	Max int `yaml:"max"`
	// Average holding time of a closed trade.
	Avg int `yaml:"avg"`
}

// TradeSummary aggregates the closing deals of one symbol.
type TradeSummary struct {
	// Count of closed trades.
	Trades int `yaml:"trades"`
	// Count of closed trades with positive profit.
	WinningTrades int `yaml:"winning_trades"`
	// Count of closed trades with negative profit.
	LosingTrades int `yaml:"losing_trades"`
	// Winning trades over closed trades, 0..1.
	WinRate float64 `yaml:"win_rate"`
	// Sum of positive trade profits.
	GrossProfit float64 `yaml:"gross_profit"`
	// Absolute sum of negative trade profits.
	GrossLoss float64 `yaml:"gross_loss"`
	// Gross profit over gross loss; 0 when there were no losing trades.
	ProfitFactor float64 `yaml:"profit_factor"`
	// Realized profit net of commission.
	NetProfit float64 `yaml:"net_profit"`
	// Total commission charged on the symbol's deals.
	Commission float64 `yaml:"commission"`
	// Largest single losing trade, as a positive number.
	MaximumLoss float64 `yaml:"maximum_loss"`
	// Largest single winning trade.
	MaximumProfit float64 `yaml:"maximum_profit"`
	// Holding time of the symbol's closed trades.
	HoldingTime TradeHoldingTime `yaml:"holding_time"`
}

// SymbolStats couples a traded symbol with its trade summary.
type SymbolStats struct {
	Symbol  string       `yaml:"symbol"`
	Summary TradeSummary `yaml:"summary"`
}

// AccountStats summarizes the account over a whole run.
type AccountStats struct {
	// Starting balance.
	Deposit float64 `yaml:"deposit"`
	// Balance after the last deal.
	Balance float64 `yaml:"balance"`
	// Equity at the end of the replay.
	Equity float64 `yaml:"equity"`
	// Balance minus deposit.
	NetProfit float64 `yaml:"net_profit"`
	// Sum of positive trade profits across all symbols.
	GrossProfit float64 `yaml:"gross_profit"`
	// Absolute sum of negative trade profits across all symbols.
	GrossLoss float64 `yaml:"gross_loss"`
	// Gross profit over gross loss; 0 when there were no losing trades.
	ProfitFactor float64 `yaml:"profit_factor"`
	// Count of closed trades across all symbols.
	Trades int `yaml:"trades"`
	// Winning trades over closed trades, 0..1.
	WinRate float64 `yaml:"win_rate"`
	// Deepest fall of the balance curve from its running peak.
	BalanceDrawdown float64 `yaml:"balance_drawdown"`
	// Balance drawdown relative to the peak it fell from, 0..1.
	BalanceDrawdownPercent float64 `yaml:"balance_drawdown_percent"`
	// Deepest fall of the equity curve from its running peak.
	EquityDrawdown float64 `yaml:"equity_drawdown"`
	// Total commission charged over the run.
	Commission float64 `yaml:"commission"`
}

// RunStats is the summary a tester run writes next to its parquet report.
type RunStats struct {
	// ID is the unique identifier of the run; the report directory is named
	// after it.
	ID string `yaml:"id" json:"id"`
	// Timestamp is when the run finished.
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	// BotName groups the runs of one robot.
	BotName string `yaml:"bot_name" json:"bot_name"`
	// Strategy is the display name of the strategy that ran.
	Strategy string `yaml:"strategy" json:"strategy"`
	// Modelling is the tick generation mode of the run.
	Modelling string `yaml:"modelling" json:"modelling"`
	// StartDate and EndDate bound the replayed period.
	StartDate time.Time `yaml:"start_date" json:"start_date"`
	EndDate   time.Time `yaml:"end_date" json:"end_date"`

	Account AccountStats  `yaml:"account"`
	Symbols []SymbolStats `yaml:"symbols"`

	// Paths of the parquet files the run wrote, relative to the report
	// directory.
	OrdersFilePath    string `yaml:"orders_file_path" json:"orders_file_path"`
	DealsFilePath     string `yaml:"deals_file_path" json:"deals_file_path"`
	PositionsFilePath string `yaml:"positions_file_path" json:"positions_file_path"`
	EquityFilePath    string `yaml:"equity_file_path" json:"equity_file_path"`
}

// WriteRunStats writes a run summary to a YAML file.
func WriteRunStats(path string, stats RunStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to marshal run stats to YAML", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to write run stats to file", err)
	}

	return nil
}

// ReadRunStats reads a run summary back from its YAML file.
func ReadRunStats(path string) (RunStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunStats{}, errors.Wrapf(errors.ErrCodeParseFailed, err, "failed to read run stats from %s", path)
	}

	var stats RunStats
	if err := yaml.Unmarshal(data, &stats); err != nil {
		return RunStats{}, errors.Wrapf(errors.ErrCodeParseFailed, err, "failed to decode run stats from %s", path)
	}

	return stats, nil
}
