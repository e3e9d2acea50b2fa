package tester

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rxtech-lab/mtsim/internal/logger"
	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/pkg/errors"
)

// Report file names inside a run directory.
const (
	ordersFile    = "orders.parquet"
	dealsFile     = "deals.parquet"
	positionsFile = "positions.parquet"
	equityFile    = "equity.parquet"
	statsFile     = "stats.yaml"
)

// defaultReportDir is where reports land when the config leaves report_dir
// unset.
const defaultReportDir = "reports"

// WriteReport persists the run's trade history, open positions and account
// curve as parquet files under {report_dir}/{bot_name}/{run-id}, together
// with a stats.yaml summary. It returns the computed stats and the run
// directory.
func (s *Simulator) WriteReport(strategyName string) (types.RunStats, string, error) {
	if err := s.ready(); err != nil {
		return types.RunStats{}, "", s.fail(err)
	}

	runID := uuid.New().String()
	dir := filepath.Join(s.config.ReportDir.TakeOr(defaultReportDir), s.config.BotName, runID)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return types.RunStats{}, "", s.fail(errors.Wrapf(errors.ErrCodeReportWriteFailed, err,
			"failed to create report directory %s", dir))
	}

	writer, err := newReportWriter(s.log)
	if err != nil {
		return types.RunStats{}, "", s.fail(err)
	}
	defer writer.Close()

	if err := writer.stage(s.ordersHistory, s.dealsHistory, s.positions, s.equity); err != nil {
		return types.RunStats{}, "", s.fail(err)
	}

	if err := writer.export(dir); err != nil {
		return types.RunStats{}, "", s.fail(err)
	}

	stats, err := s.buildStats(runID, strategyName, writer)
	if err != nil {
		return types.RunStats{}, "", s.fail(err)
	}

	if err := types.WriteRunStats(filepath.Join(dir, statsFile), stats); err != nil {
		return types.RunStats{}, "", s.fail(err)
	}

	s.log.Info("report written",
		zap.String("dir", dir),
		zap.Int("orders", len(s.ordersHistory)),
		zap.Int("deals", len(s.dealsHistory)),
		zap.Float64("balance", s.account.Balance),
	)

	s.ok()

	return stats, dir, nil
}

// buildStats assembles the run summary: per-symbol aggregates come from SQL
// over the staged deals, the account-level figures from a decimal walk of
// the deal and equity curves.
func (s *Simulator) buildStats(runID, strategyName string, writer *reportWriter) (types.RunStats, error) {
	symbols, err := writer.tradedSymbols()
	if err != nil {
		return types.RunStats{}, err
	}

	symbolStats := make([]types.SymbolStats, 0, len(symbols))

	for _, symbol := range symbols {
		summary, err := writer.symbolSummary(symbol)
		if err != nil {
			return types.RunStats{}, err
		}

		symbolStats = append(symbolStats, types.SymbolStats{Symbol: symbol, Summary: summary})
	}

	return types.RunStats{
		ID:                runID,
		Timestamp:         time.Now().UTC(),
		BotName:           s.config.BotName,
		Strategy:          strategyName,
		Modelling:         string(s.config.Modelling),
		StartDate:         s.config.StartDate,
		EndDate:           s.config.EndDate,
		Account:           s.accountStats(),
		Symbols:           symbolStats,
		OrdersFilePath:    ordersFile,
		DealsFilePath:     dealsFile,
		PositionsFilePath: positionsFile,
		EquityFilePath:    equityFile,
	}, nil
}

// accountStats aggregates the whole run's deals with decimal arithmetic so
// long runs don't accumulate float drift.
func (s *Simulator) accountStats() types.AccountStats {
	grossProfit := decimal.Zero
	grossLoss := decimal.Zero
	commission := decimal.Zero
	trades := 0
	wins := 0

	for _, deal := range s.dealsHistory {
		commission = commission.Add(decimal.NewFromFloat(deal.Commission))

		if deal.Entry != types.DealEntryOut {
			continue
		}

		trades++

		profit := decimal.NewFromFloat(deal.Profit)
		if profit.IsPositive() {
			wins++

			grossProfit = grossProfit.Add(profit)
		} else {
			grossLoss = grossLoss.Sub(profit)
		}
	}

	stats := types.AccountStats{
		Deposit:     s.config.Deposit,
		Balance:     s.account.Balance,
		Equity:      s.account.Equity,
		Trades:      trades,
		GrossProfit: grossProfit.InexactFloat64(),
		GrossLoss:   grossLoss.InexactFloat64(),
		Commission:  commission.InexactFloat64(),
	}

	stats.NetProfit = decimal.NewFromFloat(s.account.Balance).
		Sub(decimal.NewFromFloat(s.config.Deposit)).InexactFloat64()

	if trades > 0 {
		stats.WinRate = float64(wins) / float64(trades)
	}

	if grossLoss.IsPositive() {
		stats.ProfitFactor = grossProfit.Div(grossLoss).InexactFloat64()
	}

	stats.BalanceDrawdown, stats.BalanceDrawdownPercent = s.balanceDrawdown()
	stats.EquityDrawdown = s.equityDrawdown()

	return stats
}

// balanceDrawdown walks the deal balance curve from the deposit and returns
// the deepest fall below the running peak, absolute and relative to that
// peak.
func (s *Simulator) balanceDrawdown() (float64, float64) {
	peak := decimal.NewFromFloat(s.config.Deposit)
	drawdown := decimal.Zero
	percent := decimal.Zero

	for _, deal := range s.dealsHistory {
		balance := decimal.NewFromFloat(deal.Balance)

		if balance.GreaterThan(peak) {
			peak = balance

			continue
		}

		fall := peak.Sub(balance)
		if fall.GreaterThan(drawdown) {
			drawdown = fall
		}

		if peak.IsPositive() {
			if p := fall.Div(peak); p.GreaterThan(percent) {
				percent = p
			}
		}
	}

	return drawdown.InexactFloat64(), percent.InexactFloat64()
}

// equityDrawdown is the same walk over the sampled equity curve.
func (s *Simulator) equityDrawdown() float64 {
	peak := decimal.NewFromFloat(s.config.Deposit)
	drawdown := decimal.Zero

	for _, point := range s.equity {
		equity := decimal.NewFromFloat(point.Equity)

		if equity.GreaterThan(peak) {
			peak = equity

			continue
		}

		if fall := peak.Sub(equity); fall.GreaterThan(drawdown) {
			drawdown = fall
		}
	}

	return drawdown.InexactFloat64()
}

// reportWriter stages one run's containers in an in-memory DuckDB database,
// computes the per-symbol aggregates there and exports the tables to
// parquet.
type reportWriter struct {
	db  *sql.DB
	sq  squirrel.StatementBuilderType
	log *logger.Logger
}

func newReportWriter(log *logger.Logger) (*reportWriter, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to open the report database", err)
	}

	writer := &reportWriter{
		db:  db,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		log: log,
	}

	if err := writer.createTables(); err != nil {
		db.Close()

		return nil, err
	}

	return writer, nil
}

func (w *reportWriter) Close() error {
	return w.db.Close()
}

func (w *reportWriter) createTables() error {
	_, err := w.db.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			ticket BIGINT,
			time_setup TIMESTAMP,
			time_setup_msc BIGINT,
			time_done TIMESTAMP,
			time_done_msc BIGINT,
			time_expiration BIGINT,
			order_type INTEGER,
			type_time INTEGER,
			type_filling INTEGER,
			state INTEGER,
			magic BIGINT,
			position_id BIGINT,
			reason INTEGER,
			volume_initial DOUBLE,
			volume_current DOUBLE,
			price_open DOUBLE,
			sl DOUBLE,
			tp DOUBLE,
			price_current DOUBLE,
			price_stoplimit DOUBLE,
			symbol TEXT,
			comment TEXT
		);
		CREATE TABLE IF NOT EXISTS deals (
			ticket BIGINT,
			order_ticket BIGINT,
			time TIMESTAMP,
			time_msc BIGINT,
			deal_type INTEGER,
			entry INTEGER,
			magic BIGINT,
			position_id BIGINT,
			reason INTEGER,
			volume DOUBLE,
			price DOUBLE,
			commission DOUBLE,
			swap DOUBLE,
			profit DOUBLE,
			fee DOUBLE,
			symbol TEXT,
			comment TEXT,
			balance DOUBLE
		);
		CREATE TABLE IF NOT EXISTS positions (
			ticket BIGINT,
			time TIMESTAMP,
			time_msc BIGINT,
			time_update TIMESTAMP,
			position_type INTEGER,
			magic BIGINT,
			identifier BIGINT,
			reason INTEGER,
			volume DOUBLE,
			price_open DOUBLE,
			sl DOUBLE,
			tp DOUBLE,
			price_current DOUBLE,
			swap DOUBLE,
			profit DOUBLE,
			symbol TEXT,
			comment TEXT
		);
		CREATE TABLE IF NOT EXISTS equity (
			time TIMESTAMP,
			balance DOUBLE,
			equity DOUBLE,
			margin DOUBLE
		);
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to create report tables", err)
	}

	return nil
}

// stage loads the run containers into the report tables inside one
// transaction.
func (w *reportWriter) stage(orders []types.TradeOrder, deals []types.TradeDeal, positions []types.TradePosition, equity []types.EquityPoint) error {
	tx, err := w.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to begin report transaction", err)
	}

	for _, order := range orders {
		insert := w.sq.
			Insert("orders").
			Columns(
				"ticket", "time_setup", "time_setup_msc", "time_done", "time_done_msc",
				"time_expiration", "order_type", "type_time", "type_filling", "state",
				"magic", "position_id", "reason", "volume_initial", "volume_current",
				"price_open", "sl", "tp", "price_current", "price_stoplimit",
				"symbol", "comment",
			).
			Values(
				order.Ticket, time.Unix(order.TimeSetup, 0).UTC(), order.TimeSetupMsc,
				time.Unix(order.TimeDone, 0).UTC(), order.TimeDoneMsc, order.TimeExpiration,
				int(order.Type), int(order.TypeTime), int(order.TypeFilling), int(order.State),
				order.Magic, order.PositionID, int(order.Reason), order.VolumeInitial, order.VolumeCurrent,
				order.PriceOpen, order.SL, order.TP, order.PriceCurrent, order.PriceStopLimit,
				order.Symbol, order.Comment,
			).
			RunWith(tx)

		if _, err := insert.Exec(); err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to insert order", err)
		}
	}

	for _, deal := range deals {
		insert := w.sq.
			Insert("deals").
			Columns(
				"ticket", "order_ticket", "time", "time_msc", "deal_type", "entry",
				"magic", "position_id", "reason", "volume", "price", "commission",
				"swap", "profit", "fee", "symbol", "comment", "balance",
			).
			Values(
				deal.Ticket, deal.Order, time.Unix(deal.Time, 0).UTC(), deal.TimeMsc,
				int(deal.Type), int(deal.Entry), deal.Magic, deal.PositionID, int(deal.Reason),
				deal.Volume, deal.Price, deal.Commission, deal.Swap, deal.Profit, deal.Fee,
				deal.Symbol, deal.Comment, deal.Balance,
			).
			RunWith(tx)

		if _, err := insert.Exec(); err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to insert deal", err)
		}
	}

	for _, position := range positions {
		insert := w.sq.
			Insert("positions").
			Columns(
				"ticket", "time", "time_msc", "time_update", "position_type",
				"magic", "identifier", "reason", "volume", "price_open",
				"sl", "tp", "price_current", "swap", "profit", "symbol", "comment",
			).
			Values(
				position.Ticket, time.Unix(position.Time, 0).UTC(), position.TimeMsc,
				time.Unix(position.TimeUpdate, 0).UTC(), int(position.Type),
				position.Magic, position.Identifier, int(position.Reason), position.Volume,
				position.PriceOpen, position.SL, position.TP, position.PriceCurrent,
				position.Swap, position.Profit, position.Symbol, position.Comment,
			).
			RunWith(tx)

		if _, err := insert.Exec(); err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to insert position", err)
		}
	}

	for _, point := range equity {
		insert := w.sq.
			Insert("equity").
			Columns("time", "balance", "equity", "margin").
			Values(time.Unix(point.Time, 0).UTC(), point.Balance, point.Equity, point.Margin).
			RunWith(tx)

		if _, err := insert.Exec(); err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to insert equity point", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to commit report transaction", err)
	}

	return nil
}

// export copies each report table to a parquet file in the run directory.
// Squirrel has no COPY syntax, so the statements are raw SQL.
func (w *reportWriter) export(dir string) error {
	tables := []struct {
		name string
		file string
	}{
		{"orders", ordersFile},
		{"deals", dealsFile},
		{"positions", positionsFile},
		{"equity", equityFile},
	}

	for _, table := range tables {
		path := filepath.Join(dir, table.file)

		if _, err := w.db.Exec(fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET)`, table.name, path)); err != nil {
			return errors.Wrapf(errors.ErrCodeReportWriteFailed, err,
				"failed to export %s to parquet", table.name)
		}
	}

	return nil
}

// tradedSymbols lists the symbols that produced at least one deal.
func (w *reportWriter) tradedSymbols() ([]string, error) {
	query := w.sq.
		Select("DISTINCT symbol").
		From("deals").
		OrderBy("symbol").
		RunWith(w.db)

	rows, err := query.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to list traded symbols", err)
	}
	defer rows.Close()

	var symbols []string

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to scan symbol", err)
		}

		symbols = append(symbols, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to iterate symbols", err)
	}

	return symbols, nil
}

// symbolSummary aggregates one symbol's closing deals. CTE queries stay raw
// SQL; Squirrel doesn't support them well.
func (w *reportWriter) symbolSummary(symbol string) (types.TradeSummary, error) {
	query := `
		WITH closed AS (
			SELECT profit FROM deals WHERE symbol = ? AND entry = 1
		)
		SELECT
			COUNT(*) AS trades,
			COALESCE(SUM(CASE WHEN profit > 0 THEN 1 ELSE 0 END), 0) AS wins,
			COALESCE(SUM(CASE WHEN profit < 0 THEN 1 ELSE 0 END), 0) AS losses,
			CASE WHEN COUNT(*) > 0
				THEN CAST(COALESCE(SUM(CASE WHEN profit > 0 THEN 1 ELSE 0 END), 0) AS DOUBLE) / COUNT(*)
				ELSE 0 END AS win_rate,
			COALESCE(SUM(CASE WHEN profit > 0 THEN profit ELSE 0 END), 0) AS gross_profit,
			COALESCE(ABS(SUM(CASE WHEN profit < 0 THEN profit ELSE 0 END)), 0) AS gross_loss,
			COALESCE(ABS(MIN(CASE WHEN profit < 0 THEN profit ELSE 0 END)), 0) AS maximum_loss,
			COALESCE(MAX(CASE WHEN profit > 0 THEN profit ELSE 0 END), 0) AS maximum_profit
		FROM closed
	`

	var summary types.TradeSummary

	err := w.db.QueryRow(query, symbol).Scan(
		&summary.Trades,
		&summary.WinningTrades,
		&summary.LosingTrades,
		&summary.WinRate,
		&summary.GrossProfit,
		&summary.GrossLoss,
		&summary.MaximumLoss,
		&summary.MaximumProfit,
	)
	if err != nil {
		return types.TradeSummary{}, errors.Wrapf(errors.ErrCodeReportWriteFailed, err,
			"failed to aggregate deals for %s", symbol)
	}

	if summary.GrossLoss > 0 {
		summary.ProfitFactor = decimal.NewFromFloat(summary.GrossProfit).
			Div(decimal.NewFromFloat(summary.GrossLoss)).InexactFloat64()
	}

	netQuery := `
		SELECT
			COALESCE(SUM(profit + commission + swap + fee), 0) AS net_profit,
			COALESCE(SUM(commission), 0) AS commission
		FROM deals
		WHERE symbol = ?
	`

	if err := w.db.QueryRow(netQuery, symbol).Scan(&summary.NetProfit, &summary.Commission); err != nil {
		return types.TradeSummary{}, errors.Wrapf(errors.ErrCodeReportWriteFailed, err,
			"failed to total deals for %s", symbol)
	}

	holding, err := w.holdingTime(symbol)
	if err != nil {
		return types.TradeSummary{}, err
	}

	summary.HoldingTime = holding

	return summary, nil
}

// holdingTime joins each symbol's entry deals to the closing deals of the
// same position and summarizes the durations in seconds.
func (w *reportWriter) holdingTime(symbol string) (types.TradeHoldingTime, error) {
	query := `
		WITH durations AS (
			SELECT EXTRACT(EPOCH FROM (o.time - i.time)) AS duration
			FROM deals i
			JOIN deals o ON o.position_id = i.position_id AND o.entry = 1
			WHERE i.symbol = ? AND i.entry = 0
		)
		SELECT
			COALESCE(MIN(duration), 0) AS min_duration,
			COALESCE(MAX(duration), 0) AS max_duration,
			COALESCE(AVG(duration), 0) AS avg_duration
		FROM durations
	`

	var minDuration, maxDuration, avgDuration float64

	err := w.db.QueryRow(query, symbol).Scan(&minDuration, &maxDuration, &avgDuration)
	if err != nil {
		return types.TradeHoldingTime{}, errors.Wrapf(errors.ErrCodeReportWriteFailed, err,
			"failed to compute holding time for %s", symbol)
	}

	return types.TradeHoldingTime{
		Min: int(math.Round(minDuration)),
		Max: int(math.Round(maxDuration)),
		Avg: int(math.Round(avgDuration)),
	}, nil
}
