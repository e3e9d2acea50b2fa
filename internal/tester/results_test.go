package tester

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/mtsim/internal/logger"
	"github.com/rxtech-lab/mtsim/internal/tester/commission"
	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/pkg/errors"
)

type ResultsTestSuite struct {
	suite.Suite
	sim       *Simulator
	now       time.Time
	reportDir string
}

func TestResultsSuite(t *testing.T) {
	suite.Run(t, new(ResultsTestSuite))
}

func (suite *ResultsTestSuite) SetupTest() {
	log, err := logger.NewLogger()
	suite.Require().NoError(err)

	suite.now = time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	suite.reportDir = suite.T().TempDir()

	config := testerConfig()
	config.ReportDir = optional.Some(suite.reportDir)

	suite.sim = &Simulator{
		config:      config,
		log:         log,
		calc:        calculator{log: log},
		commission:  commission.GetModel(commission.ModelZero),
		tickets:     newTicketSource(42),
		initialized: true,
		lastErrCode: types.ResOK,
		lastErrDesc: "Success",
		symbols:     map[string]*symbolState{"EURUSD": {spec: tradeSpec(), selected: true}},
		ticks:       make(map[string]types.Tick),
	}
	suite.sim.account = suite.sim.seedAccount()

	suite.setTick(1.10000, 1.10010)
}

func (suite *ResultsTestSuite) setTick(bid, ask float64) {
	suite.now = suite.now.Add(time.Second)
	suite.sim.tickUpdate("EURUSD", types.Tick{
		Time:    suite.now,
		Bid:     bid,
		Ask:     ask,
		Last:    bid,
		TimeMsc: suite.now.UnixMilli(),
	})
}

func (suite *ResultsTestSuite) openBuy(volume float64) int64 {
	result, err := suite.sim.OrderSend(types.TradeRequest{
		Action: types.TradeActionDeal,
		Symbol: "EURUSD",
		Volume: volume,
		Price:  suite.sim.ticks["EURUSD"].Ask,
		Type:   types.OrderTypeBuy,
	})
	suite.Require().NoError(err)
	suite.Require().True(result.Ok(), result.Comment)

	return suite.sim.positions[len(suite.sim.positions)-1].Ticket
}

func (suite *ResultsTestSuite) closeBuy(ticket int64, volume float64) {
	result, err := suite.sim.OrderSend(types.TradeRequest{
		Action:   types.TradeActionDeal,
		Symbol:   "EURUSD",
		Volume:   volume,
		Price:    suite.sim.ticks["EURUSD"].Bid,
		Type:     types.OrderTypeSell,
		Position: ticket,
	})
	suite.Require().NoError(err)
	suite.Require().True(result.Ok(), result.Comment)
}

// runScript produces a deterministic two-trade history: one winner of 10.00
// and one loser of 5.00, with an equity sample per tick.
func (suite *ResultsTestSuite) runScript() {
	suite.sim.accountMonitoring()

	first := suite.openBuy(0.10)

	suite.setTick(1.10110, 1.10120)
	suite.sim.positionsMonitoring()
	suite.sim.accountMonitoring()

	suite.closeBuy(first, 0.10)

	second := suite.openBuy(0.10)

	suite.setTick(1.10070, 1.10080)
	suite.sim.positionsMonitoring()
	suite.sim.accountMonitoring()

	suite.closeBuy(second, 0.10)
}

func (suite *ResultsTestSuite) loadStats(dir string) types.RunStats {
	data, err := os.ReadFile(filepath.Join(dir, statsFile))
	suite.Require().NoError(err)

	var stats types.RunStats
	suite.Require().NoError(yaml.Unmarshal(data, &stats))

	return stats
}

func (suite *ResultsTestSuite) rowCount(path string) int {
	db, err := sql.Open("duckdb", "")
	suite.Require().NoError(err)
	defer db.Close()

	escaped := strings.ReplaceAll(path, "'", "''")

	var count int
	err = db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM read_parquet('%s')", escaped)).Scan(&count)
	suite.Require().NoError(err)

	return count
}

func (suite *ResultsTestSuite) TestWriteReportFiles() {
	suite.runScript()

	stats, dir, err := suite.sim.WriteReport("sma_cross")
	suite.Require().NoError(err)

	suite.Equal(filepath.Join(suite.reportDir, "unit"), filepath.Dir(dir))

	_, err = uuid.Parse(filepath.Base(dir))
	suite.NoError(err, "run directory should be named by the run id")
	suite.Equal(stats.ID, filepath.Base(dir))

	suite.Equal(2, suite.rowCount(filepath.Join(dir, ordersFile)))
	suite.Equal(4, suite.rowCount(filepath.Join(dir, dealsFile)))
	suite.Equal(0, suite.rowCount(filepath.Join(dir, positionsFile)))
	suite.Equal(3, suite.rowCount(filepath.Join(dir, equityFile)))

	loaded := suite.loadStats(dir)
	suite.Equal(stats.ID, loaded.ID)
	suite.Equal("sma_cross", loaded.Strategy)
	suite.InDelta(stats.Account.Balance, loaded.Account.Balance, 1e-9)
}

func (suite *ResultsTestSuite) TestWriteReportMetadata() {
	suite.runScript()

	stats, _, err := suite.sim.WriteReport("sma_cross")
	suite.Require().NoError(err)

	suite.Equal("unit", stats.BotName)
	suite.Equal("sma_cross", stats.Strategy)
	suite.Equal(string(ModellingRealTicks), stats.Modelling)
	suite.Equal(suite.sim.config.StartDate, stats.StartDate)
	suite.Equal(suite.sim.config.EndDate, stats.EndDate)

	suite.Equal(ordersFile, stats.OrdersFilePath)
	suite.Equal(dealsFile, stats.DealsFilePath)
	suite.Equal(positionsFile, stats.PositionsFilePath)
	suite.Equal(equityFile, stats.EquityFilePath)
}

func (suite *ResultsTestSuite) TestAccountStats() {
	suite.runScript()

	stats, _, err := suite.sim.WriteReport("sma_cross")
	suite.Require().NoError(err)

	account := stats.Account
	suite.InDelta(10000.0, account.Deposit, 1e-9)
	suite.InDelta(10005.0, account.Balance, 1e-9)
	suite.InDelta(10005.0, account.Equity, 1e-9)
	suite.InDelta(5.0, account.NetProfit, 1e-9)
	suite.InDelta(10.0, account.GrossProfit, 1e-9)
	suite.InDelta(5.0, account.GrossLoss, 1e-9)
	suite.InDelta(2.0, account.ProfitFactor, 1e-9)
	suite.Equal(2, account.Trades)
	suite.InDelta(0.5, account.WinRate, 1e-9)
	suite.InDelta(5.0, account.BalanceDrawdown, 1e-9)
	suite.InDelta(5.0/10010.0, account.BalanceDrawdownPercent, 1e-9)
	suite.InDelta(5.0, account.EquityDrawdown, 1e-9)
	suite.Zero(account.Commission)
}

func (suite *ResultsTestSuite) TestSymbolStats() {
	suite.runScript()

	stats, _, err := suite.sim.WriteReport("sma_cross")
	suite.Require().NoError(err)

	suite.Require().Len(stats.Symbols, 1)
	suite.Equal("EURUSD", stats.Symbols[0].Symbol)

	summary := stats.Symbols[0].Summary
	suite.Equal(2, summary.Trades)
	suite.Equal(1, summary.WinningTrades)
	suite.Equal(1, summary.LosingTrades)
	suite.InDelta(0.5, summary.WinRate, 1e-9)
	suite.InDelta(10.0, summary.GrossProfit, 1e-9)
	suite.InDelta(5.0, summary.GrossLoss, 1e-9)
	suite.InDelta(2.0, summary.ProfitFactor, 1e-9)
	suite.InDelta(5.0, summary.NetProfit, 1e-9)
	suite.InDelta(5.0, summary.MaximumLoss, 1e-9)
	suite.InDelta(10.0, summary.MaximumProfit, 1e-9)
	suite.Zero(summary.Commission)

	// Both positions lived for exactly one tick second.
	suite.Equal(1, summary.HoldingTime.Min)
	suite.Equal(1, summary.HoldingTime.Max)
	suite.Equal(1, summary.HoldingTime.Avg)
}

func (suite *ResultsTestSuite) TestWriteReportEmptyRun() {
	stats, dir, err := suite.sim.WriteReport("sma_cross")
	suite.Require().NoError(err)

	suite.Empty(stats.Symbols)
	suite.Zero(stats.Account.Trades)
	suite.Zero(stats.Account.WinRate)
	suite.Zero(stats.Account.ProfitFactor)
	suite.InDelta(10000.0, stats.Account.Balance, 1e-9)

	for _, file := range []string{ordersFile, dealsFile, positionsFile, equityFile, statsFile} {
		_, err := os.Stat(filepath.Join(dir, file))
		suite.NoError(err, file)
	}
}

func (suite *ResultsTestSuite) TestWriteReportOpenPositionStaged() {
	suite.sim.accountMonitoring()
	suite.openBuy(0.10)

	_, dir, err := suite.sim.WriteReport("sma_cross")
	suite.Require().NoError(err)

	suite.Equal(1, suite.rowCount(filepath.Join(dir, positionsFile)))
	suite.Equal(1, suite.rowCount(filepath.Join(dir, dealsFile)))
}

func (suite *ResultsTestSuite) TestWriteReportRequiresInitialize() {
	suite.sim.initialized = false

	_, _, err := suite.sim.WriteReport("sma_cross")
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeNotInitialized, errors.GetCode(err))
}
