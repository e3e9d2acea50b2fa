package tester

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/mtsim/internal/logger"
	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/pkg/errors"
)

type CalculatorTestSuite struct {
	suite.Suite
	calc calculator
}

func TestCalculatorSuite(t *testing.T) {
	suite.Run(t, new(CalculatorTestSuite))
}

func (suite *CalculatorTestSuite) SetupSuite() {
	log, err := logger.NewLogger()
	suite.Require().NoError(err)
	suite.calc = calculator{log: log}
}

func forexSpec() types.SymbolInfo {
	return types.SymbolInfo{
		Name:              "EURUSD",
		Digits:            5,
		Point:             0.00001,
		TradeCalcMode:     types.CalcModeForex,
		TradeContractSize: 100000,
	}
}

func (suite *CalculatorTestSuite) TestMarginForex() {
	spec := forexSpec()

	// 0.1 lot EURUSD at 1.10 with 1:100 leverage.
	margin := suite.calc.margin(spec, 100, 0.1, 1.10)
	suite.Equal(110.0, margin)
}

func (suite *CalculatorTestSuite) TestMarginForexNoLeverage() {
	spec := forexSpec()
	spec.TradeCalcMode = types.CalcModeForexNoLeverage

	margin := suite.calc.margin(spec, 100, 0.1, 1.10)
	suite.Equal(11000.0, margin)
}

func (suite *CalculatorTestSuite) TestMarginLeverageFloor() {
	spec := forexSpec()

	// Leverage below 1 behaves as 1:1.
	margin := suite.calc.margin(spec, 0, 0.1, 1.10)
	suite.Equal(11000.0, margin)
}

func (suite *CalculatorTestSuite) TestMarginCFDUsesMarginRate() {
	spec := types.SymbolInfo{
		Name:              "DE40",
		TradeCalcMode:     types.CalcModeCFD,
		TradeContractSize: 1,
		MarginInitial:     0.05,
	}

	margin := suite.calc.margin(spec, 100, 2, 18000)
	suite.Equal(1800.0, margin)
}

func (suite *CalculatorTestSuite) TestMarginCFDMarginRateFallsBackToMaintenance() {
	spec := types.SymbolInfo{
		Name:              "DE40",
		TradeCalcMode:     types.CalcModeCFD,
		TradeContractSize: 1,
		MarginMaintenance: 0.1,
	}

	margin := suite.calc.margin(spec, 100, 2, 18000)
	suite.Equal(3600.0, margin)
}

func (suite *CalculatorTestSuite) TestMarginCFDMarginRateDefaultsToOne() {
	spec := types.SymbolInfo{
		Name:              "DE40",
		TradeCalcMode:     types.CalcModeCFD,
		TradeContractSize: 1,
	}

	margin := suite.calc.margin(spec, 100, 2, 18000)
	suite.Equal(36000.0, margin)
}

func (suite *CalculatorTestSuite) TestMarginCFDLeverage() {
	spec := types.SymbolInfo{
		Name:              "US500",
		TradeCalcMode:     types.CalcModeCFDLeverage,
		TradeContractSize: 10,
		MarginInitial:     0.5,
	}

	margin := suite.calc.margin(spec, 20, 1, 5000)
	suite.Equal(1250.0, margin)
}

func (suite *CalculatorTestSuite) TestMarginFuturesUsesInitialMargin() {
	spec := types.SymbolInfo{
		Name:              "ES-U5",
		TradeCalcMode:     types.CalcModeFutures,
		TradeContractSize: 50,
		MarginInitial:     12000,
	}

	// Futures margin ignores price.
	margin := suite.calc.margin(spec, 100, 3, 5437.25)
	suite.Equal(36000.0, margin)
}

func (suite *CalculatorTestSuite) TestMarginBonds() {
	spec := types.SymbolInfo{
		Name:              "UST10Y",
		TradeCalcMode:     types.CalcModeExchBonds,
		TradeContractSize: 10,
		TradeFaceValue:    1000,
	}

	margin := suite.calc.margin(spec, 100, 1, 98.5)
	suite.Equal(9850.0, margin)
}

func (suite *CalculatorTestSuite) TestMarginCollateralIsZero() {
	spec := types.SymbolInfo{
		Name:          "COLL",
		TradeCalcMode: types.CalcModeServCollateral,
	}

	margin := suite.calc.margin(spec, 100, 5, 200)
	suite.Equal(0.0, margin)
}

func (suite *CalculatorTestSuite) TestMarginUnknownModeFallsBackToForex() {
	spec := forexSpec()
	spec.TradeCalcMode = types.CalcMode(99)

	margin := suite.calc.margin(spec, 100, 0.1, 1.10)
	suite.Equal(110.0, margin)
}

func (suite *CalculatorTestSuite) TestMarginRounding() {
	spec := forexSpec()

	margin := suite.calc.margin(spec, 3, 0.1, 1.10101)
	// 0.1 * 100000 * 1.10101 / 3 = 3670.0333...
	suite.Equal(3670.03, margin)
}

func (suite *CalculatorTestSuite) TestProfitForexBuy() {
	spec := forexSpec()

	profit, err := suite.calc.profit(spec, types.Tick{}, types.OrderTypeBuy, 0.1, 1.1000, 1.1050)
	suite.Require().NoError(err)
	suite.Equal(50.0, profit)
}

func (suite *CalculatorTestSuite) TestProfitForexSell() {
	spec := forexSpec()

	profit, err := suite.calc.profit(spec, types.Tick{}, types.OrderTypeSell, 0.1, 1.1000, 1.1050)
	suite.Require().NoError(err)
	suite.Equal(-50.0, profit)
}

func (suite *CalculatorTestSuite) TestProfitPendingTypesCarryDirection() {
	spec := forexSpec()

	profit, err := suite.calc.profit(spec, types.Tick{}, types.OrderTypeBuyLimit, 0.1, 1.1000, 1.1050)
	suite.Require().NoError(err)
	suite.Equal(50.0, profit)

	profit, err = suite.calc.profit(spec, types.Tick{}, types.OrderTypeSellStop, 0.1, 1.1000, 1.1050)
	suite.Require().NoError(err)
	suite.Equal(-50.0, profit)
}

func (suite *CalculatorTestSuite) TestProfitCloseByHasNoDirection() {
	spec := forexSpec()

	_, err := suite.calc.profit(spec, types.Tick{}, types.OrderTypeCloseBy, 0.1, 1.1000, 1.1050)
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeInvalidParameter, errors.GetCode(err))
}

func (suite *CalculatorTestSuite) TestProfitFutures() {
	spec := types.SymbolInfo{
		Name:           "ES-U5",
		TradeCalcMode:  types.CalcModeFutures,
		TradeTickValue: 12.5,
		TradeTickSize:  0.25,
	}

	profit, err := suite.calc.profit(spec, types.Tick{}, types.OrderTypeBuy, 2, 5400.00, 5410.50)
	suite.Require().NoError(err)
	// 10.5 * 2 * (12.5 / 0.25) = 1050
	suite.Equal(1050.0, profit)
}

func (suite *CalculatorTestSuite) TestProfitFuturesInvalidTickSize() {
	spec := types.SymbolInfo{
		Name:           "ES-U5",
		TradeCalcMode:  types.CalcModeFutures,
		TradeTickValue: 12.5,
	}

	_, err := suite.calc.profit(spec, types.Tick{}, types.OrderTypeBuy, 2, 5400.00, 5410.50)
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeInvalidParameter, errors.GetCode(err))
}

func (suite *CalculatorTestSuite) TestProfitBonds() {
	spec := types.SymbolInfo{
		Name:                 "UST10Y",
		TradeCalcMode:        types.CalcModeExchBonds,
		TradeContractSize:    10,
		TradeFaceValue:       1000,
		TradeAccruedInterest: 12.5,
	}

	profit, err := suite.calc.profit(spec, types.Tick{}, types.OrderTypeBuy, 1, 98.50, 99.25)
	suite.Require().NoError(err)
	// 1*10*(99.25*1000+12.5) - 1*10*(98.50*1000) = 7625
	suite.Equal(7625.0, profit)
}

func (suite *CalculatorTestSuite) TestProfitCollateralUsesMarketPrice() {
	spec := types.SymbolInfo{
		Name:               "COLL",
		TradeCalcMode:      types.CalcModeServCollateral,
		TradeContractSize:  1,
		TradeLiquidityRate: 0.8,
	}
	tick := types.Tick{Bid: 199.0, Ask: 201.0}

	profit, err := suite.calc.profit(spec, tick, types.OrderTypeBuy, 5, 0, 0)
	suite.Require().NoError(err)
	suite.Equal(804.0, profit)

	profit, err = suite.calc.profit(spec, tick, types.OrderTypeSell, 5, 0, 0)
	suite.Require().NoError(err)
	suite.Equal(796.0, profit)
}

func (suite *CalculatorTestSuite) TestProfitUnknownMode() {
	spec := forexSpec()
	spec.TradeCalcMode = types.CalcMode(99)

	_, err := suite.calc.profit(spec, types.Tick{}, types.OrderTypeBuy, 0.1, 1.1000, 1.1050)
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeInvalidParameter, errors.GetCode(err))
}

func (suite *CalculatorTestSuite) TestProfitRounding() {
	spec := forexSpec()

	profit, err := suite.calc.profit(spec, types.Tick{}, types.OrderTypeBuy, 0.13, 1.10001, 1.10102)
	suite.Require().NoError(err)
	// 0.00101 * 100000 * 0.13 = 13.13
	suite.Equal(13.13, profit)
}
