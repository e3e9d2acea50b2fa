package tester

import (
	"go.uber.org/zap"

	"github.com/rxtech-lab/mtsim/internal/logger"
	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/internal/utils"
	"github.com/rxtech-lab/mtsim/pkg/errors"
)

// calculator prices margin and profit per the symbol's calculation mode.
// Results are rounded to two decimal places, the account currency precision.
type calculator struct {
	log *logger.Logger
}

// margin returns the margin required to open a trade of volume at price.
// Unknown calculation modes fall back to the forex formula.
func (c calculator) margin(spec types.SymbolInfo, leverage int64, volume, price float64) float64 {
	if leverage < 1 {
		leverage = 1
	}

	marginRate := spec.MarginInitial
	if marginRate <= 0 {
		marginRate = spec.MarginMaintenance
	}

	if marginRate <= 0 {
		marginRate = 1.0
	}

	contractSize := spec.TradeContractSize

	var margin float64

	switch spec.TradeCalcMode {
	case types.CalcModeForex:
		margin = volume * contractSize * price / float64(leverage)
	case types.CalcModeForexNoLeverage:
		margin = volume * contractSize * price
	case types.CalcModeCFD, types.CalcModeCFDIndex, types.CalcModeExchStocks, types.CalcModeExchStocksMoex:
		margin = volume * contractSize * price * marginRate
	case types.CalcModeCFDLeverage:
		margin = volume * contractSize * price * marginRate / float64(leverage)
	case types.CalcModeFutures, types.CalcModeExchFutures:
		margin = volume * spec.MarginInitial
	case types.CalcModeExchBonds, types.CalcModeExchBondsMoex:
		margin = volume * contractSize * spec.TradeFaceValue * price / 100
	case types.CalcModeServCollateral:
		margin = 0.0
	default:
		c.log.Warn("unknown calc mode, fallback margin formula used",
			zap.String("symbol", spec.Name),
			zap.Int("calc_mode", int(spec.TradeCalcMode)),
		)

		margin = volume * contractSize * price / float64(leverage)
	}

	return utils.RoundMoney(margin)
}

// profit returns the result of a trade opened at priceOpen and closed at
// priceClose. The current tick supplies the market price for collateral
// instruments.
func (c calculator) profit(spec types.SymbolInfo, tick types.Tick, orderType types.OrderType, volume, priceOpen, priceClose float64) (float64, error) {
	var direction float64

	switch {
	case orderType.IsBuy():
		direction = 1
	case orderType.IsSell():
		direction = -1
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "order type %d has no trade direction", int(orderType))
	}

	contractSize := spec.TradeContractSize
	priceDelta := (priceClose - priceOpen) * direction

	var profit float64

	switch spec.TradeCalcMode {
	case types.CalcModeForex, types.CalcModeForexNoLeverage,
		types.CalcModeCFD, types.CalcModeCFDIndex, types.CalcModeCFDLeverage,
		types.CalcModeExchStocks, types.CalcModeExchStocksMoex:
		profit = priceDelta * contractSize * volume
	case types.CalcModeFutures, types.CalcModeExchFutures:
		if spec.TradeTickSize <= 0 {
			return 0, errors.Newf(errors.ErrCodeInvalidParameter, "symbol %s has invalid tick size %f", spec.Name, spec.TradeTickSize)
		}

		profit = priceDelta * volume * (spec.TradeTickValue / spec.TradeTickSize)
	case types.CalcModeExchBonds, types.CalcModeExchBondsMoex:
		faceValue := spec.TradeFaceValue
		profit = volume*contractSize*(priceClose*faceValue+spec.TradeAccruedInterest) -
			volume*contractSize*(priceOpen*faceValue)
	case types.CalcModeServCollateral:
		marketPrice := tick.Bid
		if orderType.IsBuy() {
			marketPrice = tick.Ask
		}

		profit = volume * contractSize * marketPrice * spec.TradeLiquidityRate
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported calc mode %d for symbol %s", int(spec.TradeCalcMode), spec.Name)
	}

	return utils.RoundMoney(profit), nil
}
