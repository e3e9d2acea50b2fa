package trade

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/mocks"
	"github.com/rxtech-lab/mtsim/pkg/errors"
)

type TradeTestSuite struct {
	suite.Suite
	ctrl  *gomock.Controller
	term  *mocks.MockTerminal
	trade *Trade
}

func TestTradeSuite(t *testing.T) {
	suite.Run(t, new(TradeTestSuite))
}

func (suite *TradeTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.term = mocks.NewMockTerminal(suite.ctrl)

	suite.trade = NewTrade(suite.term)
	suite.trade.SetExpertMagicNumber(777)
	suite.trade.SetDeviationInPoints(10)
	suite.trade.SetTypeFilling(types.OrderFillingIOC)
}

// capture arranges a successful OrderSend and records the request it got.
func (suite *TradeTestSuite) capture(sent *types.TradeRequest, result types.TradeResult) {
	suite.term.EXPECT().
		OrderSend(gomock.Any()).
		DoAndReturn(func(request types.TradeRequest) (types.TradeResult, error) {
			*sent = request
			return result, nil
		})
}

func doneResult() types.TradeResult {
	return types.TradeResult{
		Retcode: types.RetcodeDone,
		Deal:    301,
		Order:   101,
		Volume:  0.10,
		Price:   1.10010,
		Bid:     1.10000,
		Ask:     1.10010,
		Comment: "Request completed",
	}
}

func (suite *TradeTestSuite) TestBuyBuildsDealRequest() {
	want := types.TradeRequest{
		Action:      types.TradeActionDeal,
		Symbol:      "EURUSD",
		Volume:      0.10,
		Type:        types.OrderTypeBuy,
		Price:       1.10010,
		SL:          1.09500,
		TP:          1.10500,
		Deviation:   10,
		Magic:       777,
		TypeTime:    types.OrderTimeGTC,
		TypeFilling: types.OrderFillingIOC,
		Comment:     "scalp",
	}
	suite.term.EXPECT().OrderSend(want).Return(doneResult(), nil)

	suite.Require().NoError(suite.trade.Buy(0.10, "EURUSD", 1.10010, 1.09500, 1.10500, "scalp"))

	suite.Equal(want, suite.trade.Request())
	suite.Equal(doneResult(), suite.trade.Result())
}

func (suite *TradeTestSuite) TestBuyZeroPriceUsesAsk() {
	suite.term.EXPECT().
		SymbolInfoTick("EURUSD").
		Return(types.Tick{Bid: 1.10000, Ask: 1.10010}, nil)

	var sent types.TradeRequest
	suite.capture(&sent, doneResult())

	suite.Require().NoError(suite.trade.Buy(0.10, "EURUSD", 0, 0, 0, ""))

	suite.Equal(1.10010, sent.Price)
	suite.Equal(types.OrderTypeBuy, sent.Type)
}

func (suite *TradeTestSuite) TestSellZeroPriceUsesBid() {
	suite.term.EXPECT().
		SymbolInfoTick("EURUSD").
		Return(types.Tick{Bid: 1.10000, Ask: 1.10010}, nil)

	var sent types.TradeRequest
	suite.capture(&sent, doneResult())

	suite.Require().NoError(suite.trade.Sell(0.10, "EURUSD", 0, 0, 0, ""))

	suite.Equal(1.10000, sent.Price)
	suite.Equal(types.OrderTypeSell, sent.Type)
}

func (suite *TradeTestSuite) TestPositionOpenRejectsPendingType() {
	err := suite.trade.PositionOpen("EURUSD", types.OrderTypeBuyLimit, 0.10, 1.09500, 0, 0, "")

	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeInvalidParameter, errors.GetCode(err))
}

func (suite *TradeTestSuite) TestCommentTruncated() {
	long := strings.Repeat("grid-level-", 5)
	suite.Require().Greater(len(long), maxCommentLength)

	var sent types.TradeRequest
	suite.capture(&sent, doneResult())

	suite.Require().NoError(suite.trade.Buy(0.10, "EURUSD", 1.10010, 0, 0, long))

	suite.Len(sent.Comment, maxCommentLength)
	suite.Equal(long[:maxCommentLength], sent.Comment)
}

func (suite *TradeTestSuite) TestRejectedResultIsError() {
	rejected := types.TradeResult{
		Retcode: types.RetcodeNoMoney,
		Comment: "There is not enough money to complete the request",
	}
	suite.term.EXPECT().OrderSend(gomock.Any()).Return(rejected, nil)

	err := suite.trade.Buy(50.0, "EURUSD", 1.10010, 0, 0, "")

	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeOrderFailed, errors.GetCode(err))
	suite.Contains(err.Error(), "10019")
	suite.Equal(types.RetcodeNoMoney, suite.trade.ResultRetcode())
}

func (suite *TradeTestSuite) TestSetTypeFillingBySymbol() {
	suite.term.EXPECT().
		SymbolInfo("EURUSD").
		Return(types.SymbolInfo{Name: "EURUSD", FillingMode: types.SymbolFillingFOK}, nil)

	suite.Require().NoError(suite.trade.SetTypeFillingBySymbol("EURUSD"))

	var sent types.TradeRequest
	suite.capture(&sent, doneResult())
	suite.Require().NoError(suite.trade.Buy(0.10, "EURUSD", 1.10010, 0, 0, ""))

	suite.Equal(types.OrderFillingFOK, sent.TypeFilling)
}

func (suite *TradeTestSuite) TestFillingForMode() {
	suite.Equal(types.OrderFillingFOK, fillingForMode(types.SymbolFillingFOK))
	suite.Equal(types.OrderFillingIOC, fillingForMode(types.SymbolFillingIOC))
	suite.Equal(types.OrderFillingBOC, fillingForMode(types.SymbolFillingBOC))
	suite.Equal(types.OrderFillingReturn, fillingForMode(types.SymbolFillingFOK|types.SymbolFillingIOC))
	suite.Equal(types.OrderFillingReturn, fillingForMode(0))
}

func (suite *TradeTestSuite) TestBuyLimitPlacesPending() {
	suite.term.EXPECT().
		SymbolInfo("EURUSD").
		Return(types.SymbolInfo{Name: "EURUSD", Visible: true}, nil)

	want := types.TradeRequest{
		Action:      types.TradeActionPending,
		Symbol:      "EURUSD",
		Volume:      0.20,
		Type:        types.OrderTypeBuyLimit,
		Price:       1.09500,
		SL:          1.09000,
		TP:          1.10000,
		Magic:       777,
		TypeTime:    types.OrderTimeGTC,
		TypeFilling: types.OrderFillingIOC,
		Comment:     "dip",
	}
	suite.term.EXPECT().OrderSend(want).Return(doneResult(), nil)

	err := suite.trade.BuyLimit(0.20, 1.09500, "EURUSD", 1.09000, 1.10000, types.OrderTimeGTC, time.Time{}, "dip")

	suite.Require().NoError(err)
	suite.Equal(int64(101), suite.trade.ResultOrder())
}

func (suite *TradeTestSuite) TestSellStopLimitCarriesStopLimit() {
	suite.term.EXPECT().
		SymbolInfo("EURUSD").
		Return(types.SymbolInfo{Name: "EURUSD", Visible: true}, nil)

	var sent types.TradeRequest
	suite.capture(&sent, doneResult())

	err := suite.trade.SellStopLimit(0.10, 1.09500, 1.09550, "EURUSD", 0, 0, types.OrderTimeGTC, time.Time{}, "")

	suite.Require().NoError(err)
	suite.Equal(types.OrderTypeSellStopLimit, sent.Type)
	suite.Equal(1.09500, sent.Price)
	suite.Equal(1.09550, sent.StopLimit)
}

func (suite *TradeTestSuite) TestBuyStopIgnoresStopLimit() {
	suite.term.EXPECT().
		SymbolInfo("EURUSD").
		Return(types.SymbolInfo{Name: "EURUSD", Visible: true}, nil)

	var sent types.TradeRequest
	suite.capture(&sent, doneResult())

	err := suite.trade.BuyStop(0.10, 1.10500, "EURUSD", 0, 0, types.OrderTimeGTC, time.Time{}, "")

	suite.Require().NoError(err)
	suite.Zero(sent.StopLimit)
}

func (suite *TradeTestSuite) TestOrderOpenSelectsHiddenSymbol() {
	gomock.InOrder(
		suite.term.EXPECT().
			SymbolInfo("GBPUSD").
			Return(types.SymbolInfo{Name: "GBPUSD", Visible: false}, nil),
		suite.term.EXPECT().SymbolSelect("GBPUSD", true).Return(nil),
		suite.term.EXPECT().OrderSend(gomock.Any()).Return(doneResult(), nil),
	)

	err := suite.trade.BuyLimit(0.10, 1.25000, "GBPUSD", 0, 0, types.OrderTimeGTC, time.Time{}, "")

	suite.Require().NoError(err)
}

func (suite *TradeTestSuite) TestOrderOpenExpirationRequired() {
	suite.term.EXPECT().
		SymbolInfo("EURUSD").
		Return(types.SymbolInfo{Name: "EURUSD", Visible: true}, nil).
		Times(2)

	for _, typeTime := range []types.OrderTime{types.OrderTimeSpecified, types.OrderTimeSpecifiedDay} {
		err := suite.trade.BuyLimit(0.10, 1.09500, "EURUSD", 0, 0, typeTime, time.Time{}, "")

		suite.Require().Error(err)
		suite.Equal(errors.ErrCodeInvalidExpiration, errors.GetCode(err))
	}
}

func (suite *TradeTestSuite) TestOrderOpenCarriesExpiration() {
	suite.term.EXPECT().
		SymbolInfo("EURUSD").
		Return(types.SymbolInfo{Name: "EURUSD", Visible: true}, nil)

	expiration := time.Date(2024, 1, 2, 18, 0, 0, 0, time.UTC)

	var sent types.TradeRequest
	suite.capture(&sent, doneResult())

	err := suite.trade.SellLimit(0.10, 1.10500, "EURUSD", 0, 0, types.OrderTimeSpecified, expiration, "")

	suite.Require().NoError(err)
	suite.Equal(types.OrderTimeSpecified, sent.TypeTime)
	suite.Equal(expiration, sent.Expiration)
}

func (suite *TradeTestSuite) TestOrderOpenRejectsMarketType() {
	err := suite.trade.OrderOpen("EURUSD", types.OrderTypeBuy, 0.10, 0, 1.10010, 0, 0, types.OrderTimeGTC, time.Time{}, "")

	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeInvalidParameter, errors.GetCode(err))
}

func (suite *TradeTestSuite) TestPositionCloseLong() {
	suite.term.EXPECT().
		PositionsGet(gomock.Any()).
		Return([]types.TradePosition{{
			Ticket: 55,
			Symbol: "EURUSD",
			Volume: 0.30,
			Type:   types.PositionTypeBuy,
		}}, nil)
	suite.term.EXPECT().
		SymbolInfoTick("EURUSD").
		Return(types.Tick{Bid: 1.10500, Ask: 1.10510}, nil)

	want := types.TradeRequest{
		Action:      types.TradeActionDeal,
		Symbol:      "EURUSD",
		Volume:      0.30,
		Type:        types.OrderTypeSell,
		Position:    55,
		Price:       1.10500,
		Deviation:   10,
		Magic:       777,
		TypeTime:    types.OrderTimeGTC,
		TypeFilling: types.OrderFillingIOC,
	}
	suite.term.EXPECT().OrderSend(want).Return(doneResult(), nil)

	suite.Require().NoError(suite.trade.PositionClose(55))
}

func (suite *TradeTestSuite) TestPositionCloseShortUsesAsk() {
	suite.term.EXPECT().
		PositionsGet(gomock.Any()).
		Return([]types.TradePosition{{
			Ticket: 56,
			Symbol: "EURUSD",
			Volume: 0.10,
			Type:   types.PositionTypeSell,
		}}, nil)
	suite.term.EXPECT().
		SymbolInfoTick("EURUSD").
		Return(types.Tick{Bid: 1.10500, Ask: 1.10510}, nil)

	var sent types.TradeRequest
	suite.capture(&sent, doneResult())

	suite.Require().NoError(suite.trade.PositionClose(56))

	suite.Equal(types.OrderTypeBuy, sent.Type)
	suite.Equal(1.10510, sent.Price)
	suite.Equal(int64(56), sent.Position)
}

func (suite *TradeTestSuite) TestPositionCloseNotFound() {
	suite.term.EXPECT().PositionsGet(gomock.Any()).Return(nil, nil)

	err := suite.trade.PositionClose(99)

	suite.Require().Error(err)
	suite.Equal(errors.ErrCodePositionNotFound, errors.GetCode(err))
}

func (suite *TradeTestSuite) TestPositionModify() {
	suite.term.EXPECT().
		PositionsGet(gomock.Any()).
		Return([]types.TradePosition{{Ticket: 55, Symbol: "EURUSD", Type: types.PositionTypeBuy}}, nil)

	want := types.TradeRequest{
		Action:   types.TradeActionSLTP,
		Symbol:   "EURUSD",
		Position: 55,
		SL:       1.09800,
		TP:       1.10800,
		Magic:    777,
	}
	suite.term.EXPECT().OrderSend(want).Return(doneResult(), nil)

	suite.Require().NoError(suite.trade.PositionModify(55, 1.09800, 1.10800))
}

func (suite *TradeTestSuite) TestOrderDelete() {
	want := types.TradeRequest{
		Action: types.TradeActionRemove,
		Order:  77,
		Magic:  777,
	}
	suite.term.EXPECT().OrderSend(want).Return(doneResult(), nil)

	suite.Require().NoError(suite.trade.OrderDelete(77))
}

func (suite *TradeTestSuite) TestOrderModifyKeepsOrderType() {
	suite.term.EXPECT().
		OrdersGet(gomock.Any()).
		Return([]types.TradeOrder{{Ticket: 77, Symbol: "EURUSD", Type: types.OrderTypeBuyLimit}}, nil)

	want := types.TradeRequest{
		Action:      types.TradeActionModify,
		Order:       77,
		Symbol:      "EURUSD",
		Price:       1.09400,
		SL:          1.09000,
		TP:          1.10000,
		Type:        types.OrderTypeBuyLimit,
		Magic:       777,
		TypeTime:    types.OrderTimeGTC,
		TypeFilling: types.OrderFillingIOC,
	}
	suite.term.EXPECT().OrderSend(want).Return(doneResult(), nil)

	err := suite.trade.OrderModify(77, 1.09400, 1.09000, 1.10000, types.OrderTimeGTC, time.Time{}, 0)

	suite.Require().NoError(err)
}

func (suite *TradeTestSuite) TestOrderModifyStopLimit() {
	suite.term.EXPECT().
		OrdersGet(gomock.Any()).
		Return([]types.TradeOrder{{Ticket: 78, Symbol: "EURUSD", Type: types.OrderTypeSellStopLimit}}, nil)

	var sent types.TradeRequest
	suite.capture(&sent, doneResult())

	err := suite.trade.OrderModify(78, 1.09500, 0, 0, types.OrderTimeGTC, time.Time{}, 1.09550)

	suite.Require().NoError(err)
	suite.Equal(types.OrderTypeSellStopLimit, sent.Type)
	suite.Equal(1.09550, sent.StopLimit)
}

func (suite *TradeTestSuite) TestOrderModifyNotFound() {
	suite.term.EXPECT().OrdersGet(gomock.Any()).Return(nil, nil)

	err := suite.trade.OrderModify(99, 1.09400, 0, 0, types.OrderTimeGTC, time.Time{}, 0)

	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeOrderNotFound, errors.GetCode(err))
}

func (suite *TradeTestSuite) TestOrderModifyExpirationRequired() {
	suite.term.EXPECT().
		OrdersGet(gomock.Any()).
		Return([]types.TradeOrder{{Ticket: 77, Symbol: "EURUSD", Type: types.OrderTypeBuyLimit}}, nil)

	err := suite.trade.OrderModify(77, 1.09400, 0, 0, types.OrderTimeSpecified, time.Time{}, 0)

	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeInvalidExpiration, errors.GetCode(err))
}

func (suite *TradeTestSuite) TestResultAccessors() {
	result := types.TradeResult{
		Retcode: types.RetcodeDone,
		Deal:    301,
		Order:   101,
		Volume:  0.10,
		Price:   1.10010,
		Bid:     1.10000,
		Ask:     1.10010,
		Comment: "buy 0.10 EURUSD at 1.10010",
	}
	suite.term.EXPECT().OrderSend(gomock.Any()).Return(result, nil)

	suite.Require().NoError(suite.trade.Buy(0.10, "EURUSD", 1.10010, 0, 0, ""))

	suite.Equal(types.RetcodeDone, suite.trade.ResultRetcode())
	suite.Equal(int64(301), suite.trade.ResultDeal())
	suite.Equal(int64(101), suite.trade.ResultOrder())
	suite.Equal(0.10, suite.trade.ResultVolume())
	suite.Equal(1.10010, suite.trade.ResultPrice())
	suite.Equal(1.10000, suite.trade.ResultBid())
	suite.Equal(1.10010, suite.trade.ResultAsk())
	suite.Equal("buy 0.10 EURUSD at 1.10010", suite.trade.ResultComment())
}
