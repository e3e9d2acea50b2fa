package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/mocks"
	"github.com/rxtech-lab/mtsim/pkg/errors"
)

type TerminalSourceTestSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	term   *mocks.MockTerminal
	source *TerminalSource
	start  time.Time
	end    time.Time
}

func TestTerminalSourceSuite(t *testing.T) {
	suite.Run(t, new(TerminalSourceTestSuite))
}

func (suite *TerminalSourceTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.term = mocks.NewMockTerminal(suite.ctrl)
	suite.source = NewTerminalSource(suite.term)
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.end = time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)
}

func (suite *TerminalSourceTestSuite) TestName() {
	suite.Equal("terminal", suite.source.Name())
}

func (suite *TerminalSourceTestSuite) TestDownloadBars() {
	rates := []types.Rate{
		{Time: suite.start, Open: 1.10, High: 1.11, Low: 1.09, Close: 1.105, TickVolume: 40, Spread: 2},
		{Time: suite.start.Add(time.Hour), Open: 1.105, High: 1.12, Low: 1.10, Close: 1.118, TickVolume: 55, Spread: 2},
	}

	suite.term.EXPECT().
		CopyRatesRange("EURUSD", types.TimeframeH1, suite.start, suite.end).
		Return(rates, nil)

	sink := &barSink{}
	written, err := suite.source.DownloadBars(context.Background(), "EURUSD", types.TimeframeH1, suite.start, suite.end, sink)

	suite.Require().NoError(err)
	suite.Equal(2, written)
	suite.Equal(rates, sink.bars)
}

func (suite *TerminalSourceTestSuite) TestDownloadBars_TerminalError() {
	suite.term.EXPECT().
		CopyRatesRange("EURUSD", types.TimeframeH1, suite.start, suite.end).
		Return(nil, errors.New(errors.ErrCodeNoHistoryData, "no rates"))

	sink := &barSink{}
	written, err := suite.source.DownloadBars(context.Background(), "EURUSD", types.TimeframeH1, suite.start, suite.end, sink)

	suite.Require().Error(err)
	suite.Equal(0, written)
	suite.Equal(errors.ErrCodeNoHistoryData, errors.GetCode(err))
}

func (suite *TerminalSourceTestSuite) TestDownloadBars_CancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &barSink{}
	written, err := suite.source.DownloadBars(ctx, "EURUSD", types.TimeframeH1, suite.start, suite.end, sink)

	suite.Require().Error(err)
	suite.Equal(0, written)
}

func (suite *TerminalSourceTestSuite) TestDownloadTicks() {
	ticks := []types.Tick{
		{Time: suite.start, Bid: 1.10, Ask: 1.1002, TimeMsc: suite.start.UnixMilli(), Flags: types.TickFlagBid | types.TickFlagAsk},
	}

	suite.term.EXPECT().
		CopyTicksRange("EURUSD", suite.start, suite.end, types.CopyTicksAll).
		Return(ticks, nil)

	sink := &tickSink{}
	written, err := suite.source.DownloadTicks(context.Background(), "EURUSD", suite.start, suite.end, sink)

	suite.Require().NoError(err)
	suite.Equal(1, written)
	suite.Equal(ticks, sink.ticks)
}

func (suite *TerminalSourceTestSuite) TestSymbolSpec_SelectsSymbolFirst() {
	spec := types.SymbolInfo{Name: "EURUSD", Digits: 5, Point: 0.00001}

	gomock.InOrder(
		suite.term.EXPECT().SymbolSelect("EURUSD", true).Return(nil),
		suite.term.EXPECT().SymbolInfo("EURUSD").Return(spec, nil),
	)

	got, err := suite.source.SymbolSpec(context.Background(), "EURUSD")

	suite.Require().NoError(err)
	suite.Equal(spec, got)
}

func (suite *TerminalSourceTestSuite) TestSymbolSpec_SelectFails() {
	suite.term.EXPECT().
		SymbolSelect("NOPE", true).
		Return(errors.New(errors.ErrCodeSymbolNotFound, "unknown symbol"))

	_, err := suite.source.SymbolSpec(context.Background(), "NOPE")

	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeSymbolNotFound, errors.GetCode(err))
}

func (suite *TerminalSourceTestSuite) TestClose() {
	suite.term.EXPECT().Shutdown().Return(nil)

	suite.NoError(suite.source.Close())
}
