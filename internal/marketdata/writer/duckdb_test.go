package writer_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/mtsim/internal/history"
	"github.com/rxtech-lab/mtsim/internal/logger"
	"github.com/rxtech-lab/mtsim/internal/marketdata/writer"
	"github.com/rxtech-lab/mtsim/internal/types"
)

type DuckDBWriterTestSuite struct {
	suite.Suite
	root string
}

func TestDuckDBWriterSuite(t *testing.T) {
	suite.Run(t, new(DuckDBWriterTestSuite))
}

func (suite *DuckDBWriterTestSuite) SetupTest() {
	suite.root = suite.T().TempDir()
}

// openStore reads the files the writers produced through the same store the
// terminal uses, so the test catches any schema drift between the two.
func (suite *DuckDBWriterTestSuite) openStore() *history.Store {
	log, err := logger.NewLogger()
	suite.Require().NoError(err)

	store, err := history.NewStore(suite.root, log)
	suite.Require().NoError(err)

	suite.T().Cleanup(func() {
		suite.Require().NoError(store.Close())
	})

	return store
}

func (suite *DuckDBWriterTestSuite) TestNewDuckDBBarWriter_EmptyPath() {
	w, err := writer.NewDuckDBBarWriter("")
	suite.Error(err)
	suite.Nil(w)
}

func (suite *DuckDBWriterTestSuite) TestNewDuckDBTickWriter_EmptyPath() {
	w, err := writer.NewDuckDBTickWriter("")
	suite.Error(err)
	suite.Nil(w)
}

func (suite *DuckDBWriterTestSuite) TestBarWriter_RoundTrip() {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	outputPath := filepath.Join(history.BarsDir(suite.root, "EURUSD", types.TimeframeH1), history.MonthFileName(start))

	w, err := writer.NewDuckDBBarWriter(outputPath)
	suite.Require().NoError(err)
	suite.Equal(outputPath, w.OutputPath())

	suite.Require().NoError(w.Initialize())

	for i := 0; i < 48; i++ {
		bar := types.Rate{
			Time:       start.Add(time.Duration(i) * time.Hour),
			Open:       1.0800 + float64(i)*0.0001,
			High:       1.0810 + float64(i)*0.0001,
			Low:        1.0790 + float64(i)*0.0001,
			Close:      1.0805 + float64(i)*0.0001,
			TickVolume: int64(100 + i),
			Spread:     2,
			RealVolume: int64(1000 + i),
		}
		suite.Require().NoError(w.Write(bar))
	}

	path, err := w.Finalize()
	suite.Require().NoError(err)
	suite.Equal(outputPath, path)
	suite.Require().NoError(w.Close())

	suite.FileExists(outputPath)

	store := suite.openStore()

	bars, err := store.RatesRange("EURUSD", types.TimeframeH1, start, start.Add(48*time.Hour))
	suite.Require().NoError(err)
	suite.Require().Len(bars, 48)
	suite.Equal(start, bars[0].Time)
	suite.InDelta(1.0800, bars[0].Open, 1e-9)
	suite.InDelta(1.0810, bars[0].High, 1e-9)
	suite.Equal(int64(100), bars[0].TickVolume)
	suite.Equal(2, bars[0].Spread)
	suite.Equal(int64(1047), bars[47].RealVolume)
}

func (suite *DuckDBWriterTestSuite) TestTickWriter_RoundTrip() {
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	outputPath := filepath.Join(history.TicksDir(suite.root, "EURUSD"), history.MonthFileName(start))

	w, err := writer.NewDuckDBTickWriter(outputPath)
	suite.Require().NoError(err)
	suite.Require().NoError(w.Initialize())

	for i := 0; i < 20; i++ {
		at := start.Add(time.Duration(i) * time.Second)
		tick := types.Tick{
			Time:       at,
			Bid:        1.0800 + float64(i)*0.00001,
			Ask:        1.0802 + float64(i)*0.00001,
			Last:       0,
			Volume:     0,
			TimeMsc:    at.UnixMilli(),
			Flags:      types.TickFlagBid | types.TickFlagAsk,
			VolumeReal: 0,
		}
		suite.Require().NoError(w.Write(tick))
	}

	_, err = w.Finalize()
	suite.Require().NoError(err)
	suite.Require().NoError(w.Close())

	store := suite.openStore()

	ticks, err := store.TicksRange("EURUSD", start, start.Add(time.Minute), types.CopyTicksAll)
	suite.Require().NoError(err)
	suite.Require().Len(ticks, 20)
	suite.Equal(start, ticks[0].Time)
	suite.Equal(start.UnixMilli(), ticks[0].TimeMsc)
	suite.Equal(types.TickFlagBid|types.TickFlagAsk, ticks[0].Flags)
	suite.InDelta(1.0802, ticks[0].Ask, 1e-9)

	count, err := store.CountTicks("EURUSD", optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Equal(20, count)
}

func (suite *DuckDBWriterTestSuite) TestBarWriter_WriteBeforeInitialize() {
	outputPath := filepath.Join(suite.root, "out.parquet")

	w, err := writer.NewDuckDBBarWriter(outputPath)
	suite.Require().NoError(err)

	err = w.Write(types.Rate{Time: time.Now()})
	suite.Error(err)

	_, err = w.Finalize()
	suite.Error(err)
}

func (suite *DuckDBWriterTestSuite) TestBarWriter_CloseWithoutFinalizeLeavesNoFile() {
	outputPath := filepath.Join(suite.root, "partial.parquet")

	w, err := writer.NewDuckDBBarWriter(outputPath)
	suite.Require().NoError(err)
	suite.Require().NoError(w.Initialize())
	suite.Require().NoError(w.Write(types.Rate{Time: time.Now().UTC(), Open: 1, High: 1, Low: 1, Close: 1}))
	suite.Require().NoError(w.Close())

	_, err = os.Stat(outputPath)
	suite.True(os.IsNotExist(err))
}

func (suite *DuckDBWriterTestSuite) TestTickWriter_DoubleCloseIsSafe() {
	outputPath := filepath.Join(suite.root, "ticks.parquet")

	w, err := writer.NewDuckDBTickWriter(outputPath)
	suite.Require().NoError(err)
	suite.Require().NoError(w.Initialize())
	suite.Require().NoError(w.Close())
	suite.Require().NoError(w.Close())
}
