package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type TimeframeTestSuite struct {
	suite.Suite
}

func TestTimeframeSuite(t *testing.T) {
	suite.Run(t, new(TimeframeTestSuite))
}

func (suite *TimeframeTestSuite) TestPeriodSeconds() {
	tests := []struct {
		name     string
		tf       Timeframe
		expected int
	}{
		{name: "M1 is one minute", tf: TimeframeM1, expected: 60},
		{name: "M5 is five minutes", tf: TimeframeM5, expected: 300},
		{name: "M30 is thirty minutes", tf: TimeframeM30, expected: 1800},
		{name: "H1 is one hour", tf: TimeframeH1, expected: 3600},
		{name: "H4 is four hours", tf: TimeframeH4, expected: 4 * 3600},
		{name: "H12 is twelve hours", tf: TimeframeH12, expected: 12 * 3600},
		{name: "D1 is one day", tf: TimeframeD1, expected: 24 * 3600},
		{name: "W1 is one week", tf: TimeframeW1, expected: 7 * 24 * 3600},
		{name: "MN1 is thirty days", tf: TimeframeMN1, expected: 30 * 24 * 3600},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(tc.expected, tc.tf.PeriodSeconds())
		})
	}
}

func (suite *TimeframeTestSuite) TestEncodedValues() {
	// The wire encoding places hours at 0x4000, weeks at 0x8000 and months
	// at 0xC000.
	suite.Equal(Timeframe(1), TimeframeM1)
	suite.Equal(Timeframe(16385), TimeframeH1)
	suite.Equal(Timeframe(16408), TimeframeD1)
	suite.Equal(Timeframe(32769), TimeframeW1)
	suite.Equal(Timeframe(49153), TimeframeMN1)
}

func (suite *TimeframeTestSuite) TestParseTimeframe() {
	tf, err := ParseTimeframe("M15")
	suite.NoError(err)
	suite.Equal(TimeframeM15, tf)

	tf, err = ParseTimeframe("H4")
	suite.NoError(err)
	suite.Equal(TimeframeH4, tf)

	_, err = ParseTimeframe("M7")
	suite.Error(err)

	_, err = ParseTimeframe("")
	suite.Error(err)
}

func (suite *TimeframeTestSuite) TestString() {
	suite.Equal("M1", TimeframeM1.String())
	suite.Equal("D1", TimeframeD1.String())
	suite.Equal("MN1", TimeframeMN1.String())
	suite.Equal("", Timeframe(999).String())
}

func (suite *TimeframeTestSuite) TestRoundTripAllNames() {
	for _, name := range TimeframeNames {
		tf, err := ParseTimeframe(name)
		suite.NoError(err)
		suite.Equal(name, tf.String())
		suite.True(tf.Valid())
	}
}

func (suite *TimeframeTestSuite) TestDuration() {
	suite.Equal(time.Minute, TimeframeM1.Duration())
	suite.Equal(24*time.Hour, TimeframeD1.Duration())
}
