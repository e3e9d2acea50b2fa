package terminal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type FilterTestSuite struct {
	suite.Suite
}

func TestFilterSuite(t *testing.T) {
	suite.Run(t, new(FilterTestSuite))
}

func (suite *FilterTestSuite) TestApplyFilters() {
	set := ApplyFilters(WithSymbol("EURUSD"), WithGroup("EUR*"), WithTicket(42), WithPosition(7))
	suite.Equal("EURUSD", set.Symbol)
	suite.Equal("EUR*", set.Group)
	suite.Equal(int64(42), set.Ticket)
	suite.Equal(int64(7), set.Position)

	empty := ApplyFilters()
	suite.Equal(FilterSet{}, empty)
}

func (suite *FilterTestSuite) TestMatchLive() {
	tests := []struct {
		name    string
		filters []Filter
		symbol  string
		ticket  int64
		want    bool
	}{
		{name: "no filters match everything", symbol: "EURUSD", ticket: 1, want: true},
		{name: "symbol match", filters: []Filter{WithSymbol("EURUSD")}, symbol: "EURUSD", ticket: 1, want: true},
		{name: "symbol mismatch", filters: []Filter{WithSymbol("EURUSD")}, symbol: "GBPUSD", ticket: 1, want: false},
		{name: "group prefix match", filters: []Filter{WithGroup("EUR*")}, symbol: "EURUSD", ticket: 1, want: true},
		{name: "group suffix match", filters: []Filter{WithGroup("*USD")}, symbol: "GBPUSD", ticket: 1, want: true},
		{name: "group mismatch", filters: []Filter{WithGroup("EUR*")}, symbol: "GBPJPY", ticket: 1, want: false},
		{name: "malformed group matches nothing", filters: []Filter{WithGroup("[")}, symbol: "EURUSD", ticket: 1, want: false},
		{name: "ticket match", filters: []Filter{WithTicket(99)}, symbol: "EURUSD", ticket: 99, want: true},
		{name: "ticket mismatch", filters: []Filter{WithTicket(99)}, symbol: "EURUSD", ticket: 98, want: false},
		{
			name:    "symbol wins over group and ticket",
			filters: []Filter{WithSymbol("GBPUSD"), WithGroup("EUR*"), WithTicket(5)},
			symbol:  "GBPUSD",
			ticket:  1,
			want:    true,
		},
		{
			name:    "group wins over ticket",
			filters: []Filter{WithGroup("EUR*"), WithTicket(5)},
			symbol:  "EURUSD",
			ticket:  1,
			want:    true,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			set := ApplyFilters(tc.filters...)
			suite.Equal(tc.want, set.MatchLive(tc.symbol, tc.ticket))
		})
	}
}

func (suite *FilterTestSuite) TestMatchHistory() {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC)
	inside := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	outside := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		filters []Filter
		symbol  string
		ticket  int64
		pos     int64
		t       time.Time
		want    bool
	}{
		{name: "in range no filters", symbol: "EURUSD", ticket: 1, pos: 1, t: inside, want: true},
		{name: "out of range no filters", symbol: "EURUSD", ticket: 1, pos: 1, t: outside, want: false},
		{name: "ticket overrides range", filters: []Filter{WithTicket(9)}, symbol: "EURUSD", ticket: 9, pos: 1, t: outside, want: true},
		{name: "ticket mismatch in range", filters: []Filter{WithTicket(9)}, symbol: "EURUSD", ticket: 8, pos: 1, t: inside, want: false},
		{name: "position overrides range", filters: []Filter{WithPosition(7)}, symbol: "EURUSD", ticket: 1, pos: 7, t: outside, want: true},
		{name: "position mismatch", filters: []Filter{WithPosition(7)}, symbol: "EURUSD", ticket: 1, pos: 6, t: inside, want: false},
		{name: "group and range both apply", filters: []Filter{WithGroup("EUR*")}, symbol: "EURUSD", ticket: 1, pos: 1, t: inside, want: true},
		{name: "group mismatch in range", filters: []Filter{WithGroup("EUR*")}, symbol: "GBPUSD", ticket: 1, pos: 1, t: inside, want: false},
		{name: "group match out of range", filters: []Filter{WithGroup("EUR*")}, symbol: "EURUSD", ticket: 1, pos: 1, t: outside, want: false},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			set := ApplyFilters(tc.filters...)
			suite.Equal(tc.want, set.MatchHistory(tc.symbol, tc.ticket, tc.pos, tc.t, from, to))
		})
	}
}
