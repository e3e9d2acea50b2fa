package terminal

import (
	"path"
	"time"
)

// FilterSet is the resolved form of the filter options a getter received.
// Implementations apply it with MatchLive or MatchHistory instead of reading
// the fields directly, so both terminals narrow results the same way.
type FilterSet struct {
	Symbol   string
	Group    string
	Ticket   int64
	Position int64
}

// Filter narrows the result set of OrdersGet, PositionsGet and the history
// getters.
type Filter func(*FilterSet)

// WithSymbol keeps only items of the given symbol. Takes precedence over
// every other filter.
func WithSymbol(symbol string) Filter {
	return func(f *FilterSet) {
		f.Symbol = symbol
	}
}

// WithGroup keeps items whose symbol matches the glob pattern, e.g. "EUR*"
// or "*USD". Ignored when a symbol filter is present.
func WithGroup(group string) Filter {
	return func(f *FilterSet) {
		f.Group = group
	}
}

// WithTicket keeps only the item with the given ticket.
func WithTicket(ticket int64) Filter {
	return func(f *FilterSet) {
		f.Ticket = ticket
	}
}

// WithPosition keeps history orders and deals belonging to the given
// position identifier.
func WithPosition(id int64) Filter {
	return func(f *FilterSet) {
		f.Position = id
	}
}

// ApplyFilters folds the options into a FilterSet.
func ApplyFilters(filters ...Filter) FilterSet {
	var set FilterSet
	for _, f := range filters {
		f(&set)
	}

	return set
}

// matchGroup reports whether symbol matches the group glob. A malformed
// pattern matches nothing.
func (f FilterSet) matchGroup(symbol string) bool {
	ok, err := path.Match(f.Group, symbol)

	return err == nil && ok
}

// MatchLive reports whether a live order or position passes the filter.
// Exactly one criterion applies, in the terminal's precedence order: symbol,
// then group, then ticket. An empty set matches everything.
func (f FilterSet) MatchLive(symbol string, ticket int64) bool {
	switch {
	case f.Symbol != "":
		return symbol == f.Symbol
	case f.Group != "":
		return f.matchGroup(symbol)
	case f.Ticket != 0:
		return ticket == f.Ticket
	default:
		return true
	}
}

// MatchHistory reports whether a historical order or deal passes the filter.
// A ticket or position reference overrides the date interval; otherwise the
// item's time must fall inside [from, to] and, when a group is set, its
// symbol must match the glob.
func (f FilterSet) MatchHistory(symbol string, ticket, position int64, t time.Time, from, to time.Time) bool {
	switch {
	case f.Ticket != 0:
		return ticket == f.Ticket
	case f.Position != 0:
		return position == f.Position
	}

	if t.Before(from) || t.After(to) {
		return false
	}

	if f.Group != "" && !f.matchGroup(symbol) {
		return false
	}

	return true
}
