package tester

import (
	"math/rand"
	"time"
)

// ticketTimeBits is how many clock bits a ticket keeps. 57 bits of
// nanoseconds shifted left by six stays inside a positive int64.
const ticketTimeBits = 57

// ticketSource issues the identifiers the simulated terminal hands out.
// Order and position tickets embed the wall clock with six random low bits,
// deal tickets are sequential.
type ticketSource struct {
	rng   *rand.Rand
	last  int64
	deals int64
}

func newTicketSource(seed int64) *ticketSource {
	return &ticketSource{
		rng:   rand.New(rand.NewSource(seed)),
		last:  0,
		deals: 0,
	}
}

// next returns a fresh order or position ticket, strictly greater than any
// ticket issued before it.
func (t *ticketSource) next() int64 {
	nanos := time.Now().UnixNano() & (1<<ticketTimeBits - 1)

	ticket := nanos<<6 | t.rng.Int63n(64)
	if ticket <= t.last {
		ticket = t.last + 1
	}

	t.last = ticket

	return ticket
}

// nextDeal returns the next sequential deal ticket, starting at 1.
func (t *ticketSource) nextDeal() int64 {
	t.deals++

	return t.deals
}
