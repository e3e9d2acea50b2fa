// Package strategy defines the interface trading robots implement and a
// registry the command layer uses to look them up by name. A strategy runs
// against the terminal API only, so the same robot drives the offline
// tester and the live gateway unchanged.
package strategy

import (
	"github.com/rxtech-lab/mtsim/internal/terminal"
	"github.com/rxtech-lab/mtsim/internal/types"
)

// Strategy is the contract a trading robot implements. The runner calls
// Initialize once before the first tick, OnTick for every tick of every
// traded symbol, and OnDeinit once after the last tick or on cancellation.
// Strategies own their state between calls; the terminal owns positions,
// orders and history.
type Strategy interface {
	// Name returns the strategy's display name.
	Name() string
	// Initialize sets up the strategy with a configuration string.
	// The strategy is responsible for decoding the config.
	Initialize(api terminal.Terminal, config string) error
	// OnTick processes one market tick. Returning an error stops the run.
	OnTick(api terminal.Terminal, tick types.Tick) error
	// OnDeinit releases whatever the strategy holds. It runs even when
	// OnTick returned an error.
	OnDeinit(api terminal.Terminal)
}
