package main

import (
	"time"

	"github.com/rxtech-lab/mtsim/internal/types"
)

// SnapshotMsg carries one polled state of the attached terminal.
type SnapshotMsg struct {
	Account   types.AccountInfo
	Positions []types.TradePosition
	Orders    []types.TradeOrder
}

// SnapshotErrorMsg indicates a failed poll; the previous snapshot stays on
// screen until a poll succeeds again.
type SnapshotErrorMsg struct {
	Err error
}

// RefreshMsg fires when the poll interval elapses.
type RefreshMsg struct {
	At time.Time
}
