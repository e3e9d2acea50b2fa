package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rxtech-lab/mtsim/internal/terminal"
	"github.com/rxtech-lab/mtsim/internal/types"
)

// Display modes.
const (
	ModeGateway = iota
	ModeReport
)

// Focusable panes in gateway mode.
const (
	FocusPositions = iota
	FocusOrders
)

// Model is the toolbox Bubble Tea model: a live trade monitor when attached
// to a gateway, a report browser when opened on a finished tester run.
type Model struct {
	mode int

	// Gateway mode: the attached terminal and its poll interval.
	term     terminal.Terminal
	interval time.Duration

	account   types.AccountInfo
	positions table.Model
	orders    table.Model
	focus     int

	// Report mode.
	stats        types.RunStats
	symbolsTable table.Model

	err    error
	width  int
	height int
}

// NewGatewayModel builds the model that polls a connected terminal.
func NewGatewayModel(term terminal.Terminal, interval time.Duration) Model {
	return Model{
		mode:      ModeGateway,
		term:      term,
		interval:  interval,
		positions: NewPositionsTable(),
		orders:    NewOrdersTable(),
	}
}

// NewReportModel builds the model that browses a tester run report.
func NewReportModel(stats types.RunStats) Model {
	m := Model{
		mode:         ModeReport,
		stats:        stats,
		symbolsTable: NewSymbolsTable(),
	}
	m.symbolsTable = UpdateSymbolRows(m.symbolsTable, stats.Symbols)

	return m
}

// Init implements tea.Model. Gateway mode polls immediately and arms the
// refresh timer; report mode is static.
func (m Model) Init() tea.Cmd {
	if m.mode != ModeGateway {
		return nil
	}

	return tea.Batch(m.snapshot, m.scheduleRefresh())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			if m.mode == ModeGateway {
				if m.focus == FocusPositions {
					m.focus = FocusOrders
					m.positions.Blur()
					m.orders.Focus()
				} else {
					m.focus = FocusPositions
					m.orders.Blur()
					m.positions.Focus()
				}

				return m, nil
			}
		case "r":
			if m.mode == ModeGateway {
				return m, m.snapshot
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		paneHeight := msg.Height/2 - 6
		if paneHeight < 3 {
			paneHeight = 3
		}

		m.positions.SetWidth(msg.Width)
		m.positions.SetHeight(paneHeight)
		m.orders.SetWidth(msg.Width)
		m.orders.SetHeight(paneHeight)
		m.symbolsTable.SetWidth(msg.Width)
		m.symbolsTable.SetHeight(msg.Height - 8)

		return m, nil

	case RefreshMsg:
		return m, tea.Batch(m.snapshot, m.scheduleRefresh())

	case SnapshotMsg:
		m.err = nil
		m.account = msg.Account
		m.positions = UpdatePositionRows(m.positions, msg.Positions)
		m.orders = UpdateOrderRows(m.orders, msg.Orders)

		return m, nil

	case SnapshotErrorMsg:
		m.err = msg.Err

		return m, nil
	}

	// Delegate scrolling to the focused table.
	var cmd tea.Cmd

	switch {
	case m.mode == ModeReport:
		m.symbolsTable, cmd = m.symbolsTable.Update(msg)
	case m.focus == FocusOrders:
		m.orders, cmd = m.orders.Update(msg)
	default:
		m.positions, cmd = m.positions.Update(msg)
	}

	return m, cmd
}

// snapshot polls the terminal once. It runs on the command goroutine; the
// gateway is safe for concurrent use, so a trading robot can share it.
func (m Model) snapshot() tea.Msg {
	account, err := m.term.AccountInfo()
	if err != nil {
		return SnapshotErrorMsg{Err: err}
	}

	positions, err := m.term.PositionsGet()
	if err != nil {
		return SnapshotErrorMsg{Err: err}
	}

	orders, err := m.term.OrdersGet()
	if err != nil {
		return SnapshotErrorMsg{Err: err}
	}

	return SnapshotMsg{Account: account, Positions: positions, Orders: orders}
}

// scheduleRefresh arms the poll timer for one interval.
func (m Model) scheduleRefresh() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return RefreshMsg{At: t}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	var s strings.Builder

	switch m.mode {
	case ModeGateway:
		s.WriteString(TitleStyle.Render("Toolbox - Trade Monitor"))
		s.WriteString("\n\n")
		s.WriteString(RenderAccountHeader(m.account))
		s.WriteString("\n\n")

		if m.err != nil {
			s.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			s.WriteString("\n\n")
		}

		s.WriteString(TitleStyle.Render(fmt.Sprintf("Positions (%d)", len(m.positions.Rows()))))
		s.WriteString("\n")
		s.WriteString(m.positions.View())
		s.WriteString("\n\n")
		s.WriteString(TitleStyle.Render(fmt.Sprintf("Orders (%d)", len(m.orders.Rows()))))
		s.WriteString("\n")
		s.WriteString(m.orders.View())
		s.WriteString("\n")
		s.WriteString(HelpStyle.Render("q: quit | Tab: switch pane | r: refresh now"))

	case ModeReport:
		s.WriteString(TitleStyle.Render(fmt.Sprintf("Toolbox - Report %s", m.stats.ID)))
		s.WriteString("\n\n")
		s.WriteString(RenderReportHeader(m.stats))
		s.WriteString("\n\n")
		s.WriteString(TitleStyle.Render("Symbols"))
		s.WriteString("\n")
		s.WriteString(m.symbolsTable.View())
		s.WriteString("\n")
		s.WriteString(HelpStyle.Render("q: quit"))
	}

	return s.String()
}
