package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/rxtech-lab/mtsim/internal/types"
)

// orderTypeLabels are the short order type names the terminal's toolbox tab
// shows; types.OrderType.String carries the full documentation sentence.
var orderTypeLabels = map[types.OrderType]string{
	types.OrderTypeBuy:           "buy",
	types.OrderTypeSell:          "sell",
	types.OrderTypeBuyLimit:      "buy limit",
	types.OrderTypeSellLimit:     "sell limit",
	types.OrderTypeBuyStop:       "buy stop",
	types.OrderTypeSellStop:      "sell stop",
	types.OrderTypeBuyStopLimit:  "buy stop limit",
	types.OrderTypeSellStopLimit: "sell stop limit",
	types.OrderTypeCloseBy:       "close by",
}

var orderStateLabels = map[types.OrderState]string{
	types.OrderStateStarted:  "started",
	types.OrderStatePlaced:   "placed",
	types.OrderStateCanceled: "canceled",
	types.OrderStatePartial:  "partial",
	types.OrderStateFilled:   "filled",
	types.OrderStateRejected: "rejected",
	types.OrderStateExpired:  "expired",
}

// NewPositionsTable creates the open positions table.
func NewPositionsTable() table.Model {
	columns := []table.Column{
		{Title: "Ticket", Width: 10},
		{Title: "Symbol", Width: 10},
		{Title: "Type", Width: 6},
		{Title: "Volume", Width: 8},
		{Title: "Open", Width: 10},
		{Title: "Current", Width: 10},
		{Title: "S/L", Width: 10},
		{Title: "T/P", Width: 10},
		{Title: "Profit", Width: 12},
	}

	return newTable(columns, true)
}

// NewOrdersTable creates the pending orders table.
func NewOrdersTable() table.Model {
	columns := []table.Column{
		{Title: "Ticket", Width: 10},
		{Title: "Time", Width: 17},
		{Title: "Symbol", Width: 10},
		{Title: "Type", Width: 16},
		{Title: "Volume", Width: 8},
		{Title: "Price", Width: 10},
		{Title: "S/L", Width: 10},
		{Title: "T/P", Width: 10},
		{Title: "State", Width: 10},
	}

	return newTable(columns, false)
}

// NewSymbolsTable creates the per-symbol report table.
func NewSymbolsTable() table.Model {
	columns := []table.Column{
		{Title: "Symbol", Width: 10},
		{Title: "Trades", Width: 8},
		{Title: "Win rate", Width: 10},
		{Title: "Gross profit", Width: 14},
		{Title: "Gross loss", Width: 12},
		{Title: "Net profit", Width: 12},
		{Title: "Profit factor", Width: 14},
	}

	return newTable(columns, true)
}

func newTable(columns []table.Column, focused bool) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(focused),
		table.WithHeight(8),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)

	t.SetStyles(s)

	return t
}

// UpdatePositionRows replaces the positions table content with the latest
// snapshot, keeping the terminal's order.
func UpdatePositionRows(t table.Model, positions []types.TradePosition) table.Model {
	rows := make([]table.Row, 0, len(positions))

	for _, position := range positions {
		rows = append(rows, table.Row{
			strconv.FormatInt(position.Ticket, 10),
			position.Symbol,
			strings.ToLower(position.Type.String()),
			fmt.Sprintf("%.2f", position.Volume),
			formatPrice(position.PriceOpen),
			formatPrice(position.PriceCurrent),
			formatLevel(position.SL),
			formatLevel(position.TP),
			FormatProfit(position.Profit),
		})
	}

	t.SetRows(rows)

	return t
}

// UpdateOrderRows replaces the orders table content with the latest
// snapshot.
func UpdateOrderRows(t table.Model, orders []types.TradeOrder) table.Model {
	rows := make([]table.Row, 0, len(orders))

	for _, order := range orders {
		rows = append(rows, table.Row{
			strconv.FormatInt(order.Ticket, 10),
			time.Unix(order.TimeSetup, 0).UTC().Format("2006.01.02 15:04"),
			order.Symbol,
			orderTypeLabels[order.Type],
			fmt.Sprintf("%.2f", order.VolumeCurrent),
			formatPrice(order.PriceOpen),
			formatLevel(order.SL),
			formatLevel(order.TP),
			orderStateLabels[order.State],
		})
	}

	t.SetRows(rows)

	return t
}

// UpdateSymbolRows fills the report table, one row per traded symbol.
func UpdateSymbolRows(t table.Model, symbols []types.SymbolStats) table.Model {
	rows := make([]table.Row, 0, len(symbols))

	for _, symbol := range symbols {
		summary := symbol.Summary
		rows = append(rows, table.Row{
			symbol.Symbol,
			strconv.Itoa(summary.Trades),
			fmt.Sprintf("%.1f%%", summary.WinRate*100),
			fmt.Sprintf("%.2f", summary.GrossProfit),
			fmt.Sprintf("%.2f", summary.GrossLoss),
			fmt.Sprintf("%.2f", summary.NetProfit),
			fmt.Sprintf("%.2f", summary.ProfitFactor),
		})
	}

	t.SetRows(rows)

	return t
}

// RenderAccountHeader renders the live account block above the trade tables.
func RenderAccountHeader(account types.AccountInfo) string {
	fields := []string{
		fmt.Sprintf("%s %d (%s)", LabelStyle.Render("Account:"), account.Login, account.Server),
		fmt.Sprintf("%s %.2f %s", LabelStyle.Render("Balance:"), account.Balance, account.Currency),
		fmt.Sprintf("%s %.2f", LabelStyle.Render("Equity:"), account.Equity),
		fmt.Sprintf("%s %.2f", LabelStyle.Render("Margin:"), account.Margin),
		fmt.Sprintf("%s %.2f", LabelStyle.Render("Free:"), account.MarginFree),
		fmt.Sprintf("%s %s", LabelStyle.Render("Profit:"), FormatProfit(account.Profit)),
	}

	return AccountStyle.Render(strings.Join(fields, "   "))
}

// RenderReportHeader renders the run summary block above the symbols table.
func RenderReportHeader(stats types.RunStats) string {
	account := stats.Account

	top := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Strategy:"), stats.Strategy),
		fmt.Sprintf("%s %s - %s", LabelStyle.Render("Period:"),
			stats.StartDate.Format("2006.01.02"), stats.EndDate.Format("2006.01.02")),
		fmt.Sprintf("%s %s", LabelStyle.Render("Modelling:"), stats.Modelling),
	}

	bottom := []string{
		fmt.Sprintf("%s %.2f", LabelStyle.Render("Deposit:"), account.Deposit),
		fmt.Sprintf("%s %.2f", LabelStyle.Render("Balance:"), account.Balance),
		fmt.Sprintf("%s %s", LabelStyle.Render("Net profit:"), FormatProfit(account.NetProfit)),
		fmt.Sprintf("%s %d", LabelStyle.Render("Trades:"), account.Trades),
		fmt.Sprintf("%s %.1f%%", LabelStyle.Render("Win rate:"), account.WinRate*100),
		fmt.Sprintf("%s %.2f (%.1f%%)", LabelStyle.Render("Drawdown:"),
			account.BalanceDrawdown, account.BalanceDrawdownPercent*100),
	}

	return AccountStyle.Render(strings.Join(top, "   ") + "\n" + strings.Join(bottom, "   "))
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatLevel blanks unset stop levels instead of printing 0.
func formatLevel(v float64) string {
	if v == 0 {
		return "-"
	}

	return formatPrice(v)
}
