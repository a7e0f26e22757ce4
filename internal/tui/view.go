package tui

import (
	"fmt"
	"strings"

	"trade-dashboard-go/internal/models"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("236")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	upStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	downStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	panelStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
)

type tableColumn struct {
	key   models.SortKey
	title string
	width int
}

var tableColumns = []tableColumn{
	{models.SortByCreatedAt, "Created", 16},
	{models.SortBySymbol, "Symbol", 12},
	{models.SortBySide, "Side", 5},
	{models.SortByEntryPrice, "Entry", 11},
	{models.SortByCurrentPrice, "Current", 11},
	{models.SortByStopLoss, "SL", 11},
	{models.SortByPnL, "PnL", 9},
	{models.SortByLeverage, "Lev", 4},
	{models.SortByQuantity, "Qty", 10},
	{models.SortByStatus, "Status", 10},
	{models.SortByBot, "Bot", 12},
}

func (m Model) View() string {
	sections := []string{m.renderBalance()}
	switch m.mode {
	case modeDetail, modeConfirm:
		sections = append(sections, m.renderDetail())
	default:
		sections = append(sections, m.renderFilter(), m.renderTable())
	}
	sections = append(sections, m.renderStatusLine(), mutedStyle.Render(m.help()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderBalance() string {
	b := m.snap.Balance
	line := fmt.Sprintf("Available %s  Equity %s  Used Margin %s  Wallet %s",
		b.Available.StringFixed(2), b.Equity.StringFixed(2), b.UsedMargin.StringFixed(2), b.WalletBalance.StringFixed(2))
	if b.Currency != "" {
		line += " " + b.Currency
	}
	parts := []string{titleStyle.Render("Trade Dashboard"), line}
	if b.Loading {
		parts = append(parts, mutedStyle.Render("refreshing…"))
	}
	if b.Error != "" {
		parts = append(parts, errorStyle.Render(b.Error))
	}
	return panelStyle.Render(strings.Join(parts, "  "))
}

func (m Model) renderFilter() string {
	f := m.snap.Filter
	symbol, bot := f.Symbol, f.Bot
	if m.mode == modeEdit {
		if m.editField == "bot" {
			bot = m.input + "▏"
		} else {
			symbol = m.input + "▏"
		}
	}
	line := fmt.Sprintf("Status: %s  Symbol: %s  Bot: %s  (%d of %d)",
		f.Status, orDash(symbol), orDash(bot), len(m.rows), m.snap.Total)
	if m.snap.Loading {
		line += mutedStyle.Render("  loading…")
	}
	return line
}

func (m Model) renderTable() string {
	var b strings.Builder
	cells := make([]string, 0, len(tableColumns))
	for i, col := range tableColumns {
		title := col.title
		if m.order.Key == col.key {
			if m.order.Direction == models.Desc {
				title += "▼"
			} else {
				title += "▲"
			}
		}
		cells = append(cells, pad(fmt.Sprintf("%s %s", bindingFor(i), title), col.width+2))
	}
	b.WriteString(headerStyle.Render(strings.Join(cells, " ")))
	b.WriteString("\n")

	if len(m.rows) == 0 {
		b.WriteString(mutedStyle.Render("No trades"))
		return b.String()
	}
	for i, t := range m.rows {
		row := m.renderRow(t)
		if i == m.cursor {
			row = selectedStyle.Render(row)
		}
		b.WriteString(row)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderRow(t models.Trade) string {
	values := []string{
		formatTime(t),
		t.Symbol,
		string(t.Side),
		t.EntryPrice.String(),
		t.CurrentPrice.String(),
		formatStop(t.StopLoss),
		formatPnL(t.PnLPercent),
		fmt.Sprintf("%dx", t.Leverage),
		t.Quantity.String(),
		string(t.Status),
		t.Bot,
	}
	cells := make([]string, len(values))
	for i, v := range values {
		cells[i] = pad(v, tableColumns[i].width+2)
	}
	switch {
	case t.PnLPercent.IsPositive():
		cells[6] = upStyle.Render(cells[6])
	case t.PnLPercent.IsNegative():
		cells[6] = downStyle.Render(cells[6])
	}
	return strings.Join(cells, " ")
}

func (m Model) renderDetail() string {
	if m.detailErr != "" {
		return panelStyle.Render(errorStyle.Render(m.detailErr))
	}
	if m.detail == nil {
		return panelStyle.Render(mutedStyle.Render("Loading trade " + m.detailID + "…"))
	}
	t := m.detail
	lines := []string{
		titleStyle.Render(fmt.Sprintf("%s %s %s", t.Symbol, t.Side, t.Status)),
		fmt.Sprintf("ID:            %s", t.ID),
		fmt.Sprintf("Entry price:   %s", t.EntryPrice),
		fmt.Sprintf("Current price: %s", t.CurrentPrice),
		fmt.Sprintf("Stop loss:     %s", formatStop(t.StopLoss)),
		fmt.Sprintf("Leverage:      %dx", t.Leverage),
		fmt.Sprintf("Quantity:      %s", t.Quantity),
		fmt.Sprintf("PnL:           %s", formatPnL(t.PnLPercent)),
		fmt.Sprintf("Created:       %s", formatTime(*t)),
	}
	if t.ClosedAt != nil {
		lines = append(lines, fmt.Sprintf("Closed:        %s", t.ClosedAt.Local().Format("2006-01-02 15:04:05")))
	}
	lines = append(lines, fmt.Sprintf("Bot:           %s", orDash(t.Bot)))
	if t.Notes != "" {
		lines = append(lines, fmt.Sprintf("Notes:         %s", t.Notes))
	}
	for i, tp := range t.TakeProfits {
		hit := ""
		if tp.Hit {
			hit = " ✓"
		}
		lines = append(lines, fmt.Sprintf("TP%d:           %s%s", i+1, tp.Price, hit))
	}
	if m.mode == modeConfirm {
		lines = append(lines, "", errorStyle.Render(fmt.Sprintf("Cancel order %s? (y/n)", t.ID)))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderStatusLine() string {
	var parts []string
	if m.snap.Error != "" {
		parts = append(parts, errorStyle.Render(m.snap.Error))
	}
	if m.notice != "" {
		style := noticeStyle
		if strings.HasPrefix(m.notice, "Cancel failed") {
			style = errorStyle
		}
		parts = append(parts, style.Render(m.notice))
	}
	return strings.Join(parts, "  ")
}

func (m Model) help() string {
	switch m.mode {
	case modeEdit:
		return "type to edit " + m.editField + " • enter apply • esc discard"
	case modeConfirm:
		return "y confirm • n back"
	case modeDetail:
		if m.detail != nil && m.detail.Status.Cancellable() {
			return "c cancel order • r reload • esc back"
		}
		return "r reload • esc back"
	}
	return "↑/↓ move • enter details • 1-9,0,- sort • tab status • / symbol • b bot • x clear • r refresh • q quit"
}

func bindingFor(i int) string {
	if i < len(sortKeys) {
		return sortKeys[i]
	}
	return " "
}

func formatTime(t models.Trade) string {
	if t.CreatedAt.IsZero() {
		return "-"
	}
	return t.CreatedAt.Local().Format("01-02 15:04:05")
}

func formatStop(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.String()
}

func formatPnL(d decimal.Decimal) string {
	s := d.StringFixed(2) + "%"
	if d.IsPositive() {
		return "+" + s
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func pad(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
