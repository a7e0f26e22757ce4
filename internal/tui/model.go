// Package tui is a terminal front end for the trade store.
package tui

import (
	"context"
	"fmt"

	"trade-dashboard-go/internal/models"
	"trade-dashboard-go/internal/store"
	"trade-dashboard-go/internal/tradeapi"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
)

// TradeStore is what the terminal UI needs from the store.
type TradeStore interface {
	Snapshot() store.Snapshot
	SetFilter(ctx context.Context, f models.Filter) error
	RefreshTrades(ctx context.Context) error
	RefreshBalance(ctx context.Context) error
	CancelOrder(ctx context.Context, id string) tradeapi.CancelResult
	TradeDetail(ctx context.Context, id string) (models.Trade, error)
}

type mode int

const (
	modeList mode = iota
	modeDetail
	modeConfirm
	modeEdit
)

// sortKeys are bound to table columns, left to right.
var sortKeys = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "0", "-"}

var sortKeyBindings = map[string]models.SortKey{}

func init() {
	for i, k := range models.SortKeys {
		if i < len(sortKeys) {
			sortKeyBindings[sortKeys[i]] = k
		}
	}
}

type (
	changeMsg struct {
		change store.Change
		ok     bool
	}
	detailMsg struct {
		id    string
		trade models.Trade
		err   error
	}
	cancelMsg struct {
		id     string
		result tradeapi.CancelResult
	}
	// doneMsg ends a background store call; the snapshot carries the outcome.
	doneMsg struct{}
)

// Model is the bubbletea model of the dashboard.
type Model struct {
	ctx     context.Context
	store   TradeStore
	changes <-chan store.Change

	snap   store.Snapshot
	rows   []models.Trade
	order  models.SortOrder
	cursor int

	mode      mode
	detailID  string
	detail    *models.Trade
	detailErr string
	notice    string

	editField string
	input     string

	width  int
	height int
}

// New creates the model. changes is usually the channel returned by
// store.Subscribe; when it closes the program quits.
func New(ctx context.Context, st TradeStore, changes <-chan store.Change) Model {
	m := Model{
		ctx:     ctx,
		store:   st,
		changes: changes,
		order:   models.DefaultSortOrder(),
	}
	m.reload()
	return m
}

func (m Model) Init() tea.Cmd {
	return m.waitForChange()
}

func (m *Model) reload() {
	m.snap = m.store.Snapshot()
	m.rows = models.SortTrades(m.snap.Trades, m.order)
	if m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}
}

func (m Model) selected() (models.Trade, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return models.Trade{}, false
	}
	return m.rows[m.cursor], true
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case changeMsg:
		if !msg.ok {
			return m, tea.Quit
		}
		m.reload()
		return m, m.waitForChange()
	case doneMsg:
		m.reload()
		return m, nil
	case detailMsg:
		// a late answer for a trade the user already left
		if m.mode == modeList || m.mode == modeEdit || msg.id != m.detailID {
			return m, nil
		}
		if msg.err != nil {
			m.detailErr = fmt.Sprintf("unable to load trade: %v", msg.err)
			return m, nil
		}
		m.detailErr = ""
		m.detail = &msg.trade
		return m, nil
	case cancelMsg:
		if msg.result.Success {
			m.notice = fmt.Sprintf("Order %s cancelled", msg.id)
			m.mode = modeList
			m.detail = nil
			m.reload()
			return m, nil
		}
		m.notice = "Cancel failed: " + msg.result.Error
		m.mode = modeDetail
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.mode {
		case modeEdit:
			return m.updateEdit(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		case modeDetail:
			return m.updateDetail(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if sk, ok := sortKeyBindings[key]; ok {
		m.order = m.order.Toggle(sk)
		m.reload()
		return m, nil
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case "tab":
		f := m.snap.Filter
		f.Status = nextStatus(f.Status)
		return m, m.setFilter(f)
	case "/":
		m.mode, m.editField, m.input = modeEdit, "symbol", m.snap.Filter.Symbol
	case "b":
		m.mode, m.editField, m.input = modeEdit, "bot", m.snap.Filter.Bot
	case "x":
		m.notice = ""
		return m, m.setFilter(models.DefaultFilter())
	case "r":
		m.notice = ""
		return m, m.refresh()
	case "enter":
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.mode, m.detailID = modeDetail, t.ID
		m.detail, m.detailErr, m.notice = nil, "", ""
		return m, m.fetchDetail(t.ID)
	}
	return m, nil
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace", "q":
		m.mode = modeList
		m.detail, m.detailErr = nil, ""
	case "c":
		if m.detail != nil && m.detail.Status.Cancellable() {
			m.mode = modeConfirm
			m.notice = ""
		}
	case "r":
		return m, m.fetchDetail(m.detailID)
	}
	return m, nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		id := m.detailID
		m.notice = "Cancelling " + id + "…"
		return m, m.cancelOrder(id)
	case "n", "N", "esc":
		m.mode = modeDetail
	}
	return m, nil
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeList
		return m, nil
	case tea.KeyEnter:
		f := m.snap.Filter
		if m.editField == "bot" {
			f.Bot = m.input
		} else {
			f.Symbol = m.input
		}
		m.mode = modeList
		return m, m.setFilter(f)
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		m.input += string(msg.Runes)
	}
	return m, nil
}

// nextStatus cycles ALL → OPEN → FILLED → CLOSED → CANCELLED → ALL.
func nextStatus(current models.StatusFilter) models.StatusFilter {
	if current == models.StatusAll || current == "" {
		return models.StatusFilter(models.Statuses[0])
	}
	for i, st := range models.Statuses {
		if models.StatusFilter(st) == current && i+1 < len(models.Statuses) {
			return models.StatusFilter(models.Statuses[i+1])
		}
	}
	return models.StatusAll
}

func (m Model) waitForChange() tea.Cmd {
	changes := m.changes
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		c, ok := <-changes
		return changeMsg{change: c, ok: ok}
	}
}

func (m Model) setFilter(f models.Filter) tea.Cmd {
	ctx, st := m.ctx, m.store
	return func() tea.Msg {
		_ = st.SetFilter(ctx, f)
		return doneMsg{}
	}
}

func (m Model) refresh() tea.Cmd {
	ctx, st := m.ctx, m.store
	return func() tea.Msg {
		var g errgroup.Group
		g.Go(func() error { return st.RefreshTrades(ctx) })
		g.Go(func() error { return st.RefreshBalance(ctx) })
		_ = g.Wait()
		return doneMsg{}
	}
}

func (m Model) fetchDetail(id string) tea.Cmd {
	ctx, st := m.ctx, m.store
	return func() tea.Msg {
		t, err := st.TradeDetail(ctx, id)
		return detailMsg{id: id, trade: t, err: err}
	}
}

func (m Model) cancelOrder(id string) tea.Cmd {
	ctx, st := m.ctx, m.store
	return func() tea.Msg {
		return cancelMsg{id: id, result: st.CancelOrder(ctx, id)}
	}
}
