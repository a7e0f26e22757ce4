package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TakeProfit is one target of a trade's take-profit ladder.
type TakeProfit struct {
	Price decimal.Decimal `json:"price"`
	Hit   bool            `json:"hit"`
}

// Trade is a read-only snapshot of a bot-managed position as reported by the backend.
// The client never edits a Trade; a refresh replaces it wholesale.
type Trade struct {
	ID           string              `json:"id"`
	Symbol       string              `json:"symbol"`
	Side         Side                `json:"side"`
	Status       Status              `json:"status"`
	EntryPrice   decimal.Decimal     `json:"entry_price"`
	CurrentPrice decimal.Decimal     `json:"current_price"`
	StopLoss     decimal.NullDecimal `json:"stop_loss"`
	TakeProfits  []TakeProfit        `json:"take_profits"`
	Leverage     int                 `json:"leverage"`
	PnLPercent   decimal.Decimal     `json:"pnl_percent"`
	Quantity     decimal.Decimal     `json:"quantity"`
	CreatedAt    time.Time           `json:"created_at"`
	ClosedAt     *time.Time          `json:"closed_at,omitempty"`
	Bot          string              `json:"bot,omitempty"`
	Notes        string              `json:"notes,omitempty"`
}

// BaseAsset returns the symbol without its quote currency, e.g. BTC for BTCUSDT.
func (t Trade) BaseAsset() string {
	for _, quote := range []string{"USDT", "USDC", "BUSD", "USD"} {
		if base, ok := strings.CutSuffix(t.Symbol, quote); ok && base != "" {
			return base
		}
	}
	return t.Symbol
}

// tradeWire accepts both the canonical field names and the legacy ones the
// trading backend emits (asset, bot_name, tpN_price, timestamp, ...).
type tradeWire struct {
	ID            json.RawMessage     `json:"id"`
	OrderID       json.RawMessage     `json:"order_id"`
	Symbol        string              `json:"symbol"`
	Asset         string              `json:"asset"`
	Side          string              `json:"side"`
	Status        string              `json:"status"`
	EntryPrice    decimal.Decimal     `json:"entry_price"`
	CurrentPrice  decimal.Decimal     `json:"current_price"`
	StopLoss      decimal.NullDecimal `json:"stop_loss"`
	SLPrice       decimal.NullDecimal `json:"sl_price"`
	CurrentSL     decimal.NullDecimal `json:"current_sl"`
	TakeProfits   []TakeProfit        `json:"take_profits"`
	TP1Price      decimal.NullDecimal `json:"tp1_price"`
	TP2Price      decimal.NullDecimal `json:"tp2_price"`
	TP3Price      decimal.NullDecimal `json:"tp3_price"`
	Leverage      decimal.NullDecimal `json:"leverage"`
	PnLPercent    decimal.NullDecimal `json:"pnl_percent"`
	ProfitPercent decimal.NullDecimal `json:"profit_percent"`
	PnL           decimal.NullDecimal `json:"pnl"`
	Quantity      decimal.Decimal     `json:"quantity"`
	CreatedAt     json.RawMessage     `json:"created_at"`
	Timestamp     json.RawMessage     `json:"timestamp"`
	ClosedAt      json.RawMessage     `json:"closed_at"`
	Bot           string              `json:"bot"`
	BotName       string              `json:"bot_name"`
	Notes         string              `json:"notes"`
}

func (t *Trade) UnmarshalJSON(data []byte) error {
	var w tradeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	id := rawString(w.ID)
	if id == "" {
		id = rawString(w.OrderID)
	}
	if id == "" {
		return fmt.Errorf("trade has no id")
	}

	status, err := ParseStatus(w.Status)
	if err != nil {
		return fmt.Errorf("trade %s: %w", id, err)
	}
	side, err := ParseSide(w.Side)
	if err != nil {
		return fmt.Errorf("trade %s: %w", id, err)
	}

	createdAt, err := parseTime(w.CreatedAt)
	if err != nil {
		return fmt.Errorf("trade %s: created_at: %w", id, err)
	}
	if createdAt.IsZero() {
		if createdAt, err = parseTime(w.Timestamp); err != nil {
			return fmt.Errorf("trade %s: timestamp: %w", id, err)
		}
	}
	closedAt, err := parseTime(w.ClosedAt)
	if err != nil {
		return fmt.Errorf("trade %s: closed_at: %w", id, err)
	}

	*t = Trade{
		ID:           id,
		Symbol:       firstNonEmpty(w.Symbol, w.Asset),
		Side:         side,
		Status:       status,
		EntryPrice:   w.EntryPrice,
		CurrentPrice: w.CurrentPrice,
		StopLoss:     firstValid(w.StopLoss, w.CurrentSL, w.SLPrice),
		TakeProfits:  w.TakeProfits,
		Leverage:     1,
		PnLPercent:   firstValid(w.PnLPercent, w.ProfitPercent, w.PnL).Decimal,
		Quantity:     w.Quantity,
		CreatedAt:    createdAt,
		Bot:          firstNonEmpty(w.Bot, w.BotName),
		Notes:        w.Notes,
	}
	if !closedAt.IsZero() {
		t.ClosedAt = &closedAt
	}
	if w.Leverage.Valid && w.Leverage.Decimal.IntPart() >= 1 {
		t.Leverage = int(w.Leverage.Decimal.IntPart())
	}
	if len(t.TakeProfits) == 0 {
		t.TakeProfits = legacyLadder(strings.ToUpper(strings.TrimSpace(w.Status)), w.TP1Price, w.TP2Price, w.TP3Price)
	}
	return nil
}

// legacyLadder builds the take-profit ladder from flat tpN_price fields; the
// backend reports progress through TP1_HIT / TP2_HIT statuses.
func legacyLadder(rawStatus string, levels ...decimal.NullDecimal) []TakeProfit {
	hits := 0
	switch rawStatus {
	case "TP1_HIT":
		hits = 1
	case "TP2_HIT":
		hits = 2
	}
	var ladder []TakeProfit
	for i, lvl := range levels {
		if !lvl.Valid || lvl.Decimal.IsZero() {
			continue
		}
		ladder = append(ladder, TakeProfit{Price: lvl.Decimal, Hit: i < hits})
	}
	return ladder
}

func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return string(raw)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC1123,
}

// parseTime accepts RFC3339 and naive ISO strings (UTC assumed) or epoch numbers
// in seconds or milliseconds. Absent or null yields the zero time.
func parseTime(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}
	if raw[0] != '"' {
		n, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid epoch %s", raw)
		}
		if n > 1e12 {
			return time.UnixMilli(int64(n)).UTC(), nil
		}
		return time.Unix(int64(n), 0).UTC(), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, err
	}
	if s = strings.TrimSpace(s); s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func firstValid(values ...decimal.NullDecimal) decimal.NullDecimal {
	for _, v := range values {
		if v.Valid {
			return v
		}
	}
	return decimal.NullDecimal{}
}
