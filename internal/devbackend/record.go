package devbackend

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"trade-dashboard-go/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TradeRecord is a persisted position as the trading backend stores it. Status
// keeps the backend's own spelling (TP1_HIT, CANCELED, ...).
type TradeRecord struct {
	gorm.Model
	OrderID      string              `gorm:"uniqueIndex"`
	Symbol       string              `gorm:"index;not null"`
	Side         string              `gorm:"not null"`
	Status       string              `gorm:"index;not null"`
	EntryPrice   decimal.Decimal     `gorm:"type:decimal(20,8)"`
	CurrentPrice decimal.Decimal     `gorm:"type:decimal(20,8)"`
	Quantity     decimal.Decimal     `gorm:"type:decimal(20,8)"`
	StopLoss     decimal.NullDecimal `gorm:"type:decimal(20,8)"`
	TakeProfits  datatypes.JSON
	Leverage     int             `gorm:"default:1"`
	PnLPercent   decimal.Decimal `gorm:"type:decimal(10,4)"`
	BotName      string          `gorm:"index"`
	Notes        string
	ClosedAt     *time.Time
}

// SetTakeProfits stores the ladder prices in order.
func (r *TradeRecord) SetTakeProfits(prices ...decimal.Decimal) error {
	data, err := json.Marshal(prices)
	if err != nil {
		return fmt.Errorf("failed to encode take profits: %w", err)
	}
	r.TakeProfits = datatypes.JSON(data)
	return nil
}

// TakeProfitPrices decodes the stored ladder. An empty column yields nil.
func (r TradeRecord) TakeProfitPrices() ([]decimal.Decimal, error) {
	if len(r.TakeProfits) == 0 {
		return nil, nil
	}
	var prices []decimal.Decimal
	if err := json.Unmarshal(r.TakeProfits, &prices); err != nil {
		return nil, fmt.Errorf("failed to decode take profits of trade %d: %w", r.ID, err)
	}
	return prices, nil
}

// tradeResponse mirrors the JSON the trading backend returns for a trade:
// numeric id, flat tpN_price fields and bot_name.
type tradeResponse struct {
	ID           uint                `json:"id"`
	OrderID      string              `json:"order_id"`
	Symbol       string              `json:"symbol"`
	Side         string              `json:"side"`
	Status       string              `json:"status"`
	EntryPrice   decimal.Decimal     `json:"entry_price"`
	CurrentPrice decimal.Decimal     `json:"current_price"`
	Quantity     decimal.Decimal     `json:"quantity"`
	Leverage     int                 `json:"leverage"`
	SLPrice      decimal.NullDecimal `json:"sl_price"`
	TP1Price     decimal.NullDecimal `json:"tp1_price"`
	TP2Price     decimal.NullDecimal `json:"tp2_price"`
	TP3Price     decimal.NullDecimal `json:"tp3_price"`
	PnLPercent   decimal.Decimal     `json:"pnl_percent"`
	BotName      string              `json:"bot_name"`
	Notes        string              `json:"notes,omitempty"`
	CreatedAt    string              `json:"created_at"`
	ClosedAt     *string             `json:"closed_at"`
}

const isoLayout = "2006-01-02T15:04:05"

func (r TradeRecord) response() (tradeResponse, error) {
	prices, err := r.TakeProfitPrices()
	if err != nil {
		return tradeResponse{}, err
	}
	resp := tradeResponse{
		ID:           r.ID,
		OrderID:      r.OrderID,
		Symbol:       r.Symbol,
		Side:         r.Side,
		Status:       r.Status,
		EntryPrice:   r.EntryPrice,
		CurrentPrice: r.CurrentPrice,
		Quantity:     r.Quantity,
		Leverage:     r.Leverage,
		SLPrice:      r.StopLoss,
		PnLPercent:   r.PnLPercent,
		BotName:      r.BotName,
		Notes:        r.Notes,
		CreatedAt:    r.CreatedAt.UTC().Format(isoLayout),
	}
	for i, p := range prices {
		lvl := decimal.NewNullDecimal(p)
		switch i {
		case 0:
			resp.TP1Price = lvl
		case 1:
			resp.TP2Price = lvl
		case 2:
			resp.TP3Price = lvl
		}
	}
	if r.ClosedAt != nil {
		s := r.ClosedAt.UTC().Format(isoLayout)
		resp.ClosedAt = &s
	}
	return resp, nil
}

// isOpen reports whether the backend still considers the order working.
func (r TradeRecord) isOpen() bool {
	st, err := models.ParseStatus(r.Status)
	return err == nil && st == models.StatusOpen
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid trade id %q", s)
	}
	return uint(id), nil
}
