package models

import (
	"cmp"
	"slices"
	"strings"
)

// SortKey names a sortable trade column.
type SortKey string

const (
	SortByCreatedAt    SortKey = "created_at"
	SortBySymbol       SortKey = "symbol"
	SortBySide         SortKey = "side"
	SortByStatus       SortKey = "status"
	SortByEntryPrice   SortKey = "entry_price"
	SortByCurrentPrice SortKey = "current_price"
	SortByStopLoss     SortKey = "stop_loss"
	SortByPnL          SortKey = "pnl"
	SortByLeverage     SortKey = "leverage"
	SortByQuantity     SortKey = "quantity"
	SortByBot          SortKey = "bot"
)

// SortKeys lists the sortable columns in table order.
var SortKeys = []SortKey{
	SortByCreatedAt, SortBySymbol, SortBySide, SortByEntryPrice, SortByCurrentPrice,
	SortByStopLoss, SortByPnL, SortByLeverage, SortByQuantity, SortByStatus, SortByBot,
}

// Direction is ascending or descending.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortOrder is transient view state; it never touches the stored list.
type SortOrder struct {
	Key       SortKey   `json:"key"`
	Direction Direction `json:"direction"`
}

// DefaultSortOrder shows the newest trades first.
func DefaultSortOrder() SortOrder {
	return SortOrder{Key: SortByCreatedAt, Direction: Desc}
}

// ParseSortOrder builds a SortOrder from request values, falling back to the
// default for unknown keys and to ascending for unknown directions.
func ParseSortOrder(key, dir string) SortOrder {
	k := SortKey(strings.ToLower(strings.TrimSpace(key)))
	if !slices.Contains(SortKeys, k) {
		return DefaultSortOrder()
	}
	d := Asc
	if strings.EqualFold(strings.TrimSpace(dir), string(Desc)) {
		d = Desc
	}
	return SortOrder{Key: k, Direction: d}
}

// Toggle is the column-header click: the same key flips ascending to
// descending, anything else starts over ascending.
func (o SortOrder) Toggle(key SortKey) SortOrder {
	if o.Key == key && o.Direction == Asc {
		return SortOrder{Key: key, Direction: Desc}
	}
	return SortOrder{Key: key, Direction: Asc}
}

// SortTrades returns a sorted copy of trades. The sort is stable, so equal keys
// keep their relative order in both directions.
func SortTrades(trades []Trade, o SortOrder) []Trade {
	out := slices.Clone(trades)
	if out == nil {
		out = []Trade{}
	}
	slices.SortStableFunc(out, func(a, b Trade) int {
		c := compareBy(a, b, o.Key)
		if o.Direction == Desc {
			return -c
		}
		return c
	})
	return out
}

func compareBy(a, b Trade, key SortKey) int {
	switch key {
	case SortBySymbol:
		return cmp.Compare(a.Symbol, b.Symbol)
	case SortBySide:
		return cmp.Compare(a.Side, b.Side)
	case SortByStatus:
		return cmp.Compare(a.Status, b.Status)
	case SortByEntryPrice:
		return a.EntryPrice.Cmp(b.EntryPrice)
	case SortByCurrentPrice:
		return a.CurrentPrice.Cmp(b.CurrentPrice)
	case SortByStopLoss:
		// trades without a stop-loss sort before any price
		switch {
		case !a.StopLoss.Valid && !b.StopLoss.Valid:
			return 0
		case !a.StopLoss.Valid:
			return -1
		case !b.StopLoss.Valid:
			return 1
		}
		return a.StopLoss.Decimal.Cmp(b.StopLoss.Decimal)
	case SortByPnL:
		return a.PnLPercent.Cmp(b.PnLPercent)
	case SortByLeverage:
		return cmp.Compare(a.Leverage, b.Leverage)
	case SortByQuantity:
		return a.Quantity.Cmp(b.Quantity)
	case SortByBot:
		return cmp.Compare(strings.ToLower(a.Bot), strings.ToLower(b.Bot))
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}
