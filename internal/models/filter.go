package models

import (
	"fmt"
	"strings"
)

// StatusFilter selects trades by status; StatusAll disables the predicate.
type StatusFilter string

const StatusAll StatusFilter = "ALL"

// ParseStatusFilter accepts "ALL" (or empty) and any valid Status, ignoring case.
func ParseStatusFilter(s string) (StatusFilter, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, string(StatusAll)) {
		return StatusAll, nil
	}
	st, err := ParseStatus(s)
	if err != nil {
		return "", fmt.Errorf("invalid status filter: %w", err)
	}
	return StatusFilter(st), nil
}

// Filter is the user-selected predicate narrowing the displayed trade set.
type Filter struct {
	Status StatusFilter `json:"status"`
	Symbol string       `json:"symbol"`
	Bot    string       `json:"bot"`
}

// DefaultFilter matches every trade.
func DefaultFilter() Filter {
	return Filter{Status: StatusAll}
}

// Normalize trims the free-text fields and maps an empty status to ALL.
func (f Filter) Normalize() Filter {
	if f.Status == "" {
		f.Status = StatusAll
	}
	f.Symbol = strings.TrimSpace(f.Symbol)
	f.Bot = strings.TrimSpace(f.Bot)
	return f
}

// Matches reports whether t satisfies all three predicates. Symbol and bot are
// case-insensitive substring matches; a trade without a symbol (or bot) only
// fails when that predicate is set.
func (f Filter) Matches(t Trade) bool {
	if f.Status != "" && f.Status != StatusAll && Status(f.Status) != t.Status {
		return false
	}
	if f.Symbol != "" && !containsFold(t.Symbol, f.Symbol) {
		return false
	}
	if f.Bot != "" && !containsFold(t.Bot, f.Bot) {
		return false
	}
	return true
}

// FilterTrades returns the trades matching f in their original order.
// The input slice is never modified.
func FilterTrades(trades []Trade, f Filter) []Trade {
	out := make([]Trade, 0, len(trades))
	for _, t := range trades {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
