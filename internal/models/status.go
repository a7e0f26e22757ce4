package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Status is the lifecycle state of a trade as reported by the backend.
type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusClosed    Status = "CLOSED"
	StatusCancelled Status = "CANCELLED"
	StatusFilled    Status = "FILLED"
)

// Statuses lists every valid Status in display order.
var Statuses = []Status{StatusOpen, StatusFilled, StatusClosed, StatusCancelled}

// statusAliases maps exchange/backend spellings onto the four dashboard states.
var statusAliases = map[string]Status{
	"OPEN":            StatusOpen,
	"NEW":             StatusOpen,
	"PARTIALLYFILLED": StatusOpen,
	"UNTRIGGERED":     StatusOpen,
	"FILLED":          StatusFilled,
	"TP1_HIT":         StatusFilled,
	"TP2_HIT":         StatusFilled,
	"CLOSED":          StatusClosed,
	"CANCELLED":       StatusCancelled,
	"CANCELED":        StatusCancelled,
	"REJECTED":        StatusCancelled,
}

// ParseStatus normalises s into a Status. Matching ignores case.
func ParseStatus(s string) (Status, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	if st, ok := statusAliases[key]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown trade status %q", s)
}

// Aliases returns every upper-case backend spelling that normalises to s,
// sorted.
func (s Status) Aliases() []string {
	var out []string
	for raw, st := range statusAliases {
		if st == s {
			out = append(out, raw)
		}
	}
	slices.Sort(out)
	return out
}

// IsTerminal reports whether the trade can no longer change on the client side.
func (s Status) IsTerminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// Cancellable reports whether a cancel action may be offered.
func (s Status) Cancellable() bool {
	return s == StatusOpen
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("status must be a string: %w", err)
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide accepts BUY/SELL in any case as well as long/short.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "LONG":
		return SideBuy, nil
	case "SELL", "SHORT":
		return SideSell, nil
	}
	return "", fmt.Errorf("unknown trade side %q", s)
}

func (s *Side) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("side must be a string: %w", err)
	}
	side, err := ParseSide(raw)
	if err != nil {
		return err
	}
	*s = side
	return nil
}
