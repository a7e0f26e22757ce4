package models

import "github.com/shopspring/decimal"

// Balance is a point-in-time view of the account's margin figures.
// Fields absent from the backend response stay zero.
type Balance struct {
	Available     decimal.Decimal `json:"available_balance"`
	Equity        decimal.Decimal `json:"equity"`
	UsedMargin    decimal.Decimal `json:"used_margin"`
	WalletBalance decimal.Decimal `json:"wallet_balance"`
	Currency      string          `json:"currency,omitempty"`
}
