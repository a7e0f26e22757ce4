package web

import (
	"embed"
	"html/template"
	"net/url"
	"strings"
	"time"

	"trade-dashboard-go/internal/models"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

const timeLayout = "2006-01-02 15:04:05"

var templateFuncs = template.FuncMap{
	"formatDecimal": func(d decimal.Decimal) string {
		return d.String()
	},
	"formatMoney": func(d decimal.Decimal) string {
		return d.StringFixed(2)
	},
	"formatPercent": func(d decimal.Decimal) string {
		s := d.StringFixed(2) + "%"
		if d.IsPositive() {
			return "+" + s
		}
		return s
	},
	"formatStop": func(d decimal.NullDecimal) string {
		if !d.Valid {
			return "-"
		}
		return d.Decimal.String()
	},
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Local().Format(timeLayout)
	},
	"formatTimePtr": func(t *time.Time) string {
		if t == nil || t.IsZero() {
			return "-"
		}
		return t.Local().Format(timeLayout)
	},
	"statusClass": func(s models.Status) string {
		return "status-" + strings.ToLower(string(s))
	},
	"pnlClass": func(d decimal.Decimal) string {
		switch {
		case d.IsPositive():
			return "pnl-up"
		case d.IsNegative():
			return "pnl-down"
		}
		return ""
	},
	"inc": func(i int) int { return i + 1 },
}

// column is one sortable table header.
type column struct {
	Label     string
	Href      string
	Indicator string
}

var columnLabels = map[models.SortKey]string{
	models.SortByCreatedAt:    "Created",
	models.SortBySymbol:       "Symbol",
	models.SortBySide:         "Side",
	models.SortByEntryPrice:   "Entry",
	models.SortByCurrentPrice: "Current",
	models.SortByStopLoss:     "Stop Loss",
	models.SortByPnL:          "PnL",
	models.SortByLeverage:     "Leverage",
	models.SortByQuantity:     "Quantity",
	models.SortByStatus:       "Status",
	models.SortByBot:          "Bot",
}

// buildColumns returns the header links for the list page. Each link carries
// the filter and the order the click would switch to.
func buildColumns(f models.Filter, order models.SortOrder) []column {
	cols := make([]column, 0, len(models.SortKeys))
	for _, key := range models.SortKeys {
		next := order.Toggle(key)
		col := column{
			Label: columnLabels[key],
			Href:  "/?" + listQuery(f, next).Encode(),
		}
		if order.Key == key {
			col.Indicator = "▲"
			if order.Direction == models.Desc {
				col.Indicator = "▼"
			}
		}
		cols = append(cols, col)
	}
	return cols
}

func listQuery(f models.Filter, order models.SortOrder) url.Values {
	q := url.Values{}
	q.Set("status", string(f.Status))
	q.Set("symbol", f.Symbol)
	q.Set("bot", f.Bot)
	q.Set("sort", string(order.Key))
	q.Set("dir", string(order.Direction))
	return q
}
