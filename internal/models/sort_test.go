package models

import (
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSortOrderToggle(t *testing.T) {
	o := DefaultSortOrder()

	// first click on a new field sorts ascending
	o = o.Toggle(SortBySymbol)
	assert.Equal(t, SortOrder{Key: SortBySymbol, Direction: Asc}, o)

	// second click on the same field flips to descending
	o = o.Toggle(SortBySymbol)
	assert.Equal(t, SortOrder{Key: SortBySymbol, Direction: Desc}, o)

	// third click starts ascending again
	o = o.Toggle(SortBySymbol)
	assert.Equal(t, SortOrder{Key: SortBySymbol, Direction: Asc}, o)

	// another field always starts ascending
	o = o.Toggle(SortBySymbol).Toggle(SortByLeverage)
	assert.Equal(t, SortOrder{Key: SortByLeverage, Direction: Asc}, o)
}

func TestParseSortOrder(t *testing.T) {
	assert.Equal(t, SortOrder{Key: SortByPnL, Direction: Desc}, ParseSortOrder("PNL", "DESC"))
	assert.Equal(t, SortOrder{Key: SortByPnL, Direction: Asc}, ParseSortOrder("pnl", "sideways"))
	assert.Equal(t, DefaultSortOrder(), ParseSortOrder("nonsense", "asc"))
	assert.Equal(t, DefaultSortOrder(), ParseSortOrder("", ""))
}

func TestSortTrades_Stable(t *testing.T) {
	trades := []Trade{
		{ID: "1", Symbol: "ETHUSDT"},
		{ID: "2", Symbol: "BTCUSDT"},
		{ID: "3", Symbol: "ETHUSDT"},
		{ID: "4", Symbol: "BTCUSDT"},
	}
	original := slices.Clone(trades)

	asc := SortTrades(trades, SortOrder{Key: SortBySymbol, Direction: Asc})
	desc := SortTrades(trades, SortOrder{Key: SortBySymbol, Direction: Desc})

	assert.Equal(t, []string{"2", "4", "1", "3"}, ids(asc))
	assert.Equal(t, []string{"1", "3", "2", "4"}, ids(desc), "equal keys keep their relative order")
	assert.Equal(t, original, trades, "sorting never mutates the input")
}

func TestSortTrades_Reversible(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := []Trade{
		{ID: "b", CreatedAt: base.Add(2 * time.Hour), EntryPrice: decimal.NewFromInt(3), Leverage: 5},
		{ID: "a", CreatedAt: base, EntryPrice: decimal.NewFromInt(1), Leverage: 20},
		{ID: "c", CreatedAt: base.Add(time.Hour), EntryPrice: decimal.NewFromInt(2), Leverage: 1},
	}

	for _, key := range []SortKey{SortByCreatedAt, SortByEntryPrice, SortByLeverage} {
		t.Run(string(key), func(t *testing.T) {
			asc := SortOrder{Key: key, Direction: Asc}
			ascending := ids(SortTrades(trades, asc))
			descending := ids(SortTrades(trades, asc.Toggle(key)))

			reversed := slices.Clone(ascending)
			slices.Reverse(reversed)
			assert.Equal(t, reversed, descending)
		})
	}
}

func TestSortTrades_StopLossNullsFirst(t *testing.T) {
	trades := []Trade{
		{ID: "with", StopLoss: decimal.NewNullDecimal(decimal.NewFromInt(10))},
		{ID: "without"},
	}

	got := SortTrades(trades, SortOrder{Key: SortByStopLoss, Direction: Asc})

	assert.Equal(t, []string{"without", "with"}, ids(got))
}

func TestSortTrades_Empty(t *testing.T) {
	assert.Empty(t, SortTrades(nil, DefaultSortOrder()))
	assert.NotNil(t, SortTrades(nil, DefaultSortOrder()))
}
