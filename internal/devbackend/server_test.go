package devbackend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trade-dashboard-go/internal/config"
	"trade-dashboard-go/internal/models"
	"trade-dashboard-go/internal/tradeapi"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestDB opens a private in-memory database seeded with the sample book.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := NewDatabase(dsn)
	require.NoError(t, err)
	require.NoError(t, Seed(db, time.Now()))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func doRequest(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	h.ServeHTTP(w, req)
	return w
}

func TestSeedIsIdempotent(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Seed(db, time.Now()))

	var count int64
	require.NoError(t, db.Model(&TradeRecord{}).Count(&count).Error)
	assert.Equal(t, int64(5), count)
}

func TestListTrades(t *testing.T) {
	testCases := []struct {
		name    string
		query   string
		symbols []string
	}{
		{"All", "?status=ALL", []string{"XRPUSDT", "DOGEUSDT", "SOLUSDT", "ETHUSDT", "BTCUSDT"}},
		{"OpenIncludesAliases", "?status=open", []string{"XRPUSDT", "BTCUSDT"}},
		{"AliasSpelling", "?status=new", []string{"XRPUSDT", "BTCUSDT"}},
		{"Filled", "?status=FILLED", []string{"ETHUSDT"}},
		{"Cancelled", "?status=cancelled", []string{"DOGEUSDT"}},
		{"UnknownStatus", "?status=PENDING", []string{}},
		{"BotSubstring", "?bot=TREND", []string{"SOLUSDT", "BTCUSDT"}},
		{"LegacyBotParam", "?bot_name=scalp", []string{"ETHUSDT"}},
		{"Symbol", "?symbol=usdt&status=closed", []string{"SOLUSDT"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := NewServer(setupTestDB(t), zap.NewNop())

			w := doRequest(srv.Handler(), http.MethodGet, "/api/v1/trades"+tc.query, "")

			require.Equal(t, http.StatusOK, w.Code)
			var trades []tradeResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trades))
			symbols := make([]string, len(trades))
			for i, tr := range trades {
				symbols[i] = tr.Symbol
			}
			assert.Equal(t, tc.symbols, symbols)
		})
	}
}

func TestGetTrade(t *testing.T) {
	srv := NewServer(setupTestDB(t), zap.NewNop())

	w := doRequest(srv.Handler(), http.MethodGet, "/api/v1/trade/2", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp tradeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ETHUSDT", resp.Symbol)
	assert.Equal(t, "TP1_HIT", resp.Status)
	assert.True(t, resp.TP3Price.Valid)

	w = doRequest(srv.Handler(), http.MethodGet, "/api/v1/trade/99", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doRequest(srv.Handler(), http.MethodGet, "/api/v1/trade/abc", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelOrder(t *testing.T) {
	t.Run("OpenOrder", func(t *testing.T) {
		db := setupTestDB(t)
		srv := NewServer(db, zap.NewNop())

		w := doRequest(srv.Handler(), http.MethodPost, "/api/v1/order/cancel", `{"order_id": "1"}`)

		require.Equal(t, http.StatusOK, w.Code)
		var rec TradeRecord
		require.NoError(t, db.First(&rec, 1).Error)
		assert.Equal(t, "CANCELLED", rec.Status)
		assert.NotNil(t, rec.ClosedAt)
	})

	t.Run("AlreadyClosed", func(t *testing.T) {
		srv := NewServer(setupTestDB(t), zap.NewNop())

		w := doRequest(srv.Handler(), http.MethodPost, "/api/v1/order/cancel", `{"orderId": "3"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error": "order already closed"}`, w.Body.String())
	})

	t.Run("MissingID", func(t *testing.T) {
		srv := NewServer(setupTestDB(t), zap.NewNop())

		w := doRequest(srv.Handler(), http.MethodPost, "/api/v1/order/cancel", `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestComputeBalance(t *testing.T) {
	d := decimal.RequireFromString
	records := []TradeRecord{
		{Status: "OPEN", Side: "Buy", EntryPrice: d("100"), CurrentPrice: d("110"), Quantity: d("2"), Leverage: 4},
		{Status: "NEW", Side: "Sell", EntryPrice: d("50"), CurrentPrice: d("40"), Quantity: d("1"), Leverage: 0},
		{Status: "CLOSED", Side: "Buy", EntryPrice: d("200"), Quantity: d("1"), Leverage: 2, PnLPercent: d("10")},
		{Status: "CANCELLED", Side: "Buy", EntryPrice: d("1000"), Quantity: d("1"), Leverage: 1},
	}

	b := computeBalance(records)

	// margin 50 + 50, unrealised +20 +10, realised 100*10%
	assert.Equal(t, "10010", b.WalletBalance.String())
	assert.Equal(t, "100", b.UsedMargin.String())
	assert.Equal(t, "10040", b.Equity.String())
	assert.Equal(t, "9940", b.Available.String())
}

// TestRestClientAgainstBackend drives the real client through the stand-in,
// covering the legacy field names end to end.
func TestRestClientAgainstBackend(t *testing.T) {
	db := setupTestDB(t)
	ts := httptest.NewServer(NewServer(db, zap.NewNop()).Handler())
	defer ts.Close()

	client := tradeapi.NewRestClient(&config.Backend{BaseURL: ts.URL + "/api/v1", Timeout: 5 * time.Second}, zap.NewNop())
	ctx := context.Background()

	trades, err := client.ListTrades(ctx, models.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, trades, 5)

	byID := map[string]models.Trade{}
	for _, tr := range trades {
		byID[tr.ID] = tr
	}
	eth := byID["2"]
	assert.Equal(t, models.StatusFilled, eth.Status)
	assert.Equal(t, models.SideSell, eth.Side)
	assert.Equal(t, "range-scalper", eth.Bot)
	require.Len(t, eth.TakeProfits, 3)
	assert.True(t, eth.TakeProfits[0].Hit)
	assert.False(t, eth.TakeProfits[1].Hit)
	assert.Equal(t, models.StatusCancelled, byID["4"].Status)
	assert.False(t, byID["4"].StopLoss.Valid)
	assert.NotNil(t, byID["3"].ClosedAt)
	assert.Equal(t, models.StatusOpen, byID["5"].Status)

	// every state shown under ALL is reachable through its own filter
	for _, st := range models.Statuses {
		var want []string
		for _, tr := range trades {
			if tr.Status == st {
				want = append(want, tr.ID)
			}
		}
		filtered, err := client.ListTrades(ctx, models.Filter{Status: models.StatusFilter(st)})
		require.NoError(t, err)
		got := make([]string, len(filtered))
		for i, tr := range filtered {
			got[i] = tr.ID
		}
		assert.ElementsMatch(t, want, got, string(st))
	}

	balance, err := client.GetBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "USDT", balance.Currency)
	assert.True(t, balance.UsedMargin.IsPositive())

	result := client.CancelOrder(ctx, "3")
	assert.Equal(t, tradeapi.CancelResult{Success: false, Error: "order already closed"}, result)

	result = client.CancelOrder(ctx, "1")
	assert.Equal(t, tradeapi.CancelResult{Success: true}, result)

	trade, err := client.GetTradeDetail(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, trade.Status)

	_, err = client.GetTradeDetail(ctx, "404")
	assert.ErrorIs(t, err, tradeapi.ErrTradeNotFound)
}
