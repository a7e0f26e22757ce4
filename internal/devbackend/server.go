package devbackend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"trade-dashboard-go/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StartingWallet is the wallet balance before any realised profit.
var StartingWallet = decimal.NewFromInt(10000)

// Server exposes the trading backend's REST routes under /api/v1.
type Server struct {
	db     *gorm.DB
	logger *zap.Logger
	router *gin.Engine
}

// NewServer creates the backend server over db.
func NewServer(db *gorm.DB, logger *zap.Logger) *Server {
	s := &Server{db: db, logger: logger.Named("devbackend")}

	router := gin.New()
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	{
		v1.GET("/trades", s.listTrades)
		v1.GET("/trade/:id", s.getTrade)
		v1.GET("/trades/:id", s.getTrade)
		v1.GET("/balance", s.getBalance)
		v1.POST("/order/cancel", s.cancelOrder)
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "running"})
		})
	}
	s.router = router
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on port until ctx is cancelled.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting backend stand-in", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) listTrades(c *gin.Context) {
	query := s.db.WithContext(c.Request.Context()).Order("created_at desc")

	if status := strings.TrimSpace(c.Query("status")); status != "" && !strings.EqualFold(status, "all") {
		// stored spellings vary, so match every alias of the requested state
		spellings := []string{strings.ToUpper(status)}
		if st, err := models.ParseStatus(status); err == nil {
			spellings = st.Aliases()
		}
		query = query.Where("UPPER(status) IN ?", spellings)
	}
	if symbol := strings.TrimSpace(c.Query("symbol")); symbol != "" {
		query = query.Where("LOWER(symbol) LIKE ?", "%"+strings.ToLower(symbol)+"%")
	}
	bot := c.Query("bot")
	if bot == "" {
		bot = c.Query("bot_name")
	}
	if bot = strings.TrimSpace(bot); bot != "" {
		query = query.Where("LOWER(bot_name) LIKE ?", "%"+strings.ToLower(bot)+"%")
	}

	var records []TradeRecord
	if err := query.Find(&records).Error; err != nil {
		s.logger.Error("Failed to get trades from database", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get trades"})
		return
	}

	out := make([]tradeResponse, 0, len(records))
	for _, r := range records {
		resp, err := r.response()
		if err != nil {
			s.logger.Error("Failed to render trade", zap.Uint("id", r.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get trades"})
			return
		}
		out = append(out, resp)
	}
	s.logger.Info("Retrieved trades", zap.Int("count", len(out)), zap.String("status", c.Query("status")), zap.String("bot", bot))
	c.JSON(http.StatusOK, out)
}

func (s *Server) findTrade(c *gin.Context, raw string) (TradeRecord, bool) {
	var rec TradeRecord
	id, err := parseID(raw)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Trade not found"})
		return rec, false
	}
	err = s.db.WithContext(c.Request.Context()).First(&rec, id).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Trade not found"})
		return rec, false
	case err != nil:
		s.logger.Error("Failed to load trade", zap.Uint("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return rec, false
	}
	return rec, true
}

func (s *Server) getTrade(c *gin.Context) {
	rec, ok := s.findTrade(c, c.Param("id"))
	if !ok {
		return
	}
	resp, err := rec.response()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

type cancelRequest struct {
	OrderID       string `json:"order_id"`
	LegacyOrderID string `json:"orderId"`
}

func (s *Server) cancelOrder(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing order_id"})
		return
	}
	raw := req.OrderID
	if raw == "" {
		raw = req.LegacyOrderID
	}
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing order_id"})
		return
	}

	rec, ok := s.findTrade(c, raw)
	if !ok {
		return
	}
	if !rec.isOpen() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order already " + strings.ToLower(rec.Status)})
		return
	}

	now := time.Now()
	err := s.db.WithContext(c.Request.Context()).Model(&rec).Updates(map[string]any{
		"status":    "CANCELLED",
		"closed_at": now,
	}).Error
	if err != nil {
		s.logger.Error("Failed to cancel trade", zap.Uint("id", rec.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel order"})
		return
	}
	s.logger.Info("Order cancelled", zap.Uint("id", rec.ID), zap.String("symbol", rec.Symbol))
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "order cancelled"})
}

type balanceResponse struct {
	Success       bool            `json:"success"`
	Available     decimal.Decimal `json:"available_balance"`
	Equity        decimal.Decimal `json:"equity"`
	UsedMargin    decimal.Decimal `json:"used_margin"`
	WalletBalance decimal.Decimal `json:"wallet_balance"`
	Currency      string          `json:"currency"`
}

// getBalance derives the account from the book: closed trades realise their
// PnL into the wallet, open ones tie up entry*qty/leverage as margin.
func (s *Server) getBalance(c *gin.Context) {
	var records []TradeRecord
	if err := s.db.WithContext(c.Request.Context()).Find(&records).Error; err != nil {
		s.logger.Error("Failed to load trades for balance", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to get balance"})
		return
	}
	c.JSON(http.StatusOK, computeBalance(records))
}

func computeBalance(records []TradeRecord) balanceResponse {
	hundred := decimal.NewFromInt(100)
	wallet := StartingWallet
	used := decimal.Zero
	unrealised := decimal.Zero

	for _, r := range records {
		leverage := decimal.NewFromInt(int64(max(r.Leverage, 1)))
		margin := r.EntryPrice.Mul(r.Quantity).Div(leverage)
		switch {
		case r.isOpen():
			used = used.Add(margin)
			move := r.CurrentPrice.Sub(r.EntryPrice).Mul(r.Quantity)
			if strings.EqualFold(r.Side, "sell") {
				move = move.Neg()
			}
			unrealised = unrealised.Add(move)
		case strings.EqualFold(r.Status, "CLOSED"):
			wallet = wallet.Add(margin.Mul(r.PnLPercent).Div(hundred))
		}
	}

	equity := wallet.Add(unrealised)
	return balanceResponse{
		Success:       true,
		Available:     equity.Sub(used).Round(2),
		Equity:        equity.Round(2),
		UsedMargin:    used.Round(2),
		WalletBalance: wallet.Round(2),
		Currency:      "USDT",
	}
}
