package web

import (
	"net/http"

	"trade-dashboard-go/internal/models"
	"trade-dashboard-go/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type tradesResponse struct {
	store.Snapshot
	Sort models.SortOrder `json:"sort"`
}

func (s *Server) handleTrades(c *gin.Context) {
	if err := s.applyFilter(c); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snap := s.store.Snapshot()
	order := models.ParseSortOrder(c.DefaultQuery("sort", string(models.SortByCreatedAt)), c.DefaultQuery("dir", string(models.Desc)))
	snap.Trades = models.SortTrades(snap.Trades, order)
	c.JSON(http.StatusOK, tradesResponse{Snapshot: snap, Sort: order})
}

func (s *Server) handleTradeDetail(c *gin.Context) {
	id := c.Param("id")
	trade, err := s.store.TradeDetail(c.Request.Context(), id)
	if err != nil {
		status, msg := detailError(err)
		s.logger.Warn("Failed to load trade", zap.String("id", id), zap.Error(err))
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, trade)
}

func (s *Server) handleCancel(c *gin.Context) {
	result := s.store.CancelOrder(c.Request.Context(), c.Param("id"))
	status := http.StatusOK
	if !result.Success {
		status = http.StatusConflict
	}
	c.JSON(status, result)
}

func (s *Server) handleBalance(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Snapshot().Balance)
}

// handleRefresh re-fetches trades and balance together. Failures show up in
// the returned snapshot's error fields.
func (s *Server) handleRefresh(c *gin.Context) {
	ctx := c.Request.Context()
	var g errgroup.Group
	g.Go(func() error { return s.store.RefreshTrades(ctx) })
	g.Go(func() error { return s.store.RefreshBalance(ctx) })
	if err := g.Wait(); err != nil {
		s.logger.Warn("Manual refresh incomplete", zap.Error(err))
	}
	c.JSON(http.StatusOK, s.store.Snapshot())
}
