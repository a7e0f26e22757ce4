// Package web serves the trade dashboard over HTTP: server-rendered pages,
// a JSON API mirroring them and a websocket change feed.
package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"trade-dashboard-go/internal/config"
	"trade-dashboard-go/internal/models"
	"trade-dashboard-go/internal/store"
	"trade-dashboard-go/internal/tradeapi"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// DashboardStore is the part of the trade store the HTTP layer depends on.
type DashboardStore interface {
	Snapshot() store.Snapshot
	SetFilter(ctx context.Context, f models.Filter) error
	RefreshTrades(ctx context.Context) error
	RefreshBalance(ctx context.Context) error
	CancelOrder(ctx context.Context, id string) tradeapi.CancelResult
	TradeDetail(ctx context.Context, id string) (models.Trade, error)
	Subscribe() (<-chan store.Change, func())
}

var _ DashboardStore = (*store.Store)(nil)

// Server is the dashboard HTTP server.
type Server struct {
	cfg      config.Server
	store    DashboardStore
	logger   *zap.Logger
	router   *gin.Engine
	upgrader websocket.Upgrader
}

// NewServer wires routes and templates. It does not start listening.
func NewServer(cfg config.Server, st DashboardStore, logger *zap.Logger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		store:  st,
		logger: logger.Named("web"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.logger))

	tmpl, err := template.New("dashboard").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/", s.renderList)
	router.GET("/trade/:id", s.renderDetail)
	router.POST("/trade/:id/cancel", s.submitCancel)
	router.GET("/ws", s.handleWebSocket)

	api := router.Group("/api")
	{
		api.GET("/trades", s.handleTrades)
		api.GET("/trades/:id", s.handleTradeDetail)
		api.POST("/trades/:id/cancel", s.handleCancel)
		api.GET("/balance", s.handleBalance)
		api.POST("/refresh", s.handleRefresh)
	}

	s.router = router
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting web server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.logger.Info("Shutting down web server...")
		if err := srv.Shutdown(shCtx); err != nil {
			return fmt.Errorf("web server shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("web server failed: %w", err)
		}
		return nil
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.String("ip", c.ClientIP()),
			zap.Duration("duration", time.Since(start)),
		}
		if query != "" {
			fields = append(fields, zap.String("query", query))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		logger.Debug("HTTP request", fields...)
	}
}
