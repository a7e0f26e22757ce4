package web

import (
	"errors"
	"net/http"
	"net/url"

	"trade-dashboard-go/internal/models"
	"trade-dashboard-go/internal/store"
	"trade-dashboard-go/internal/tradeapi"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type listPage struct {
	Snapshot  store.Snapshot
	Trades    []models.Trade
	Columns   []column
	Statuses  []models.StatusFilter
	Order     models.SortOrder
	Notice    string
	FormError string
}

type detailPage struct {
	ID          string
	Trade       *models.Trade
	LoadError   string
	CancelError string
}

var statusOptions = func() []models.StatusFilter {
	opts := []models.StatusFilter{models.StatusAll}
	for _, st := range models.Statuses {
		opts = append(opts, models.StatusFilter(st))
	}
	return opts
}()

// filterFromQuery merges filter query parameters into current. ok is false
// when the request names no filter parameter at all.
func filterFromQuery(c *gin.Context, current models.Filter) (f models.Filter, ok bool, err error) {
	f = current
	if status, has := c.GetQuery("status"); has {
		ok = true
		if f.Status, err = models.ParseStatusFilter(status); err != nil {
			return current, true, err
		}
	}
	if symbol, has := c.GetQuery("symbol"); has {
		ok = true
		f.Symbol = symbol
	}
	if bot, has := c.GetQuery("bot"); has {
		ok = true
		f.Bot = bot
	}
	return f.Normalize(), ok, nil
}

// applyFilter pushes the request's filter into the store. Fetch failures are
// already recorded in the snapshot, so only invalid input is returned.
func (s *Server) applyFilter(c *gin.Context) error {
	f, ok, err := filterFromQuery(c, s.store.Snapshot().Filter)
	if err != nil || !ok {
		return err
	}
	if err := s.store.SetFilter(c.Request.Context(), f); err != nil {
		s.logger.Warn("Trade refresh after filter change failed", zap.Error(err))
	}
	return nil
}

func (s *Server) renderList(c *gin.Context) {
	page := listPage{Statuses: statusOptions}
	if err := s.applyFilter(c); err != nil {
		page.FormError = err.Error()
	}
	if id := c.Query("cancelled"); id != "" {
		page.Notice = "Order " + id + " cancelled"
	}

	page.Snapshot = s.store.Snapshot()
	page.Order = models.ParseSortOrder(c.DefaultQuery("sort", string(models.SortByCreatedAt)), c.DefaultQuery("dir", string(models.Desc)))
	page.Trades = models.SortTrades(page.Snapshot.Trades, page.Order)
	page.Columns = buildColumns(page.Snapshot.Filter, page.Order)

	status := http.StatusOK
	if page.FormError != "" {
		status = http.StatusBadRequest
	}
	c.HTML(status, "index.html", page)
}

func (s *Server) renderDetail(c *gin.Context) {
	id := c.Param("id")
	page := detailPage{ID: id}

	trade, err := s.store.TradeDetail(c.Request.Context(), id)
	if err != nil {
		status, msg := detailError(err)
		s.logger.Warn("Failed to load trade", zap.String("id", id), zap.Error(err))
		page.LoadError = msg
		c.HTML(status, "trade.html", page)
		return
	}
	page.Trade = &trade
	c.HTML(http.StatusOK, "trade.html", page)
}

func (s *Server) submitCancel(c *gin.Context) {
	id := c.Param("id")
	result := s.store.CancelOrder(c.Request.Context(), id)
	if result.Success {
		c.Redirect(http.StatusSeeOther, "/?"+url.Values{"cancelled": {id}}.Encode())
		return
	}

	page := detailPage{ID: id, CancelError: result.Error}
	if trade, err := s.store.TradeDetail(c.Request.Context(), id); err == nil {
		page.Trade = &trade
	} else {
		_, page.LoadError = detailError(err)
	}
	c.HTML(http.StatusConflict, "trade.html", page)
}

func detailError(err error) (int, string) {
	if errors.Is(err, tradeapi.ErrTradeNotFound) {
		return http.StatusNotFound, "trade not found"
	}
	return http.StatusBadGateway, "unable to load trade"
}
