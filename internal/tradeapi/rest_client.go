package tradeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"trade-dashboard-go/internal/config"
	"trade-dashboard-go/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader     = "X-Request-ID"
	defaultCancelReason = "failed to cancel order"
)

var (
	// ErrTradesUnavailable is returned when the trade list cannot be fetched.
	ErrTradesUnavailable = errors.New("trades unavailable")
	// ErrBalanceUnavailable is returned when the balance cannot be fetched.
	ErrBalanceUnavailable = errors.New("balance unavailable")
	// ErrTradeUnavailable is returned when a single trade cannot be fetched.
	ErrTradeUnavailable = errors.New("trade not found or unavailable")
	// ErrTradeNotFound is wrapped in addition to ErrTradeUnavailable when the backend answers 404.
	ErrTradeNotFound = errors.New("trade not found")
)

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, body)
}

// CancelResult is the outcome of a cancellation request.
type CancelResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ClientInterface defines the interface for the trading backend REST API client.
type ClientInterface interface {
	ListTrades(ctx context.Context, filter models.Filter) ([]models.Trade, error)
	GetBalance(ctx context.Context) (models.Balance, error)
	GetTradeDetail(ctx context.Context, id string) (models.Trade, error)
	CancelOrder(ctx context.Context, id string) CancelResult
}

// RestClient is a client for the trading backend REST API.
// Every call is issued once; nothing is retried.
type RestClient struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure RestClient implements the interface
var _ ClientInterface = (*RestClient)(nil)

// NewRestClient creates a new backend REST API client.
func NewRestClient(cfg *config.Backend, logger *zap.Logger) *RestClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}

	return &RestClient{
		client:  client,
		logger:  logger.Named("tradeapi"),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// doRequest executes req once after waiting for the rate limiter.
// Non-2xx responses come back as *StatusError together with the response.
func (c *RestClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	requestID := uuid.NewString()
	req.SetContext(ctx).SetHeader(requestIDHeader, requestID)

	c.logger.Debug("Executing request",
		zap.String("method", method),
		zap.String("url", c.client.BaseURL+url),
		zap.String("request_id", requestID),
	)

	resp, err := req.Execute(method, url)
	if err != nil {
		return resp, fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return resp, &StatusError{StatusCode: resp.StatusCode(), Body: resp.Body()}
	}
	return resp, nil
}

// ListTrades fetches the trade list for the given filter criteria.
// Records that do not decode are skipped and logged.
func (c *RestClient) ListTrades(ctx context.Context, filter models.Filter) ([]models.Trade, error) {
	filter = filter.Normalize()
	req := c.client.R().SetQueryParams(map[string]string{
		"status": string(filter.Status),
		"symbol": filter.Symbol,
		"bot":    filter.Bot,
	})

	resp, err := c.doRequest(ctx, http.MethodGet, "/trades", req)
	if err != nil {
		c.logger.Warn("Failed to list trades", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrTradesUnavailable, err)
	}

	items, err := tradeArray(resp.Body())
	if err != nil {
		c.logger.Warn("Failed to decode trade list", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrTradesUnavailable, err)
	}

	trades := make([]models.Trade, 0, len(items))
	for _, item := range items {
		var t models.Trade
		if err := json.Unmarshal([]byte(item.Raw), &t); err != nil {
			c.logger.Warn("Skipping undecodable trade", zap.Error(err), zap.String("raw", item.Raw))
			continue
		}
		trades = append(trades, t)
	}

	c.logger.Debug("Fetched trades", zap.Int("count", len(trades)), zap.Any("filter", filter))
	return trades, nil
}

// tradeArray locates the trade array in the body: either the document itself
// or an envelope field.
func tradeArray(body []byte) ([]gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("response is not valid JSON")
	}
	doc := gjson.ParseBytes(body)
	if doc.IsArray() {
		return doc.Array(), nil
	}
	for _, key := range []string{"trades", "data", "result", "items"} {
		if v := doc.Get(key); v.IsArray() {
			return v.Array(), nil
		}
	}
	if doc.Type == gjson.Null {
		return nil, nil
	}
	return nil, errors.New("response does not contain a trade list")
}

// GetBalance fetches the account balance. Absent fields default to zero.
func (c *RestClient) GetBalance(ctx context.Context) (models.Balance, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/balance", c.client.R())
	if err != nil {
		c.logger.Warn("Failed to get balance", zap.Error(err))
		return models.Balance{}, fmt.Errorf("%w: %w", ErrBalanceUnavailable, err)
	}

	var balance models.Balance
	if err := json.Unmarshal(resp.Body(), &balance); err != nil {
		c.logger.Warn("Failed to decode balance", zap.Error(err))
		return models.Balance{}, fmt.Errorf("%w: %w", ErrBalanceUnavailable, err)
	}
	return balance, nil
}

// GetTradeDetail fetches a single trade by id.
func (c *RestClient) GetTradeDetail(ctx context.Context, id string) (models.Trade, error) {
	req := c.client.R().SetPathParam("id", id)

	resp, err := c.doRequest(ctx, http.MethodGet, "/trade/{id}", req)
	if err != nil {
		c.logger.Warn("Failed to get trade detail", zap.String("trade_id", id), zap.Error(err))
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return models.Trade{}, fmt.Errorf("%w: %w: %s", ErrTradeUnavailable, ErrTradeNotFound, id)
		}
		return models.Trade{}, fmt.Errorf("%w: %w", ErrTradeUnavailable, err)
	}

	var trade models.Trade
	if err := json.Unmarshal(resp.Body(), &trade); err != nil {
		return models.Trade{}, fmt.Errorf("%w: decode trade %s: %w", ErrTradeUnavailable, id, err)
	}
	return trade, nil
}

// CancelOrder posts a cancellation request. The failure reason is taken from
// the backend's error payload when there is one.
func (c *RestClient) CancelOrder(ctx context.Context, id string) CancelResult {
	req := c.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"order_id": id})

	resp, err := c.doRequest(ctx, http.MethodPost, "/order/cancel", req)
	if err != nil {
		reason := defaultCancelReason
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			reason = errorReason(statusErr.Body)
		}
		c.logger.Warn("Order cancellation rejected",
			zap.String("order_id", id),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return CancelResult{Success: false, Error: reason}
	}

	// some backends answer 200 with {"success": false, "error": ...}
	if ok := gjson.GetBytes(resp.Body(), "success"); ok.Exists() && !ok.Bool() {
		reason := errorReason(resp.Body())
		c.logger.Warn("Order cancellation rejected", zap.String("order_id", id), zap.String("reason", reason))
		return CancelResult{Success: false, Error: reason}
	}

	c.logger.Info("Order cancelled", zap.String("order_id", id))
	return CancelResult{Success: true}
}

func errorReason(body []byte) string {
	if !gjson.ValidBytes(body) {
		return defaultCancelReason
	}
	for _, key := range []string{"error", "message", "msg"} {
		if v := gjson.GetBytes(body, key); v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
			return strings.TrimSpace(v.Str)
		}
	}
	return defaultCancelReason
}
