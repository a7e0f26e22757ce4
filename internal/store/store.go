package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"trade-dashboard-go/internal/models"
	"trade-dashboard-go/internal/tradeapi"

	"go.uber.org/zap"
)

const (
	// DefaultBalanceInterval is how often the balance is re-fetched.
	DefaultBalanceInterval = 60 * time.Second

	tradesErrorMessage  = "unable to load trade data"
	balanceErrorMessage = "unable to load account balance"
)

// BalanceSnapshot is the last successfully fetched balance plus the state of
// the refresh in flight. Values stay visible while Loading is true.
type BalanceSnapshot struct {
	models.Balance
	Loading   bool      `json:"loading"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot is a consistent copy of the store's state for rendering.
type Snapshot struct {
	Trades    []models.Trade  `json:"trades"`
	Total     int             `json:"total"`
	Filter    models.Filter   `json:"filter"`
	Loading   bool            `json:"loading"`
	Error     string          `json:"error,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
	Balance   BalanceSnapshot `json:"balance"`
}

// Store is the single source of truth for trades, filter criteria and the
// account balance of one dashboard. All mutation goes through its methods.
type Store struct {
	api             tradeapi.ClientInterface
	logger          *zap.Logger
	balanceInterval time.Duration

	mu            sync.RWMutex
	trades        []models.Trade
	filter        models.Filter
	loading       bool
	tradesErr     string
	tradesUpdated time.Time
	tradeSeq      uint64
	balance       BalanceSnapshot
	balanceSeq    uint64

	subs *subscribers
}

// New creates a store backed by api. A non-positive interval falls back to
// DefaultBalanceInterval.
func New(api tradeapi.ClientInterface, logger *zap.Logger, balanceInterval time.Duration) *Store {
	if balanceInterval <= 0 {
		balanceInterval = DefaultBalanceInterval
	}
	return &Store{
		api:             api,
		logger:          logger.Named("store"),
		balanceInterval: balanceInterval,
		filter:          models.DefaultFilter(),
		trades:          []models.Trade{},
		// nothing has been fetched yet
		loading: true,
		balance: BalanceSnapshot{Loading: true},
		subs:    newSubscribers(),
	}
}

// Run performs the initial fetch and then refreshes the balance on a fixed
// interval until ctx is cancelled. Subscribers are closed when it returns.
func (s *Store) Run(ctx context.Context) {
	defer s.subs.closeAll()

	s.logger.Info("Starting trade store", zap.Duration("balance_interval", s.balanceInterval))
	if err := s.RefreshTrades(ctx); err != nil {
		s.logger.Warn("Initial trade refresh failed", zap.Error(err))
	}
	if err := s.RefreshBalance(ctx); err != nil {
		s.logger.Warn("Initial balance refresh failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.balanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping trade store...")
			return
		case <-ticker.C:
			if err := s.RefreshBalance(ctx); err != nil {
				s.logger.Warn("Balance refresh failed", zap.Error(err))
			}
		}
	}
}

// SetFilter replaces the filter criteria. When they changed, the trade list is
// re-fetched for the new criteria before SetFilter returns.
func (s *Store) SetFilter(ctx context.Context, f models.Filter) error {
	f = f.Normalize()

	s.mu.Lock()
	changed := f != s.filter
	s.filter = f
	s.mu.Unlock()

	if !changed {
		return nil
	}
	s.logger.Debug("Filter changed", zap.Any("filter", f))
	s.subs.publish(TradesChanged)
	return s.RefreshTrades(ctx)
}

// Filter returns the current filter criteria.
func (s *Store) Filter() models.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// RefreshTrades fetches the trade list for the current criteria and replaces
// the stored list wholesale. On failure the previous list is kept and an error
// message is set. A response that was overtaken by a newer request is dropped.
func (s *Store) RefreshTrades(ctx context.Context) error {
	s.mu.Lock()
	s.tradeSeq++
	seq := s.tradeSeq
	filter := s.filter
	s.loading = true
	s.mu.Unlock()

	trades, err := s.api.ListTrades(ctx, filter)

	s.mu.Lock()
	if seq != s.tradeSeq {
		latest := s.tradeSeq
		s.mu.Unlock()
		s.logger.Debug("Discarding superseded trade response", zap.Uint64("seq", seq), zap.Uint64("latest", latest))
		return nil
	}
	s.loading = false
	if err != nil {
		s.tradesErr = tradesErrorMessage
	} else {
		if trades == nil {
			trades = []models.Trade{}
		}
		s.trades = trades
		s.tradesErr = ""
		s.tradesUpdated = time.Now()
	}
	s.mu.Unlock()

	s.subs.publish(TradesChanged)
	if err != nil {
		return err
	}
	s.logger.Debug("Trades refreshed", zap.Int("count", len(trades)))
	return nil
}

// RefreshBalance fetches the account balance. On failure the previous values
// are kept and only the error message is set.
func (s *Store) RefreshBalance(ctx context.Context) error {
	s.mu.Lock()
	s.balanceSeq++
	seq := s.balanceSeq
	s.balance.Loading = true
	s.mu.Unlock()

	balance, err := s.api.GetBalance(ctx)

	s.mu.Lock()
	if seq != s.balanceSeq {
		s.mu.Unlock()
		s.logger.Debug("Discarding superseded balance response", zap.Uint64("seq", seq))
		return nil
	}
	s.balance.Loading = false
	if err != nil {
		s.balance.Error = balanceErrorMessage
	} else {
		s.balance.Balance = balance
		s.balance.Error = ""
		s.balance.UpdatedAt = time.Now()
	}
	s.mu.Unlock()

	s.subs.publish(BalanceChanged)
	return err
}

// CancelOrder asks the backend to cancel order id. A successful cancel is
// followed by exactly one trade refresh; a rejected one leaves state untouched.
func (s *Store) CancelOrder(ctx context.Context, id string) tradeapi.CancelResult {
	result := s.api.CancelOrder(ctx, id)
	if !result.Success {
		s.logger.Info("Cancel rejected", zap.String("order_id", id), zap.String("reason", result.Error))
		return result
	}
	if err := s.RefreshTrades(ctx); err != nil {
		s.logger.Warn("Refresh after cancel failed", zap.String("order_id", id), zap.Error(err))
	}
	return result
}

// TradeDetail fetches one trade straight from the backend. The store does not
// cache it and passes errors through unchanged.
func (s *Store) TradeDetail(ctx context.Context, id string) (models.Trade, error) {
	return s.api.GetTradeDetail(ctx, id)
}

// Filtered returns the stored trades that match the current criteria, in
// their original order.
func (s *Store) Filtered() []models.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.FilterTrades(s.trades, s.filter)
}

// Balance returns the current balance snapshot.
func (s *Store) Balance() BalanceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance
}

// Snapshot returns a copy of the whole state. The trade slice is owned by the caller.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Trades:    models.FilterTrades(s.trades, s.filter),
		Total:     len(s.trades),
		Filter:    s.filter,
		Loading:   s.loading,
		Error:     s.tradesErr,
		UpdatedAt: s.tradesUpdated,
		Balance:   s.balance,
	}
}

// Trades returns a copy of every stored trade, unfiltered.
func (s *Store) Trades() []models.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.trades)
}

// Subscribe registers for change notifications. Slow subscribers miss
// notifications rather than block the store; the next Snapshot has the state.
// The channel is closed by the returned func or when Run exits.
func (s *Store) Subscribe() (<-chan Change, func()) {
	return s.subs.add()
}
