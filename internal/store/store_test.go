package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trade-dashboard-go/internal/models"
	"trade-dashboard-go/internal/tradeapi"
	"trade-dashboard-go/internal/tradeapi/tradeapitest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupTest creates a store backed by a fresh mock client.
func setupTest(t *testing.T) (*Store, *tradeapitest.MockClient) {
	t.Helper()
	mockClient := new(tradeapitest.MockClient)
	return New(mockClient, zap.NewNop(), time.Minute), mockClient
}

func threeTrades() []models.Trade {
	return []models.Trade{
		{ID: "1", Symbol: "BTCUSDT", Status: models.StatusOpen},
		{ID: "2", Symbol: "ETHUSDT", Status: models.StatusOpen},
		{ID: "3", Symbol: "BTCUSDT", Status: models.StatusClosed},
	}
}

func TestRefreshTrades(t *testing.T) {
	t.Run("ReplacesListWholesale", func(t *testing.T) {
		// Arrange
		s, mockClient := setupTest(t)
		mockClient.On("ListTrades", mock.Anything, models.DefaultFilter()).Return(threeTrades(), nil).Once()
		mockClient.On("ListTrades", mock.Anything, models.DefaultFilter()).Return([]models.Trade{{ID: "9", Status: models.StatusOpen}}, nil).Once()

		// Act
		require.NoError(t, s.RefreshTrades(context.Background()))
		first := s.Snapshot()
		require.NoError(t, s.RefreshTrades(context.Background()))
		second := s.Snapshot()

		// Assert
		assert.Len(t, first.Trades, 3)
		assert.False(t, first.Loading)
		assert.Empty(t, first.Error)
		assert.Equal(t, []models.Trade{{ID: "9", Status: models.StatusOpen}}, second.Trades)
		mockClient.AssertExpectations(t)
	})

	t.Run("FailureKeepsLastKnownGood", func(t *testing.T) {
		s, mockClient := setupTest(t)
		mockClient.On("ListTrades", mock.Anything, mock.Anything).Return(threeTrades(), nil).Once()
		mockClient.On("ListTrades", mock.Anything, mock.Anything).Return(nil, tradeapi.ErrTradesUnavailable).Once()

		require.NoError(t, s.RefreshTrades(context.Background()))
		before := s.Snapshot()
		err := s.RefreshTrades(context.Background())
		after := s.Snapshot()

		assert.ErrorIs(t, err, tradeapi.ErrTradesUnavailable)
		assert.Equal(t, before.Trades, after.Trades)
		assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
		assert.Equal(t, tradesErrorMessage, after.Error)
		assert.False(t, after.Loading)
	})

	t.Run("SuccessClearsError", func(t *testing.T) {
		s, mockClient := setupTest(t)
		mockClient.On("ListTrades", mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()
		mockClient.On("ListTrades", mock.Anything, mock.Anything).Return(threeTrades(), nil).Once()

		assert.Error(t, s.RefreshTrades(context.Background()))
		assert.NotEmpty(t, s.Snapshot().Error)
		assert.NoError(t, s.RefreshTrades(context.Background()))
		assert.Empty(t, s.Snapshot().Error)
	})

	t.Run("LoadingDuringCall", func(t *testing.T) {
		s, mockClient := setupTest(t)
		release := make(chan struct{})
		entered := make(chan struct{})
		mockClient.On("ListTrades", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				close(entered)
				<-release
			}).
			Return(threeTrades(), nil).Once()

		done := make(chan error)
		go func() { done <- s.RefreshTrades(context.Background()) }()

		<-entered
		assert.True(t, s.Snapshot().Loading)
		close(release)
		require.NoError(t, <-done)
		assert.False(t, s.Snapshot().Loading)
	})
}

func TestRefreshTrades_DiscardsSupersededResponse(t *testing.T) {
	s, mockClient := setupTest(t)
	slowFilter := models.Filter{Status: models.StatusAll, Symbol: "BTC"}
	fastFilter := models.Filter{Status: models.StatusAll, Symbol: "ETH"}

	release := make(chan struct{})
	entered := make(chan struct{})
	mockClient.On("ListTrades", mock.Anything, slowFilter).
		Run(func(args mock.Arguments) {
			close(entered)
			<-release
		}).
		Return([]models.Trade{{ID: "stale", Symbol: "BTCUSDT", Status: models.StatusOpen}}, nil).Once()
	mockClient.On("ListTrades", mock.Anything, fastFilter).
		Return([]models.Trade{{ID: "fresh", Symbol: "ETHUSDT", Status: models.StatusOpen}}, nil).Once()

	slowDone := make(chan error)
	go func() { slowDone <- s.SetFilter(context.Background(), slowFilter) }()
	<-entered

	// a newer filter overtakes the slow request
	require.NoError(t, s.SetFilter(context.Background(), fastFilter))
	close(release)
	require.NoError(t, <-slowDone)

	snap := s.Snapshot()
	require.Len(t, snap.Trades, 1)
	assert.Equal(t, "fresh", snap.Trades[0].ID)
	assert.Equal(t, fastFilter, snap.Filter)
	assert.False(t, snap.Loading)
	mockClient.AssertExpectations(t)
}

func TestSetFilter(t *testing.T) {
	t.Run("ChangeTriggersOneFetch", func(t *testing.T) {
		s, mockClient := setupTest(t)
		f := models.Filter{Status: "OPEN", Symbol: "BTC"}
		mockClient.On("ListTrades", mock.Anything, f).Return(threeTrades(), nil).Once()

		require.NoError(t, s.SetFilter(context.Background(), f))

		mockClient.AssertNumberOfCalls(t, "ListTrades", 1)
		assert.Equal(t, f, s.Filter())
	})

	t.Run("SameCriteriaDoNotFetch", func(t *testing.T) {
		s, mockClient := setupTest(t)

		require.NoError(t, s.SetFilter(context.Background(), models.Filter{Symbol: "  "}))

		mockClient.AssertNotCalled(t, "ListTrades", mock.Anything, mock.Anything)
	})

	t.Run("FilteredView", func(t *testing.T) {
		s, mockClient := setupTest(t)
		f := models.Filter{Status: "OPEN", Symbol: "BTC", Bot: ""}
		// the backend may ignore the query; the store still narrows the list
		mockClient.On("ListTrades", mock.Anything, f).Return(threeTrades(), nil).Once()

		require.NoError(t, s.SetFilter(context.Background(), f))

		filtered := s.Filtered()
		require.Len(t, filtered, 1)
		assert.Equal(t, "1", filtered[0].ID)
		assert.Len(t, s.Trades(), 3, "filtering never mutates the stored list")
		assert.Equal(t, 3, s.Snapshot().Total)
	})
}

func TestRefreshBalance(t *testing.T) {
	t.Run("MissingFieldsAreZero", func(t *testing.T) {
		s, mockClient := setupTest(t)
		mockClient.On("GetBalance", mock.Anything).Return(models.Balance{Available: decimal.NewFromInt(100)}, nil).Once()

		require.NoError(t, s.RefreshBalance(context.Background()))

		b := s.Balance()
		assert.True(t, b.Available.Equal(decimal.NewFromInt(100)))
		assert.True(t, b.Equity.IsZero())
		assert.True(t, b.UsedMargin.IsZero())
		assert.True(t, b.WalletBalance.IsZero())
		assert.False(t, b.Loading)
		assert.Empty(t, b.Error)
	})

	t.Run("FailureKeepsValues", func(t *testing.T) {
		s, mockClient := setupTest(t)
		good := models.Balance{Available: decimal.NewFromInt(50), Equity: decimal.NewFromInt(75)}
		mockClient.On("GetBalance", mock.Anything).Return(good, nil).Once()
		mockClient.On("GetBalance", mock.Anything).Return(models.Balance{}, tradeapi.ErrBalanceUnavailable).Once()

		require.NoError(t, s.RefreshBalance(context.Background()))
		before := s.Balance()
		err := s.RefreshBalance(context.Background())
		after := s.Balance()

		assert.ErrorIs(t, err, tradeapi.ErrBalanceUnavailable)
		assert.Equal(t, before.Balance, after.Balance)
		assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
		assert.Equal(t, balanceErrorMessage, after.Error)
		assert.False(t, after.Loading)
	})
}

func TestCancelOrder(t *testing.T) {
	t.Run("SuccessRefreshesOnce", func(t *testing.T) {
		s, mockClient := setupTest(t)
		mockClient.On("CancelOrder", mock.Anything, "42").Return(tradeapi.CancelResult{Success: true}).Once()
		mockClient.On("ListTrades", mock.Anything, mock.Anything).Return(threeTrades(), nil).Once()

		result := s.CancelOrder(context.Background(), "42")

		assert.Equal(t, tradeapi.CancelResult{Success: true}, result)
		mockClient.AssertNumberOfCalls(t, "ListTrades", 1)
		mockClient.AssertExpectations(t)
	})

	t.Run("FailureDoesNotRefresh", func(t *testing.T) {
		s, mockClient := setupTest(t)
		mockClient.On("CancelOrder", mock.Anything, "42").
			Return(tradeapi.CancelResult{Success: false, Error: "already filled"}).Once()
		before := s.Snapshot()

		result := s.CancelOrder(context.Background(), "42")

		assert.Equal(t, tradeapi.CancelResult{Success: false, Error: "already filled"}, result)
		mockClient.AssertNotCalled(t, "ListTrades", mock.Anything, mock.Anything)
		assert.Equal(t, before, s.Snapshot())
	})

	t.Run("RefreshFailureStillReportsSuccess", func(t *testing.T) {
		s, mockClient := setupTest(t)
		mockClient.On("CancelOrder", mock.Anything, "42").Return(tradeapi.CancelResult{Success: true}).Once()
		mockClient.On("ListTrades", mock.Anything, mock.Anything).Return(nil, tradeapi.ErrTradesUnavailable).Once()

		result := s.CancelOrder(context.Background(), "42")

		assert.True(t, result.Success)
		assert.Equal(t, tradesErrorMessage, s.Snapshot().Error)
	})
}

func TestTradeDetailPropagatesErrors(t *testing.T) {
	s, mockClient := setupTest(t)
	mockClient.On("GetTradeDetail", mock.Anything, "7").Return(models.Trade{}, tradeapi.ErrTradeUnavailable).Once()

	_, err := s.TradeDetail(context.Background(), "7")

	assert.ErrorIs(t, err, tradeapi.ErrTradeUnavailable)
}

func TestRun(t *testing.T) {
	mockClient := new(tradeapitest.MockClient)
	s := New(mockClient, zap.NewNop(), 10*time.Millisecond)

	var mu sync.Mutex
	balanceCalls := 0
	mockClient.On("ListTrades", mock.Anything, mock.Anything).Return(threeTrades(), nil).Once()
	mockClient.On("GetBalance", mock.Anything).
		Run(func(args mock.Arguments) {
			mu.Lock()
			balanceCalls++
			mu.Unlock()
		}).
		Return(models.Balance{Available: decimal.NewFromInt(1)}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return balanceCalls >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	mu.Lock()
	stopped := balanceCalls
	mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, stopped, balanceCalls, "no balance refresh after teardown")
	mu.Unlock()

	mockClient.AssertNumberOfCalls(t, "ListTrades", 1)
	assert.Len(t, s.Snapshot().Trades, 3)
}

func TestSubscribe(t *testing.T) {
	s, mockClient := setupTest(t)
	mockClient.On("GetBalance", mock.Anything).Return(models.Balance{}, nil)

	changes, unsubscribe := s.Subscribe()
	require.NoError(t, s.RefreshBalance(context.Background()))

	select {
	case c := <-changes:
		assert.Equal(t, BalanceChanged, c)
	case <-time.After(time.Second):
		t.Fatal("no change notification")
	}

	unsubscribe()
	unsubscribe()
	_, open := <-changes
	assert.False(t, open)
}

func TestSubscribe_ClosedWhenRunExits(t *testing.T) {
	s, mockClient := setupTest(t)
	mockClient.On("ListTrades", mock.Anything, mock.Anything).Return(nil, errors.New("down"))
	mockClient.On("GetBalance", mock.Anything).Return(models.Balance{}, errors.New("down"))

	changes, unsubscribe := s.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Run(ctx)

	for range changes {
		// drain initial notifications until the channel is closed
	}
	late, _ := s.Subscribe()
	_, open := <-late
	assert.False(t, open)
}
