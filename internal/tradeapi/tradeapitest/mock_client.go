// Package tradeapitest provides a testify mock of the backend client.
package tradeapitest

import (
	"context"

	"trade-dashboard-go/internal/models"
	"trade-dashboard-go/internal/tradeapi"

	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of tradeapi.ClientInterface.
type MockClient struct {
	mock.Mock
}

var _ tradeapi.ClientInterface = (*MockClient)(nil)

func (m *MockClient) ListTrades(ctx context.Context, filter models.Filter) ([]models.Trade, error) {
	args := m.Called(ctx, filter)
	trades, _ := args.Get(0).([]models.Trade)
	return trades, args.Error(1)
}

func (m *MockClient) GetBalance(ctx context.Context) (models.Balance, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Balance), args.Error(1)
}

func (m *MockClient) GetTradeDetail(ctx context.Context, id string) (models.Trade, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Trade), args.Error(1)
}

func (m *MockClient) CancelOrder(ctx context.Context, id string) tradeapi.CancelResult {
	args := m.Called(ctx, id)
	return args.Get(0).(tradeapi.CancelResult)
}
