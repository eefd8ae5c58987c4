package exchange

import (
	"context"
	"testing"
	"time"

	"binance-grid-bot-go/internal/binance"
	"binance-grid-bot-go/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockRestClient is a mock implementation of the RestClientInterface.
type MockRestClient struct {
	mock.Mock
}

func (m *MockRestClient) GetServerTime(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRestClient) GetTickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockRestClient) GetKlines(ctx context.Context, symbol, interval string, start, end time.Time) ([]binance.Kline, error) {
	args := m.Called(ctx, symbol, interval, start, end)
	return args.Get(0).([]binance.Kline), args.Error(1)
}

func (m *MockRestClient) GetExchangeInfo(ctx context.Context) (*binance.ExchangeInfoResponse, error) {
	args := m.Called(ctx)
	return args.Get(0).(*binance.ExchangeInfoResponse), args.Error(1)
}

func (m *MockRestClient) CreateOrder(ctx context.Context, symbol, side string, quantity decimal.Decimal) (*binance.CreateOrderResponse, error) {
	args := m.Called(ctx, symbol, side, quantity)
	resp, _ := args.Get(0).(*binance.CreateOrderResponse)
	return resp, args.Error(1)
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func exchangeInfo() *binance.ExchangeInfoResponse {
	return &binance.ExchangeInfoResponse{Symbols: []binance.SymbolInfo{
		{Symbol: "BTCUSDT", Status: "TRADING", Filters: []binance.Filter{
			{FilterType: "PRICE_FILTER"},
			{FilterType: "LOT_SIZE", MinQty: "0.00010000", MaxQty: "9000.00000000", StepSize: "0.00010000"},
		}},
		{Symbol: "ETHUSDT", Status: "TRADING", Filters: []binance.Filter{
			{FilterType: "LOT_SIZE", MinQty: "0.01000000", StepSize: "0.01000000"},
		}},
	}}
}

func TestBinance_PlaceMarketOrder(t *testing.T) {
	// Arrange
	client := new(MockRestClient)
	client.On("GetExchangeInfo", mock.Anything).Return(exchangeInfo(), nil).Once()
	client.On("CreateOrder", mock.Anything, "BTCUSDT", "BUY", mock.MatchedBy(func(q decimal.Decimal) bool {
		return q.Equal(d("0.0123"))
	})).Return(&binance.CreateOrderResponse{
		Symbol:              "BTCUSDT",
		OrderID:             7,
		Side:                "BUY",
		Status:              "FILLED",
		ExecutedQuantity:    "0.01230000",
		CummulativeQuoteQty: "787.2",
		TransactTime:        1700000000000,
	}, nil)

	ex := NewBinance(client, zap.NewNop())

	// Act
	res, err := ex.PlaceMarketOrder(context.Background(), "BTCUSDT", SideBuy, d("0.01239999"))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "7", res.OrderID)
	assert.Equal(t, SideBuy, res.Side)
	assert.True(t, res.Price.Equal(d("64000")))
	assert.True(t, res.Quantity.Equal(d("0.0123")))

	// Rules are cached after the first order.
	_, err = ex.PlaceMarketOrder(context.Background(), "BTCUSDT", SideBuy, d("0.0123"))
	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestBinance_QuantityBelowMinimum(t *testing.T) {
	client := new(MockRestClient)
	client.On("GetExchangeInfo", mock.Anything).Return(exchangeInfo(), nil)

	ex := NewBinance(client, zap.NewNop())
	_, err := ex.PlaceMarketOrder(context.Background(), "ETHUSDT", SideSell, d("0.0099"))

	assert.True(t, errors.HasCode(err, errors.ErrCodeOrderRejected))
	client.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBinance_FormatQuantity(t *testing.T) {
	ex := NewBinance(new(MockRestClient), zap.NewNop())
	rule := lotSize{minQty: d("0.001"), stepSize: d("0.001")}

	testCases := []struct {
		name    string
		qty     string
		want    string
		wantErr bool
	}{
		{name: "floors to step", qty: "1.23456", want: "1.234"},
		{name: "exact step", qty: "0.005", want: "0.005"},
		{name: "below min", qty: "0.0009", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ex.formatQuantity("BTCUSDT", d(tc.qty), rule, true)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(d(tc.want)), "got %s", got)
		})
	}

	got, err := ex.formatQuantity("XYZ", d("1.23456"), lotSize{}, false)
	require.NoError(t, err)
	assert.True(t, got.Equal(d("1.23456")), "unknown symbols pass through")
}

func TestBinance_AuthenticationErrorPropagates(t *testing.T) {
	client := new(MockRestClient)
	client.On("GetExchangeInfo", mock.Anything).Return(exchangeInfo(), nil)
	client.On("CreateOrder", mock.Anything, "BTCUSDT", "SELL", mock.Anything).
		Return(nil, errors.New(errors.ErrCodeAuthentication, "invalid api key"))

	_, err := NewBinance(client, zap.NewNop()).PlaceMarketOrder(context.Background(), "BTCUSDT", SideSell, d("1"))

	assert.True(t, errors.IsFatal(err))
}

func TestPaper_PlaceMarketOrder(t *testing.T) {
	last := map[string]decimal.Decimal{"BTCUSDT": d("100.5")}
	p := NewPaper(func(symbol string) (decimal.Decimal, bool) {
		v, ok := last[symbol]
		return v, ok
	})

	res, err := p.PlaceMarketOrder(context.Background(), "BTCUSDT", SideBuy, d("2"))
	require.NoError(t, err)
	assert.Equal(t, "paper-1", res.OrderID)
	assert.True(t, res.Price.Equal(d("100.5")))
	assert.Equal(t, "FILLED", res.Status)

	res, err = p.PlaceMarketOrder(context.Background(), "BTCUSDT", SideSell, d("2"))
	require.NoError(t, err)
	assert.Equal(t, "paper-2", res.OrderID)

	_, err = p.PlaceMarketOrder(context.Background(), "ETHUSDT", SideBuy, d("1"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeNoPrice))

	_, err = p.PlaceMarketOrder(context.Background(), "BTCUSDT", SideBuy, decimal.Zero)
	assert.True(t, errors.HasCode(err, errors.ErrCodeOrderRejected))
}
