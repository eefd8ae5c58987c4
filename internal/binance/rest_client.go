package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"binance-grid-bot-go/internal/config"
	"binance-grid-bot-go/internal/errors"
	"binance-grid-bot-go/internal/id"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	baseURL         = "https://api.binance.com/api/v3"
	testnetBaseURL  = "https://testnet.binance.vision/api/v3"
	recvWindow      = "5000" // How long a request is valid in milliseconds
	OrderTypeMarket = "MARKET"
	OrderSideBuy    = "BUY"
	OrderSideSell   = "SELL"

	maxRetries  = 3
	klinesLimit = 1000
)

// RestClientInterface defines the interface for the Binance REST API client.
type RestClientInterface interface {
	GetServerTime(ctx context.Context) (int64, error)
	GetTickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	GetKlines(ctx context.Context, symbol, interval string, start, end time.Time) ([]Kline, error)
	GetExchangeInfo(ctx context.Context) (*ExchangeInfoResponse, error)
	CreateOrder(ctx context.Context, symbol, side string, quantity decimal.Decimal) (*CreateOrderResponse, error)
}

// RestClient is a client for the Binance REST API.
// It implements the RestClientInterface.
type RestClient struct {
	client    *resty.Client
	apiKey    string
	secretKey string
	logger    *zap.Logger
	limiter   *rate.Limiter
	// backoff is the first retry delay; it doubles on every attempt.
	backoff time.Duration
}

// ensure RestClient implements the interface
var _ RestClientInterface = (*RestClient)(nil)

// NewRestClient creates a new Binance REST API client.
func NewRestClient(cfg *config.Binance, logger *zap.Logger) *RestClient {
	logger = logger.Named("binance-rest")

	url := cfg.BaseURL
	switch {
	case url != "":
		logger.Info("Using custom Binance endpoint", zap.String("url", url))
	case cfg.Testnet:
		url = testnetBaseURL
		logger.Warn("Using Binance Testnet")
	default:
		url = baseURL
		logger.Info("Using Binance Production API")
	}

	client := resty.New().SetBaseURL(url)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &RestClient{
		client:    client,
		apiKey:    cfg.ApiKey,
		secretKey: cfg.SecretKey,
		logger:    logger,
		limiter:   limiter,
		backoff:   time.Second,
	}
}

// sign creates a HMAC-SHA256 signature for the request.
func (c *RestClient) sign(data string) string {
	h := hmac.New(sha256.New, []byte(c.secretKey))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// GetServerTime fetches the current server time from Binance.
// This is a good endpoint to test connectivity.
func (c *RestClient) GetServerTime(ctx context.Context) (int64, error) {
	type ServerTimeResponse struct {
		ServerTime int64 `json:"serverTime"`
	}

	req := c.client.R().
		SetResult(&ServerTimeResponse{})

	resp, err := c.doRequest(ctx, http.MethodGet, "/time", req)
	if err != nil {
		c.logger.Error("Failed to get server time", zap.Error(err))
		return 0, errors.Wrap(errors.GetCode(err), "failed to get server time", err)
	}

	result := resp.Result().(*ServerTimeResponse)
	return result.ServerTime, nil
}

// TickerPrice represents the response for a single ticker price.
type TickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// GetTickerPrice fetches the latest price of one symbol.
func (c *RestClient) GetTickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	req := c.client.R().
		SetQueryParam("symbol", symbol).
		SetResult(&TickerPrice{})

	resp, err := c.doRequest(ctx, http.MethodGet, "/ticker/price", req)
	if err != nil {
		return decimal.Zero, errors.Wrapf(errors.GetCode(err), err, "failed to get ticker price for %s", symbol)
	}

	result := resp.Result().(*TickerPrice)
	price, err := decimal.NewFromString(result.Price)
	if err != nil {
		return decimal.Zero, errors.Wrapf(errors.ErrCodeNoPrice, err, "invalid ticker price %q for %s", result.Price, symbol)
	}
	return price, nil
}

// Kline is one candlestick. Only the fields the bot uses are decoded.
type Kline struct {
	OpenTime  time.Time
	CloseTime time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
}

// GetKlines fetches all candles of interval opened in [start, end), paging
// through the endpoint's per-request limit.
func (c *RestClient) GetKlines(ctx context.Context, symbol, interval string, start, end time.Time) ([]Kline, error) {
	var out []Kline
	for from := start; from.Before(end); {
		var rows [][]any
		req := c.client.R().
			SetQueryParams(map[string]string{
				"symbol":    symbol,
				"interval":  interval,
				"startTime": strconv.FormatInt(from.UnixMilli(), 10),
				"endTime":   strconv.FormatInt(end.UnixMilli()-1, 10),
				"limit":     strconv.Itoa(klinesLimit),
			}).
			SetResult(&rows)

		if _, err := c.doRequest(ctx, http.MethodGet, "/klines", req); err != nil {
			return nil, errors.Wrapf(errors.GetCode(err), err, "failed to get klines for %s", symbol)
		}

		for _, row := range rows {
			k, err := parseKline(row)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrCodeNoPrice, err, "malformed kline for %s", symbol)
			}
			out = append(out, k)
		}

		if len(rows) < klinesLimit {
			break
		}
		from = out[len(out)-1].OpenTime.Add(time.Millisecond)
	}
	return out, nil
}

func parseKline(row []any) (Kline, error) {
	if len(row) < 7 {
		return Kline{}, fmt.Errorf("expected at least 7 fields, got %d", len(row))
	}

	var k Kline
	openMs, ok := row[0].(float64)
	if !ok {
		return Kline{}, fmt.Errorf("open time %v is not a number", row[0])
	}
	closeMs, ok := row[6].(float64)
	if !ok {
		return Kline{}, fmt.Errorf("close time %v is not a number", row[6])
	}
	k.OpenTime = time.UnixMilli(int64(openMs)).UTC()
	k.CloseTime = time.UnixMilli(int64(closeMs)).UTC()

	for i, dst := range []*decimal.Decimal{&k.Open, &k.High, &k.Low, &k.Close} {
		s, ok := row[i+1].(string)
		if !ok {
			return Kline{}, fmt.Errorf("field %d is %T, want string", i+1, row[i+1])
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return Kline{}, err
		}
		*dst = d
	}
	return k, nil
}

// APIError is the error body Binance returns with 4xx responses.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance error %d: %s", e.Code, e.Message)
}

// Binance error codes for a bad API key or signature.
const (
	codeRejectedMbxKey = -2014
	codeInvalidAPIKey  = -2015
)

// classify turns a non-retryable error response into a coded error.
func classify(resp *resty.Response) error {
	apiErr := &APIError{}
	if err := json.Unmarshal(resp.Body(), apiErr); err != nil || apiErr.Code == 0 {
		apiErr = &APIError{Message: resp.String()}
	}

	status := resp.StatusCode()
	if status == http.StatusUnauthorized || status == http.StatusForbidden ||
		apiErr.Code == codeRejectedMbxKey || apiErr.Code == codeInvalidAPIKey {
		return errors.Wrapf(errors.ErrCodeAuthentication, apiErr, "request failed with status %s", resp.Status())
	}
	return errors.Wrapf(errors.ErrCodeOrderRejected, apiErr, "request failed with status %s", resp.Status())
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *RestClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var lastErr error
	req.SetContext(ctx)

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConnectivity, "rate limiter wait failed", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err := req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrCodeConnectivity, "request cancelled", ctx.Err())
		}

		// Analyze error and decide whether to retry. Only GETs are retried on
		// 5xx or transport errors: a POST may already have executed.
		shouldRetry := false
		idempotent := method == http.MethodGet
		var retryAfter time.Duration

		if err == nil && resp != nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests || statusCode == http.StatusTeapot {
				shouldRetry = true
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 {
				if !idempotent {
					return nil, errors.Wrapf(errors.ErrCodeConnectivity, classify(resp),
						"%s %s failed with status %s, execution status unknown", method, url, resp.Status())
				}
				shouldRetry = true
			}
			lastErr = fmt.Errorf("status %s: %s", resp.Status(), resp.String())
		} else { // Network or other client-side errors
			if !idempotent {
				return nil, errors.Wrapf(errors.ErrCodeConnectivity, err,
					"%s %s failed, execution status unknown", method, url)
			}
			shouldRetry = true
			lastErr = err
		}

		if !shouldRetry {
			return nil, classify(resp)
		}

		if i == maxRetries-1 {
			break
		}

		// Exponential backoff: 1s, 2s, 4s unless the server asked otherwise
		if retryAfter == 0 {
			retryAfter = c.backoff << i
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(lastErr),
		)

		select {
		case <-time.After(retryAfter):
		case <-ctx.Done():
			return nil, errors.Wrap(errors.ErrCodeConnectivity, "request cancelled", ctx.Err())
		}
	}

	return nil, errors.Wrapf(errors.ErrCodeConnectivity, lastErr, "request failed after %d attempts", maxRetries)
}

// ExchangeInfoResponse represents the full response from the /exchangeInfo endpoint.
type ExchangeInfoResponse struct {
	Symbols []SymbolInfo `json:"symbols"`
}

// SymbolInfo contains information about a specific trading symbol.
type SymbolInfo struct {
	Symbol  string   `json:"symbol"`
	Status  string   `json:"status"`
	Filters []Filter `json:"filters"`
}

// LotSize returns the symbol's LOT_SIZE filter.
func (s SymbolInfo) LotSize() (Filter, bool) {
	for _, f := range s.Filters {
		if f.FilterType == "LOT_SIZE" {
			return f, true
		}
	}
	return Filter{}, false
}

// Filter represents a single filter for a symbol.
// We are interested in the LOT_SIZE filter to get the stepSize.
type Filter struct {
	FilterType string `json:"filterType"`
	MinQty     string `json:"minQty,omitempty"`
	MaxQty     string `json:"maxQty,omitempty"`
	StepSize   string `json:"stepSize,omitempty"`
}

// GetExchangeInfo fetches exchange trading rules and symbol information.
func (c *RestClient) GetExchangeInfo(ctx context.Context) (*ExchangeInfoResponse, error) {
	var exchangeInfo ExchangeInfoResponse

	req := c.client.R().
		SetResult(&exchangeInfo).
		SetHeader("Content-Type", "application/json")

	resp, err := c.doRequest(ctx, http.MethodGet, "/exchangeInfo", req)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), "failed to get exchange info", err)
	}

	return resp.Result().(*ExchangeInfoResponse), nil
}

// CreateOrderResponse represents the response from creating a new order.
type CreateOrderResponse struct {
	Symbol              string `json:"symbol"`
	OrderID             int64  `json:"orderId"`
	ClientOrderID       string `json:"clientOrderId"`
	TransactTime        int64  `json:"transactTime"`
	Price               string `json:"price"`
	OrigQuantity        string `json:"origQty"`
	ExecutedQuantity    string `json:"executedQty"`
	CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
	Status              string `json:"status"`
	TimeInForce         string `json:"timeInForce"`
	Type                string `json:"type"`
	Side                string `json:"side"`
}

// CreateOrder places a signed MARKET order on Binance. Every call carries a
// fresh client order id, so the exchange rejects a resent copy of the same
// order instead of filling it twice.
func (c *RestClient) CreateOrder(ctx context.Context, symbol, side string, quantity decimal.Decimal) (*CreateOrderResponse, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("type", OrderTypeMarket)
	params.Set("quantity", quantity.String())
	params.Set("newClientOrderId", id.NewSessionID())
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("recvWindow", recvWindow)

	queryString := params.Encode()
	params.Set("signature", c.sign(queryString))

	req := c.client.R().
		SetHeader("X-MBX-APIKEY", c.apiKey).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(queryString + "&signature=" + params.Get("signature")).
		SetResult(&CreateOrderResponse{})

	resp, err := c.doRequest(ctx, http.MethodPost, "/order", req)
	if err != nil {
		c.logger.Error("Failed to create order",
			zap.Error(err),
			zap.String("symbol", symbol),
			zap.String("side", side),
			zap.String("client_order_id", params.Get("newClientOrderId")),
		)
		return nil, errors.Wrap(errors.GetCode(err), "failed to create order", err)
	}

	result := resp.Result().(*CreateOrderResponse)
	c.logger.Info("Successfully created order", zap.Any("order", result))
	return result, nil
}
