// Package bridge implements the wire client for a terminal bridge: the REST
// and WebSocket service the MetaTrader side runs to expose a live terminal
// to this library. The client speaks plain JSON over HTTP for every terminal
// call and holds a WebSocket subscription for the tick feed. It knows nothing
// about sessions or filtering; that logic lives in the gateway on top of it.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rxtech-lab/mtsim/internal/logger"
	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/pkg/errors"
)

// Client defaults, used when the config leaves the field unset.
const (
	defaultTimeout           = 10 * time.Second
	defaultRequestsPerSecond = 50.0
	defaultBurst             = 10
	defaultRetryFor          = 5 * time.Second
)

// maxErrorBody caps how much of a failed response the client reads while
// looking for the bridge's error envelope.
const maxErrorBody = 64 << 10

// Config tunes the bridge client. Only BaseURL is required.
type Config struct {
	// BaseURL is the root of the bridge's REST API, e.g. "http://127.0.0.1:8228".
	BaseURL string `json:"base_url" yaml:"base_url"`
	// Timeout bounds each REST call end to end.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	// RequestsPerSecond throttles outgoing calls. The bridge serves requests
	// on the terminal's expert thread, so flooding it stalls the charts.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	// Burst is the number of calls that may go out back to back before the
	// throttle kicks in.
	Burst int `json:"burst" yaml:"burst"`
	// RetryFor bounds how long failed reads are retried before giving up.
	RetryFor time.Duration `json:"retry_for" yaml:"retry_for"`
}

// withDefaults fills the unset fields.
func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}

	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = defaultRequestsPerSecond
	}

	if c.Burst <= 0 {
		c.Burst = defaultBurst
	}

	if c.RetryFor <= 0 {
		c.RetryFor = defaultRetryFor
	}

	return c
}

// TickEvent is one frame of the bridge's tick feed. The bridge tags every
// tick with its symbol because one subscription can span several symbols.
type TickEvent struct {
	Symbol string     `json:"symbol"`
	Tick   types.Tick `json:"tick"`
}

// StatusError is the error envelope the bridge attaches to a non-2xx
// response. Code carries the terminal's own result code (types.Res*), so the
// gateway can report it through LastError unchanged.
type StatusError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bridge error %d: %s", e.Code, e.Message)
}

// Client talks to one bridge instance. It is safe for concurrent use; the
// rate limiter spans all callers.
type Client struct {
	config     Config
	httpClient *http.Client
	dialer     *websocket.Dialer
	limiter    *rate.Limiter
	log        *logger.Logger
}

// NewClient creates a client for the bridge at config.BaseURL.
func NewClient(config Config, log *logger.Logger) (*Client, error) {
	if config.BaseURL == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "bridge base URL is required")
	}

	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid bridge base URL %q", config.BaseURL)
	}

	config = config.withDefaults()

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		dialer:     websocket.DefaultDialer,
		limiter:    rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		log:        log,
	}, nil
}

// Close releases pooled connections. Tick streams are not affected; they end
// with their context.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()

	return nil
}

// Version returns the bridge build and its service version.
func (c *Client) Version(ctx context.Context) (types.TerminalVersion, error) {
	var v types.TerminalVersion
	err := c.get(ctx, "/version", nil, &v)

	return v, err
}

// AccountInfo returns the current state of the trade account.
func (c *Client) AccountInfo(ctx context.Context) (types.AccountInfo, error) {
	var account types.AccountInfo
	err := c.get(ctx, "/account_info", nil, &account)

	return account, err
}

// SymbolsTotal returns the number of symbols in the terminal.
func (c *Client) SymbolsTotal(ctx context.Context) (int, error) {
	var resp struct {
		Total int `json:"total"`
	}
	err := c.get(ctx, "/symbols_total", nil, &resp)

	return resp.Total, err
}

// SymbolInfo returns the full specification and quote state of a symbol.
func (c *Client) SymbolInfo(ctx context.Context, symbol string) (types.SymbolInfo, error) {
	var info types.SymbolInfo
	err := c.get(ctx, "/symbol_info", url.Values{"symbol": {symbol}}, &info)

	return info, err
}

// SymbolInfoTick returns the last tick the terminal holds for a symbol.
func (c *Client) SymbolInfoTick(ctx context.Context, symbol string) (types.Tick, error) {
	var tick types.Tick
	err := c.get(ctx, "/symbol_info_tick", url.Values{"symbol": {symbol}}, &tick)

	return tick, err
}

// SymbolSelect shows or hides a symbol in the terminal's market watch.
func (c *Client) SymbolSelect(ctx context.Context, symbol string, enable bool) error {
	body := struct {
		Symbol string `json:"symbol"`
		Enable bool   `json:"enable"`
	}{Symbol: symbol, Enable: enable}

	return c.post(ctx, "/symbol_select", body, nil)
}

// CopyRatesFrom returns up to count bars with open time at or before from.
func (c *Client) CopyRatesFrom(ctx context.Context, symbol string, timeframe types.Timeframe, from time.Time, count int) ([]types.Rate, error) {
	query := url.Values{
		"symbol":    {symbol},
		"timeframe": {timeframe.String()},
		"from":      {encodeTime(from)},
		"count":     {strconv.Itoa(count)},
	}

	var rates []types.Rate
	err := c.get(ctx, "/copy_rates_from", query, &rates)

	return rates, err
}

// CopyRatesFromPos returns count bars starting start bars back from the
// current one.
func (c *Client) CopyRatesFromPos(ctx context.Context, symbol string, timeframe types.Timeframe, start, count int) ([]types.Rate, error) {
	query := url.Values{
		"symbol":    {symbol},
		"timeframe": {timeframe.String()},
		"start":     {strconv.Itoa(start)},
		"count":     {strconv.Itoa(count)},
	}

	var rates []types.Rate
	err := c.get(ctx, "/copy_rates_from_pos", query, &rates)

	return rates, err
}

// CopyRatesRange returns all bars with open time in [from, to].
func (c *Client) CopyRatesRange(ctx context.Context, symbol string, timeframe types.Timeframe, from, to time.Time) ([]types.Rate, error) {
	query := url.Values{
		"symbol":    {symbol},
		"timeframe": {timeframe.String()},
		"from":      {encodeTime(from)},
		"to":        {encodeTime(to)},
	}

	var rates []types.Rate
	err := c.get(ctx, "/copy_rates_range", query, &rates)

	return rates, err
}

// CopyTicksFrom returns up to count ticks starting at from, narrowed by the
// flag mask.
func (c *Client) CopyTicksFrom(ctx context.Context, symbol string, from time.Time, count int, flags types.CopyTicks) ([]types.Tick, error) {
	query := url.Values{
		"symbol": {symbol},
		"from":   {encodeTime(from)},
		"count":  {strconv.Itoa(count)},
		"flags":  {strconv.Itoa(int(flags))},
	}

	var ticks []types.Tick
	err := c.get(ctx, "/copy_ticks_from", query, &ticks)

	return ticks, err
}

// CopyTicksRange returns all ticks in [from, to] matching the flag mask.
func (c *Client) CopyTicksRange(ctx context.Context, symbol string, from, to time.Time, flags types.CopyTicks) ([]types.Tick, error) {
	query := url.Values{
		"symbol": {symbol},
		"from":   {encodeTime(from)},
		"to":     {encodeTime(to)},
		"flags":  {strconv.Itoa(int(flags))},
	}

	var ticks []types.Tick
	err := c.get(ctx, "/copy_ticks_range", query, &ticks)

	return ticks, err
}

// Orders returns every live pending order on the account.
func (c *Client) Orders(ctx context.Context) ([]types.TradeOrder, error) {
	var orders []types.TradeOrder
	err := c.get(ctx, "/orders", nil, &orders)

	return orders, err
}

// Positions returns every open position on the account.
func (c *Client) Positions(ctx context.Context) ([]types.TradePosition, error) {
	var positions []types.TradePosition
	err := c.get(ctx, "/positions", nil, &positions)

	return positions, err
}

// HistoryOrders returns completed orders with setup time in [from, to].
func (c *Client) HistoryOrders(ctx context.Context, from, to time.Time) ([]types.TradeOrder, error) {
	query := url.Values{
		"from": {encodeTime(from)},
		"to":   {encodeTime(to)},
	}

	var orders []types.TradeOrder
	err := c.get(ctx, "/history_orders", query, &orders)

	return orders, err
}

// HistoryDeals returns deals executed in [from, to].
func (c *Client) HistoryDeals(ctx context.Context, from, to time.Time) ([]types.TradeDeal, error) {
	query := url.Values{
		"from": {encodeTime(from)},
		"to":   {encodeTime(to)},
	}

	var deals []types.TradeDeal
	err := c.get(ctx, "/history_deals", query, &deals)

	return deals, err
}

// OrderSend forwards a trade request to the terminal. It is never retried;
// replaying a deal on a flaky link would double the trade.
func (c *Client) OrderSend(ctx context.Context, request types.TradeRequest) (types.TradeResult, error) {
	var result types.TradeResult
	err := c.post(ctx, "/order_send", request, &result)

	return result, err
}

// OrderCalcMargin returns the margin required for the trade in the account
// currency.
func (c *Client) OrderCalcMargin(ctx context.Context, orderType types.OrderType, symbol string, volume, price float64) (float64, error) {
	query := url.Values{
		"type":   {strconv.Itoa(int(orderType))},
		"symbol": {symbol},
		"volume": {encodeFloat(volume)},
		"price":  {encodeFloat(price)},
	}

	var resp struct {
		Margin float64 `json:"margin"`
	}
	err := c.get(ctx, "/order_calc_margin", query, &resp)

	return resp.Margin, err
}

// OrderCalcProfit returns the profit of a trade opened at priceOpen and
// closed at priceClose, in the account currency.
func (c *Client) OrderCalcProfit(ctx context.Context, orderType types.OrderType, symbol string, volume, priceOpen, priceClose float64) (float64, error) {
	query := url.Values{
		"type":        {strconv.Itoa(int(orderType))},
		"symbol":      {symbol},
		"volume":      {encodeFloat(volume)},
		"price_open":  {encodeFloat(priceOpen)},
		"price_close": {encodeFloat(priceClose)},
	}

	var resp struct {
		Profit float64 `json:"profit"`
	}
	err := c.get(ctx, "/order_calc_profit", query, &resp)

	return resp.Profit, err
}

// LastError returns the terminal's own last error code and description.
func (c *Client) LastError(ctx context.Context) (int, string, error) {
	var resp struct {
		Code        int    `json:"code"`
		Description string `json:"description"`
	}
	err := c.get(ctx, "/last_error", nil, &resp)

	return resp.Code, resp.Description, err
}

// StreamTicks subscribes to the live tick feed for the given symbols. The
// iterator yields events until the context ends; a dropped connection is
// yielded as an ErrCodeStreamClosed error and then redialed with exponential
// backoff, so a consumer that keeps ranging rides out bridge restarts.
func (c *Client) StreamTicks(ctx context.Context, symbols []string) iter.Seq2[TickEvent, error] {
	return func(yield func(TickEvent, error) bool) {
		if len(symbols) == 0 {
			yield(TickEvent{}, errors.New(errors.ErrCodeInvalidParameter, "no symbols to subscribe"))

			return
		}

		streamURL, err := c.streamURL(symbols)
		if err != nil {
			yield(TickEvent{}, err)

			return
		}

		policy := backoff.NewExponentialBackOff()
		policy.MaxElapsedTime = 0 // redial until the context ends

		for {
			conn, resp, err := c.dialer.DialContext(ctx, streamURL, nil)
			if resp != nil && resp.Body != nil {
				resp.Body.Close()
			}

			if err != nil {
				if ctx.Err() != nil {
					return
				}

				if !yield(TickEvent{}, errors.Wrapf(errors.ErrCodeBridgeUnreachable, err,
					"failed to dial tick stream at %s", streamURL)) {
					return
				}

				if !sleepBackoff(ctx, policy) {
					return
				}

				continue
			}

			policy.Reset()
			c.log.Info("tick stream connected", zap.Strings("symbols", symbols))

			if !c.readTicks(ctx, conn, yield) {
				return
			}

			if !sleepBackoff(ctx, policy) {
				return
			}
		}
	}
}

// readTicks pumps one connection into yield. It reports whether the stream
// loop should redial; false means the consumer broke out or the context
// ended.
func (c *Client) readTicks(ctx context.Context, conn *websocket.Conn, yield func(TickEvent, error) bool) bool {
	// Closing the connection on cancellation unblocks the pending read.
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
			conn.Close()
		}
	}()

	for {
		var event TickEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return false
			}

			return yield(TickEvent{}, errors.Wrap(errors.ErrCodeStreamClosed, "tick stream closed", err))
		}

		if !yield(event, nil) {
			return false
		}
	}
}

// streamURL builds the WebSocket endpoint for a subscription, switching the
// base scheme to ws or wss.
func (c *Client) streamURL(symbols []string) (string, error) {
	parsed, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid bridge base URL %q", c.config.BaseURL)
	}

	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}

	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + "/stream/ticks"
	parsed.RawQuery = url.Values{"symbols": {strings.Join(symbols, ",")}}.Encode()

	return parsed.String(), nil
}

// sleepBackoff waits out the next backoff interval. It reports false when the
// context ended first.
func sleepBackoff(ctx context.Context, policy backoff.BackOff) bool {
	next := policy.NextBackOff()
	if next == backoff.Stop {
		return false
	}

	select {
	case <-ctx.Done():
		return false
	case <-time.After(next):
		return true
	}
}

// get performs a read call. Transport failures are retried with exponential
// backoff for the configured window; every read endpoint is idempotent, so a
// duplicate request is harmless.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxElapsedTime = c.config.RetryFor

	operation := func() error {
		err := c.do(ctx, http.MethodGet, path, query, nil, out)
		if err != nil && errors.GetCode(err) != errors.ErrCodeBridgeUnreachable {
			return backoff.Permanent(err)
		}

		return err
	}

	return backoff.Retry(operation, backoff.WithContext(policy, ctx))
}

// post performs a write call. Writes are never retried.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

// do runs one HTTP exchange against the bridge. A non-2xx status is decoded
// into the bridge's error envelope and surfaced as an ErrCodeBridgeStatus
// error wrapping a StatusError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeBridgeUnreachable, "request throttled past cancellation", err)
	}

	endpoint := strings.TrimSuffix(c.config.BaseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeBridgeProtocol, err, "failed to encode %s request body", path)
		}

		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeBridgeProtocol, err, "failed to build %s request", path)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeBridgeUnreachable, err, "bridge request %s %s failed", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return c.statusError(resp, path)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(errors.ErrCodeBridgeProtocol, err, "failed to decode %s response", path)
	}

	return nil
}

// statusError turns a non-2xx response into a coded error. The envelope body
// is optional; a bare status still produces a usable error.
func (c *Client) statusError(resp *http.Response, path string) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		raw = nil
	}

	envelope := &StatusError{}
	if jsonErr := json.Unmarshal(raw, envelope); jsonErr != nil || envelope.Message == "" {
		envelope.Message = strings.TrimSpace(string(raw))
		if envelope.Message == "" {
			envelope.Message = http.StatusText(resp.StatusCode)
		}
	}

	return errors.Wrap(errors.ErrCodeBridgeStatus,
		fmt.Sprintf("bridge returned %d for %s", resp.StatusCode, path), envelope)
}

// encodeTime renders a query timestamp. The bridge parses RFC 3339 and the
// nanosecond form round-trips what the terminal reports.
func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// encodeFloat renders a query number without float artifacts.
func encodeFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
