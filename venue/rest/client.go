// Package rest implements the venue gateway against an HTTP bridge that
// fronts the broker terminal. Transport failures and 5xx responses are
// classified transient; 4xx responses are permanent.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rustyeddy/riskgate/market"
	"github.com/rustyeddy/riskgate/venue"
)

type Client struct {
	BaseURL string // e.g. https://bridge.example.com
	Token   string
	HTTP    *http.Client
}

func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) do(ctx context.Context, op, method, path string, body any, header http.Header, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return venue.NewPermanent(op, "encode request", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return venue.NewPermanent(op, "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return venue.NewTransient(op, "http request", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return errNoContent
	case resp.StatusCode >= 500:
		return venue.NewTransient(op, httpMsg(resp), nil)
	case resp.StatusCode == http.StatusNotFound:
		return venue.NewPermanent(op, httpMsg(resp), errNotFound)
	case resp.StatusCode >= 400:
		return venue.NewPermanent(op, httpMsg(resp), nil)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return venue.NewTransient(op, "decode response", err)
		}
	}
	return nil
}

var (
	errNoContent = fmt.Errorf("no content")
	errNotFound  = fmt.Errorf("not found")
)

func httpMsg(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
	return fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
}

func (c *Client) AccountSnapshot(ctx context.Context) (venue.Snapshot, error) {
	var body struct {
		Equity float64 `json:"equity"`
		Margin float64 `json:"margin"`
	}
	if err := c.do(ctx, "account", http.MethodGet, "/v1/account", nil, nil, &body); err != nil {
		return venue.Snapshot{}, err
	}
	return venue.Snapshot{Equity: body.Equity, Margin: body.Margin}, nil
}

func (c *Client) SymbolInfo(ctx context.Context, symbol string) (market.SymbolInfo, error) {
	var body struct {
		Point        float64 `json:"point"`
		Digits       int     `json:"digits"`
		ContractSize float64 `json:"contract_size"`
		LotStep      float64 `json:"lot_step"`
		MinLot       float64 `json:"min_lot"`
	}
	err := c.do(ctx, "symbol_info", http.MethodGet, "/v1/symbols/"+symbol, nil, nil, &body)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return market.SymbolInfo{}, fmt.Errorf("%s: %w", symbol, venue.ErrUnknownSymbol)
		}
		return market.SymbolInfo{}, err
	}
	return market.SymbolInfo{
		Symbol:       symbol,
		Point:        body.Point,
		Digits:       body.Digits,
		ContractSize: body.ContractSize,
		LotStep:      body.LotStep,
		MinLot:       body.MinLot,
	}, nil
}

// SubmitOrder posts the intent with the idempotency key in a header, so the
// bridge can replay the original ack for a retried submission.
func (c *Client) SubmitOrder(ctx context.Context, intent venue.Intent, idempotencyKey string) (venue.Ack, error) {
	req := map[string]any{
		"symbol":      intent.Symbol,
		"side":        string(intent.Side),
		"lots":        intent.Lots,
		"stop_loss":   intent.StopLoss,
		"take_profit": intent.TakeProfit,
		"type":        string(intent.Type),
		"price":       intent.Price,
	}
	var body struct {
		OrderID  string    `json:"order_id"`
		VenueRef string    `json:"venue_ref"`
		Time     time.Time `json:"time"`
	}
	hdr := http.Header{"X-Idempotency-Key": []string{idempotencyKey}}
	if err := c.do(ctx, "submit", http.MethodPost, "/v1/orders", req, hdr, &body); err != nil {
		return venue.Ack{}, err
	}
	return venue.Ack{OrderID: body.OrderID, VenueRef: body.VenueRef, At: body.Time}, nil
}

func (c *Client) PollFills(ctx context.Context, orderID string) (*venue.FillEvent, error) {
	var body struct {
		Lots     float64   `json:"lots"`
		Price    float64   `json:"price"`
		Partial  bool      `json:"partial"`
		Rejected bool      `json:"rejected"`
		Time     time.Time `json:"time"`
	}
	err := c.do(ctx, "poll_fills", http.MethodGet, "/v1/orders/"+orderID+"/fills/next", nil, nil, &body)
	if errors.Is(err, errNoContent) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &venue.FillEvent{
		OrderID:  orderID,
		Lots:     body.Lots,
		Price:    body.Price,
		Partial:  body.Partial,
		Rejected: body.Rejected,
		At:       body.Time,
	}, nil
}

func (c *Client) ClosePosition(ctx context.Context, tradeID string) (venue.DealEvent, error) {
	var body struct {
		RealizedPnL float64   `json:"realized_pnl"`
		ClosePrice  float64   `json:"close_price"`
		Time        time.Time `json:"time"`
	}
	if err := c.do(ctx, "close", http.MethodPost, "/v1/positions/"+tradeID+"/close", nil, nil, &body); err != nil {
		return venue.DealEvent{}, err
	}
	return venue.DealEvent{
		TradeID:     tradeID,
		RealizedPnL: body.RealizedPnL,
		ClosePrice:  body.ClosePrice,
		At:          body.Time,
	}, nil
}

var _ venue.Gateway = (*Client)(nil)
