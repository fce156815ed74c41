package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

var _ Gateway = (*Client)(nil)

// Client is the live HTTP implementation of Gateway. Credentials and base
// URLs are injected at construction; there is no ambient configuration.
type Client struct {
	baseURL     string
	dataBaseURL string
	apiKey      string
	apiSecret   string
	httpClient  *http.Client
}

// NewClient constructs a live gateway client.
func NewClient(baseURL, dataBaseURL, apiKey, apiSecret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:     baseURL,
		dataBaseURL: dataBaseURL,
		apiKey:      apiKey,
		apiSecret:   apiSecret,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// CreateAccount opens a new brokerage account.
func (c *Client) CreateAccount(ctx context.Context, payload AccountPayload) (*AccountResult, error) {
	raw, err := c.do(ctx, http.MethodPost, c.baseURL+"/accounts", payload, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return SplitAccount(raw)
}

// UpdateAccount patches an existing brokerage account.
func (c *Client) UpdateAccount(ctx context.Context, alpacaID string, payload AccountPayload) (*AccountResult, error) {
	endpoint := fmt.Sprintf("%s/accounts/%s", c.baseURL, url.PathEscape(alpacaID))
	raw, err := c.do(ctx, http.MethodPatch, endpoint, payload, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return SplitAccount(raw)
}

// CloseAccount requests account closure. The broker acknowledges with 204.
func (c *Client) CloseAccount(ctx context.Context, alpacaID string) error {
	endpoint := fmt.Sprintf("%s/accounts/%s/actions/close", c.baseURL, url.PathEscape(alpacaID))
	_, err := c.do(ctx, http.MethodPost, endpoint, nil, http.StatusNoContent)
	return err
}

// ReopenAccount requests reopening of a closed account.
func (c *Client) ReopenAccount(ctx context.Context, alpacaID string) error {
	endpoint := fmt.Sprintf("%s/accounts/%s/actions/reopen", c.baseURL, url.PathEscape(alpacaID))
	_, err := c.do(ctx, http.MethodPost, endpoint, nil, http.StatusOK)
	return err
}

// GetAccount fetches the broker's current account document.
func (c *Client) GetAccount(ctx context.Context, alpacaID string) (*AccountResult, error) {
	endpoint := fmt.Sprintf("%s/accounts/%s", c.baseURL, url.PathEscape(alpacaID))
	raw, err := c.do(ctx, http.MethodGet, endpoint, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return SplitAccount(raw)
}

// ACHRelationships lists the account's linked bank accounts.
func (c *Client) ACHRelationships(ctx context.Context, alpacaID string) ([]ACHRelationship, error) {
	endpoint := fmt.Sprintf("%s/accounts/%s/ach_relationships", c.baseURL, url.PathEscape(alpacaID))
	raw, err := c.do(ctx, http.MethodGet, endpoint, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	var rows []achRelationshipWire
	if errUnmarshal := json.Unmarshal(raw, &rows); errUnmarshal != nil {
		return nil, fmt.Errorf("gateway: decode ach relationships: %w", errUnmarshal)
	}
	out := make([]ACHRelationship, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.extract())
	}
	return out, nil
}

// CreateACHRelationship links a bank account.
func (c *Client) CreateACHRelationship(ctx context.Context, alpacaID string, req ACHRelationshipRequest) (*ACHRelationship, error) {
	endpoint := fmt.Sprintf("%s/accounts/%s/ach_relationships", c.baseURL, url.PathEscape(alpacaID))
	raw, err := c.do(ctx, http.MethodPost, endpoint, req, http.StatusOK)
	if err != nil {
		return nil, err
	}
	var row achRelationshipWire
	if errUnmarshal := json.Unmarshal(raw, &row); errUnmarshal != nil {
		return nil, fmt.Errorf("gateway: decode ach relationship: %w", errUnmarshal)
	}
	rel := row.extract()
	return &rel, nil
}

// DeleteACHRelationship removes a bank link. The broker acknowledges with 204.
func (c *Client) DeleteACHRelationship(ctx context.Context, alpacaID, relationshipID string) error {
	endpoint := fmt.Sprintf("%s/accounts/%s/ach_relationships/%s",
		c.baseURL, url.PathEscape(alpacaID), url.PathEscape(relationshipID))
	_, err := c.do(ctx, http.MethodDelete, endpoint, nil, http.StatusNoContent)
	return err
}

// Transfers lists the account's funding transfers.
func (c *Client) Transfers(ctx context.Context, alpacaID string) ([]Transfer, error) {
	endpoint := fmt.Sprintf("%s/accounts/%s/transfers", c.baseURL, url.PathEscape(alpacaID))
	raw, err := c.do(ctx, http.MethodGet, endpoint, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	var rows []transferWire
	if errUnmarshal := json.Unmarshal(raw, &rows); errUnmarshal != nil {
		return nil, fmt.Errorf("gateway: decode transfers: %w", errUnmarshal)
	}
	out := make([]Transfer, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.extract())
	}
	return out, nil
}

// CreateTransfer initiates a funding transfer.
func (c *Client) CreateTransfer(ctx context.Context, alpacaID string, req TransferRequest) (*Transfer, error) {
	endpoint := fmt.Sprintf("%s/accounts/%s/transfers", c.baseURL, url.PathEscape(alpacaID))
	raw, err := c.do(ctx, http.MethodPost, endpoint, req, http.StatusOK)
	if err != nil {
		return nil, err
	}
	var row transferWire
	if errUnmarshal := json.Unmarshal(raw, &row); errUnmarshal != nil {
		return nil, fmt.Errorf("gateway: decode transfer: %w", errUnmarshal)
	}
	transfer := row.extract()
	return &transfer, nil
}

// TradingDetails fetches the trading-account summary.
func (c *Client) TradingDetails(ctx context.Context, alpacaID string) (*TradingDetails, error) {
	endpoint := fmt.Sprintf("%s/trading/accounts/%s/account", c.baseURL, url.PathEscape(alpacaID))
	raw, err := c.do(ctx, http.MethodGet, endpoint, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	var wire tradingDetailsWire
	if errUnmarshal := json.Unmarshal(raw, &wire); errUnmarshal != nil {
		return nil, fmt.Errorf("gateway: decode trading details: %w", errUnmarshal)
	}
	details := wire.extract()
	return &details, nil
}

// maxPositions caps the number of positions returned to callers.
const maxPositions = 11

// Positions lists open positions, capped at the first 11 entries.
func (c *Client) Positions(ctx context.Context, alpacaID string) ([]Position, error) {
	endpoint := fmt.Sprintf("%s/trading/accounts/%s/positions", c.baseURL, url.PathEscape(alpacaID))
	raw, err := c.do(ctx, http.MethodGet, endpoint, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	var rows []positionWire
	if errUnmarshal := json.Unmarshal(raw, &rows); errUnmarshal != nil {
		return nil, fmt.Errorf("gateway: decode positions: %w", errUnmarshal)
	}
	if len(rows) > maxPositions {
		rows = rows[:maxPositions]
	}
	out := make([]Position, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.extract())
	}
	return out, nil
}

// Orders lists all orders for the account.
func (c *Client) Orders(ctx context.Context, alpacaID string) ([]Order, error) {
	endpoint := fmt.Sprintf("%s/trading/accounts/%s/orders?status=all", c.baseURL, url.PathEscape(alpacaID))
	raw, err := c.do(ctx, http.MethodGet, endpoint, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	var rows []orderWire
	if errUnmarshal := json.Unmarshal(raw, &rows); errUnmarshal != nil {
		return nil, fmt.Errorf("gateway: decode orders: %w", errUnmarshal)
	}
	out := make([]Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.extract())
	}
	return out, nil
}

// CreateOrder places an order for the account.
func (c *Client) CreateOrder(ctx context.Context, alpacaID string, req OrderRequest) (*Order, error) {
	endpoint := fmt.Sprintf("%s/trading/accounts/%s/orders", c.baseURL, url.PathEscape(alpacaID))
	raw, err := c.do(ctx, http.MethodPost, endpoint, req.Normalize(), http.StatusOK)
	if err != nil {
		return nil, err
	}
	var row orderWire
	if errUnmarshal := json.Unmarshal(raw, &row); errUnmarshal != nil {
		return nil, fmt.Errorf("gateway: decode order: %w", errUnmarshal)
	}
	order := row.extract()
	return &order, nil
}

// PortfolioHistory fetches the account's portfolio history for a timeframe.
// The broker's response is relayed opaquely.
func (c *Client) PortfolioHistory(ctx context.Context, alpacaID, timeframe string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/trading/accounts/%s/account/portfolio/history", c.baseURL, url.PathEscape(alpacaID))
	if timeframe != "" {
		endpoint += "?timeframe=" + url.QueryEscape(timeframe)
	}
	return c.do(ctx, http.MethodGet, endpoint, nil, http.StatusOK)
}

// Asset fetches asset metadata for a symbol or asset id.
func (c *Client) Asset(ctx context.Context, symbol string) (*Asset, error) {
	endpoint := fmt.Sprintf("%s/assets/%s", c.baseURL, url.PathEscape(symbol))
	raw, err := c.do(ctx, http.MethodGet, endpoint, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	var wire assetWire
	if errUnmarshal := json.Unmarshal(raw, &wire); errUnmarshal != nil {
		return nil, fmt.Errorf("gateway: decode asset: %w", errUnmarshal)
	}
	asset := wire.extract()
	return &asset, nil
}

// LatestBar fetches the latest minute bar for a symbol from the data API.
func (c *Client) LatestBar(ctx context.Context, symbol string) (*Bar, error) {
	endpoint := fmt.Sprintf("%s/stocks/%s/bars/latest", c.dataBaseURL, url.PathEscape(symbol))
	raw, err := c.do(ctx, http.MethodGet, endpoint, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	var wire latestBarWire
	if errUnmarshal := json.Unmarshal(raw, &wire); errUnmarshal != nil {
		return nil, fmt.Errorf("gateway: decode latest bar: %w", errUnmarshal)
	}
	bar := wire.extract()
	return &bar, nil
}

// HistoricalBars fetches historical bars for a symbol from the data API. The
// broker's response is relayed opaquely.
func (c *Client) HistoricalBars(ctx context.Context, symbol string, q BarsQuery) (json.RawMessage, error) {
	params := url.Values{}
	if q.Timeframe != "" {
		params.Set("timeframe", q.Timeframe)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Adjustment != "" {
		params.Set("adjustment", q.Adjustment)
	}
	if q.Start != "" {
		params.Set("start", q.Start)
	}
	endpoint := fmt.Sprintf("%s/stocks/%s/bars", c.dataBaseURL, url.PathEscape(symbol))
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	return c.do(ctx, http.MethodGet, endpoint, nil, http.StatusOK)
}

// do performs one authenticated round trip. Any status other than wantStatus
// is returned as a *GatewayError carrying the upstream status and body.
func (c *Client) do(ctx context.Context, method, endpoint string, body any, wantStatus int) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		payload, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			return nil, fmt.Errorf("gateway: marshal request: %w", errMarshal)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, errReq := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if errReq != nil {
		return nil, fmt.Errorf("gateway: build request: %w", errReq)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(c.apiKey, c.apiSecret)

	resp, errDo := c.httpClient.Do(req)
	if errDo != nil {
		return nil, fmt.Errorf("gateway: %s %s: %w", method, endpoint, errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, errRead := io.ReadAll(resp.Body)
	if errRead != nil {
		return nil, fmt.Errorf("gateway: read response: %w", errRead)
	}

	if resp.StatusCode != wantStatus {
		log.WithFields(log.Fields{
			"method": method,
			"status": resp.StatusCode,
		}).Warn("gateway request failed")
		return nil, &GatewayError{StatusCode: resp.StatusCode, Body: respBody}
	}
	return respBody, nil
}
