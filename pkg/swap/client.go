// Package swap bridges approved orders to a swap-quote endpoint and a wallet
package swap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agentdesk/agentdesk/pkg/types"
	"github.com/agentdesk/agentdesk/pkg/version"
)

// QuoteRequest is the request body for POST /swap/quote
type QuoteRequest struct {
	Address    string  `json:"address"`
	SellToken  string  `json:"sell_token"`
	BuyToken   string  `json:"buy_token"`
	SellAmount float64 `json:"sell_amount,omitempty"`
	BuyAmount  float64 `json:"buy_amount,omitempty"`
	Slippage   float64 `json:"slippage,omitempty"`
	OrderType  string  `json:"order_type,omitempty"`
}

// QuoteResponse is the response from POST /swap/quote
type QuoteResponse struct {
	QuoteID    string  `json:"quote_id"`
	UnsignedTx string  `json:"unsigned_tx"`
	BuyAmount  float64 `json:"buy_amount"`
	ExpiresAt  int64   `json:"expires_at,omitempty"`
}

// ErrorResponse represents an error response from the API
type ErrorResponse struct {
	Error string `json:"error"`
}

// Client wraps HTTP operations for the quote endpoint
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new quote client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Quote requests an unsigned swap transaction
func (c *Client) Quote(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal quote request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/swap/quote", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create quote request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to request quote: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read quote response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("%w: %s", types.ErrQuoteUnavailable, errResp.Error)
		}
		return nil, fmt.Errorf("%w: status %d: %s", types.ErrQuoteUnavailable, resp.StatusCode, string(body))
	}

	var result QuoteResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse quote response: %w", err)
	}
	if result.UnsignedTx == "" {
		return nil, fmt.Errorf("%w: quote %s has no transaction", types.ErrQuoteUnavailable, result.QuoteID)
	}
	return &result, nil
}
