package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"copytrader/config"
)

// RESTClient performs authenticated broker REST calls with bounded
// retry and exponential backoff. One client serves every account; the
// access token is resolved per call through the injected TokenResolver.
type RESTClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     config.TokenResolver
	retry      RetryPolicy
}

func NewRESTClient(baseURL string, timeout time.Duration, tokens config.TokenResolver, retry RetryPolicy) *RESTClient {
	return &RESTClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		retry:      retry,
	}
}

func (c *RESTClient) HTTPClient() *http.Client {
	return c.httpClient
}

// FetchOrders fetches the order/trade collection for an account.
// The decoded payload is returned as-is since the wrapper shape varies
// per endpoint; normalization happens downstream.
func (c *RESTClient) FetchOrders(ctx context.Context, accountID string) (any, error) {
	body, err := c.doJSON(ctx, accountID, http.MethodGet, "/orders", nil)
	if err != nil {
		return nil, err
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode orders payload: %w", err)
	}
	return payload, nil
}

// PlaceOrder submits one order on behalf of an account. Required fields
// are validated before any network call so logic errors never retry.
func (c *RESTClient) PlaceOrder(ctx context.Context, accountID string, order OrderRequest) (*OrderResponse, error) {
	if order.Symbol == "" {
		return nil, fmt.Errorf("place order: symbol is required")
	}
	if _, ok := ParseSide(order.TransactionType); !ok {
		return nil, fmt.Errorf("place order: invalid transaction type %q", order.TransactionType)
	}
	if order.Quantity <= 0 {
		return nil, fmt.Errorf("place order: quantity must be positive")
	}

	reqBody, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}

	body, err := c.doJSON(ctx, accountID, http.MethodPost, "/orders", reqBody)
	if err != nil {
		return nil, err
	}

	var resp OrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}
	return &resp, nil
}

// ValidateToken checks that the account's access token is still accepted
// by the broker.
func (c *RESTClient) ValidateToken(ctx context.Context, accountID string) error {
	_, err := c.doJSON(ctx, accountID, http.MethodGet, "/user/profile", nil)
	return err
}

// doJSON performs one authenticated call through the retry policy and
// returns the unwrapped data payload (or the raw body when the response
// is not enveloped).
func (c *RESTClient) doJSON(ctx context.Context, accountID, method, path string, reqBody []byte) ([]byte, error) {
	token, err := c.tokens.Token(ctx, accountID)
	if err != nil {
		// Missing credentials are a caller error, not a network failure.
		return nil, fmt.Errorf("resolve token: %w", err)
	}

	endpoint := c.baseURL + path

	var respBody []byte
	err = c.retry.Do(ctx, func() error {
		var rd io.Reader
		if reqBody != nil {
			rd = bytes.NewReader(reqBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, rd)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if reqBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &StatusError{Status: resp.StatusCode, Body: string(body)}
		}

		respBody = body
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Unwrap the standard envelope when present.
	var env Envelope
	if json.Unmarshal(respBody, &env) == nil && len(env.Data) > 0 {
		return env.Data, nil
	}
	return respBody, nil
}
