// Package paystack is a thin client for the Paystack transaction API and its
// webhook signature scheme.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.paystack.co"

// ErrGateway wraps every failure reported by or while talking to Paystack.
var ErrGateway = errors.New("paystack request failed")

// InitializeRequest opens a hosted checkout session. Amount is in minor units.
type InitializeRequest struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"`
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// Session is the hosted checkout returned by InitializeTransaction.
type Session struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Verification is the gateway's view of a transaction.
type Verification struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	PaidAt    string `json:"paid_at"`
}

// Succeeded reports whether the gateway considers the charge complete.
func (v Verification) Succeeded() bool {
	return v.Status == "success"
}

type envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// Client calls the Paystack REST API with a secret key.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewClient builds a client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL, secretKey string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: baseURL, secretKey: secretKey, httpClient: httpClient}
}

// InitializeTransaction creates a hosted payment session for the reference.
func (c *Client) InitializeTransaction(ctx context.Context, in InitializeRequest) (Session, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return Session{}, fmt.Errorf("encode initialize request: %w", err)
	}
	session, err := call[Session](ctx, c, http.MethodPost, "/transaction/initialize", bytes.NewReader(payload))
	if err != nil {
		return Session{}, err
	}
	if session.Reference == "" {
		session.Reference = in.Reference
	}
	return session, nil
}

// VerifyTransaction fetches the gateway status of a reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (Verification, error) {
	return call[Verification](ctx, c, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
}

// call performs one request and unwraps the {status, message, data}
// envelope. A non-2xx status or status=false is an error.
func call[T any](ctx context.Context, c *Client, method, path string, body io.Reader) (T, error) {
	var zero T
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return zero, fmt.Errorf("%w: build request: %v", ErrGateway, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return zero, fmt.Errorf("%w: read response: %v", ErrGateway, err)
	}
	var out envelope[T]
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("%w: status %d: decode response: %v", ErrGateway, resp.StatusCode, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices || !out.Status {
		return zero, fmt.Errorf("%w: status %d: %s", ErrGateway, resp.StatusCode, out.Message)
	}
	return out.Data, nil
}
