// Package paystack is a small client for the Paystack transaction API.
package paystack

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

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/metrics"
)

// ErrGatewayUnavailable wraps transport failures and 5xx answers.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// APIError is a request Paystack understood and refused.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paystack: %s (status %d)", e.Message, e.StatusCode)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type InitializeRequest struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Reference   string            `json:"reference"`
	Currency    string            `json:"currency,omitempty"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Channels    []string          `json:"channels,omitempty"`
	MobileMoney *MobileMoney      `json:"mobile_money,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type MobileMoney struct {
	Phone    string `json:"phone"`
	Provider string `json:"provider"`
}

type InitializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type TransactionData struct {
	ID              int64  `json:"id"`
	Status          string `json:"status"`
	Reference       string `json:"reference"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	Channel         string `json:"channel"`
	GatewayResponse string `json:"gateway_response"`
	PaidAt          string `json:"paid_at"`
}

// Succeeded reports whether Paystack settled the charge.
func (t *TransactionData) Succeeded() bool {
	return t.Status == "success"
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Initialize starts a checkout and returns the hosted payment page.
func (c *Client) Initialize(ctx context.Context, secret string, req *InitializeRequest) (*InitializeData, json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, nil, fmt.Errorf("encode initialize request: %w", err)
	}

	raw, err := c.do(ctx, "initialize", http.MethodPost, "/transaction/initialize", secret, body)
	if err != nil {
		return nil, nil, err
	}

	var data InitializeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, nil, fmt.Errorf("decode initialize response: %w", err)
	}
	return &data, raw, nil
}

// Verify fetches the current state of a transaction by reference.
func (c *Client) Verify(ctx context.Context, secret, reference string) (*TransactionData, json.RawMessage, error) {
	raw, err := c.do(ctx, "verify", http.MethodGet, "/transaction/verify/"+reference, secret, nil)
	if err != nil {
		return nil, nil, err
	}

	var data TransactionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, nil, fmt.Errorf("decode verify response: %w", err)
	}
	return &data, raw, nil
}

func (c *Client) do(ctx context.Context, op, method, path, secret string, body []byte) (json.RawMessage, error) {
	start := time.Now()
	outcome := "ok"
	defer func() { metrics.ObserveGateway(op, outcome, time.Since(start)) }()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		outcome = "error"
		return nil, fmt.Errorf("build paystack request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+secret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome = "unavailable"
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		outcome = "unavailable"
		return nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env); err != nil {
		outcome = "unavailable"
		return nil, fmt.Errorf("%w: undecodable response: %v", ErrGatewayUnavailable, err)
	}

	if resp.StatusCode >= 400 || !env.Status {
		outcome = "rejected"
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	return env.Data, nil
}
