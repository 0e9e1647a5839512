package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// CheckoutSession is the gateway's hosted payment page for one pending ledger
// entry. The session id comes back later on the webhook as the external
// reference.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Payout struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type CheckoutRequest struct {
	ReferenceID string            `json:"reference_id"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	CallbackURL string            `json:"callback_url"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type PayoutRequest struct {
	ReferenceID string `json:"reference_id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	OwnerID     int64  `json:"owner_id"`
	Description string `json:"description"`
}

type Config struct {
	APIURL         string
	APIKey         string
	WebhookURL     string
	RequestTimeout time.Duration
	Currency       string
}

type Client struct {
	apiURL         string
	apiKey         string
	webhookURL     string
	currency       string
	requestTimeout time.Duration
	httpClient     *http.Client
	logger         *slog.Logger
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		apiURL:         config.APIURL,
		apiKey:         config.APIKey,
		webhookURL:     config.WebhookURL,
		currency:       config.Currency,
		requestTimeout: timeout,
		httpClient:     &http.Client{Timeout: timeout},
		logger:         logger,
	}
}

func (c *Client) Currency() string {
	return c.currency
}

// CreateCheckoutSession registers a payment intent with the gateway and
// returns the hosted checkout the customer is redirected to. The gateway
// reports the outcome asynchronously on the webhook; nothing here marks the
// payment as made.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.Currency == "" {
		req.Currency = c.currency
	}
	req.CallbackURL = c.webhookURL

	var envelope struct {
		Data CheckoutSession `json:"data"`
	}
	if err := c.post(ctx, "/v1/checkout/sessions", req, &envelope); err != nil {
		c.logger.Error("checkout session creation failed",
			"error", err,
			"reference_id", req.ReferenceID,
			"amount", req.Amount)
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	c.logger.Info("checkout session created",
		"session_id", envelope.Data.ID,
		"reference_id", req.ReferenceID,
		"amount", req.Amount)
	return &envelope.Data, nil
}

// CreatePayout instructs the gateway to transfer funds to the owner's bank
// account. Called only after the payout plan is verified and persisted.
func (c *Client) CreatePayout(ctx context.Context, req PayoutRequest) (*Payout, error) {
	if req.Currency == "" {
		req.Currency = c.currency
	}

	var envelope struct {
		Data Payout `json:"data"`
	}
	if err := c.post(ctx, "/v1/payouts", req, &envelope); err != nil {
		c.logger.Error("payout creation failed",
			"error", err,
			"reference_id", req.ReferenceID,
			"amount", req.Amount)
		return nil, fmt.Errorf("create payout: %w", err)
	}

	c.logger.Info("payout created",
		"payout_id", envelope.Data.ID,
		"reference_id", req.ReferenceID,
		"amount", req.Amount)
	return &envelope.Data, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
