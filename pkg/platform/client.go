// Package platform talks to the Pi payment platform API on behalf of the app.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chris/pi-settlement/pkg/config"
	"github.com/chris/pi-settlement/pkg/models"
)

// APIError is a non-2xx answer from the platform. Body is the platform's response verbatim.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform returned status %d: %s", e.StatusCode, e.Body)
}

// Payments defines the platform calls used to settle a payment.
type Payments interface {
	// Complete finalizes an approved payment with the ledger transaction id.
	Complete(ctx context.Context, paymentID, txid string) (*models.Payment, error)

	// GetPayment fetches the platform's canonical view of a payment.
	GetPayment(ctx context.Context, paymentID string) (*models.Payment, error)

	// Approve marks a payment as approved by the server.
	Approve(ctx context.Context, paymentID string) (*models.Payment, error)

	// Me resolves a user access token to the platform user.
	Me(ctx context.Context, accessToken string) (*models.PlatformUser, error)
}

// Client implements Payments over HTTP. The server key never leaves this process.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new Client from the platform configuration.
func NewClient(cfg config.PlatformConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:     cfg.APIKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Make sure we conform to the interface
var _ Payments = (*Client)(nil)

// Complete posts the txid to the payment's complete endpoint. It does not retry.
func (c *Client) Complete(ctx context.Context, paymentID, txid string) (*models.Payment, error) {
	var payment models.Payment
	body := map[string]string{"txid": txid}
	if err := c.do(ctx, http.MethodPost, paymentPath(paymentID, "complete"), "Key "+c.APIKey, body, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetPayment fetches a payment by id.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	var payment models.Payment
	if err := c.do(ctx, http.MethodGet, paymentPath(paymentID, ""), "Key "+c.APIKey, nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// Approve approves a payment so the payer's wallet can submit the transaction.
func (c *Client) Approve(ctx context.Context, paymentID string) (*models.Payment, error) {
	var payment models.Payment
	if err := c.do(ctx, http.MethodPost, paymentPath(paymentID, "approve"), "Key "+c.APIKey, nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// Me returns the user owning accessToken.
func (c *Client) Me(ctx context.Context, accessToken string) (*models.PlatformUser, error) {
	var user models.PlatformUser
	if err := c.do(ctx, http.MethodGet, "/v2/me", "Bearer "+accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func paymentPath(paymentID, action string) string {
	path := "/v2/payments/" + url.PathEscape(paymentID)
	if action != "" {
		path += "/" + action
	}
	return path
}

func (c *Client) do(ctx context.Context, method, path, authorization string, in, out any) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode platform request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build platform request: %w", err)
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("platform request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode platform response: %w", err)
	}
	return nil
}
