// Package ledger is a read-only client for the Pi blockchain's Horizon API.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chris/pi-settlement/pkg/config"
	"github.com/chris/pi-settlement/pkg/models"
)

// ErrNotFound is returned when the ledger has no record of a transaction hash.
var ErrNotFound = errors.New("transaction not found on blockchain")

// Reader defines the ledger reads needed to verify a payment.
type Reader interface {
	// GetTransaction fetches a transaction by hash. It returns ErrNotFound if the ledger has no such transaction.
	GetTransaction(ctx context.Context, hash string) (*models.LedgerTransaction, error)

	// GetOperations fetches the operations of a transaction in ledger order.
	GetOperations(ctx context.Context, hash string) ([]models.LedgerOperation, error)
}

// Client implements Reader against a Horizon-compatible HTTP API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new Client from the ledger configuration.
func NewClient(cfg config.LedgerConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:    cfg.LedgerBaseURL(),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Make sure we conform to the interface
var _ Reader = (*Client)(nil)

type transactionResponse struct {
	Hash          string    `json:"hash"`
	Successful    bool      `json:"successful"`
	SourceAccount string    `json:"source_account"`
	CreatedAt     time.Time `json:"created_at"`
	MemoType      string    `json:"memo_type"`
	Memo          *string   `json:"memo"`
}

type operationsResponse struct {
	Embedded struct {
		Records []models.LedgerOperation `json:"records"`
	} `json:"_embedded"`
}

// GetTransaction retrieves a transaction from the ledger by its hash.
func (c *Client) GetTransaction(ctx context.Context, hash string) (*models.LedgerTransaction, error) {
	var resp transactionResponse
	if err := c.get(ctx, "/transactions/"+url.PathEscape(hash), &resp); err != nil {
		return nil, err
	}

	tx := &models.LedgerTransaction{
		Hash:          resp.Hash,
		Successful:    resp.Successful,
		SourceAccount: resp.SourceAccount,
		CreatedAt:     resp.CreatedAt,
	}
	if resp.MemoType != "none" {
		tx.Memo = resp.Memo
	}
	return tx, nil
}

// GetOperations retrieves the operations of a transaction, oldest first.
func (c *Client) GetOperations(ctx context.Context, hash string) ([]models.LedgerOperation, error) {
	var resp operationsResponse
	if err := c.get(ctx, "/transactions/"+url.PathEscape(hash)+"/operations?order=asc&limit=200", &resp); err != nil {
		return nil, err
	}
	return resp.Embedded.Records, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.BaseURL, "/")+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build ledger request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("ledger request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("ledger returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode ledger response: %w", err)
	}
	return nil
}
