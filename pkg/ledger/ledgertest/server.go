// Package ledgertest provides a fake Horizon server for tests.
package ledgertest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Operation is a fixture operation. Amount is the ledger's decimal string.
type Operation struct {
	Type      string
	AssetType string
	Amount    string
	From      string
	To        string
}

// Transaction is a fixture transaction.
type Transaction struct {
	Successful    bool
	SourceAccount string
	Memo          string
	CreatedAt     time.Time
	Operations    []Operation
}

// Server serves fixture transactions over the Horizon routes used by ledger.Client.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	txs      map[string]Transaction
	failWith int
	hits     int
}

// NewServer starts a fake ledger. Callers must Close it.
func NewServer() *Server {
	s := &Server{txs: make(map[string]Transaction)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Add registers a transaction under hash.
func (s *Server) Add(hash string, tx Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	s.txs[hash] = tx
}

// FailWith makes every request return the given status code. Zero clears it.
func (s *Server) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = status
}

// Hits returns the number of requests served.
func (s *Server) Hits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits
}

// NativePayment is a shortcut for a single native payment operation.
func NativePayment(from, to, amount string) Operation {
	return Operation{Type: "payment", AssetType: "native", Amount: amount, From: from, To: to}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits++
	failWith := s.failWith
	s.mu.Unlock()

	if failWith != 0 {
		http.Error(w, `{"title":"Internal Server Error"}`, failWith)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/transactions/")
	hash, wantOps := strings.CutSuffix(path, "/operations")

	s.mu.Lock()
	tx, ok := s.txs[hash]
	s.mu.Unlock()
	if !ok {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"type":"https://stellar.org/horizon-errors/not_found","title":"Resource Missing","status":404}`))
		return
	}

	w.Header().Set("Content-Type", "application/hal+json")
	if wantOps {
		records := make([]map[string]any, 0, len(tx.Operations))
		for i, op := range tx.Operations {
			records = append(records, map[string]any{
				"id":         fmt.Sprintf("%s-%d", hash, i),
				"type":       op.Type,
				"asset_type": op.AssetType,
				"amount":     op.Amount,
				"from":       op.From,
				"to":         op.To,
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"_embedded": map[string]any{"records": records}})
		return
	}

	body := map[string]any{
		"hash":           hash,
		"successful":     tx.Successful,
		"source_account": tx.SourceAccount,
		"created_at":     tx.CreatedAt.Format(time.RFC3339),
		"memo_type":      "none",
	}
	if tx.Memo != "" {
		body["memo_type"] = "text"
		body["memo"] = tx.Memo
	}
	_ = json.NewEncoder(w).Encode(body)
}
