// Package platformtest provides a fake payment platform server for tests.
package platformtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/chris/pi-settlement/pkg/models"
	"github.com/shopspring/decimal"
)

// APIKey is the server key the fake platform accepts.
const APIKey = "test-server-key"

// Server is an in-memory payment platform.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	payments      map[string]*models.Payment
	users         map[string]models.PlatformUser
	completeError *failure
	calls         map[string]int
}

type failure struct {
	status int
	body   string
}

// NewServer starts a fake platform. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		payments: make(map[string]*models.Payment),
		users:    make(map[string]models.PlatformUser),
		calls:    make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// AddPayment registers an approved payment. Metadata is marshalled as JSON.
func (s *Server) AddPayment(id, userUID, amount, toAddress string, metadata any) {
	raw, _ := json.Marshal(metadata)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[id] = &models.Payment{
		Identifier: id,
		UserUID:    userUID,
		Amount:     decimal.RequireFromString(amount),
		Memo:       "payment " + id,
		Metadata:   raw,
		ToAddress:  toAddress,
		Direction:  "user_to_app",
		Network:    "Pi Testnet",
		CreatedAt:  time.Date(2025, 3, 1, 11, 55, 0, 0, time.UTC),
		Status:     models.PaymentStatus{DeveloperApproved: true},
	}
}

// AddUser maps an access token to a platform user.
func (s *Server) AddUser(accessToken, uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[accessToken] = models.PlatformUser{UID: uid, Username: "user-" + uid}
}

// FailComplete makes the complete endpoint answer with status and body. Zero status clears it.
func (s *Server) FailComplete(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		s.completeError = nil
		return
	}
	s.completeError = &failure{status: status, body: body}
}

// Payment returns a copy of the stored payment.
func (s *Server) Payment(id string) (models.Payment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return models.Payment{}, false
	}
	return *p, true
}

// Calls returns how often an action ("get", "complete", "approve", "me") was requested.
func (s *Server) Calls(action string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[action]
}

// TotalCalls returns the number of requests served.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	auth := r.Header.Get("Authorization")

	if r.URL.Path == "/v2/me" {
		s.calls["me"]++
		user, ok := s.users[strings.TrimPrefix(auth, "Bearer ")]
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized", "error_message": "invalid access token"})
			return
		}
		writeJSON(w, http.StatusOK, user)
		return
	}

	if auth != "Key "+APIKey {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized", "error_message": "invalid server key"})
		return
	}

	rest, ok := strings.CutPrefix(r.URL.Path, "/v2/payments/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	id, action, _ := strings.Cut(rest, "/")
	if action == "" {
		action = "get"
	}
	s.calls[action]++

	payment, ok := s.payments[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "payment_not_found", "error_message": "Payment not found"})
		return
	}

	switch {
	case action == "get" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, payment)
	case action == "approve" && r.Method == http.MethodPost:
		payment.Status.DeveloperApproved = true
		writeJSON(w, http.StatusOK, payment)
	case action == "complete" && r.Method == http.MethodPost:
		if s.completeError != nil {
			http.Error(w, s.completeError.body, s.completeError.status)
			return
		}
		var body struct {
			TxID string `json:"txid"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.TxID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_txid", "error_message": "txid is required"})
			return
		}
		if payment.Status.DeveloperCompleted {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "already_completed", "error_message": "Payment already completed"})
			return
		}
		payment.Status.DeveloperCompleted = true
		payment.Status.TransactionVerified = true
		payment.Transaction = &models.PaymentTransactionRef{
			TxID:     body.TxID,
			Verified: true,
			Link:     "https://api.testnet.minepi.com/transactions/" + body.TxID,
		}
		writeJSON(w, http.StatusOK, payment)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SetTransaction attaches a txid to a payment without completing it, as the
// wallet does once the transaction is submitted.
func (s *Server) SetTransaction(id, txid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.payments[id]; ok {
		p.Transaction = &models.PaymentTransactionRef{TxID: txid, Verified: true}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
