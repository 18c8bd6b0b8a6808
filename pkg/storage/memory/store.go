// Package memory is an in-process implementation of storage.Storage for local
// development and tests. It enforces the same uniqueness rules as the DynamoDB store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chris/pi-settlement/pkg/models"
	"github.com/chris/pi-settlement/pkg/storage"
	"github.com/shopspring/decimal"
)

// Store is a mutex-guarded in-memory store.
type Store struct {
	mu sync.Mutex

	settlements   map[string]models.Settlement
	claims        map[string]string // txid -> payment or order id
	orders        map[string]models.Order
	subscriptions map[string]models.Subscription
	active        map[string]string // user id -> active subscription id
	transactions  map[string]models.PaymentTransaction
	earnings      map[string]models.MerchantEarning
	balances      map[string]models.MerchantBalance
	stores        map[string]models.Store
	connections   map[string]struct{}

	now func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		settlements:   make(map[string]models.Settlement),
		claims:        make(map[string]string),
		orders:        make(map[string]models.Order),
		subscriptions: make(map[string]models.Subscription),
		active:        make(map[string]string),
		transactions:  make(map[string]models.PaymentTransaction),
		earnings:      make(map[string]models.MerchantEarning),
		balances:      make(map[string]models.MerchantBalance),
		stores:        make(map[string]models.Store),
		connections:   make(map[string]struct{}),
		now:           time.Now,
	}
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)

// PutStore adds or replaces a store.
func (s *Store) PutStore(store models.Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores[store.Id] = store
}

// PutOrder adds or replaces an order, as the storefront does at checkout.
func (s *Store) PutOrder(order models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.Id] = order
}

// PutSubscription adds or replaces a subscription, tracking it as the user's active one if it is active.
func (s *Store) PutSubscription(sub models.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[sub.Id] = sub
	if sub.Status == models.ACTIVE {
		s.active[sub.UserId] = sub.Id
	}
}

// Orders returns a snapshot of all orders.
func (s *Store) Orders() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Subscriptions returns a snapshot of the user's subscriptions.
func (s *Store) Subscriptions(userID string) []models.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Subscription
	for _, sub := range s.subscriptions {
		if sub.UserId == userID {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// PaymentTransactions returns a snapshot of all payment transactions.
func (s *Store) PaymentTransactions() []models.PaymentTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PaymentTransaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		out = append(out, tx)
	}
	return out
}

func (s *Store) GetSettlement(ctx context.Context, paymentID string) (*models.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.settlements[paymentID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &rec, nil
}

// checkSettlement reports the uniqueness violation a new settlement would cause. Callers hold mu.
func (s *Store) checkSettlement(rec *models.Settlement, claim bool) error {
	if _, ok := s.settlements[rec.PaymentId]; ok {
		return storage.ErrAlreadySettled
	}
	if claim {
		if _, ok := s.claims[rec.Txid]; ok {
			return storage.ErrTxAlreadyClaimed
		}
	}
	return nil
}

func (s *Store) commitSettlement(rec *models.Settlement) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	s.settlements[rec.PaymentId] = *rec
	if rec.Status == models.SETTLED {
		s.claims[rec.Txid] = rec.PaymentId
	}
}

func (s *Store) CreateOrderSettlement(ctx context.Context, rec *models.Settlement, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkSettlement(rec, true); err != nil {
		return err
	}
	if _, ok := s.orders[order.Id]; ok {
		return storage.ErrAlreadySettled
	}
	s.orders[order.Id] = *order
	s.commitSettlement(rec)
	return nil
}

func (s *Store) ConfirmOrderSettlement(ctx context.Context, rec *models.Settlement, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkSettlement(rec, true); err != nil {
		return err
	}
	order, ok := s.orders[orderID]
	if !ok || order.Status != models.PENDING {
		return storage.ErrOrderNotPending
	}
	order.Status = models.PAID
	order.PiPaymentId = rec.PaymentId
	order.PiTxid = rec.Txid
	order.UpdatedAt = s.now()
	s.orders[orderID] = order
	s.commitSettlement(rec)
	return nil
}

func (s *Store) ActivateSubscriptionSettlement(ctx context.Context, rec *models.Settlement, sub *models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkSettlement(rec, true); err != nil {
		return err
	}

	now := s.now()
	if prevID, ok := s.active[sub.UserId]; ok {
		prev := s.subscriptions[prevID]
		prev.Status = models.SUPERSEDED
		prev.SupersededAt = &now
		s.subscriptions[prevID] = prev
		rec.SupersededIds = []string{prevID}
	}
	s.subscriptions[sub.Id] = *sub
	s.active[sub.UserId] = sub.Id
	s.commitSettlement(rec)
	return nil
}

func (s *Store) CreditEarningSettlement(ctx context.Context, rec *models.Settlement, tx *models.PaymentTransaction, earning *models.MerchantEarning) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkSettlement(rec, true); err != nil {
		return err
	}

	s.transactions[tx.Id] = *tx
	s.earnings[earning.Id] = *earning
	balance := s.balances[earning.MerchantId]
	balance.MerchantId = earning.MerchantId
	balance.Available = balance.Available.Add(earning.Amount)
	balance.UpdatedAt = s.now()
	s.balances[earning.MerchantId] = balance
	s.commitSettlement(rec)
	return nil
}

func (s *Store) RecordRejection(ctx context.Context, rec *models.Settlement, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkSettlement(rec, false); err != nil {
		return err
	}
	if orderID != "" {
		order, ok := s.orders[orderID]
		if !ok || order.Status != models.PENDING {
			return storage.ErrOrderNotPending
		}
		order.Status = models.VERIFICATION_FAILED
		order.FailureReason = rec.Error
		order.UpdatedAt = s.now()
		s.orders[orderID] = order
	}
	s.commitSettlement(rec)
	return nil
}

func (s *Store) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &order, nil
}

func (s *Store) AttachPayment(ctx context.Context, orderID, paymentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok || order.Status != models.PENDING {
		return storage.ErrOrderNotPending
	}
	order.PiPaymentId = paymentID
	order.UpdatedAt = s.now()
	s.orders[orderID] = order
	return nil
}

func (s *Store) MarkOrderPaid(ctx context.Context, orderID, txid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[txid]; ok {
		return storage.ErrTxAlreadyClaimed
	}
	order, ok := s.orders[orderID]
	if !ok || order.Status != models.PENDING {
		return storage.ErrOrderNotPending
	}
	order.Status = models.PAID
	order.PiTxid = txid
	order.UpdatedAt = s.now()
	s.orders[orderID] = order
	s.claims[txid] = orderID
	return nil
}

func (s *Store) MarkOrderVerificationFailed(ctx context.Context, orderID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok || order.Status != models.PENDING {
		return storage.ErrOrderNotPending
	}
	order.Status = models.VERIFICATION_FAILED
	order.FailureReason = reason
	order.UpdatedAt = s.now()
	s.orders[orderID] = order
	return nil
}

func (s *Store) GetStalePendingOrders(ctx context.Context, maxAge time.Duration) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-maxAge)
	var out []models.Order
	for _, order := range s.orders {
		if order.Status == models.PENDING && order.PiPaymentId != "" && order.CreatedAt.Before(cutoff) {
			out = append(out, order)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetActiveSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.active[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	sub := s.subscriptions[id]
	return &sub, nil
}

func (s *Store) GetStore(ctx context.Context, storeID string) (*models.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	store, ok := s.stores[storeID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &store, nil
}

func (s *Store) GetMerchantBalance(ctx context.Context, merchantID string) (*models.MerchantBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	balance, ok := s.balances[merchantID]
	if !ok {
		return &models.MerchantBalance{MerchantId: merchantID, Available: decimal.Zero}, nil
	}
	return &balance, nil
}

func (s *Store) ListEarnings(ctx context.Context, merchantID string) ([]models.MerchantEarning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.MerchantEarning
	for _, e := range s.earnings {
		if e.MerchantId == merchantID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) AddConnection(ctx context.Context, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections[connectionID] = struct{}{}
	return nil
}

func (s *Store) RemoveConnection(ctx context.Context, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connections, connectionID)
	return nil
}

func (s *Store) GetAllConnections(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.connections))
	for id := range s.connections {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
