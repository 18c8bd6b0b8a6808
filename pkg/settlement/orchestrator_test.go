package settlement

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/chris/pi-settlement/pkg/config"
	"github.com/chris/pi-settlement/pkg/ledger"
	"github.com/chris/pi-settlement/pkg/ledger/ledgertest"
	"github.com/chris/pi-settlement/pkg/models"
	"github.com/chris/pi-settlement/pkg/platform"
	"github.com/chris/pi-settlement/pkg/platform/platformtest"
	"github.com/chris/pi-settlement/pkg/scheduler"
	"github.com/chris/pi-settlement/pkg/scheduler/mocks"
	"github.com/chris/pi-settlement/pkg/storage"
	"github.com/chris/pi-settlement/pkg/storage/memory"
	"github.com/chris/pi-settlement/pkg/verifier"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	merchantWallet = "GMERCHANTPAYOUTWALLET"
	appWallet      = "GAPPWALLET"
	attackerWallet = "GATTACKERWALLET"
	payerWallet    = "GPAYERWALLET"
	payerUID       = "user-1"
)

type harness struct {
	ledger   *ledgertest.Server
	platform *platformtest.Server
	store    *memory.Store
	orch     *Orchestrator
	logs     *bytes.Buffer
}

func newHarness(t *testing.T, cfg config.SettlementConfig) *harness {
	t.Helper()
	h := &harness{
		ledger:   ledgertest.NewServer(),
		platform: platformtest.NewServer(),
		store:    memory.New(),
		logs:     &bytes.Buffer{},
	}
	t.Cleanup(h.ledger.Close)
	t.Cleanup(h.platform.Close)

	if cfg.FeeRate == 0 {
		cfg.FeeRate = 0.02
	}
	logger := slog.New(slog.NewTextHandler(h.logs, nil))
	payments := platform.NewClient(config.PlatformConfig{BaseURL: h.platform.URL, APIKey: platformtest.APIKey, Timeout: time.Second})
	v := verifier.New(ledger.NewClient(config.LedgerConfig{BaseURL: h.ledger.URL, Timeout: time.Second}), nil, logger)

	orch, err := New(cfg, payments, v, h.store, nil, nil, logger)
	require.NoError(t, err)

	// Strictly increasing clock so records sort deterministically.
	var mu sync.Mutex
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	orch.Now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	h.orch = orch

	h.store.PutStore(models.Store{Id: "store-1", OwnerId: "merchant-1", Name: "Corner Shop", PayoutWallet: merchantWallet})
	return h
}

func (h *harness) pay(hash, to, amount string) {
	h.ledger.Add(hash, ledgertest.Transaction{
		Successful:    true,
		SourceAccount: payerWallet,
		Operations:    []ledgertest.Operation{ledgertest.NativePayment(payerWallet, to, amount)},
	})
}

func orderMeta(orderID string) map[string]string {
	m := map[string]string{"purpose": "order", "store_id": "store-1"}
	if orderID != "" {
		m["order_id"] = orderID
	}
	return m
}

func requireKind(t *testing.T, err error, kind ErrorKind) *Error {
	t.Helper()
	var e *Error
	require.True(t, errors.As(err, &e), "expected *Error, got %v", err)
	require.Equal(t, kind, e.Kind, e.Error())
	return e
}

func TestSettle_Order(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates Paid Order", func(t *testing.T) {
		h := newHarness(t, config.SettlementConfig{})
		h.platform.AddPayment("pay-1", payerUID, "10", appWallet, orderMeta(""))
		h.pay("tx-1", merchantWallet, "10.0000000")

		rec, err := h.orch.Settle(ctx, Request{
			PaymentID: "pay-1",
			TxID:      "tx-1",
			Customer:  &models.Customer{Name: "Ada"},
			Items:     []models.OrderItem{{ProductID: "p-1", Name: "Tea", Quantity: 2, Price: decimal.NewFromInt(5)}},
		})
		require.NoError(t, err)
		assert.Equal(t, models.SETTLED, rec.Status)
		assert.Equal(t, models.PurposeOrder, rec.Purpose)
		assert.False(t, rec.Replayed)
		require.NotNil(t, rec.Verification)
		assert.True(t, rec.Verification.Verified)

		orders := h.store.Orders()
		require.Len(t, orders, 1)
		assert.Equal(t, rec.OrderId, orders[0].Id)
		assert.Equal(t, models.PAID, orders[0].Status)
		assert.Equal(t, "pay-1", orders[0].PiPaymentId)
		assert.Equal(t, "tx-1", orders[0].PiTxid)
		assert.Equal(t, "Ada", orders[0].Customer.Name)
		assert.Equal(t, 1, h.platform.Calls("complete"))
	})

	t.Run("Repeated Request Replays Without Side Effects", func(t *testing.T) {
		h := newHarness(t, config.SettlementConfig{})
		h.platform.AddPayment("pay-1", payerUID, "10", appWallet, orderMeta(""))
		h.pay("tx-1", merchantWallet, "10")

		first, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
		require.NoError(t, err)
		platformCalls := h.platform.TotalCalls()
		ledgerHits := h.ledger.Hits()

		second, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
		require.NoError(t, err)
		assert.True(t, second.Replayed)
		assert.Equal(t, first.OrderId, second.OrderId)
		assert.Len(t, h.store.Orders(), 1)
		assert.Equal(t, platformCalls, h.platform.TotalCalls())
		assert.Equal(t, ledgerHits, h.ledger.Hits())
	})

	t.Run("Replay With Different Txid Conflicts", func(t *testing.T) {
		h := newHarness(t, config.SettlementConfig{})
		h.platform.AddPayment("pay-1", payerUID, "10", appWallet, orderMeta(""))
		h.pay("tx-1", merchantWallet, "10")
		_, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
		require.NoError(t, err)

		_, err = h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-2"})
		e := requireKind(t, err, KindConflict)
		assert.Equal(t, http.StatusConflict, e.HTTPStatus())
	})

	t.Run("Confirms Pre-created Order", func(t *testing.T) {
		h := newHarness(t, config.SettlementConfig{})
		h.store.PutOrder(models.Order{Id: "order-1", StoreId: "store-1", Total: decimal.NewFromInt(10), Status: models.PENDING})
		h.platform.AddPayment("pay-1", payerUID, "10", appWallet, orderMeta("order-1"))
		h.pay("tx-1", merchantWallet, "10")

		rec, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
		require.NoError(t, err)
		assert.Equal(t, "order-1", rec.OrderId)

		order, err := h.store.GetOrder(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, models.PAID, order.Status)
		assert.Equal(t, "tx-1", order.PiTxid)
	})

	t.Run("Order Total Mismatch Rejects Before Ledger", func(t *testing.T) {
		h := newHarness(t, config.SettlementConfig{})
		h.store.PutOrder(models.Order{Id: "order-1", StoreId: "store-1", Total: decimal.NewFromInt(12), Status: models.PENDING})
		h.platform.AddPayment("pay-1", payerUID, "10", appWallet, orderMeta("order-1"))

		_, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
		e := requireKind(t, err, KindVerificationFailed)
		assert.Equal(t, "Amount mismatch: expected 12, got 10", e.Details)
		assert.Zero(t, h.ledger.Hits())

		order, err := h.store.GetOrder(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, models.VERIFICATION_FAILED, order.Status)
	})

	t.Run("Unknown Order", func(t *testing.T) {
		h := newHarness(t, config.SettlementConfig{})
		h.platform.AddPayment("pay-1", payerUID, "10", appWallet, orderMeta("missing"))

		_, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
		e := requireKind(t, err, KindOrderNotFound)
		assert.Equal(t, http.StatusNotFound, e.HTTPStatus())
	})
}

func TestSettle_Verification(t *testing.T) {
	ctx := context.Background()

	t.Run("Wrong Recipient Is Rejected And Replayed", func(t *testing.T) {
		h := newHarness(t, config.SettlementConfig{})
		h.platform.AddPayment("pay-1", payerUID, "10", appWallet, orderMeta(""))
		h.pay("tx-1", attackerWallet, "10")

		_, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
		e := requireKind(t, err, KindVerificationFailed)
		assert.False(t, e.Verified())
		assert.Contains(t, e.Details, "Recipient mismatch")
		assert.Empty(t, h.store.Orders())

		rec, err := h.store.GetSettlement(ctx, "pay-1")
		require.NoError(t, err)
		assert.Equal(t, models.REJECTED, rec.Status)

		platformCalls := h.platform.TotalCalls()
		_, err = h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
		e = requireKind(t, err, KindVerificationFailed)
		require.NotNil(t, e.Settlement)
		assert.True(t, e.Settlement.Replayed)
		assert.Equal(t, platformCalls, h.platform.TotalCalls())
	})

	t.Run("Amount Within Tolerance Settles", func(t *testing.T) {
		h := newHarness(t, config.SettlementConfig{})
		h.platform.AddPayment("pay-1", payerUID, "10", appWallet, orderMeta(""))
		h.pay("tx-1", merchantWallet, "10.0000500")

		rec, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
		require.NoError(t, err)
		assert.Equal(t, models.SETTLED, rec.Status)
	})

	t.Run("Amount Outside Tolerance Is Rejected", func(t *testing.T) {
		h := newHarness(t, config.SettlementConfig{})
		h.platform.AddPayment("pay-1", payerUID, "10", appWallet, orderMeta(""))
		h.pay("tx-1", merchantWallet, "9.5")

		_, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
		e := requireKind(t, err, KindVerificationFailed)
		assert.Equal(t, "Amount mismatch: expected 10, got 9.5", e.Details)
	})

	t.Run("Unsuccessful Transaction Is Rejected", func(t *testing.T) {
		h := newHarness(t, config.SettlementConfig{})
		h.platform.AddPayment("pay-1", payerUID, "10", appWallet, orderMeta(""))
		h.ledger.Add("tx-1", ledgertest.Transaction{
			Successful: false, SourceAccount: payerWallet,
			Operations: []ledgertest.Operation{ledgertest.NativePayment(payerWallet, merchantWallet, "10")},
		})

		_, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
		e := requireKind(t, err, KindVerificationFailed)
		assert.Equal(t, models.ReasonUnsuccessful, e.Verification.Reason)
	})

	t.Run("Missing Transaction Fails Pending Order", func(t *testing.T) {
		h := newHarness(t, config.SettlementConfig{})
		h.store.PutOrder(models.Order{Id: "order-1", StoreId: "store-1", Total: decimal.NewFromInt(10), Status: models.PENDING})
		h.platform.AddPayment("pay-1", payerUID, "10", appWallet, orderMeta("order-1"))

		_, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-random"})
		e := requireKind(t, err, KindNotFound)
		assert.Equal(t, "Transaction not found on blockchain", e.Message)
		assert.False(t, e.Retryable())

		order, err := h.store.GetOrder(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, models.VERIFICATION_FAILED, order.Status)
		assert.Equal(t, "Transaction not found on blockchain", order.FailureReason)
		_, err = h.store.GetSettlement(ctx, "pay-1")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Missing Transaction Is Not Recorded", func(t *testing.T) {
		h := newHarness(t, config.SettlementConfig{})
		h.platform.AddPayment("pay-1", payerUID, "10", appWallet, orderMeta(""))

		_, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
		requireKind(t, err, KindNotFound)
		_, err = h.store.GetSettlement(ctx, "pay-1")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		// The platform already completed the payment on the first attempt.
		h.pay("tx-1", merchantWallet, "10")
		rec, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
		require.NoError(t, err)
		assert.Equal(t, models.SETTLED, rec.Status)
		assert.Equal(t, 2, h.platform.Calls("complete"))
	})

	t.Run("Ledger Unavailable Never Settles", func(t *testing.T) {
		h := newHarness(t, config.SettlementConfig{})
		h.platform.AddPayment("pay-1", payerUID, "10", appWallet, orderMeta(""))
		h.pay("tx-1", merchantWallet, "10")
		h.ledger.FailWith(http.StatusServiceUnavailable)

		_, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
		e := requireKind(t, err, KindLedgerUnavailable)
		assert.Equal(t, http.StatusBadGateway, e.HTTPStatus())
		assert.Empty(t, h.store.Orders())
		_, err = h.store.GetSettlement(ctx, "pay-1")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Txid Reused For Another Payment", func(t *testing.T) {
		h := newHarness(t, config.SettlementConfig{})
		h.platform.AddPayment("pay-1", payerUID, "10", appWallet, orderMeta(""))
		h.platform.AddPayment("pay-2", payerUID, "10", appWallet, orderMeta(""))
		h.pay("tx-1", merchantWallet, "10")

		_, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
		require.NoError(t, err)

		_, err = h.orch.Settle(ctx, Request{PaymentID: "pay-2", TxID: "tx-1"})
		requireKind(t, err, KindConflict)
		assert.Len(t, h.store.Orders(), 1)
	})
}

func TestSettle_Platform(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing Identifiers", func(t *testing.T) {
		h := newHarness(t, config.SettlementConfig{})
		_, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1"})
		requireKind(t, err, KindInvalidInput)
		assert.Zero(t, h.platform.TotalCalls())
	})

	t.Run("Complete Failure Mirrors Platform Status", func(t *testing.T) {
		h := newHarness(t, config.SettlementConfig{})
		h.platform.AddPayment("pay-1", payerUID, "10", appWallet, orderMeta(""))
		h.platform.FailComplete(http.StatusServiceUnavailable, `{"error":"maintenance"}`)

		_, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
		e := requireKind(t, err, KindPlatform)
		assert.Equal(t, http.StatusServiceUnavailable, e.HTTPStatus())
		assert.Contains(t, e.Details, "maintenance")
		assert.Zero(t, h.ledger.Hits())
	})

	t.Run("Payer Mismatch", func(t *testing.T) {
		h := newHarness(t, config.SettlementConfig{})
		h.platform.AddPayment("pay-1", payerUID, "10", appWallet, orderMeta(""))
		h.platform.AddUser("token-other", "user-2")
		h.pay("tx-1", merchantWallet, "10")

		_, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1", AccessToken: "token-other"})
		e := requireKind(t, err, KindPayerMismatch)
		assert.Equal(t, http.StatusForbidden, e.HTTPStatus())
		assert.Zero(t, h.ledger.Hits())
	})

	t.Run("Payer Token Required", func(t *testing.T) {
		h := newHarness(t, config.SettlementConfig{RequirePayerAuth: true})
		_, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
		requireKind(t, err, KindPayerMismatch)
	})

	t.Run("Retry Settles Without Payer Token", func(t *testing.T) {
		h := newHarness(t, config.SettlementConfig{RequirePayerAuth: true})
		h.platform.AddPayment("pay-1", payerUID, "10", appWallet, orderMeta(""))
		h.pay("tx-1", merchantWallet, "10")

		rec, err := h.orch.SettleRetry(ctx, "pay-1", "tx-1")
		require.NoError(t, err)
		assert.Equal(t, models.SETTLED, rec.Status)
		assert.Zero(t, h.platform.Calls("me"))
	})

	t.Run("Matching Payer Settles", func(t *testing.T) {
		h := newHarness(t, config.SettlementConfig{RequirePayerAuth: true})
		h.platform.AddPayment("pay-1", payerUID, "10", appWallet, orderMeta(""))
		h.platform.AddUser("token-1", payerUID)
		h.pay("tx-1", merchantWallet, "10")

		_, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1", AccessToken: "token-1"})
		require.NoError(t, err)
		assert.Equal(t, 1, h.platform.Calls("me"))
	})

	t.Run("Invalid Metadata", func(t *testing.T) {
		h := newHarness(t, config.SettlementConfig{})
		h.platform.AddPayment("pay-1", payerUID, "10", appWallet, map[string]string{"purpose": "raffle"})

		_, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
		requireKind(t, err, KindInvalidInput)
	})
}

func TestSettle_Subscription(t *testing.T) {
	ctx := context.Background()
	cfg := config.SettlementConfig{
		AppWallet: appWallet,
		Plans:     []config.PlanConfig{{Type: "pro", Price: "20", DurationDays: 30}},
	}
	meta := map[string]string{"purpose": "subscription", "plan_type": "pro"}

	t.Run("New Subscription Supersedes Active One", func(t *testing.T) {
		h := newHarness(t, cfg)
		h.platform.AddPayment("pay-1", payerUID, "20", appWallet, meta)
		h.platform.AddPayment("pay-2", payerUID, "20", appWallet, meta)
		h.pay("tx-1", appWallet, "20")
		h.pay("tx-2", appWallet, "20")

		first, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
		require.NoError(t, err)
		require.NotNil(t, first.ExpiresAt)
		assert.Equal(t, 30*24*time.Hour, first.ExpiresAt.Sub(first.CreatedAt))

		second, err := h.orch.Settle(ctx, Request{PaymentID: "pay-2", TxID: "tx-2"})
		require.NoError(t, err)
		assert.Equal(t, []string{first.SubscriptionId}, second.SupersededIds)

		subs := h.store.Subscriptions(payerUID)
		require.Len(t, subs, 2)
		assert.Equal(t, models.SUPERSEDED, subs[0].Status)
		assert.Equal(t, models.ACTIVE, subs[1].Status)

		active, err := h.store.GetActiveSubscription(ctx, payerUID)
		require.NoError(t, err)
		assert.Equal(t, second.SubscriptionId, active.Id)
	})

	t.Run("Price Mismatch Rejects Before Ledger", func(t *testing.T) {
		h := newHarness(t, cfg)
		h.platform.AddPayment("pay-1", payerUID, "5", appWallet, meta)

		_, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
		e := requireKind(t, err, KindVerificationFailed)
		assert.Equal(t, "Amount mismatch: expected 20, got 5", e.Details)
		assert.Zero(t, h.ledger.Hits())
		assert.Empty(t, h.store.Subscriptions(payerUID))
	})

	t.Run("Unknown Plan", func(t *testing.T) {
		h := newHarness(t, cfg)
		h.platform.AddPayment("pay-1", payerUID, "20", appWallet, map[string]string{"purpose": "subscription", "plan_type": "gold"})

		_, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
		requireKind(t, err, KindInvalidInput)
	})

	t.Run("Paid To Wrong Wallet", func(t *testing.T) {
		h := newHarness(t, cfg)
		h.platform.AddPayment("pay-1", payerUID, "20", appWallet, meta)
		h.pay("tx-1", attackerWallet, "20")

		_, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
		requireKind(t, err, KindVerificationFailed)
		assert.Empty(t, h.store.Subscriptions(payerUID))
	})
}

func TestSettle_PaymentLink(t *testing.T) {
	ctx := context.Background()
	linkMeta := func(pricing string) map[string]string {
		return map[string]string{"purpose": "payment_link", "payment_link_id": "link-1", "store_id": "store-1", "pricing_type": pricing}
	}

	tests := []struct {
		name     string
		pricing  string
		amount   string
		merchant string
		fee      string
	}{
		{name: "Standard Fee Is Included In Price", pricing: "standard", amount: "102", merchant: "100", fee: "2"},
		{name: "Donation Fee Is Taken From Amount", pricing: "donation", amount: "50", merchant: "49", fee: "1"},
		{name: "Free Link Has No Fee", pricing: "free", amount: "10", merchant: "10", fee: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, config.SettlementConfig{})
			h.platform.AddPayment("pay-1", payerUID, tt.amount, appWallet, linkMeta(tt.pricing))
			h.pay("tx-1", merchantWallet, tt.amount)

			rec, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
			require.NoError(t, err)
			require.NotNil(t, rec.MerchantAmount)
			assert.True(t, decimal.RequireFromString(tt.merchant).Equal(*rec.MerchantAmount), rec.MerchantAmount.String())
			assert.True(t, decimal.RequireFromString(tt.fee).Equal(*rec.PlatformFee), rec.PlatformFee.String())

			txs := h.store.PaymentTransactions()
			require.Len(t, txs, 1)
			assert.Equal(t, "merchant-1", txs[0].MerchantId)
			assert.Equal(t, "link-1", txs[0].PaymentLinkId)

			balance, err := h.store.GetMerchantBalance(ctx, "merchant-1")
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.merchant).Equal(balance.Available))

			// A repeated request must not credit the merchant twice.
			_, err = h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
			require.NoError(t, err)
			balance, err = h.store.GetMerchantBalance(ctx, "merchant-1")
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.merchant).Equal(balance.Available))
		})
	}

	t.Run("Unsupported Pricing Type", func(t *testing.T) {
		h := newHarness(t, config.SettlementConfig{})
		h.platform.AddPayment("pay-1", payerUID, "10", appWallet, linkMeta("auction"))

		_, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
		requireKind(t, err, KindInvalidInput)
	})
}

type failingStore struct {
	*memory.Store
	err error
}

func (s failingStore) CreditEarningSettlement(ctx context.Context, rec *models.Settlement, tx *models.PaymentTransaction, earning *models.MerchantEarning) error {
	return s.err
}

func TestSettle_RecordingFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, config.SettlementConfig{})
	h.platform.AddPayment("pay-1", payerUID, "10", appWallet,
		map[string]string{"purpose": "payment_link", "payment_link_id": "link-1", "store_id": "store-1"})
	h.pay("tx-1", merchantWallet, "10")

	retries := mocks.NewRetryScheduler(t)
	retries.On("ScheduleRetry", mock.Anything, mock.MatchedBy(func(msg scheduler.RetryMessage) bool {
		return msg.PaymentID == "pay-1" && msg.TxID == "tx-1" && msg.Reason == string(KindRecordingFailed)
	})).Return(nil).Once()

	h.orch.Store = failingStore{Store: h.store, err: errors.New("throughput exceeded")}
	h.orch.Scheduler = retries

	_, err := h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
	e := requireKind(t, err, KindRecordingFailed)
	assert.True(t, e.Verified())
	require.NotNil(t, e.Settlement)
	assert.Equal(t, "pay-1", e.Settlement.PaymentId)
	assert.Equal(t, http.StatusInternalServerError, e.HTTPStatus())
	assert.Contains(t, h.logs.String(), "CRITICAL")
	assert.Empty(t, h.store.PaymentTransactions())
}

func TestSettlement(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, config.SettlementConfig{})
	h.platform.AddPayment("pay-1", payerUID, "10", appWallet, orderMeta(""))
	h.pay("tx-1", merchantWallet, "10")

	_, err := h.orch.Settlement(ctx, "pay-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = h.orch.Settle(ctx, Request{PaymentID: "pay-1", TxID: "tx-1"})
	require.NoError(t, err)

	rec, err := h.orch.Settlement(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, "tx-1", rec.Txid)
}
