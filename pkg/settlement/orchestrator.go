// Package settlement drives a payment from platform completion through ledger
// verification to exactly one recorded state change.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chris/pi-settlement/pkg/config"
	"github.com/chris/pi-settlement/pkg/models"
	"github.com/chris/pi-settlement/pkg/platform"
	"github.com/chris/pi-settlement/pkg/scheduler"
	"github.com/chris/pi-settlement/pkg/storage"
	"github.com/chris/pi-settlement/pkg/verifier"
	"github.com/chris/pi-settlement/pkg/websockets"
	"github.com/shopspring/decimal"
)

// State is a step of the settlement state machine.
type State string

const (
	StateReceived                     State = "received"
	StateCompleting                   State = "completing"
	StateCompletedPendingVerification State = "completed_pending_verification"
	StateVerified                     State = "verified"
	StateSettled                      State = "settled"
	StateRejected                     State = "rejected"
)

// TransactionVerifier checks a transaction on the ledger.
type TransactionVerifier interface {
	Verify(ctx context.Context, exp verifier.Expectation) (*models.VerificationResult, error)
}

// Orchestrator settles payments. It holds no per-request state.
type Orchestrator struct {
	Platform  platform.Payments
	Verifier  TransactionVerifier
	Store     storage.ApiStore
	Scheduler scheduler.RetryScheduler
	Publisher websockets.Publisher
	Plans     *PlanCatalog
	FeeRate   decimal.Decimal
	AppWallet string

	// RequirePayerAuth rejects settlement requests that do not carry the payer's access token.
	RequirePayerAuth bool

	Logger *slog.Logger
	Now    func() time.Time
}

// New creates an Orchestrator from the settlement configuration.
func New(cfg config.SettlementConfig, payments platform.Payments, v TransactionVerifier, store storage.ApiStore,
	retries scheduler.RetryScheduler, publisher websockets.Publisher, logger *slog.Logger) (*Orchestrator, error) {
	plans, err := NewPlanCatalog(cfg)
	if err != nil {
		return nil, err
	}
	if retries == nil {
		retries = scheduler.NoOpScheduler{}
	}
	if publisher == nil {
		publisher = &websockets.NoOpPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		Platform:         payments,
		Verifier:         v,
		Store:            store,
		Scheduler:        retries,
		Publisher:        publisher,
		Plans:            plans,
		FeeRate:          decimal.NewFromFloat(cfg.FeeRate),
		AppWallet:        cfg.AppWallet,
		RequirePayerAuth: cfg.RequirePayerAuth,
		Logger:           logger,
		Now:              time.Now,
	}, nil
}

// Request asks to settle a payment. Only PaymentID and TxID are trusted as identifiers;
// the remaining fields are client context and never used as expected values.
type Request struct {
	PaymentID string
	TxID      string

	// AccessToken is the payer's platform access token, used to identify the payer.
	AccessToken string

	// Checkout details for orders that were not created before payment.
	Customer *models.Customer
	Items    []models.OrderItem

	// Client hints, compared against the payment metadata for diagnostics only.
	PlanType string
	StoreID  string
}

// flow carries one settlement request through the state machine.
type flow struct {
	o       *Orchestrator
	log     *slog.Logger
	state   State
	req     Request
	payment *models.Payment
	meta    *models.PaymentMetadata
}

func (f *flow) transition(ctx context.Context, next State) {
	f.log.InfoContext(ctx, "settlement transition", "from", f.state, "to", next)
	f.state = next
}

func (f *flow) fail(ctx context.Context, err *Error) error {
	f.log.WarnContext(ctx, "settlement failed", "state", f.state, "kind", err.Kind, "error", err.Message, "details", err.Details)
	f.state = StateRejected
	return err
}

// Settle completes, verifies and records a payment. Calling it again with the same
// payment id returns the stored outcome without repeating side effects.
func (o *Orchestrator) Settle(ctx context.Context, req Request) (*models.Settlement, error) {
	return o.settle(ctx, req, false)
}

// SettleRetry settles a payment on behalf of the service itself: queued retries,
// reconciliation and operators. No payer is present, so no access token is required.
// Expectations still come from the platform and the ledger only.
func (o *Orchestrator) SettleRetry(ctx context.Context, paymentID, txid string) (*models.Settlement, error) {
	return o.settle(ctx, Request{PaymentID: paymentID, TxID: txid}, true)
}

func (o *Orchestrator) settle(ctx context.Context, req Request, trusted bool) (*models.Settlement, error) {
	req.PaymentID = strings.TrimSpace(req.PaymentID)
	req.TxID = strings.TrimSpace(req.TxID)

	f := &flow{
		o:     o,
		log:   o.Logger.With("payment_id", req.PaymentID, "txid", req.TxID, "trusted", trusted),
		state: StateReceived,
		req:   req,
	}

	if req.PaymentID == "" || req.TxID == "" {
		return nil, f.fail(ctx, invalidInput("Missing paymentId or txid"))
	}
	if o.RequirePayerAuth && !trusted && req.AccessToken == "" {
		return nil, f.fail(ctx, &Error{Kind: KindPayerMismatch, Message: "Payer access token required"})
	}

	if rec, err := f.replay(ctx); rec != nil || err != nil {
		return rec, err
	}

	f.transition(ctx, StateCompleting)
	if err := f.complete(ctx); err != nil {
		return nil, err
	}
	f.transition(ctx, StateCompletedPendingVerification)

	if err := f.checkPayer(ctx); err != nil {
		return nil, err
	}

	meta, err := models.DecodeMetadata(f.payment.Metadata)
	if err != nil {
		f.log.ErrorContext(ctx, "payment completed with unusable metadata", "error", err)
		return nil, f.fail(ctx, &Error{Kind: KindInvalidInput, Message: "Invalid payment metadata", Details: err.Error(), Err: err})
	}
	f.meta = meta
	f.log = f.log.With("purpose", meta.Purpose)
	f.warnOnHints(ctx)

	switch meta.Purpose {
	case models.PurposeOrder:
		return f.settleOrder(ctx)
	case models.PurposeSubscription:
		return f.settleSubscription(ctx)
	default:
		return f.settlePaymentLink(ctx)
	}
}

// replay returns the stored outcome of a payment that already reached a terminal state.
func (f *flow) replay(ctx context.Context) (*models.Settlement, error) {
	rec, err := f.o.Store.GetSettlement(ctx, f.req.PaymentID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, f.fail(ctx, internalError("Failed to read settlement state", err))
	}

	if rec.Txid != f.req.TxID {
		return nil, f.fail(ctx, &Error{
			Kind:       KindConflict,
			Message:    "Payment already settled with a different transaction",
			Details:    fmt.Sprintf("payment %s is bound to txid %s", rec.PaymentId, rec.Txid),
			Settlement: rec,
		})
	}

	rec.Replayed = true
	if rec.Status == models.REJECTED {
		f.log.InfoContext(ctx, "replaying rejected settlement")
		return nil, f.fail(ctx, &Error{
			Kind:         KindVerificationFailed,
			Message:      "Transaction verification failed",
			Details:      rec.Error,
			Verification: rec.Verification,
			Settlement:   rec,
		})
	}

	f.log.InfoContext(ctx, "replaying settled payment")
	f.state = StateSettled
	return rec, nil
}

// complete finalizes the payment with the platform and fetches its canonical state.
func (f *flow) complete(ctx context.Context) error {
	p := f.o.Platform

	if _, err := p.Complete(ctx, f.req.PaymentID, f.req.TxID); err != nil {
		var apiErr *platform.APIError
		if !errors.As(err, &apiErr) {
			return f.fail(ctx, &Error{Kind: KindPlatform, Message: "Failed to complete payment", Details: err.Error(), Err: err})
		}

		// A client retrying after a timeout finds the payment already completed.
		existing, getErr := p.GetPayment(ctx, f.req.PaymentID)
		if getErr != nil || !existing.Status.DeveloperCompleted || existing.TxID() != f.req.TxID {
			return f.fail(ctx, &Error{
				Kind:           KindPlatform,
				Message:        "Failed to complete payment",
				Details:        apiErr.Body,
				PlatformStatus: apiErr.StatusCode,
				Err:            err,
			})
		}
		f.log.InfoContext(ctx, "payment already completed on platform")
		f.payment = existing
	}

	if f.payment == nil {
		payment, err := p.GetPayment(ctx, f.req.PaymentID)
		if err != nil {
			e := &Error{Kind: KindPlatform, Message: "Failed to fetch payment", Details: err.Error(), Err: err}
			var apiErr *platform.APIError
			if errors.As(err, &apiErr) {
				e.Details = apiErr.Body
				e.PlatformStatus = apiErr.StatusCode
			}
			return f.fail(ctx, e)
		}
		f.payment = payment
	}

	if txid := f.payment.TxID(); txid != f.req.TxID {
		return f.fail(ctx, &Error{
			Kind:    KindConflict,
			Message: "Transaction does not belong to this payment",
			Details: fmt.Sprintf("platform reports txid %q", txid),
		})
	}
	return nil
}

func (f *flow) checkPayer(ctx context.Context) error {
	if f.req.AccessToken == "" {
		return nil
	}
	user, err := f.o.Platform.Me(ctx, f.req.AccessToken)
	if err != nil {
		return f.fail(ctx, &Error{Kind: KindPayerMismatch, Message: "Could not identify payer", Details: err.Error(), Err: err})
	}
	if user.UID != f.payment.UserUID {
		return f.fail(ctx, &Error{Kind: KindPayerMismatch, Message: "Payment belongs to another user"})
	}
	return nil
}

func (f *flow) warnOnHints(ctx context.Context) {
	if f.req.StoreID != "" && f.req.StoreID != f.meta.StoreID() {
		f.log.WarnContext(ctx, "client store id differs from payment metadata", "client", f.req.StoreID, "metadata", f.meta.StoreID())
	}
	if f.req.PlanType != "" && f.meta.Subscription != nil && !strings.EqualFold(f.req.PlanType, f.meta.Subscription.PlanType) {
		f.log.WarnContext(ctx, "client plan type differs from payment metadata", "client", f.req.PlanType, "metadata", f.meta.Subscription.PlanType)
	}
}

// newRecord starts the settlement record for the current payment.
func (f *flow) newRecord() *models.Settlement {
	return &models.Settlement{
		PaymentId: f.payment.Identifier,
		Txid:      f.req.TxID,
		Purpose:   f.meta.Purpose,
		Status:    models.SETTLED,
		Amount:    f.payment.Amount,
		PayerUid:  f.payment.UserUID,
		StoreId:   f.meta.StoreID(),
		CreatedAt: f.o.Now().UTC(),
	}
}

// store loads the store referenced by the metadata. Missing stores return nil when optional.
func (f *flow) store(ctx context.Context, storeID string, required bool) (*models.Store, error) {
	if storeID == "" {
		if required {
			return nil, f.fail(ctx, invalidInput("Payment metadata has no store"))
		}
		return nil, nil
	}
	store, err := f.o.Store.GetStore(ctx, storeID)
	if errors.Is(err, storage.ErrNotFound) {
		if required {
			return nil, f.fail(ctx, &Error{Kind: KindInvalidInput, Message: "Store not found", Details: storeID})
		}
		f.log.WarnContext(ctx, "store referenced by payment not found", "store_id", storeID)
		return nil, nil
	}
	if err != nil {
		return nil, f.fail(ctx, internalError("Failed to load store", err))
	}
	return store, nil
}

// recipient resolves the wallet the payment must have been sent to.
func (f *flow) recipient(store *models.Store) string {
	if store != nil && store.PayoutWallet != "" {
		return store.PayoutWallet
	}
	if f.o.AppWallet != "" {
		return f.o.AppWallet
	}
	return f.payment.ToAddress
}

// verify checks the ledger. A non-nil result is always a verified one.
func (f *flow) verify(ctx context.Context, recipient string, rec *models.Settlement, pendingOrderID string) (*models.VerificationResult, error) {
	result, err := f.o.Verifier.Verify(ctx, verifier.Expectation{
		TxHash:    f.req.TxID,
		Recipient: recipient,
		Amount:    f.payment.Amount,
		Memo:      f.payment.Identifier,
	})
	if err != nil {
		return nil, f.fail(ctx, &Error{Kind: KindLedgerUnavailable, Message: "Could not verify transaction on blockchain", Details: err.Error(), Err: err})
	}
	if result.Verified {
		f.transition(ctx, StateVerified)
		return result, nil
	}
	if !result.Definitive() {
		// Nothing is recorded for the payment, but the order must not look like it is still processing.
		if pendingOrderID != "" {
			f.o.failOrder(ctx, f.log, pendingOrderID, result.Error)
		}
		return nil, f.fail(ctx, &Error{Kind: KindNotFound, Message: result.Error, Details: "txid " + f.req.TxID, Verification: result})
	}
	return nil, f.reject(ctx, rec, result, pendingOrderID)
}

// reject persists a definitive verification failure and returns it as an error.
func (f *flow) reject(ctx context.Context, rec *models.Settlement, result *models.VerificationResult, pendingOrderID string) error {
	rec.Status = models.REJECTED
	rec.Verification = result
	rec.Error = result.Error
	if pendingOrderID != "" {
		rec.OrderId = pendingOrderID
	}

	err := f.o.Store.RecordRejection(ctx, rec, pendingOrderID)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrAlreadySettled):
		if existing, replayErr := f.replay(ctx); existing != nil || replayErr != nil {
			if replayErr != nil {
				return replayErr
			}
			return f.fail(ctx, &Error{Kind: KindConflict, Message: "Payment was settled concurrently", Settlement: existing})
		}
	case errors.Is(err, storage.ErrOrderNotPending):
		f.log.WarnContext(ctx, "order left pending state before rejection was recorded", "order_id", pendingOrderID)
		if err := f.o.Store.RecordRejection(ctx, rec, ""); err != nil {
			f.log.ErrorContext(ctx, "failed to record rejected settlement", "error", err)
		}
	default:
		f.log.ErrorContext(ctx, "failed to record rejected settlement", "error", err)
	}

	return f.fail(ctx, &Error{
		Kind:         KindVerificationFailed,
		Message:      "Transaction verification failed",
		Details:      result.Error,
		Verification: result,
		Settlement:   rec,
	})
}

// rejectAmount rejects a payment whose platform amount disagrees with the purchase it pays for.
func (f *flow) rejectAmount(ctx context.Context, rec *models.Settlement, expected decimal.Decimal, pendingOrderID string) error {
	result := &models.VerificationResult{
		TransactionHash: f.req.TxID,
		Reason:          models.ReasonAmountMismatch,
		Error:           fmt.Sprintf("Amount mismatch: expected %s, got %s", expected.String(), f.payment.Amount.String()),
	}
	amount := f.payment.Amount
	result.Amount = &amount
	return f.reject(ctx, rec, result, pendingOrderID)
}

// persist runs the single settlement write and resolves races and failures.
func (f *flow) persist(ctx context.Context, rec *models.Settlement, result *models.VerificationResult, write func() error) (*models.Settlement, error) {
	rec.Verification = result

	// Check-then-act: a concurrent request may have settled the payment since the pre-check.
	if existing, err := f.replay(ctx); existing != nil || err != nil {
		return existing, err
	}

	err := write()
	switch {
	case err == nil:
		f.transition(ctx, StateSettled)
		f.publish(ctx, rec)
		return rec, nil
	case errors.Is(err, storage.ErrAlreadySettled):
		f.log.InfoContext(ctx, "lost settlement race, replaying stored record")
		if existing, replayErr := f.replay(ctx); existing != nil || replayErr != nil {
			return existing, replayErr
		}
		return nil, f.fail(ctx, &Error{Kind: KindConflict, Message: "Payment settlement is in progress"})
	case errors.Is(err, storage.ErrTxAlreadyClaimed):
		return nil, f.fail(ctx, &Error{Kind: KindConflict, Message: "Transaction already used for another payment", Details: f.req.TxID, Verification: result})
	case errors.Is(err, storage.ErrOrderNotPending):
		return nil, f.fail(ctx, &Error{Kind: KindConflict, Message: "Order is no longer pending", Details: rec.OrderId, Verification: result})
	}

	f.log.ErrorContext(ctx, "CRITICAL: payment verified on ledger but settlement was not recorded; manual reconciliation required",
		"error", err, "amount", rec.Amount.String())
	if schedErr := f.o.Scheduler.ScheduleRetry(ctx, scheduler.RetryMessage{
		PaymentID:  rec.PaymentId,
		TxID:       rec.Txid,
		Reason:     string(KindRecordingFailed),
		EnqueuedAt: f.o.Now().UTC(),
	}); schedErr != nil {
		f.log.ErrorContext(ctx, "CRITICAL: failed to enqueue settlement retry", "error", schedErr)
	}
	f.state = StateRejected
	return nil, &Error{
		Kind:         KindRecordingFailed,
		Message:      "Payment verified but settlement could not be recorded",
		Details:      err.Error(),
		Verification: result,
		Settlement:   rec,
		Err:          err,
	}
}

func (f *flow) publish(ctx context.Context, rec *models.Settlement) {
	if err := f.o.Publisher.Publish(ctx, websockets.SettlementMessage(rec)); err != nil {
		f.log.WarnContext(ctx, "failed to publish settlement notification", "error", err)
	}
}

// Settlement returns the stored settlement record of a payment.
func (o *Orchestrator) Settlement(ctx context.Context, paymentID string) (*models.Settlement, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, invalidInput("Missing paymentId")
	}
	return o.Store.GetSettlement(ctx, paymentID)
}

// failOrder flips a pending order to verification_failed. An order that already left
// pending is left alone.
func (o *Orchestrator) failOrder(ctx context.Context, log *slog.Logger, orderID, reason string) {
	err := o.Store.MarkOrderVerificationFailed(ctx, orderID, reason)
	if err != nil && !errors.Is(err, storage.ErrOrderNotPending) {
		log.ErrorContext(ctx, "failed to mark order verification failed", "order_id", orderID, "error", err)
	}
}
