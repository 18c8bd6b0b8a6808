package settlement

import (
	"context"
	"errors"

	"github.com/chris/pi-settlement/pkg/fees"
	"github.com/chris/pi-settlement/pkg/models"
	"github.com/chris/pi-settlement/pkg/storage"
	"github.com/google/uuid"
)

func (f *flow) settleOrder(ctx context.Context) (*models.Settlement, error) {
	m := f.meta.Order
	rec := f.newRecord()

	var pending *models.Order
	if m.OrderID != "" {
		order, err := f.o.Store.GetOrder(ctx, m.OrderID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, f.fail(ctx, &Error{Kind: KindOrderNotFound, Message: "Order not found", Details: m.OrderID})
		}
		if err != nil {
			return nil, f.fail(ctx, internalError("Failed to load order", err))
		}
		if order.StoreId != m.StoreID {
			return nil, f.fail(ctx, &Error{Kind: KindInvalidInput, Message: "Order does not belong to the payment's store", Details: m.OrderID})
		}
		if order.Status == models.PAID && order.PiTxid == f.req.TxID {
			// Released earlier through transaction verification with this txid.
			f.log.InfoContext(ctx, "order already paid with this transaction", "order_id", order.Id)
			rec.OrderId = order.Id
			rec.Replayed = true
			f.state = StateSettled
			return rec, nil
		}
		if order.Status != models.PENDING {
			return nil, f.fail(ctx, &Error{Kind: KindConflict, Message: "Order is no longer pending", Details: string(order.Status)})
		}
		if !order.Total.Equal(f.payment.Amount) {
			return nil, f.rejectAmount(ctx, rec, order.Total, order.Id)
		}
		pending = order
		rec.OrderId = order.Id
	}

	store, err := f.store(ctx, m.StoreID, true)
	if err != nil {
		return nil, err
	}
	recipient := f.recipient(store)
	if recipient == "" {
		return nil, f.fail(ctx, &Error{Kind: KindInternal, Message: "No recipient wallet configured for store", Details: m.StoreID})
	}

	pendingID := ""
	if pending != nil {
		pendingID = pending.Id
	}
	result, err := f.verify(ctx, recipient, rec, pendingID)
	if err != nil {
		return nil, err
	}

	if split, err := fees.Compute(fees.Standard, f.payment.Amount, f.o.FeeRate); err == nil {
		rec.MerchantAmount = &split.Merchant
		rec.PlatformFee = &split.Fee
	}

	if pending != nil {
		return f.persist(ctx, rec, result, func() error {
			return f.o.Store.ConfirmOrderSettlement(ctx, rec, pending.Id)
		})
	}

	now := rec.CreatedAt
	order := &models.Order{
		Id:          uuid.NewString(),
		StoreId:     m.StoreID,
		Items:       f.req.Items,
		Total:       f.payment.Amount,
		Status:      models.PAID,
		PiPaymentId: f.payment.Identifier,
		PiTxid:      f.req.TxID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if f.req.Customer != nil {
		order.Customer = *f.req.Customer
	}
	if len(order.Items) > 0 && !order.ItemsTotal().Equal(order.Total) {
		f.log.WarnContext(ctx, "checkout items do not add up to the paid amount", "items_total", order.ItemsTotal().String(), "paid", order.Total.String())
	}
	rec.OrderId = order.Id

	return f.persist(ctx, rec, result, func() error {
		return f.o.Store.CreateOrderSettlement(ctx, rec, order)
	})
}

func (f *flow) settleSubscription(ctx context.Context) (*models.Settlement, error) {
	m := f.meta.Subscription
	rec := f.newRecord()

	duration := f.o.Plans.DefaultDuration()
	plan, known := f.o.Plans.Lookup(m.PlanType)
	switch {
	case known:
		if !plan.Price.Equal(f.payment.Amount) {
			return nil, f.rejectAmount(ctx, rec, plan.Price, "")
		}
		duration = plan.Duration
	case !f.o.Plans.Empty():
		return nil, f.fail(ctx, &Error{Kind: KindInvalidInput, Message: "Unknown subscription plan", Details: m.PlanType})
	}

	store, err := f.store(ctx, m.StoreID, false)
	if err != nil {
		return nil, err
	}

	var result *models.VerificationResult
	if recipient := f.recipient(store); recipient != "" {
		result, err = f.verify(ctx, recipient, rec, "")
		if err != nil {
			return nil, err
		}
	} else {
		f.log.WarnContext(ctx, "no recipient wallet known, skipping ledger verification for subscription")
		f.transition(ctx, StateVerified)
	}

	userID := m.UserID
	if userID == "" {
		userID = f.payment.UserUID
	}
	expires := rec.CreatedAt.Add(duration)
	sub := &models.Subscription{
		Id:              uuid.NewString(),
		UserId:          userID,
		StoreId:         m.StoreID,
		PlanType:        m.PlanType,
		Status:          models.ACTIVE,
		PiPaymentId:     f.payment.Identifier,
		PiTransactionId: f.req.TxID,
		Amount:          f.payment.Amount,
		StartedAt:       rec.CreatedAt,
		ExpiresAt:       expires,
	}
	rec.SubscriptionId = sub.Id
	rec.ExpiresAt = &expires

	return f.persist(ctx, rec, result, func() error {
		return f.o.Store.ActivateSubscriptionSettlement(ctx, rec, sub)
	})
}

func (f *flow) settlePaymentLink(ctx context.Context) (*models.Settlement, error) {
	m := f.meta.PaymentLink
	rec := f.newRecord()

	policy, err := fees.ParsePolicy(m.PricingType)
	if err != nil {
		return nil, f.fail(ctx, &Error{Kind: KindInvalidInput, Message: "Unsupported pricing type", Details: m.PricingType, Err: err})
	}

	store, err := f.store(ctx, m.StoreID, true)
	if err != nil {
		return nil, err
	}
	recipient := f.recipient(store)
	if recipient == "" {
		return nil, f.fail(ctx, &Error{Kind: KindInternal, Message: "No recipient wallet configured for store", Details: m.StoreID})
	}

	result, err := f.verify(ctx, recipient, rec, "")
	if err != nil {
		return nil, err
	}

	split, err := fees.Compute(policy, f.payment.Amount, f.o.FeeRate)
	if err != nil {
		return nil, f.fail(ctx, internalError("Failed to compute platform fee", err))
	}

	tx := &models.PaymentTransaction{
		Id:             uuid.NewString(),
		PiPaymentId:    f.payment.Identifier,
		PiTxid:         f.req.TxID,
		MerchantId:     store.OwnerId,
		StoreId:        store.Id,
		PaymentLinkId:  m.PaymentLinkID,
		PayerUid:       f.payment.UserUID,
		PricingType:    string(policy),
		GrossAmount:    split.Gross,
		PlatformFee:    split.Fee,
		MerchantAmount: split.Merchant,
		CreatedAt:      rec.CreatedAt,
	}
	earning := &models.MerchantEarning{
		Id:            uuid.NewString(),
		MerchantId:    store.OwnerId,
		TransactionId: tx.Id,
		Amount:        split.Merchant,
		PlatformFee:   split.Fee,
		Status:        models.AVAILABLE,
		CreatedAt:     rec.CreatedAt,
	}
	rec.TransactionId = tx.Id
	rec.EarningId = earning.Id
	rec.MerchantAmount = &split.Merchant
	rec.PlatformFee = &split.Fee

	return f.persist(ctx, rec, result, func() error {
		return f.o.Store.CreditEarningSettlement(ctx, rec, tx, earning)
	})
}
