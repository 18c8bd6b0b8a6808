package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/pi-settlement/pkg/models"
	"github.com/chris/pi-settlement/pkg/storage"
)

// GetSettlement retrieves the settlement record of a payment.
func (s *Store) GetSettlement(ctx context.Context, paymentID string) (*models.Settlement, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.Tables.SettlementsTable),
		Key:            map[string]types.AttributeValue{"payment_id": stringAV(paymentID)},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, storage.ErrNotFound
	}

	var rec models.Settlement
	if err := unmarshalMap(result.Item, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settlement: %w", err)
	}
	return &rec, nil
}

// settlementWrites starts a batch with the settlement record and, for settled payments, the txid claim.
func (s *Store) settlementWrites(rec *models.Settlement) (*writeBatch, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	recAV, err := marshalMap(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settlement: %w", err)
	}

	b := &writeBatch{}
	b.add(types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(s.Tables.SettlementsTable),
			Item:                recAV,
			ConditionExpression: aws.String("attribute_not_exists(payment_id)"),
		},
	}, storage.ErrAlreadySettled)

	if rec.Status == models.SETTLED {
		b.add(s.claimItem(rec.Txid, rec.PaymentId, rec.CreatedAt), storage.ErrTxAlreadyClaimed)
	}
	return b, nil
}

// claimItem reserves a ledger transaction id for one payment or order.
func (s *Store) claimItem(txid, claimedBy string, at time.Time) types.TransactWriteItem {
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName: aws.String(s.Tables.SettlementsTable),
			Item: map[string]types.AttributeValue{
				"payment_id": stringAV(txClaimPrefix + txid),
				"claimed_by": stringAV(claimedBy),
				"created_at": timeAV(at),
			},
			ConditionExpression: aws.String("attribute_not_exists(payment_id)"),
		},
	}
}

// CreateOrderSettlement inserts a new paid order together with the settlement record.
func (s *Store) CreateOrderSettlement(ctx context.Context, rec *models.Settlement, order *models.Order) error {
	b, err := s.settlementWrites(rec)
	if err != nil {
		return err
	}

	orderAV, err := marshalMap(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	b.add(types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(s.Tables.OrdersTable),
			Item:                orderAV,
			ConditionExpression: aws.String("attribute_not_exists(id)"),
		},
	}, storage.ErrAlreadySettled)

	return s.commit(ctx, b)
}

// ConfirmOrderSettlement flips a pending order to paid together with the settlement record.
func (s *Store) ConfirmOrderSettlement(ctx context.Context, rec *models.Settlement, orderID string) error {
	b, err := s.settlementWrites(rec)
	if err != nil {
		return err
	}

	b.add(types.TransactWriteItem{
		Update: &types.Update{
			TableName:           aws.String(s.Tables.OrdersTable),
			Key:                 map[string]types.AttributeValue{"id": stringAV(orderID)},
			UpdateExpression:    aws.String("SET #status = :paid, pi_payment_id = :payment_id, pi_txid = :txid, updated_at = :now"),
			ConditionExpression: aws.String("#status = :pending"),
			ExpressionAttributeNames: map[string]string{
				"#status": "status",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":paid":       stringAV(string(models.PAID)),
				":pending":    stringAV(string(models.PENDING)),
				":payment_id": stringAV(rec.PaymentId),
				":txid":       stringAV(rec.Txid),
				":now":        timeAV(rec.CreatedAt),
			},
		},
	}, storage.ErrOrderNotPending)

	return s.commit(ctx, b)
}

// ActivateSubscriptionSettlement activates sub, supersedes the user's active subscription and
// moves the user's active head item, all in one write.
func (s *Store) ActivateSubscriptionSettlement(ctx context.Context, rec *models.Settlement, sub *models.Subscription) error {
	head, err := s.getActiveHead(ctx, sub.UserId)
	if err != nil {
		return err
	}
	if head != nil {
		rec.SupersededIds = []string{head.SubscriptionID}
	}

	b, err := s.settlementWrites(rec)
	if err != nil {
		return err
	}

	subAV, err := marshalMap(sub)
	if err != nil {
		return fmt.Errorf("failed to marshal subscription: %w", err)
	}
	b.add(types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(s.Tables.SubscriptionsTable),
			Item:                subAV,
			ConditionExpression: aws.String("attribute_not_exists(id)"),
		},
	}, storage.ErrAlreadySettled)

	newHead := map[string]types.AttributeValue{
		"id":              stringAV(activeSubPrefix + sub.UserId),
		"subscription_id": stringAV(sub.Id),
	}
	if head == nil {
		b.add(types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(s.Tables.SubscriptionsTable),
				Item:                newHead,
				ConditionExpression: aws.String("attribute_not_exists(id)"),
			},
		}, errSubscriptionChanged)
	} else {
		b.add(types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(s.Tables.SubscriptionsTable),
				Item:                newHead,
				ConditionExpression: aws.String("subscription_id = :previous"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":previous": stringAV(head.SubscriptionID),
				},
			},
		}, errSubscriptionChanged)
		b.add(types.TransactWriteItem{
			Update: &types.Update{
				TableName:           aws.String(s.Tables.SubscriptionsTable),
				Key:                 map[string]types.AttributeValue{"id": stringAV(head.SubscriptionID)},
				UpdateExpression:    aws.String("SET #status = :superseded, superseded_at = :now"),
				ConditionExpression: aws.String("#status = :active"),
				ExpressionAttributeNames: map[string]string{
					"#status": "status",
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":superseded": stringAV(string(models.SUPERSEDED)),
					":active":     stringAV(string(models.ACTIVE)),
					":now":        timeAV(rec.CreatedAt),
				},
			},
		}, errSubscriptionChanged)
	}

	return s.commit(ctx, b)
}

// CreditEarningSettlement inserts the payment transaction and the merchant earning and
// adds the earning to the merchant balance, together with the settlement record.
func (s *Store) CreditEarningSettlement(ctx context.Context, rec *models.Settlement, tx *models.PaymentTransaction, earning *models.MerchantEarning) error {
	b, err := s.settlementWrites(rec)
	if err != nil {
		return err
	}

	txAV, err := marshalMap(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal payment transaction: %w", err)
	}
	earningAV, err := marshalMap(earning)
	if err != nil {
		return fmt.Errorf("failed to marshal merchant earning: %w", err)
	}

	b.add(types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(s.Tables.PaymentTransactionsTable),
			Item:                txAV,
			ConditionExpression: aws.String("attribute_not_exists(id)"),
		},
	}, storage.ErrAlreadySettled)
	b.add(types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(s.Tables.EarningsTable),
			Item:                earningAV,
			ConditionExpression: aws.String("attribute_not_exists(id)"),
		},
	}, storage.ErrAlreadySettled)
	b.add(types.TransactWriteItem{
		Update: &types.Update{
			TableName:        aws.String(s.Tables.BalancesTable),
			Key:              map[string]types.AttributeValue{"merchant_id": stringAV(earning.MerchantId)},
			UpdateExpression: aws.String("SET updated_at = :now ADD available :amount"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":amount": &types.AttributeValueMemberN{Value: earning.Amount.String()},
				":now":    timeAV(rec.CreatedAt),
			},
		},
	}, nil)

	return s.commit(ctx, b)
}

// RecordRejection stores a rejected settlement and marks the pending order, if any, as failed verification.
func (s *Store) RecordRejection(ctx context.Context, rec *models.Settlement, orderID string) error {
	b, err := s.settlementWrites(rec)
	if err != nil {
		return err
	}

	if orderID != "" {
		b.add(s.failOrderItem(orderID, rec.Error, rec.CreatedAt), storage.ErrOrderNotPending)
	}

	return s.commit(ctx, b)
}
