package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/pi-settlement/pkg/models"
	"github.com/chris/pi-settlement/pkg/storage"
)

// GetOrder retrieves an order from DynamoDB by its ID.
func (s *Store) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.Tables.OrdersTable),
		Key:            map[string]types.AttributeValue{"id": stringAV(orderID)},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get order from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, storage.ErrNotFound
	}

	var order models.Order
	if err := unmarshalMap(result.Item, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	return &order, nil
}

// AttachPayment records the payment id on a pending order.
func (s *Store) AttachPayment(ctx context.Context, orderID, paymentID string) error {
	_, err := s.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.Tables.OrdersTable),
		Key:                 map[string]types.AttributeValue{"id": stringAV(orderID)},
		UpdateExpression:    aws.String("SET pi_payment_id = :payment_id, updated_at = :now"),
		ConditionExpression: aws.String("#status = :pending"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":payment_id": stringAV(paymentID),
			":pending":    stringAV(string(models.PENDING)),
			":now":        timeAV(time.Now()),
		},
	})
	if err != nil {
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			return storage.ErrOrderNotPending
		}
		return fmt.Errorf("failed to attach payment to order: %w", err)
	}
	return nil
}

// MarkOrderPaid flips a pending order to paid and claims txid for it in one write.
func (s *Store) MarkOrderPaid(ctx context.Context, orderID, txid string) error {
	now := time.Now()
	b := &writeBatch{}
	b.add(types.TransactWriteItem{
		Update: &types.Update{
			TableName:           aws.String(s.Tables.OrdersTable),
			Key:                 map[string]types.AttributeValue{"id": stringAV(orderID)},
			UpdateExpression:    aws.String("SET #status = :paid, pi_txid = :txid, updated_at = :now"),
			ConditionExpression: aws.String("#status = :pending"),
			ExpressionAttributeNames: map[string]string{
				"#status": "status",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":paid":    stringAV(string(models.PAID)),
				":pending": stringAV(string(models.PENDING)),
				":txid":    stringAV(txid),
				":now":     timeAV(now),
			},
		},
	}, storage.ErrOrderNotPending)
	b.add(s.claimItem(txid, orderID, now), storage.ErrTxAlreadyClaimed)

	return s.commit(ctx, b)
}

// MarkOrderVerificationFailed flips a pending order to verification_failed.
func (s *Store) MarkOrderVerificationFailed(ctx context.Context, orderID, reason string) error {
	item := s.failOrderItem(orderID, reason, time.Now()).Update
	_, err := s.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 item.TableName,
		Key:                       item.Key,
		UpdateExpression:          item.UpdateExpression,
		ConditionExpression:       item.ConditionExpression,
		ExpressionAttributeNames:  item.ExpressionAttributeNames,
		ExpressionAttributeValues: item.ExpressionAttributeValues,
	})
	if err != nil {
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			return storage.ErrOrderNotPending
		}
		return fmt.Errorf("failed to mark order verification failed: %w", err)
	}
	return nil
}

func (s *Store) failOrderItem(orderID, reason string, at time.Time) types.TransactWriteItem {
	return types.TransactWriteItem{
		Update: &types.Update{
			TableName:           aws.String(s.Tables.OrdersTable),
			Key:                 map[string]types.AttributeValue{"id": stringAV(orderID)},
			UpdateExpression:    aws.String("SET #status = :failed, failure_reason = :reason, updated_at = :now"),
			ConditionExpression: aws.String("#status = :pending"),
			ExpressionAttributeNames: map[string]string{
				"#status": "status",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":failed":  stringAV(string(models.VERIFICATION_FAILED)),
				":pending": stringAV(string(models.PENDING)),
				":reason":  stringAV(reason),
				":now":     timeAV(at),
			},
		},
	}
}

// GetStalePendingOrders retrieves pending orders with an attached payment created before now minus maxAge.
func (s *Store) GetStalePendingOrders(ctx context.Context, maxAge time.Duration) ([]models.Order, error) {
	cutoff := time.Now().Add(-maxAge)

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.Tables.OrdersTable),
		IndexName:              aws.String(pendingOrdersGSI),
		KeyConditionExpression: aws.String("#status = :status AND created_at < :cutoff"),
		FilterExpression:       aws.String("attribute_exists(pi_payment_id)"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": stringAV(string(models.PENDING)),
			":cutoff": timeAV(cutoff),
		},
	}

	var orders []models.Order
	for {
		result, err := s.Client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query for stale orders: %w", err)
		}

		var page []models.Order
		if err := unmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stale orders: %w", err)
		}
		orders = append(orders, page...)

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return orders, nil
}
