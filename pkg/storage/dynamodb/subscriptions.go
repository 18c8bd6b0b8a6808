package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/pi-settlement/pkg/models"
	"github.com/chris/pi-settlement/pkg/storage"
)

// activeHead points at a user's single active subscription.
type activeHead struct {
	ID             string `dynamodbav:"id"`
	SubscriptionID string `dynamodbav:"subscription_id"`
}

func (s *Store) getActiveHead(ctx context.Context, userID string) (*activeHead, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.Tables.SubscriptionsTable),
		Key:            map[string]types.AttributeValue{"id": stringAV(activeSubPrefix + userID)},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get active subscription head: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var head activeHead
	if err := unmarshalMap(result.Item, &head); err != nil {
		return nil, fmt.Errorf("failed to unmarshal active subscription head: %w", err)
	}
	return &head, nil
}

// GetActiveSubscription returns the user's active subscription.
func (s *Store) GetActiveSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	head, err := s.getActiveHead(ctx, userID)
	if err != nil {
		return nil, err
	}
	if head == nil {
		return nil, storage.ErrNotFound
	}

	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.Tables.SubscriptionsTable),
		Key:            map[string]types.AttributeValue{"id": stringAV(head.SubscriptionID)},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, storage.ErrNotFound
	}

	var sub models.Subscription
	if err := unmarshalMap(result.Item, &sub); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subscription: %w", err)
	}
	return &sub, nil
}
