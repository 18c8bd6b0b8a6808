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
	"github.com/shopspring/decimal"
)

// GetStore retrieves a store from DynamoDB by its ID.
func (s *Store) GetStore(ctx context.Context, storeID string) (*models.Store, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.Tables.StoresTable),
		Key:       map[string]types.AttributeValue{"id": stringAV(storeID)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get store from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, storage.ErrNotFound
	}

	var store models.Store
	if err := unmarshalMap(result.Item, &store); err != nil {
		return nil, fmt.Errorf("failed to unmarshal store: %w", err)
	}
	return &store, nil
}

// GetMerchantBalance reads the merchant's balance. The available amount is a DynamoDB number
// maintained with ADD, so it is parsed directly rather than through the text decoder.
func (s *Store) GetMerchantBalance(ctx context.Context, merchantID string) (*models.MerchantBalance, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.Tables.BalancesTable),
		Key:            map[string]types.AttributeValue{"merchant_id": stringAV(merchantID)},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant balance from DynamoDB: %w", err)
	}

	balance := &models.MerchantBalance{MerchantId: merchantID, Available: decimal.Zero}
	if result.Item == nil {
		return balance, nil
	}

	if n, ok := result.Item["available"].(*types.AttributeValueMemberN); ok {
		available, err := decimal.NewFromString(n.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to parse merchant balance: %w", err)
		}
		balance.Available = available
	}
	if ts, ok := result.Item["updated_at"].(*types.AttributeValueMemberS); ok {
		if updatedAt, err := time.Parse(time.RFC3339Nano, ts.Value); err == nil {
			balance.UpdatedAt = updatedAt
		}
	}
	return balance, nil
}

// ListEarnings returns the earnings credited to a merchant.
func (s *Store) ListEarnings(ctx context.Context, merchantID string) ([]models.MerchantEarning, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.Tables.EarningsTable),
		IndexName:              aws.String(merchantIDIndex),
		KeyConditionExpression: aws.String("merchant_id = :merchant_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":merchant_id": stringAV(merchantID),
		},
	}

	var earnings []models.MerchantEarning
	for {
		result, err := s.Client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query merchant earnings: %w", err)
		}

		var page []models.MerchantEarning
		if err := unmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal merchant earnings: %w", err)
		}
		earnings = append(earnings, page...)

		if len(result.LastEvaluatedKey) == 0 {
			return earnings, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}
