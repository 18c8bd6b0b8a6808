package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/pi-settlement/pkg/config"
	"github.com/chris/pi-settlement/pkg/storage"
)

// DynamoDBAPI is the subset of the DynamoDB client used by Store.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store implements the Storage interface using AWS DynamoDB.
type Store struct {
	Client DynamoDBAPI
	Tables config.DynamoDBConfig
}

// New creates a new Store.
func New(client DynamoDBAPI, tables config.DynamoDBConfig) *Store {
	return &Store{Client: client, Tables: tables}
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)

const (
	pendingOrdersGSI   = "status-created_at-index"
	merchantIDIndex    = "merchant_id-index"
	connectionsPKIndex = "pk-index"

	txClaimPrefix   = "TXID#"
	activeSubPrefix = "ACTIVE#"
	conditionFailed = "ConditionalCheckFailed"
)

// errSubscriptionChanged is returned when the user's active subscription changed between read and write.
var errSubscriptionChanged = errors.New("active subscription changed concurrently")

// timeLayout is fixed width so that string comparison on sort keys and range
// conditions orders timestamps chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Decimal amounts and timestamps are stored through their text encodings.
// Top-level "*_at" timestamps are rewritten to timeLayout.
func marshalMap(in any) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMapWithOptions(in, func(o *attributevalue.EncoderOptions) {
		o.UseEncodingMarshalers = true
	})
	if err != nil {
		return nil, err
	}
	for name, av := range item {
		sv, ok := av.(*types.AttributeValueMemberS)
		if !ok || !strings.HasSuffix(name, "_at") {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, sv.Value); err == nil {
			item[name] = timeAV(t)
		}
	}
	return item, nil
}

func unmarshalMap(item map[string]types.AttributeValue, out any) error {
	return attributevalue.UnmarshalMapWithOptions(item, out, func(o *attributevalue.DecoderOptions) {
		o.UseEncodingUnmarshalers = true
	})
}

func unmarshalListOfMaps(items []map[string]types.AttributeValue, out any) error {
	return attributevalue.UnmarshalListOfMapsWithOptions(items, out, func(o *attributevalue.DecoderOptions) {
		o.UseEncodingUnmarshalers = true
	})
}

func stringAV(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

func timeAV(t time.Time) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: t.UTC().Format(timeLayout)}
}

// writeBatch collects the items of one TransactWriteItems call together with the
// error each item's failed condition stands for.
type writeBatch struct {
	items    []types.TransactWriteItem
	failures []error
}

func (b *writeBatch) add(item types.TransactWriteItem, onConditionFailed error) {
	b.items = append(b.items, item)
	b.failures = append(b.failures, onConditionFailed)
}

// commit executes the batch atomically and translates a failed condition into its sentinel error.
func (s *Store) commit(ctx context.Context, b *writeBatch) error {
	_, err := s.Client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: b.items})
	if err == nil {
		return nil
	}

	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for i, reason := range tce.CancellationReasons {
			if reason.Code != nil && *reason.Code == conditionFailed && i < len(b.failures) && b.failures[i] != nil {
				return b.failures[i]
			}
		}
	}
	return fmt.Errorf("failed to execute settlement transaction: %w", err)
}
