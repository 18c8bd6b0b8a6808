package dynamodb

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	connectionsPartition = "connections"

	// API Gateway closes websocket connections after two hours.
	connectionLifetime = 2 * time.Hour
)

// subscriberConnection is a settlement notification subscriber. ExpiresAt is the
// table's TTL attribute, in epoch seconds.
type subscriberConnection struct {
	ConnectionID string    `dynamodbav:"connection_id"`
	PK           string    `dynamodbav:"pk"`
	ConnectedAt  time.Time `dynamodbav:"connected_at"`
	ExpiresAt    int64     `dynamodbav:"expires_at"`
}

// AddConnection registers a subscriber for settlement notifications.
func (s *Store) AddConnection(ctx context.Context, connectionID string) error {
	now := time.Now().UTC()
	item, err := marshalMap(subscriberConnection{
		ConnectionID: connectionID,
		PK:           connectionsPartition,
		ConnectedAt:  now,
		ExpiresAt:    now.Add(connectionLifetime).Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal connection: %w", err)
	}

	if _, err := s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.Tables.ConnectionsTable),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("failed to put item: %w", err)
	}
	return nil
}

// RemoveConnection unregisters a subscriber. Removing an unknown connection is not an error.
func (s *Store) RemoveConnection(ctx context.Context, connectionID string) error {
	if _, err := s.Client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.Tables.ConnectionsTable),
		Key:       map[string]types.AttributeValue{"connection_id": stringAV(connectionID)},
	}); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

// GetAllConnections lists subscribers that have not yet expired. TTL deletion lags, so
// expired rows are filtered here as well.
func (s *Store) GetAllConnections(ctx context.Context) ([]string, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.Tables.ConnectionsTable),
		IndexName:              aws.String(connectionsPKIndex),
		KeyConditionExpression: aws.String("pk = :pk"),
		FilterExpression:       aws.String("expires_at > :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":  stringAV(connectionsPartition),
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(time.Now().Unix(), 10)},
		},
		ProjectionExpression: aws.String("connection_id"),
	}

	var ids []string
	for {
		out, err := s.Client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query connections table: %w", err)
		}

		var page []subscriberConnection
		if err := unmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal connections: %w", err)
		}
		for _, c := range page {
			ids = append(ids, c.ConnectionID)
		}

		if len(out.LastEvaluatedKey) == 0 {
			return ids, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}
