package dynamodb

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/pi-settlement/pkg/storage/dynamodb/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestConnections(t *testing.T) {
	t.Run("Add", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)
		mockClient.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
			ttl, ok := in.Item["expires_at"].(*types.AttributeValueMemberN)
			return *in.TableName == "connections" && in.Item["pk"].(*types.AttributeValueMemberS).Value == "connections" &&
				ok && ttl.Value != ""
		})).Return(&dynamodb.PutItemOutput{}, nil)

		assert.NoError(t, store.AddConnection(context.Background(), "conn-1"))
		mockClient.AssertExpectations(t)
	})

	t.Run("Remove Fails", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)
		mockClient.On("DeleteItem", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

		err := store.RemoveConnection(context.Background(), "conn-1")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to delete item")
		mockClient.AssertExpectations(t)
	})

	t.Run("List", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)
		mockClient.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
			{"connection_id": &types.AttributeValueMemberS{Value: "conn-1"}},
			{"connection_id": &types.AttributeValueMemberS{Value: "conn-2"}},
		}}, nil)

		ids, err := store.GetAllConnections(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"conn-1", "conn-2"}, ids)
		mockClient.AssertExpectations(t)
	})

	t.Run("List Follows Pages", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)
		lastKey := map[string]types.AttributeValue{"connection_id": &types.AttributeValueMemberS{Value: "conn-1"}}
		mockClient.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
			return in.ExclusiveStartKey == nil
		})).Return(&dynamodb.QueryOutput{
			Items:            []map[string]types.AttributeValue{{"connection_id": &types.AttributeValueMemberS{Value: "conn-1"}}},
			LastEvaluatedKey: lastKey,
		}, nil).Once()
		mockClient.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
			return in.ExclusiveStartKey != nil
		})).Return(&dynamodb.QueryOutput{
			Items: []map[string]types.AttributeValue{{"connection_id": &types.AttributeValueMemberS{Value: "conn-2"}}},
		}, nil).Once()

		ids, err := store.GetAllConnections(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"conn-1", "conn-2"}, ids)
		mockClient.AssertExpectations(t)
	})
}
