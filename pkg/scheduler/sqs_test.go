package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSQS struct {
	mock.Mock
}

func (m *mockSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*sqs.SendMessageOutput)
	return out, args.Error(1)
}

func TestScheduleRetry(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client := new(mockSQS)
		var body string
		client.On("SendMessage", mock.Anything, mock.MatchedBy(func(in *sqs.SendMessageInput) bool {
			body = *in.MessageBody
			return *in.QueueUrl == "https://sqs.local/retries"
		})).Return(&sqs.SendMessageOutput{}, nil)

		s := NewSQSScheduler(client, "https://sqs.local/retries")
		err := s.ScheduleRetry(context.Background(), RetryMessage{PaymentID: "pay-1", TxID: "tx-1", Reason: "recording_failed"})

		require.NoError(t, err)
		msg, err := ParseRetryMessage(body)
		require.NoError(t, err)
		assert.Equal(t, "pay-1", msg.PaymentID)
		assert.Equal(t, "tx-1", msg.TxID)
		assert.False(t, msg.EnqueuedAt.IsZero())
		client.AssertExpectations(t)
	})

	t.Run("Send Fails", func(t *testing.T) {
		client := new(mockSQS)
		client.On("SendMessage", mock.Anything, mock.Anything).Return(nil, errors.New("queue unavailable"))

		err := NewSQSScheduler(client, "q").ScheduleRetry(context.Background(), RetryMessage{PaymentID: "pay-1"})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to send message to SQS")
	})
}

func TestParseRetryMessage(t *testing.T) {
	_, err := ParseRetryMessage(`{"txid":"tx-1"}`)
	assert.Error(t, err)

	_, err = ParseRetryMessage(`not json`)
	assert.Error(t, err)

	msg, err := ParseRetryMessage(`{"payment_id":"pay-1","reason":"stale_order"}`)
	require.NoError(t, err)
	assert.Equal(t, "stale_order", msg.Reason)
	assert.Empty(t, msg.TxID)
}
