package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQSAPI is the subset of the SQS client used by SQSScheduler.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSScheduler implements the RetryScheduler interface using AWS SQS.
type SQSScheduler struct {
	Client   SQSAPI
	QueueURL string
}

// NewSQSScheduler creates a new SQSScheduler.
func NewSQSScheduler(client SQSAPI, queueURL string) *SQSScheduler {
	return &SQSScheduler{
		Client:   client,
		QueueURL: queueURL,
	}
}

// Make sure we conform to the interface
var _ RetryScheduler = (*SQSScheduler)(nil)

// ScheduleRetry sends the retry message to an SQS queue for later processing.
func (s *SQSScheduler) ScheduleRetry(ctx context.Context, msg RetryMessage) error {
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = time.Now().UTC()
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal retry message for SQS: %w", err)
	}

	_, err = s.Client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.QueueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"payment_id": {DataType: aws.String("String"), StringValue: aws.String(msg.PaymentID)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send message to SQS: %w", err)
	}

	return nil
}

// ParseRetryMessage decodes a message body produced by ScheduleRetry.
func ParseRetryMessage(body string) (RetryMessage, error) {
	var msg RetryMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return RetryMessage{}, fmt.Errorf("failed to unmarshal retry message: %w", err)
	}
	if msg.PaymentID == "" {
		return RetryMessage{}, fmt.Errorf("retry message has no payment_id")
	}
	return msg, nil
}
