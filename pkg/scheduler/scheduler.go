package scheduler

import (
	"context"
	"time"
)

// RetryMessage asks a settlement worker to settle a payment again. An empty TxID
// means the txid must be recovered from the platform.
type RetryMessage struct {
	PaymentID  string    `json:"payment_id"`
	TxID       string    `json:"txid,omitempty"`
	Reason     string    `json:"reason"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// RetryScheduler defines the interface for a component that schedules a settlement for later processing.
type RetryScheduler interface {
	// ScheduleRetry enqueues a settlement retry for asynchronous processing.
	ScheduleRetry(ctx context.Context, msg RetryMessage) error
}

// NoOpScheduler drops every message. It is used when no queue is configured.
type NoOpScheduler struct{}

// ScheduleRetry does nothing.
func (NoOpScheduler) ScheduleRetry(ctx context.Context, msg RetryMessage) error {
	return nil
}
