package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/chris/pi-settlement/pkg/app"
	"github.com/chris/pi-settlement/pkg/config"
	"github.com/chris/pi-settlement/pkg/logging"
	"github.com/chris/pi-settlement/pkg/models"
	"github.com/chris/pi-settlement/pkg/scheduler"
	"github.com/chris/pi-settlement/pkg/settlement"
)

// Settler is the part of the orchestrator the worker drives. Retries carry no payer
// token, so they go through the service's own entry points.
type Settler interface {
	SettleRetry(ctx context.Context, paymentID, txid string) (*models.Settlement, error)
	Recover(ctx context.Context, paymentID string) (*models.Settlement, error)
}

// Worker settles payments from retry messages.
type Worker struct {
	Settler Settler
	Logger  *slog.Logger
}

// HandleRequest processes a batch of retry messages. Messages that may succeed later are
// reported as batch item failures so SQS redelivers only those.
func (w *Worker) HandleRequest(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, message := range sqsEvent.Records {
		if err := w.process(ctx, message); err != nil {
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: message.MessageId})
		}
	}
	return resp, nil
}

func (w *Worker) process(ctx context.Context, message events.SQSMessage) error {
	logger := w.Logger.With("message_id", message.MessageId)

	msg, err := scheduler.ParseRetryMessage(message.Body)
	if err != nil {
		// A malformed message never becomes valid; drop it.
		logger.Error("CRITICAL: dropping unreadable retry message", "error", err)
		return nil
	}
	logger = logger.With("payment_id", msg.PaymentID, "txid", msg.TxID, "reason", msg.Reason)

	var rec *models.Settlement
	if msg.TxID == "" {
		rec, err = w.Settler.Recover(ctx, msg.PaymentID)
	} else {
		rec, err = w.Settler.SettleRetry(ctx, msg.PaymentID, msg.TxID)
	}
	if err == nil {
		logger.Info("settlement retry succeeded", "status", rec.Status)
		return nil
	}

	var sErr *settlement.Error
	if errors.As(err, &sErr) && !sErr.Retryable() {
		logger.Warn("settlement retry ended without settling", "kind", sErr.Kind, "error", err)
		return nil
	}
	logger.Error("settlement retry failed; will be redelivered", "error", err)
	return err
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(config.LoggingConfig{Level: "error"}).Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging)

	// Retries triggered by the worker itself go back to the same queue.
	components, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to build service", "error", err)
		os.Exit(1)
	}

	worker := &Worker{Settler: components.Orchestrator, Logger: logger}
	lambda.Start(worker.HandleRequest)
}
