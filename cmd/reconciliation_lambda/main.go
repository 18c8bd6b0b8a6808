package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/chris/pi-settlement/pkg/app"
	"github.com/chris/pi-settlement/pkg/config"
	"github.com/chris/pi-settlement/pkg/logging"
	"github.com/chris/pi-settlement/pkg/models"
	"github.com/chris/pi-settlement/pkg/scheduler"
)

// StaleOrderReader lists pending orders whose payment never settled.
type StaleOrderReader interface {
	GetStalePendingOrders(ctx context.Context, maxAge time.Duration) ([]models.Order, error)
}

// Reconciler re-enqueues settlement for orders stuck in pending.
type Reconciler struct {
	Orders     StaleOrderReader
	Scheduler  scheduler.RetryScheduler
	StaleAfter time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

// HandleRequest is triggered by an EventBridge Schedule.
func (r *Reconciler) HandleRequest(ctx context.Context) error {
	r.Logger.Info("starting reconciliation of stale pending orders", "stale_after", r.StaleAfter)

	orders, err := r.Orders.GetStalePendingOrders(ctx, r.StaleAfter)
	if err != nil {
		r.Logger.Error("failed to get stale pending orders", "error", err)
		return err
	}
	if len(orders) == 0 {
		r.Logger.Info("no stale pending orders found")
		return nil
	}

	enqueued := 0
	for _, order := range orders {
		if order.PiPaymentId == "" {
			continue
		}
		// Without a txid the worker recovers it from the platform.
		msg := scheduler.RetryMessage{
			PaymentID:  order.PiPaymentId,
			Reason:     "stale_pending_order",
			EnqueuedAt: r.Now(),
		}
		if err := r.Scheduler.ScheduleRetry(ctx, msg); err != nil {
			// One failure must not stop the batch.
			r.Logger.Error("failed to enqueue recovery", "order_id", order.Id, "payment_id", order.PiPaymentId, "error", err)
			continue
		}
		enqueued++
	}

	r.Logger.Info("reconciliation finished", "found", len(orders), "enqueued", enqueued)
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(config.LoggingConfig{Level: "error"}).Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging)

	components, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to build service", "error", err)
		os.Exit(1)
	}

	reconciler := &Reconciler{
		Orders:     components.Store,
		Scheduler:  components.Scheduler,
		StaleAfter: cfg.Settlement.StaleAfter,
		Logger:     logger,
		Now:        time.Now,
	}
	lambda.Start(reconciler.HandleRequest)
}
