// Package app assembles the settlement service from configuration. Every binary
// under cmd/ builds its dependencies here.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/chris/pi-settlement/pkg/config"
	"github.com/chris/pi-settlement/pkg/ledger"
	"github.com/chris/pi-settlement/pkg/platform"
	"github.com/chris/pi-settlement/pkg/scheduler"
	"github.com/chris/pi-settlement/pkg/settlement"
	"github.com/chris/pi-settlement/pkg/storage"
	dydbstore "github.com/chris/pi-settlement/pkg/storage/dynamodb"
	"github.com/chris/pi-settlement/pkg/storage/memory"
	"github.com/chris/pi-settlement/pkg/verifier"
	"github.com/chris/pi-settlement/pkg/websockets"
	"github.com/shopspring/decimal"
)

const (
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
)

// Components holds the wired dependencies of the service.
type Components struct {
	Config    config.Config
	Logger    *slog.Logger
	Store     storage.Storage
	Scheduler scheduler.RetryScheduler
	Publisher websockets.Publisher

	// Hub is set when notifications are served in-process instead of through API Gateway.
	Hub *websockets.Hub

	Orchestrator *settlement.Orchestrator
}

// Build wires storage, the retry queue, notifications and the settlement orchestrator.
// AWS configuration is only loaded when a component needs it.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Components, error) {
	c := &Components{Config: cfg, Logger: logger}

	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		loaded, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return aws.Config{}, fmt.Errorf("unable to load SDK config: %w", err)
		}
		awsCfg = &loaded
		return loaded, nil
	}

	switch strings.ToLower(cfg.StorageBackend) {
	case BackendDynamoDB:
		if err := cfg.DynamoDB.Validate(); err != nil {
			return nil, err
		}
		sdk, err := loadAWS()
		if err != nil {
			return nil, err
		}
		c.Store = dydbstore.New(dynamodb.NewFromConfig(sdk), cfg.DynamoDB)
	case BackendMemory:
		logger.Warn("using in-memory storage; settlements are lost on restart")
		c.Store = memory.New()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	if cfg.Queue.URL != "" {
		sdk, err := loadAWS()
		if err != nil {
			return nil, err
		}
		c.Scheduler = scheduler.NewSQSScheduler(sqs.NewFromConfig(sdk), cfg.Queue.URL)
	} else {
		logger.Warn("no retry queue configured; failed recordings must be recovered manually")
		c.Scheduler = scheduler.NoOpScheduler{}
	}

	if cfg.WebSocket.APIEndpoint != "" {
		sdk, err := loadAWS()
		if err != nil {
			return nil, err
		}
		c.Publisher = websockets.NewPublisher(sdk, c.Store, cfg.WebSocket.APIEndpoint, logger)
	} else {
		c.Hub = websockets.NewHub(logger)
		c.Publisher = c.Hub
	}

	orch, err := NewOrchestrator(cfg, c.Store, c.Scheduler, c.Publisher, logger)
	if err != nil {
		return nil, err
	}
	c.Orchestrator = orch
	return c, nil
}

// NewOrchestrator builds the platform and ledger clients and the orchestrator around them.
func NewOrchestrator(cfg config.Config, store storage.ApiStore, retries scheduler.RetryScheduler,
	publisher websockets.Publisher, logger *slog.Logger) (*settlement.Orchestrator, error) {
	if cfg.Platform.APIKey == "" {
		logger.Warn("platform API key is not set; completion calls will be rejected")
	}

	var tolerance *decimal.Decimal
	if cfg.Settlement.AmountTolerance != "" {
		parsed, err := decimal.NewFromString(cfg.Settlement.AmountTolerance)
		if err != nil {
			return nil, fmt.Errorf("invalid amount tolerance %q: %w", cfg.Settlement.AmountTolerance, err)
		}
		if parsed.IsNegative() {
			return nil, fmt.Errorf("amount tolerance %s must not be negative", parsed)
		}
		tolerance = &parsed
	}

	ledgerClient := ledger.NewClient(cfg.Ledger)
	v := verifier.New(ledgerClient, tolerance, logger)

	return settlement.New(cfg.Settlement, platform.NewClient(cfg.Platform), v, store, retries, publisher, logger)
}
