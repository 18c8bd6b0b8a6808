package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/chris/pi-settlement/pkg/config"
	"github.com/chris/pi-settlement/pkg/handlers/websockets"
	"github.com/chris/pi-settlement/pkg/logging"
	dydbstore "github.com/chris/pi-settlement/pkg/storage/dynamodb"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(config.LoggingConfig{Level: "error"}).Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging)

	if cfg.DynamoDB.ConnectionsTable == "" {
		logger.Error("DYNAMODB_CONNECTIONS_TABLE is not set")
		os.Exit(1)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Error("unable to load SDK config", "error", err)
		os.Exit(1)
	}

	store := dydbstore.New(dynamodb.NewFromConfig(awsCfg), cfg.DynamoDB)
	handler := websockets.NewHandler(store, logger)
	lambda.Start(handler.Route)
}
