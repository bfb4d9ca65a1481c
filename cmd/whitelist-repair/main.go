// Command whitelist-repair is the operator tool named in spec §9: it forces
// a whitelist's root row out of a stuck CREATING or DELETING state into
// FAILED, unblocking a subsequent DeleteTree call after a crashed process
// left the state machine mid-transition.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/chainsafe/whitelist-merkle-service/pkg/config"
	"github.com/chainsafe/whitelist-merkle-service/pkg/kvstore"
	"github.com/chainsafe/whitelist-merkle-service/pkg/objectstore"
	"github.com/chainsafe/whitelist-merkle-service/pkg/whitelist"
)

func main() {
	whitelistName := flag.String("whitelist-name", "", "whitelist name whose stuck root row should be forced to FAILED")
	flag.Parse()

	if *whitelistName == "" {
		fmt.Fprintln(os.Stderr, "usage: whitelist-repair -whitelist-name <name>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		logger.Fatal("Failed to load AWS config", zap.Error(err))
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.AWS.S3Endpoint != "" {
			o.BaseEndpoint = &cfg.AWS.S3Endpoint
			o.UsePathStyle = true
		}
	})
	dynamoClient := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.AWS.DynamoDBEndpoint != "" {
			o.BaseEndpoint = &cfg.AWS.DynamoDBEndpoint
		}
	})

	objectStore := objectstore.NewS3Store(s3Client)
	rootsTable := kvstore.NewDynamoRootsTable(dynamoClient, cfg.Store.RootsTableName)
	proofsTable := kvstore.NewDynamoProofsTable(dynamoClient, cfg.Store.ProofsTableName)

	orchestrator := whitelist.NewOrchestrator(objectStore, rootsTable, proofsTable, cfg.Store.BucketName, logger)

	if err := orchestrator.ForceFailed(ctx, *whitelistName); err != nil {
		logger.Error("Failed to force root row to FAILED", zap.String("whitelistName", *whitelistName), zap.Error(err))
		os.Exit(1)
	}

	logger.Info("Root row forced to FAILED", zap.String("whitelistName", *whitelistName))
}
