// Command whitelist-api runs the whitelist Merkle tree service's HTTP API
// process: it loads configuration, wires the object store, KV tables,
// orchestrator, and read path, and serves the routes in spec §6 until
// terminated.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apphttp "github.com/chainsafe/whitelist-merkle-service/pkg/app/http"
	"github.com/chainsafe/whitelist-merkle-service/pkg/auth"
	"github.com/chainsafe/whitelist-merkle-service/pkg/config"
	"github.com/chainsafe/whitelist-merkle-service/pkg/httpapi"
	"github.com/chainsafe/whitelist-merkle-service/pkg/kvstore"
	"github.com/chainsafe/whitelist-merkle-service/pkg/objectstore"
	"github.com/chainsafe/whitelist-merkle-service/pkg/whitelist"
)

func main() {
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

	logger.Info("Starting whitelist Merkle tree service",
		zap.String("bucket", cfg.Store.BucketName),
		zap.String("rootsTable", cfg.Store.RootsTableName),
		zap.String("proofsTable", cfg.Store.ProofsTableName),
	)

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
	readPath := whitelist.NewReadPath(rootsTable, proofsTable)

	jwtValidator := auth.NewJWTValidator(cfg.JWT.JWKSURL, cfg.JWT.Issuer)

	handlers := httpapi.New(orchestrator, readPath, logger)
	router := httpapi.NewRouter(handlers, jwtValidator, cfg.Groups, logger)
	router.Handle("/metrics", promhttp.Handler())

	if err := apphttp.ServeAndWait(ctx, router, logger, &cfg.Server); err != nil {
		logger.Fatal("HTTP server exited with error", zap.Error(err))
	}

	logger.Info("Whitelist Merkle tree service stopped")
}
