// Package main provides the API server entry point for the document store.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docustore/internal/adapter"
	"github.com/docustore/internal/api"
	"github.com/docustore/internal/config"
	"github.com/docustore/internal/docstore"
	"github.com/docustore/internal/logging"
	"github.com/docustore/internal/service"
	"github.com/docustore/internal/session"
	"github.com/docustore/internal/storage"
	"github.com/docustore/internal/types"
)

func main() {
	fmt.Println("DocuStore API Server")
	log.Println("Server starting...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":   cfg.Logging.Level,
		"format":  cfg.Logging.Format,
		"backend": cfg.Chain.Backend,
	}).Info("Structured logging initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to Redis for sessions
	redis, err := storage.NewRedisCache(ctx, &cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	sessions := session.NewManager(redis, cfg.Session.TTL)

	// Initialize the contract backend
	client, node, closeBackend, err := newContractClient(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize contract backend")
	}
	defer closeBackend()

	store := docstore.New(client, docstore.Config{
		Contract:     cfg.Chain.ContractAddress,
		FeePolicy:    cfg.Chain.FeePolicy,
		PageSize:     cfg.Documents.PageSize,
		MaxDocuments: cfg.Documents.MaxDocuments,
	})

	pages := &service.Deps{
		Store:         store,
		Notifications: service.NewNotifications(cfg.Session.NotificationTTL, time.Now),
		Logger:        logger,
	}

	// Create server configuration
	serverConfig := &api.ServerConfig{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Chain.TxConfirmTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		Backend:           string(cfg.Chain.Backend),
		Contract:          cfg.Chain.ContractAddress,
	}

	var nodeStatus api.NodeStatusProvider
	if node != nil {
		nodeStatus = node
	}
	server := api.NewServer(serverConfig, sessions, pages, nodeStatus, logger)
	go server.RunJanitor(ctx, time.Minute)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host":     cfg.Server.Host,
		"port":     cfg.Server.Port,
		"contract": cfg.Chain.ContractAddress,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

// newContractClient wires the configured backend. node is nil unless the
// backend is a real chain with an RPC endpoint.
func newContractClient(ctx context.Context, cfg *config.Config, logger *logging.Logger) (adapter.ContractClient, *adapter.NodeClient, func(), error) {
	switch cfg.Chain.Backend {
	case types.BackendChain:
		rest, err := adapter.NewWasmRESTClient(&adapter.WasmRESTClientConfig{
			BaseURL:        cfg.Chain.RESTEndpoint,
			Timeout:        cfg.Chain.QueryTimeout,
			RequestsPerSec: cfg.Chain.QueryRPS,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		signer, err := adapter.NewSignerClient(&adapter.SignerClientConfig{
			Endpoint:       cfg.Chain.SignerEndpoint,
			Lookup:         rest,
			ConfirmTimeout: cfg.Chain.TxConfirmTimeout,
			PollInterval:   cfg.Chain.TxPollInterval,
		})
		if err != nil {
			return nil, nil, nil, err
		}

		closeFn := func() {}
		var node *adapter.NodeClient
		if cfg.Chain.RPCEndpoint != "" {
			node, err = adapter.NewNodeClientFromURLs(cfg.Chain.RPCEndpoint)
			if err != nil {
				return nil, nil, nil, err
			}
			closeFn = node.Close
		}

		logger.WithFields(map[string]interface{}{
			"rest":   cfg.Chain.RESTEndpoint,
			"signer": cfg.Chain.SignerEndpoint,
		}).Info("Chain contract client initialized")
		return &adapter.SplitClient{ContractQuerier: rest, ContractExecutor: signer}, node, closeFn, nil

	case types.BackendPostgres:
		db, err := storage.NewPostgresDB(ctx, &cfg.Database.Postgres)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := storage.RunMigrations(cfg.Database.Postgres.URL(), storage.DefaultMigrationsPath); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		logger.Info("Emulated contract backed by Postgres")
		contract := adapter.NewEmulatedContract(cfg.Chain.ContractAddress, storage.NewDocumentRepository(db))
		return contract, nil, db.Close, nil

	default:
		logger.Warn("Emulated contract backed by memory; documents are lost on restart")
		contract := adapter.NewEmulatedContract(cfg.Chain.ContractAddress, storage.NewMemoryDocumentStore())
		return contract, nil, func() {}, nil
	}
}
