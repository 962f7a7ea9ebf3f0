package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/adapters/smtpingest"
	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/di"
	"github.com/mailsift/mailsift/internal/factory"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	listener *smtpingest.Server,
	completions core.CompletionClient,
	cacheRepo core.CacheRepository,
	stores *factory.Stores,
) error {
	defer logger.Sync()

	// Start the ingestion listener
	if err := listener.Start(); err != nil {
		logger.Fatal("Failed to start SMTP listener", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	if err := listener.Stop(); err != nil {
		logger.Error("Failed to stop SMTP listener", zap.Error(err))
	}

	// Close any resources that need closing
	if closer, ok := completions.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close completion client", zap.Error(err))
		}
	}
	if stopper, ok := cacheRepo.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := stores.Close(ctx); err != nil {
		logger.Error("Failed to disconnect store", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}
