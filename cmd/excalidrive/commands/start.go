package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/excalidrive/excalidrive/internal/logger"
	"github.com/excalidrive/excalidrive/pkg/api"
	"github.com/excalidrive/excalidrive/pkg/api/auth"
	"github.com/excalidrive/excalidrive/pkg/blob"
	"github.com/excalidrive/excalidrive/pkg/blob/fs"
	"github.com/excalidrive/excalidrive/pkg/blob/s3"
	"github.com/excalidrive/excalidrive/pkg/config"
	"github.com/excalidrive/excalidrive/pkg/drive"
	"github.com/excalidrive/excalidrive/pkg/drive/store"
	"github.com/excalidrive/excalidrive/pkg/metrics"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the excalidrive server",
	Long: `Start the excalidrive server with the specified configuration.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/excalidrive/config.yaml.

Examples:
  # Start with default config location
  excalidrive start

  # Start with custom config file
  excalidrive start --config /etc/excalidrive/config.yaml

  # Start with environment variable overrides
  EXCALIDRIVE_LOGGING_LEVEL=DEBUG excalidrive start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))

	// Initialize metrics before creating components that record them
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Metrics enabled", "endpoint", "/metrics")
	} else {
		logger.Info("Metrics collection disabled")
	}

	metadataStore, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize metadata store: %w", err)
	}
	defer func() {
		if err := metadataStore.Close(); err != nil {
			logger.Error("metadata store close error", logger.KeyError, err)
		}
	}()
	logger.Info("Metadata store initialized", "type", cfg.Database.Type)

	blobStore, err := createBlobStore(ctx, &cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize blob storage: %w", err)
	}
	defer func() {
		if err := blobStore.Close(); err != nil {
			logger.Error("blob store close error", logger.KeyError, err)
		}
	}()
	logger.Info("Blob storage initialized", "provider", blobStore.Provider())

	authService, err := auth.NewService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize auth service: %w", err)
	}

	coordinator := drive.NewCoordinator(metadataStore, blobStore, metrics.NewDriveMetrics())

	apiServer := api.NewServer(cfg.Server, coordinator, authService)
	logger.Info("API server configured", "port", apiServer.Port())

	// Start server in background
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- apiServer.Start(ctx)
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer stopCancel()
		if err := apiServer.Stop(stopCtx); err != nil {
			logger.Error("Server shutdown error", logger.KeyError, err)
			return err
		}
		<-serverDone
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", logger.KeyError, err)
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}

// createBlobStore builds the configured blob backend.
func createBlobStore(ctx context.Context, cfg *config.StorageConfig) (blob.Adapter, error) {
	switch cfg.Provider {
	case config.StorageProviderLocal:
		return fs.NewWithPath(cfg.Local.BasePath)
	case config.StorageProviderS3:
		return s3.New(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Provider)
	}
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
