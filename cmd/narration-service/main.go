// main package for the narration-service
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/narration-service/internal/cache"
	"github.com/book-expert/narration-service/internal/clipstore"
	"github.com/book-expert/narration-service/internal/config"
	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/hotstore"
	"github.com/book-expert/narration-service/internal/manifest"
	"github.com/book-expert/narration-service/internal/objectstore"
	"github.com/book-expert/narration-service/internal/synth"
	"github.com/book-expert/narration-service/internal/worker"
	"github.com/nats-io/nats.go"
)

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "narration-service.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		// If bootstrap logger fails, we can only print to stderr
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	bootstrapLog.Info("Bootstrap logger created.")

	// 2. Load configuration using the central configurator
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	// 3. Initialize the final logger based on the loaded configuration
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runService(ctx, cfg, finalLog)
}

func runService(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to get JetStream context: %w", err)
	}

	durable, err := buildObjectStore(cfg, jetstreamContext)
	if err != nil {
		return err
	}

	hot, err := buildHotStore(cfg, jetstreamContext, log)
	if err != nil {
		return err
	}

	store, err := clipstore.Open(ctx, cfg.Database.Path, log)
	if err != nil {
		return fmt.Errorf("failed to open clip store: %w", err)
	}

	defer func() {
		closeErr := store.Close()
		if closeErr != nil {
			log.Error("Failed to close clip store: %v", closeErr)
		}
	}()

	synthesizer := synth.NewHTTPClient(
		cfg.Synthesis.BaseURL,
		cfg.Synthesis.APIKey,
		time.Duration(cfg.Synthesis.TimeoutSeconds)*time.Second,
	)

	tiered := cache.New(hot, durable, cfg.Cache.HotMaxPayloadBytes, log)
	ensurer := clipstore.NewEnsurer(store, tiered, synthesizer, log)
	resolver := manifest.NewResolver(store, store, log)

	natsWorker, err := worker.NewNatsWorker(
		natsConnection,
		cfg.NATS.NarrationRequestSubject,
		cfg.NATS.ManifestRequestSubject,
		store,
		ensurer,
		resolver,
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	log.System("Narration service initialized. Listening on subjects: %s, %s",
		cfg.NATS.NarrationRequestSubject, cfg.NATS.ManifestRequestSubject)

	runErr := natsWorker.Run(ctx)
	if runErr != nil {
		return fmt.Errorf("worker stopped: %w", runErr)
	}

	return nil
}

func buildObjectStore(cfg *config.Config, jetstreamContext nats.JetStreamContext) (core.ObjectStore, error) {
	if cfg.Storage.Mode == config.StorageModeZone {
		return objectstore.NewZoneClient(
			cfg.Storage.ZoneBaseURL,
			cfg.Storage.ZonePublicBaseURL,
			cfg.Storage.ZoneName,
			cfg.Storage.ZoneAccessKey,
			time.Duration(cfg.Storage.TimeoutSeconds)*time.Second,
		), nil
	}

	store, err := objectstore.NewNatsObjectStore(jetstreamContext, cfg.NATS.AudioObjectStoreBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store: %w", err)
	}

	return store, nil
}

// buildHotStore returns nil when the hot tier is disabled; the cache
// treats a nil hot store as durable-only.
func buildHotStore(
	cfg *config.Config,
	jetstreamContext nats.JetStreamContext,
	log *logger.Logger,
) (core.HotStore, error) {
	if !cfg.Cache.HotEnabled {
		log.Info("Hot cache tier disabled by configuration.")

		return nil, nil
	}

	ttl := time.Duration(cfg.NATS.HotCacheTTLSeconds) * time.Second

	hot, err := hotstore.New(jetstreamContext, cfg.NATS.HotCacheBucket, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to create hot cache bucket: %w", err)
	}

	return hot, nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
