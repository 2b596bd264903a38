// main package for the voiceover-service
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/voxly/voiceover-service/internal/config"
	"github.com/voxly/voiceover-service/internal/history"
	"github.com/voxly/voiceover-service/internal/objectstore"
	"github.com/voxly/voiceover-service/internal/sarvam"
	"github.com/voxly/voiceover-service/internal/server"
	"github.com/voxly/voiceover-service/internal/voiceover"
	"github.com/voxly/voiceover-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

var errAPIKeyMissing = errors.New("SARVAM_API_KEY environment variable is not set")

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "voiceover-service.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	// Create a temporary logger for the bootstrap process.
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

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

	return runService(cfg, finalLog)
}

func runService(cfg *config.Config, log *logger.Logger) error {
	apiKey := os.Getenv("SARVAM_API_KEY")
	if apiKey == "" {
		return errAPIKeyMissing
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := objectstore.New(jetstreamContext, cfg.NATS.AudioObjectStoreBucket)
	if err != nil {
		return fmt.Errorf("failed to create object store: %w", err)
	}

	historyStore, err := history.Open(ctx, cfg.History.DatabasePath, log)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}

	defer func() {
		closeErr := historyStore.Close()
		if closeErr != nil {
			log.Error("Failed to close history store: %v", closeErr)
		}
	}()

	synth := sarvam.New(cfg.Sarvam.BaseURL, apiKey, time.Duration(cfg.Sarvam.TimeoutSeconds)*time.Second)
	generator := voiceover.NewGenerator(synth, cfg.Sarvam.ChunkLimit, cfg.Sarvam.Model, log)

	natsWorker, err := worker.NewNatsWorker(
		natsConnection,
		jetstreamContext,
		cfg.NATS.VoiceoverRequestedSubject,
		store,
		historyStore,
		generator,
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	workerErrChan := make(chan error, 1)

	go func() {
		workerErrChan <- natsWorker.Run(ctx)
	}()

	httpServer := &http.Server{
		Addr:              cfg.HTTP.ListenAddr,
		Handler:           newHTTPHandler(cfg, natsConnection, store, historyStore, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrChan := make(chan error, 1)

	go func() {
		listenErr := httpServer.ListenAndServe()
		if listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
			serverErrChan <- listenErr

			return
		}

		serverErrChan <- nil
	}()

	log.System(
		"Voiceover service initialized. Listening on %s, processing jobs on subject: %s",
		cfg.HTTP.ListenAddr,
		cfg.NATS.VoiceoverRequestedSubject,
	)

	cause := waitForExit(ctx, serverErrChan, workerErrChan, log)
	stop()

	if cause.serverErr != nil {
		return fmt.Errorf("http server failed: %w", cause.serverErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := httpServer.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		log.Error("HTTP server shutdown failed: %v", shutdownErr)
	}

	workerErr := cause.workerErr
	if !cause.workerStopped {
		workerErr = <-workerErrChan
	}

	if workerErr != nil {
		return fmt.Errorf("worker failed: %w", workerErr)
	}

	return nil
}

// exitCause records which component ended the service's run loop.
type exitCause struct {
	serverErr     error
	workerErr     error
	workerStopped bool
}

// waitForExit blocks until a shutdown signal arrives or the HTTP server or
// the worker fails.
func waitForExit(ctx context.Context, serverErrChan, workerErrChan <-chan error, log *logger.Logger) exitCause {
	select {
	case <-ctx.Done():
		log.System("Shutdown signal received.")

		return exitCause{}
	case err := <-serverErrChan:
		return exitCause{serverErr: err}
	case err := <-workerErrChan:
		log.Error("Worker stopped: %v", err)

		return exitCause{workerErr: err, workerStopped: true}
	}
}

func newHTTPHandler(
	cfg *config.Config,
	natsConnection *nats.Conn,
	store *objectstore.NatsObjectStore,
	historyStore *history.Store,
	log *logger.Logger,
) http.Handler {
	return server.New(
		natsConnection,
		cfg.NATS.VoiceoverRequestedSubject,
		time.Duration(cfg.HTTP.RequestTimeoutSeconds)*time.Second,
		store,
		historyStore,
		log,
	).Handler()
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
