package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iroshandezilva/raindrop-sync/internal/config"
	errs "github.com/iroshandezilva/raindrop-sync/internal/errors"
	"github.com/iroshandezilva/raindrop-sync/internal/logging"
	"github.com/iroshandezilva/raindrop-sync/internal/raindrop"
	"github.com/iroshandezilva/raindrop-sync/internal/state"
	"github.com/iroshandezilva/raindrop-sync/internal/sync"
	"github.com/iroshandezilva/raindrop-sync/internal/vault"
)

var Version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewLogger(cfg.Environment)

	command := "sync"
	if len(args) > 0 {
		command = args[0]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case "sync":
		return runSync(ctx, cfg, logger)
	case "purge":
		return runPurge(cfg, logger)
	case "status":
		return runStatus(cfg)
	case "verify":
		return runVerify(ctx, cfg, logger)
	default:
		return fmt.Errorf("unknown command %q (expected sync, purge, status, or verify)", command)
	}
}

// newEngine wires the vault, run-history database, and API client into
// a sync engine. The caller owns closing the returned state.
func newEngine(cfg *config.Config, logger *slog.Logger) (*sync.Engine, *state.State, error) {
	v, err := vault.New(cfg.SyncRoot())
	if err != nil {
		return nil, nil, fmt.Errorf("opening vault: %w", err)
	}

	appState, err := state.LoadAt(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening state database: %w", err)
	}

	client := raindrop.NewClient(nil, cfg.Token, raindrop.Options{
		BaseURL:  cfg.APIBaseURL,
		MaxItems: cfg.TestModeMaxItems,
	}, logging.WithComponent(logger, "client"))

	engine := sync.NewEngine(v, client, appState, cfg, logging.WithComponent(logger, "engine"))

	return engine, appState, nil
}

func runSync(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("raindrop-sync starting",
		slog.String("version", Version),
		slog.String("sync_root", cfg.SyncRoot()),
		slog.Bool("periodic", cfg.PeriodicSync),
		slog.Bool("bidirectional", cfg.Bidirectional),
	)

	engine, appState, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer appState.Close()

	if !cfg.PeriodicSync {
		_, err := engine.Run(ctx)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return syncLoop(gctx, engine, cfg.SyncInterval, logger)
	})

	return g.Wait()
}

// syncLoop runs one pass immediately, then one per tick until the
// context is canceled. Transient failures are logged and the next tick
// retries from scratch; credential problems cannot heal on their own,
// so those stop the loop.
func syncLoop(ctx context.Context, engine *sync.Engine, interval time.Duration, logger *slog.Logger) error {
	if err := runPass(ctx, engine, logger); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case <-ticker.C:
			if err := runPass(ctx, engine, logger); err != nil {
				return err
			}
		}
	}
}

func runPass(ctx context.Context, engine *sync.Engine, logger *slog.Logger) error {
	_, err := engine.Run(ctx)
	if err == nil {
		return nil
	}

	if ctx.Err() != nil {
		return nil
	}

	if errors.Is(err, errs.ErrMissingToken) || errors.Is(err, errs.ErrUnauthorized) {
		return err
	}

	logger.Error("sync pass failed", slog.String("error", err.Error()))

	return nil
}

// runPurge deletes every synced bookmark document and prunes emptied
// folders. User files, the status report, and the run history are left
// alone.
func runPurge(cfg *config.Config, logger *slog.Logger) error {
	engine, appState, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer appState.Close()

	deleted, err := engine.Purge()
	if err != nil {
		return fmt.Errorf("purging vault: %w", err)
	}

	fmt.Printf("deleted %d synced documents from %s\n", deleted, cfg.SyncRoot())

	return nil
}

// runStatus prints the most recent run record from the state database.
func runStatus(cfg *config.Config) error {
	appState, err := state.LoadAt(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening state database: %w", err)
	}
	defer appState.Close()

	last, err := appState.LastRun()
	if err != nil {
		return fmt.Errorf("reading last run: %w", err)
	}

	if last == nil {
		fmt.Println("no runs recorded yet")
		return nil
	}

	fmt.Printf("last run:    %s (took %s)\n", last.StartedAt.Local().Format(time.RFC1123), last.Duration().Round(time.Millisecond))
	fmt.Printf("sync folder: %s\n", last.SyncFolder)
	fmt.Printf("fetched:     %d\n", last.Fetched)
	fmt.Printf("created:     %d\n", last.Created)
	fmt.Printf("updated:     %d\n", last.Updated)
	fmt.Printf("relocated:   %d\n", last.Relocated)
	fmt.Printf("skipped:     %d\n", last.Skipped)
	fmt.Printf("deleted:     %d\n", last.Deleted)

	if last.Bidirectional {
		fmt.Printf("pushed:      %d\n", last.Pushed)
	}

	if failed := last.Failed + last.PushFailed; failed > 0 {
		fmt.Printf("failed:      %d\n", failed)

		for _, failure := range last.Failures {
			fmt.Printf("  - %s\n", failure)
		}
	}

	return nil
}

// runVerify checks the configured token against the API.
func runVerify(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if !cfg.HasToken() {
		return errs.ErrMissingToken
	}

	client := raindrop.NewClient(nil, cfg.Token, raindrop.Options{BaseURL: cfg.APIBaseURL},
		logging.WithComponent(logger, "client"))

	if err := client.VerifyCredentials(ctx); err != nil {
		return err
	}

	fmt.Println("token accepted")

	return nil
}
