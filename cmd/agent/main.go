// The agent runs the client side of the duty system: it keeps a local mirror
// of the request working set, serves it even while the central API is down,
// and propagates local writes in the background.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ondutypro/onduty-api/internal/localstore"
	"github.com/ondutypro/onduty-api/internal/remote"
	"github.com/ondutypro/onduty-api/internal/sync"
	"github.com/ondutypro/onduty-api/pkg/config"
	"github.com/ondutypro/onduty-api/pkg/logger"
)

const refreshInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	store, err := localstore.New(cfg.Sync.LocalDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to open local store", "dir", cfg.Sync.LocalDir, "error", err)
	}

	client := remote.NewClient(cfg.Sync.BaseURL)
	reconciler := sync.NewReconciler(store, client, logr, sync.Config{
		Workers:    cfg.Sync.Workers,
		BufferSize: cfg.Sync.BufferSize,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := reconciler.Start(ctx); err != nil {
		logr.Sugar().Fatalw("failed to start reconciler", "error", err)
	}
	defer reconciler.Stop()

	logr.Sugar().Infow("agent started",
		"remote", cfg.Sync.BaseURL,
		"local_dir", cfg.Sync.LocalDir,
		"workers", cfg.Sync.Workers,
	)

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logr.Sugar().Infow("agent shutting down")
			return
		case <-ticker.C:
			if err := reconciler.Refresh(ctx); err != nil {
				logr.Sugar().Warnw("refresh failed, serving local copy", "error", err)
			}
		}
	}
}
