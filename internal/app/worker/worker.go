package worker

import (
	"context"
	"linkup/internal/core/contracts"
	"linkup/pkg/logging"
	"log/slog"
	"time"
)

// onlineLister is the part of the registry the worker reads.
type onlineLister interface {
	OnlineUsers() []string
}

// PresenceSyncWorker refreshes the last-seen mirror for everyone still
// connected, so long-lived sessions do not look stale.
type PresenceSyncWorker struct {
	log      *slog.Logger
	registry onlineLister
	store    contracts.PresenceStore
	interval time.Duration
	now      func() time.Time
}

func NewPresenceSyncWorker(
	log *slog.Logger,
	registry onlineLister,
	store contracts.PresenceStore,
	interval time.Duration,
) contracts.Worker {
	return &PresenceSyncWorker{
		log:      log,
		registry: registry,
		store:    store,
		interval: interval,
		now:      time.Now,
	}
}

func (w *PresenceSyncWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.log.InfoContext(ctx, "worker - presence sync - started", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker - presence sync - stopped")
			return nil
		case <-ticker.C:
			w.sync(ctx)
		}
	}
}

func (w *PresenceSyncWorker) sync(ctx context.Context) {
	online := w.registry.OnlineUsers()
	if len(online) == 0 {
		return
	}
	if err := w.store.Touch(ctx, online, w.now()); err != nil {
		w.log.ErrorContext(ctx, "worker - presence sync - touch failed", "users", len(online), logging.Err(err))
		return
	}
	w.log.DebugContext(ctx, "worker - presence sync - success", "users", len(online))
}
