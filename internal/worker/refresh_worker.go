// Package worker reacts to dataset refresh notifications.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"txview/internal/amqp"
	applog "txview/internal/log"
)

// Reloader re-fetches the dashboard dataset.
type Reloader interface {
	Reload(ctx context.Context) error
}

// RefreshWorker reloads the dataset once per refresh notification. A
// notification sent before the last reload started is already covered by
// it and is skipped.
type RefreshWorker struct {
	reloader Reloader
	logger   *applog.Logger
	now      func() time.Time

	mu         sync.Mutex
	lastReload time.Time
}

func NewRefreshWorker(reloader Reloader, logger *applog.Logger) *RefreshWorker {
	return &RefreshWorker{
		reloader: reloader,
		logger:   logger.WithComponent(applog.ComponentAMQP),
		now:      time.Now,
	}
}

// HandleRefreshMessage processes a single refresh message from AMQP.
func (w *RefreshWorker) HandleRefreshMessage(ctx context.Context, msg *amqp.DatasetRefreshMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !msg.Timestamp.IsZero() && msg.Timestamp.Before(w.lastReload) {
		w.logger.DebugContext(ctx, "Skipping stale refresh message",
			applog.FieldSource, msg.Source,
			"sent_at", msg.Timestamp,
			"last_reload", w.lastReload)
		return nil
	}

	started := w.now()
	if err := w.reloader.Reload(ctx); err != nil {
		return fmt.Errorf("reload dataset: %w", err)
	}
	w.lastReload = started

	w.logger.InfoContext(ctx, "Dataset reloaded after refresh message",
		applog.FieldOperation, applog.OpRefresh,
		applog.FieldSource, msg.Source)
	return nil
}
