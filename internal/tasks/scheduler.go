package tasks

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chartwatch/internal/models"
	"github.com/desertthunder/chartwatch/internal/repositories"
	"github.com/desertthunder/chartwatch/internal/shared"
)

// Watcher periodically reconciles every tracked UPC whose check date has
// arrived.
type Watcher struct {
	engine   *Engine
	repo     *repositories.CheckRepository
	interval time.Duration
	logger   *log.Logger
}

// NewWatcher creates a scheduler that wakes at the given interval. A
// non-positive interval falls back to ten minutes.
func NewWatcher(engine *Engine, repo *repositories.CheckRepository, interval time.Duration, logger *log.Logger) *Watcher {
	if interval <= 0 {
		interval = 600 * time.Second
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Watcher{engine: engine, repo: repo, interval: interval, logger: logger}
}

// Start runs the check loop until the context is cancelled. The first pass
// runs immediately, subsequent passes on every tick.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info("scheduler started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runPass(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			w.runPass(ctx)
		}
	}
}

// runPass processes every due UPC sequentially. Failures are logged and do
// not stop the pass; the scheduler retries on the next tick.
func (w *Watcher) runPass(ctx context.Context) {
	today := models.Today()

	due, err := w.repo.Due(ctx, today)
	if err != nil {
		w.logger.Error("failed to load due checks", "err", err)
		return
	}
	if len(due) == 0 {
		w.logger.Debug("no checks due")
		return
	}

	w.logger.Info("running scheduled pass", "due", len(due))
	for _, check := range due {
		if ctx.Err() != nil {
			return
		}
		if _, err := w.engine.ProcessUPC(ctx, check.UPC, today); err != nil {
			w.logger.Error("scheduled check failed", "upc", check.UPC, "err", err)
		}
	}
}
