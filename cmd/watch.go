package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/chartwatch/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Watch runs the background check loop until interrupted.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	db, owned, err := r.database()
	if err != nil {
		return err
	}
	if owned {
		defer db.Close()
	}

	interval := r.config.Scheduler.Interval()
	if secs := cmd.Int("interval"); secs > 0 {
		interval = time.Duration(secs) * time.Second
	}

	engine, repo := r.engine(db)
	watcher := tasks.NewWatcher(engine, repo, interval, r.logger)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := watcher.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
