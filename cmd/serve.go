package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/chartwatch/internal/server"
	"github.com/desertthunder/chartwatch/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Serve exposes the lookup and hits API over HTTP, optionally with the check
// scheduler running alongside.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	db, owned, err := r.database()
	if err != nil {
		return err
	}
	if owned {
		defer db.Close()
	}

	engine, repo := r.engine(db)
	api := server.New(engine, repo, r.logger)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cmd.Bool("watch") {
		watcher := tasks.NewWatcher(engine, repo, r.config.Scheduler.Interval(), r.logger)
		go func() {
			if err := watcher.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.Error("scheduler stopped", "err", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              r.config.Server.Addr(),
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-runCtx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r.logger.Info("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}
