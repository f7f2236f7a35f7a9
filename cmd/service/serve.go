// cmd/service/serve.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"portfolio-sync/internal/api"
	"portfolio-sync/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the sync scheduler and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	// Store the bootstrap token as the active credential on first run, so
	// later runs no longer depend on the environment.
	if a.cfg.GithubToken != "" {
		if _, ok := a.creds.ActiveToken(ctx, a.cfg.GithubAccount); !ok {
			if login, stored := a.creds.BootstrapFromToken(ctx, a.cfg.GithubToken); stored {
				a.logger.Info("Bootstrap token stored as active credential", "account", login)
			}
		}
	}

	engine := a.newEngine(false)

	sched := scheduler.New(engine, engine, a.cfg.GithubAccount, scheduler.Options{
		Interval: a.cfg.SyncInterval,
		MinGap:   a.cfg.SyncMinGap,
		Cooldown: a.cfg.SyncCooldown,
	}, a.logger)
	sched.Start(ctx)

	server := &http.Server{
		Addr:    a.cfg.HTTPAddr,
		Handler: api.NewRouter(engine, a.cfg.GithubAccount, a.logger),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "addr", a.cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("HTTP server shutdown failed", "error", err)
		}

		sched.Stop(shutdownTimeout)
		return nil
	})

	return g.Wait()
}
