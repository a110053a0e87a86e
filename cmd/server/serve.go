package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"studybuddy/internal/bootstrap"
	"studybuddy/internal/config"
	"studybuddy/internal/pkg/logger"
	httptransport "studybuddy/internal/transport/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config failed: %w", err)
		}
		log, err := logger.New(cfg.App.Env)
		if err != nil {
			return fmt.Errorf("init logger failed: %w", err)
		}
		defer log.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := bootstrap.New(ctx, cfg, log)
		if err != nil {
			log.Error("bootstrap failed", "error", err)
			return err
		}
		defer func() {
			if err := app.Close(); err != nil {
				log.Warn("close resources failed", "error", err)
			}
		}()

		server := &http.Server{
			Addr:              cfg.HTTPAddr(),
			Handler:           httptransport.NewRouter(app),
			ReadHeaderTimeout: 5 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info("server starting", "addr", server.Addr, "env", cfg.App.Env)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				log.Error("server failed", "error", err)
				return err
			}
		case <-ctx.Done():
			log.Info("shutdown signal received")
		}
		return shutdown(server, log)
	},
}

func shutdown(server *http.Server, log *logger.Logger) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}
