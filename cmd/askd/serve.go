package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"askd/internal/httpapi"
	"askd/internal/profile"
)

func newServeCmd(a *app) *cobra.Command {
	var preload bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), preload)
		},
	}
	cmd.Flags().String("addr", "", "HTTP listen address, e.g. :8080")
	cmd.Flags().String("cors-origins", "", "Comma-separated origins allowed to call the API")
	cmd.Flags().BoolVar(&preload, "preload", false, "Start loading the model at startup")
	return cmd
}

func (a *app) serve(parent context.Context, preload bool) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg := a.cfg
	svc, err := buildService(cfg, a.log)
	if err != nil {
		return err
	}
	defer svc.Dispose()

	httpapi.SetLogger(a.log)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetChatTimeout(time.Duration(cfg.ChatTimeoutSeconds) * time.Second)
	httpapi.SetWelcome(profile.Welcome)
	if len(cfg.CORSOrigins) > 0 {
		httpapi.SetCORSOptions(true, cfg.CORSOrigins, []string{"GET", "POST", "OPTIONS"}, []string{"Content-Type", "X-Log-Level"})
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	httpapi.SetBaseContext(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", cfg.Addr).Str("backend", cfg.Backend).Str("model", cfg.ModelID).Msg("askd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if preload {
		go func() {
			if err := svc.Load(ctx, nil); err != nil && ctx.Err() == nil {
				a.log.Warn().Err(err).Msg("preload failed; clients can retry via /load")
			}
		}()
	}

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "server error")
		}
		return nil
	case <-ctx.Done():
	}
	a.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("graceful shutdown error")
	}
	return nil
}
