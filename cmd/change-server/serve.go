package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"changemgmt/internal/auth"
	"changemgmt/internal/auth/revocation"
	"changemgmt/internal/bootstrap"
	"changemgmt/internal/email"
	"changemgmt/internal/handlers"
	"changemgmt/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Migrate, seed and serve HTTP (default)",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	cfg, log := e.cfg, e.log

	if err := bootstrap.Run(ctx, e.migrate, e.store, cfg.Admin, log); err != nil {
		log.WithError(err).Error("bootstrap failed")
		return err
	}

	reg := prometheus.NewRegistry()
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(reg)
	}

	var revoker auth.Revoker
	if cfg.RedisURL != "" {
		client, err := revocation.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		revoker = revocation.NewRedisTRL(client)
	} else {
		log.Warn("REDIS_URL not set, logout will not revoke issued tokens")
	}

	sender, err := email.NewSender(cfg)
	switch {
	case errors.Is(err, email.ErrNotConfigured):
		log.Warn("no SMTP or Mailgun settings, decision emails are disabled")
	case err != nil:
		return err
	}
	notifier := email.NewNotifier(sender, log, m)

	tokens := auth.NewTokenIssuer(cfg.JWTSigningKey, cfg.SessionDuration)
	authn := auth.NewAuthenticator(tokens, revoker, log, cfg.CookieSecure)
	h := handlers.NewHandler(e.store, authn, log,
		handlers.WithNotifier(notifier),
		handlers.WithMetrics(m),
		handlers.WithSecureCookies(cfg.CookieSecure),
	)
	router := h.Routes()
	if m != nil {
		router.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ServerAddress).Info("starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
