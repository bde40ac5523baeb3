package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/awnumar/memguard"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/jmcleod/visaexpress/apiclient"
	"github.com/jmcleod/visaexpress/internal/util"
	"github.com/jmcleod/visaexpress/panel"
)

const sweepInterval = 10 * time.Minute

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server"},
		Short:   "Serve the admin panel",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer memguard.Purge()
			cfg, logger := opts.cfg, opts.logger

			backend, err := apiclient.New(cfg.Backend.URL, apiclient.WithTimeout(cfg.Backend.Timeout))
			if err != nil {
				return fmt.Errorf("configuring backend client: %w", err)
			}

			secret := []byte(cfg.Session.Secret)
			if len(secret) == 0 {
				secret, err = util.RandomBytes(32)
				if err != nil {
					return fmt.Errorf("generating session secret: %w", err)
				}
				logger.Warn("session.secret is not set; using a random secret, sessions end on restart")
			}

			proxies, err := panel.ParseTrustedProxies(cfg.Server.TrustedProxies)
			if err != nil {
				return fmt.Errorf("parsing server.trusted_proxies: %w", err)
			}

			p, err := panel.New(backend, secret,
				panel.WithLogger(logger),
				panel.WithPolicy(cfg.Policy()),
				panel.WithLoginPath(cfg.Gate.LoginPath),
				panel.WithExemptPaths(cfg.Gate.ExemptPaths...),
				panel.WithAuthPath(cfg.Backend.AuthPath),
				panel.WithSessionMaxAge(cfg.Session.MaxAge),
				panel.WithActivationNotice(cfg.Notifications.OnLoad),
				panel.WithTrustedProxies(proxies),
				panel.WithAlertFunc(func(e panel.AlertEvent) {
					logger.Warn("alert", "type", e.Type, "message", e.Message, "count", e.Count, "threshold", e.Threshold)
				}),
			)
			if err != nil {
				return err
			}
			util.WipeBytes(secret)

			r := chi.NewRouter()
			r.Use(middleware.RequestID)
			r.Use(middleware.Logger)
			r.Use(middleware.Recoverer)
			r.Mount("/", p.Router())

			server := &http.Server{
				Addr:              cfg.Addr(),
				Handler:           r,
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       15 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       60 * time.Second,
				ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
			}

			useTLS := cfg.Server.TLSCert != "" && cfg.Server.TLSKey != ""
			if useTLS {
				cert, err := tls.LoadX509KeyPair(cfg.Server.TLSCert, cfg.Server.TLSKey)
				if err != nil {
					return fmt.Errorf("failed to load TLS key pair: %w", err)
				}
				server.TLSConfig = &tls.Config{
					Certificates: []tls.Certificate{cert},
					MinVersion:   tls.VersionTLS12,
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go func() {
				t := time.NewTicker(sweepInterval)
				defer t.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-t.C:
						p.Sweep()
					}
				}
			}()

			done := make(chan error, 1)
			go func() {
				var err error
				if useTLS {
					err = server.ListenAndServeTLS("", "")
				} else {
					err = server.ListenAndServe()
				}
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					done <- fmt.Errorf("server failed: %w", err)
					return
				}
				done <- nil
			}()

			printBanner(cmd.OutOrStdout())
			logger.Info("serving admin panel", "addr", server.Addr, "tls", useTLS, "backend", cfg.Backend.URL, "policy", cfg.Policy().String())

			select {
			case <-ctx.Done():
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("server shutdown failed: %w", err)
				}
				return nil
			case err := <-done:
				return err
			}
		},
	}
}
