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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/fuelflux/core/api"
	"github.com/fuelflux/core/auth"
	"github.com/fuelflux/core/catalog"
	"github.com/fuelflux/core/config"
	"github.com/fuelflux/core/internal/util"
	"github.com/fuelflux/core/jobs"
)

var (
	port       int
	tlsCert    string
	tlsKey     string
	selfSigned bool
	seedFile   string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Fuelflux HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = port
		}
		logger, err := newLogger(logLevel)
		if err != nil {
			return err
		}
		return runServer(cmd.Context(), cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on (overrides FUELFLUX_PORT)")
	serverCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "Path to TLS certificate file")
	serverCmd.Flags().StringVar(&tlsKey, "tls-key", "", "Path to TLS key file")
	serverCmd.Flags().BoolVar(&selfSigned, "self-signed", false, "Serve TLS with a runtime generated certificate")
	serverCmd.Flags().StringVar(&seedFile, "seed", "", "YAML fixtures file imported before serving")
}

func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()
	cat := catalog.New(repo)

	if seedFile != "" {
		n, err := importFixtures(cat, seedFile)
		if err != nil {
			return err
		}
		logger.Info("fixtures imported", "file", seedFile, "entities", n)
	}

	store, closeStore, err := openSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	users, err := auth.NewUserAuthService(cfg.Secret, cfg.UserTokenLifetime(), auth.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create user auth service: %w", err)
	}
	devices, err := auth.NewDeviceAuthService(cfg.Secret, cfg.DeviceSessionDuration(), store, auth.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create device auth service: %w", err)
	}

	opts := []api.Option{
		api.WithLogger(logger),
		api.WithFuelPrice(cfg.FuelPrice),
		api.WithTrustedProxies(cfg.TrustedProxies),
	}
	if cfg.AlertWebhookURL != "" {
		webhook := api.NewAlertWebhook(cfg.AlertWebhookURL, cfg.AlertWebhookAuth, logger)
		defer webhook.Close()
		opts = append(opts, api.WithAlertFunc(webhook.Notify))
	} else {
		opts = append(opts, api.WithAlertFunc(func(evt api.AlertEvent) {
			logger.Warn("alert", "type", evt.Type, "message", evt.Message, "count", evt.Count)
		}))
	}
	a := api.New(cat, users, devices, opts...)

	sweeps := []*jobs.CleanupJob{
		jobs.NewCleanupJob("device_sessions", devices.RemoveExpiredTokens, cfg.CleanupInterval, logger),
		jobs.NewCleanupJob("rate_limits", a.SweepRateLimits, cfg.CleanupInterval, logger),
	}
	for _, job := range sweeps {
		job.Start(ctx)
		defer job.Stop()
	}

	tlsConfig, err := serverTLSConfig()
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(a),
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	done := make(chan error, 1)
	go func() {
		var err error
		if tlsConfig != nil {
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

	printBanner(os.Stdout)
	logger.Info("server started", "port", cfg.Port, "storage", cfg.Storage,
		"session_store", cfg.SessionStore, "tls", tlsConfig != nil)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-done:
		return err
	}
}

// newRouter wraps the API with the process level middleware and health check.
func newRouter(a *api.API) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(api.SecurityHeaders)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Mount("/api", a.Router())
	return r
}

// serverTLSConfig returns nil when the server should speak plain HTTP.
func serverTLSConfig() (*tls.Config, error) {
	switch {
	case tlsCert != "" && tlsKey != "":
		cert, err := tls.LoadX509KeyPair(tlsCert, tlsKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS key pair: %w", err)
		}
		return &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}, nil
	case tlsCert != "" || tlsKey != "":
		return nil, errors.New("--tls-cert and --tls-key must be given together")
	case selfSigned:
		cert, err := util.GenerateSelfSignedCert()
		if err != nil {
			return nil, fmt.Errorf("failed to generate self-signed certificate: %w", err)
		}
		return &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}, nil
	default:
		return nil, nil
	}
}
