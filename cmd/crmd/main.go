// Command crmd serves the CRM API and the bundled web UI.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/localcrm/internal/api"
	"github.com/celerix-dev/localcrm/internal/config"
	"github.com/celerix-dev/localcrm/internal/logging"
	"github.com/celerix-dev/localcrm/internal/vault"
	"github.com/celerix-dev/localcrm/pkg/sdk"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "crmd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configFile := flag.String("config", "", "config file (default: ./crm.yaml when present)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Configuration
	cfg, err := config.Load(config.New(), *configFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// 2. Open the store and seed the admin account
	svc, err := sdk.OpenEmbedded(sdk.Options{
		Backend: cfg.Backend,
		DataDir: cfg.DataDir,
		Admin:   cfg.Admin(),
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("close store", "err", err)
		}
	}()
	logger.Info("store ready", "backend", cfg.Backend, "dataDir", cfg.DataDir)

	// 3. HTTP API & UI
	gin.SetMode(gin.ReleaseMode)
	h := &api.Handler{CRM: svc, Logger: logger}
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           api.NewRouter(h, cfg.StaticDir, logger),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 4. Optional TLS
	if cfg.TLS {
		cert, err := vault.GenerateSelfSignedCert()
		if err != nil {
			return fmt.Errorf("generate TLS certificate: %w", err)
		}
		httpServer.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
		logger.Info("TLS enabled with a self-signed certificate")
	}

	// 5. Serve until a signal arrives
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", httpServer.Addr, "tls", cfg.TLS)
		if cfg.TLS {
			serverErr <- httpServer.ListenAndServeTLS("", "")
			return
		}
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		logger.Info("server stopped")
	}
	return nil
}
