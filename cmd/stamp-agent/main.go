package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/custody-labs/custody-crypto/internal/agent"
	"github.com/custody-labs/custody-crypto/internal/config"
	"github.com/custody-labs/custody-crypto/internal/logging"
	"github.com/custody-labs/custody-crypto/internal/session"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	sessions := session.NewCache(cfg.SessionTTL, cfg.Engine())
	h := agent.New(logger, cfg, sessions, &http.Client{Timeout: 60 * time.Second})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Sugar().Infow("stamp-agent listening",
		"addr", cfg.ListenAddr,
		"vendor", cfg.VendorAPI.String(),
		"api_public_key", cfg.APIPublicKey,
		"organization_id", cfg.OrganizationID,
		"enclave_signer_public_key", cfg.TrustedSignerKey,
		"nonce_mode", cfg.NonceMode,
		"session_ttl", cfg.SessionTTL,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Sugar().Errorw("server error", "error", err)
		os.Exit(1)
	}
}
