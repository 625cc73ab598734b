package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/you/donationsvc/internal/config"
	"github.com/you/donationsvc/internal/infrastructure/auth"
	"github.com/you/donationsvc/internal/infrastructure/database"
)

const shutdownTimeout = 15 * time.Second

// Run serves the API until SIGINT or SIGTERM
func Run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return Serve(ctx, cfg, logger)
}

// Serve migrates the schema, seeds policies and serves HTTP until ctx is done
func Serve(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	gin.SetMode(cfg.GinMode)

	c, err := NewContainer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := c.Close(closeCtx); err != nil {
			logger.Error().Err(err).Msg("failed to close resources")
		}
	}()

	if err := database.AutoMigrate(c.DB); err != nil {
		return err
	}
	if err := c.SeedPolicies(); err != nil {
		return err
	}
	warnWebhookMode(cfg, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Migrate creates the tables and seeds the default policies, then exits
func Migrate(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	db, err := database.Open(cfg.DSN, logger)
	if err != nil {
		return err
	}
	defer closeDB(db)

	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	cas, err := auth.NewCasbinService(db.WithContext(ctx))
	if err != nil {
		return err
	}
	added, err := cas.SeedDefaults()
	if err != nil {
		return err
	}
	logger.Info().Int("policies_added", added).Msg("migration complete")
	return nil
}

func warnWebhookMode(cfg *config.Config, logger zerolog.Logger) {
	switch {
	case cfg.WebhookVerificationDisabled():
		logger.Warn().Msg("PAYPAL_WEBHOOK_ID is empty and unverified webhooks are allowed: signatures are NOT checked")
	case cfg.PayPalWebhookID == "":
		logger.Warn().Msg("PAYPAL_WEBHOOK_ID is empty: webhook deliveries will be rejected")
	}
}
