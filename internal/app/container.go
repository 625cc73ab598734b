package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/you/donationsvc/domain"
	"github.com/you/donationsvc/internal/config"
	httpx "github.com/you/donationsvc/internal/http"
	"github.com/you/donationsvc/internal/http/handlers"
	"github.com/you/donationsvc/internal/http/middleware"
	"github.com/you/donationsvc/internal/infrastructure/auth"
	"github.com/you/donationsvc/internal/infrastructure/database"
	"github.com/you/donationsvc/internal/infrastructure/notifications"
	"github.com/you/donationsvc/internal/infrastructure/paypal"
	"github.com/you/donationsvc/internal/infrastructure/repositories"
	"github.com/you/donationsvc/internal/infrastructure/tokenstore"
	"github.com/you/donationsvc/internal/services"
)

// Container holds all dependencies
type Container struct {
	Config *config.Config
	Logger zerolog.Logger

	// Infrastructure
	DB          *gorm.DB
	RedisClient redis.UniversalClient
	Casbin      *auth.CasbinService
	Gateway     domain.PaymentGateway
	Notifier    *notifications.AsyncNotifier

	// Repositories
	UserRepo     domain.UserRepository
	DonationRepo domain.DonationRepository
	WebhookRepo  domain.WebhookEventRepository

	// Services
	PasswordSvc domain.PasswordService
	TokenSvc    domain.TokenService
	OTPSvc      domain.OTPService
	AuthSvc     domain.AuthService
	PolicySvc   domain.PolicyService
	Reconciler  domain.DonationReconciler
	DonationSvc domain.DonationService
	WebhookSvc  domain.WebhookService

	Router *gin.Engine
}

// NewContainer connects to Postgres and Redis and wires every service
func NewContainer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Container, error) {
	db, err := database.Open(cfg.DSN, logger)
	if err != nil {
		return nil, err
	}
	rdb, err := database.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		closeDB(db)
		return nil, err
	}

	c, err := newContainer(cfg, logger, db, rdb, nil)
	if err != nil {
		_ = rdb.Close()
		closeDB(db)
		return nil, err
	}
	return c, nil
}

// newContainer wires the application on top of already open connections.
// A nil gateway builds the PayPal client from cfg.
func newContainer(cfg *config.Config, logger zerolog.Logger, db *gorm.DB, rdb redis.UniversalClient, gateway domain.PaymentGateway) (*Container, error) {
	c := &Container{
		Config:      cfg,
		Logger:      logger,
		DB:          db,
		RedisClient: rdb,
		Gateway:     gateway,
	}

	c.initRepositories()
	if err := c.initInfrastructure(); err != nil {
		return nil, err
	}
	c.initServices()
	c.initRouter()
	return c, nil
}

func (c *Container) initRepositories() {
	c.UserRepo = repositories.NewUserRepository(c.DB)
	c.DonationRepo = repositories.NewDonationRepository(c.DB)
	c.WebhookRepo = repositories.NewWebhookEventRepository(c.DB)
}

func (c *Container) initInfrastructure() error {
	cas, err := auth.NewCasbinService(c.DB)
	if err != nil {
		return err
	}
	c.Casbin = cas

	c.PasswordSvc = auth.NewPasswordService()
	tokenSvc, err := auth.NewJWTService(c.Config.JWTSecret, c.Config.JWTAlgorithm, c.Config.JWTIssuer, c.Config.AccessTTL)
	if err != nil {
		return err
	}
	c.TokenSvc = tokenSvc

	var mailer domain.NotificationService
	if c.Config.SMTPHost != "" {
		smtp, err := notifications.NewSMTPService(notifications.SMTPConfig{
			Host: c.Config.SMTPHost,
			Port: c.Config.SMTPPort,
			User: c.Config.SMTPUser,
			Pass: c.Config.SMTPPass,
			From: c.Config.FromEmail,
		})
		if err != nil {
			return fmt.Errorf("failed to configure smtp: %w", err)
		}
		mailer = smtp
	} else {
		c.Logger.Warn().Msg("SMTP_HOST not set, emails are written to the log")
		mailer = notifications.NewLogNotifier(c.Logger)
	}
	c.Notifier = notifications.NewAsyncNotifier(mailer, c.Logger)

	if c.Gateway == nil {
		c.Gateway = paypal.NewClient(paypal.Config{
			ClientID:     c.Config.PayPalClientID,
			ClientSecret: c.Config.PayPalClientSecret,
			BaseURL:      c.Config.PayPalAPIBase,
			BrandName:    c.Config.PayPalBrandName,
			ReturnURL:    c.Config.PayPalReturnURL,
			CancelURL:    c.Config.PayPalCancelURL,
		}, c.Logger)
	}
	return nil
}

func (c *Container) initServices() {
	store := tokenstore.NewRedisStore(c.RedisClient)

	c.OTPSvc = services.NewOTPService(store, c.UserRepo, c.Notifier, services.OTPConfig{
		TTL:          c.Config.OTP_TTL,
		ResendWindow: c.Config.OTP_ResendWindow,
	}, c.Logger)
	c.AuthSvc = services.NewAuthService(c.UserRepo, c.PasswordSvc, c.TokenSvc, c.OTPSvc, c.Logger)
	c.PolicySvc = services.NewPolicyService(c.Casbin.E)

	c.Reconciler = services.NewReconciler(c.DonationRepo, c.Notifier, c.Logger)
	c.DonationSvc = services.NewDonationService(c.DonationRepo, c.Gateway, c.Reconciler, c.Config.PayPalCurrency, c.Logger)

	verifier := services.NewWebhookVerifier(c.Gateway, c.Logger)
	c.WebhookSvc = services.NewWebhookService(verifier, c.Reconciler, c.WebhookRepo, services.WebhookConfig{
		WebhookID:       c.Config.PayPalWebhookID,
		AllowUnverified: c.Config.PayPalAllowUnverifiedWebhook,
	}, c.Logger)
}

func (c *Container) initRouter() {
	h := httpx.Handlers{
		Auth:      handlers.NewAuthHandlers(c.AuthSvc, c.OTPSvc, c.Logger),
		Donations: handlers.NewDonationHandlers(c.DonationSvc, c.DonationRepo, c.Logger),
		Webhooks:  handlers.NewWebhookHandlers(c.WebhookSvc, c.Logger),
		Policies:  handlers.NewPolicyHandlers(c.PolicySvc),
		Health: handlers.NewHealthHandlers(map[string]handlers.Pinger{
			"database": c.pingDB,
			"redis": func(ctx context.Context) error {
				return c.RedisClient.Ping(ctx).Err()
			},
		}),
	}

	mw := httpx.Middleware{
		JWT:            middleware.NewAuthMW(c.TokenSvc),
		Casbin:         middleware.NewCasbinMW(services.NewCasbinEnforcerWrapper(c.Casbin.E), c.Logger),
		AllowedOrigins: splitOrigins(c.Config.FrontendOrigin),
	}
	if c.Config.RateLimitPerHour > 0 {
		mw.RateLimiter = middleware.NewRateLimiter(c.RedisClient, c.Config.RateLimitPerHour, time.Hour, c.Logger)
	}

	c.Router = httpx.BuildRouter(h, mw, c.Logger)
}

func (c *Container) pingDB(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// SeedPolicies adds the default role policies that are missing
func (c *Container) SeedPolicies() error {
	added, err := c.Casbin.SeedDefaults()
	if err != nil {
		return err
	}
	if added > 0 {
		c.Logger.Info().Int("added", added).Msg("casbin: seeded default policies")
	}
	return nil
}

// Close waits for pending emails and closes all connections
func (c *Container) Close(ctx context.Context) error {
	if c.Notifier != nil {
		if err := c.Notifier.Wait(ctx); err != nil {
			c.Logger.Warn().Err(err).Msg("pending emails abandoned on shutdown")
		}
	}
	if c.RedisClient != nil {
		_ = c.RedisClient.Close()
	}
	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
