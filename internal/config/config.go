package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Port             int    `yaml:"port"`
	Env              string `yaml:"env"`
	LogLevel         string `yaml:"log_level"`
	GinMode          string `yaml:"gin_mode"`
	FrontendOrigin   string `yaml:"frontend_origin"`
	RateLimitPerHour int    `yaml:"rate_limit_per_hour"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret              string `yaml:"secret"`
	Algorithm           string `yaml:"algorithm"`
	Issuer              string `yaml:"issuer"`
	AccessExpireMinutes int    `yaml:"access_expire_minutes"`
}

type OTPConfig struct {
	TTLSeconds   int    `yaml:"ttl_seconds"`
	ResendWindow string `yaml:"resend_window"`
}

type PayPalConfig struct {
	Mode                   string `yaml:"mode"`
	ClientID               string `yaml:"client_id"`
	ClientSecret           string `yaml:"client_secret"`
	APIBase                string `yaml:"api_base"`
	WebhookID              string `yaml:"webhook_id"`
	AllowUnverifiedWebhook bool   `yaml:"allow_unverified_webhooks"`
	Currency               string `yaml:"currency"`
	BrandName              string `yaml:"brand_name"`
	ReturnURL              string `yaml:"return_url"`
	CancelURL              string `yaml:"cancel_url"`
}

type SMTPConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	User      string `yaml:"user"`
	Pass      string `yaml:"pass"`
	FromEmail string `yaml:"from_email"`
}

type ConfigFile struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	OTP      OTPConfig      `yaml:"otp"`
	PayPal   PayPalConfig   `yaml:"paypal"`
	SMTP     SMTPConfig     `yaml:"smtp"`
}

type Config struct {
	Port             string
	Env              string
	LogLevel         string
	GinMode          string
	FrontendOrigin   string
	RateLimitPerHour int

	DSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret    string
	JWTAlgorithm string
	JWTIssuer    string
	AccessTTL    time.Duration

	OTP_TTL          time.Duration
	OTP_ResendWindow time.Duration

	PayPalMode                   string
	PayPalClientID               string
	PayPalClientSecret           string
	PayPalAPIBase                string
	PayPalWebhookID              string
	PayPalAllowUnverifiedWebhook bool
	PayPalCurrency               string
	PayPalBrandName              string
	PayPalReturnURL              string
	PayPalCancelURL              string

	SMTPHost  string
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string
	FromEmail string
}

// Supported JWT signing algorithms
var supportedAlgorithms = map[string]bool{"HS256": true, "HS384": true, "HS512": true}

const (
	sandboxAPIBase = "https://api-m.sandbox.paypal.com"
	liveAPIBase    = "https://api-m.paypal.com"
)

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

func defaults() *ConfigFile {
	return &ConfigFile{
		App: AppConfig{
			Port:             8000,
			Env:              "development",
			LogLevel:         "info",
			GinMode:          "release",
			FrontendOrigin:   "http://localhost:5173",
			RateLimitPerHour: 200,
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		JWT:   JWTConfig{Algorithm: "HS256", Issuer: "donationsvc", AccessExpireMinutes: 30},
		OTP:   OTPConfig{TTLSeconds: 300, ResendWindow: "60s"},
		PayPal: PayPalConfig{
			Mode:      "sandbox",
			Currency:  "USD",
			BrandName: "Donation App",
			ReturnURL: "http://localhost:5173/payment-success",
			CancelURL: "http://localhost:5173/payment-failure",
		},
		SMTP: SMTPConfig{Port: 587},
	}
}

// Load reads .env, then the YAML file named by CONFIG_FILE, then environment
// overrides. A missing .env or YAML file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFrom(env("CONFIG_FILE", "config/config.yml"))
}

// LoadFrom builds the configuration from the YAML file at path plus the
// environment
func LoadFrom(path string) (*Config, error) {
	file, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	applyEnv(file)

	cfg, err := file.build()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConfigFile(path string) (*ConfigFile, error) {
	config := defaults()
	if path == "" {
		return config, nil
	}

	bytes, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config, nil
		}
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	if err := yaml.Unmarshal(bytes, config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}
	return config, nil
}

func applyEnv(f *ConfigFile) {
	f.App.Port = envInt("PORT", f.App.Port)
	f.App.Env = env("APP_ENV", f.App.Env)
	f.App.LogLevel = env("LOG_LEVEL", f.App.LogLevel)
	f.App.GinMode = env("GIN_MODE", f.App.GinMode)
	f.App.FrontendOrigin = env("FRONTEND_ORIGIN", f.App.FrontendOrigin)
	f.App.RateLimitPerHour = envInt("RATE_LIMIT_PER_HOUR", f.App.RateLimitPerHour)

	f.Database.DSN = env("DATABASE_URL", f.Database.DSN)

	f.Redis.Host = env("REDIS_HOST", f.Redis.Host)
	f.Redis.Port = envInt("REDIS_PORT", f.Redis.Port)
	f.Redis.Password = env("REDIS_PASSWORD", f.Redis.Password)
	f.Redis.DB = envInt("REDIS_DB", f.Redis.DB)

	f.JWT.Secret = env("SECRET_KEY", f.JWT.Secret)
	f.JWT.Algorithm = env("ALGORITHM", f.JWT.Algorithm)
	f.JWT.AccessExpireMinutes = envInt("ACCESS_TOKEN_EXPIRE_MINUTES", f.JWT.AccessExpireMinutes)

	f.OTP.TTLSeconds = envInt("OTP_EXP", f.OTP.TTLSeconds)
	f.OTP.ResendWindow = env("OTP_RESEND_WINDOW", f.OTP.ResendWindow)

	f.PayPal.Mode = env("PAYPAL_MODE", f.PayPal.Mode)
	f.PayPal.ClientID = env("PAYPAL_CLIENT_ID", f.PayPal.ClientID)
	f.PayPal.ClientSecret = env("PAYPAL_CLIENT_SECRET", f.PayPal.ClientSecret)
	f.PayPal.APIBase = env("PAYPAL_API_BASE", f.PayPal.APIBase)
	f.PayPal.WebhookID = env("PAYPAL_WEBHOOK_ID", f.PayPal.WebhookID)
	f.PayPal.AllowUnverifiedWebhook = envBool("PAYPAL_ALLOW_UNVERIFIED_WEBHOOKS", f.PayPal.AllowUnverifiedWebhook)
	f.PayPal.Currency = env("PAYPAL_CURRENCY", f.PayPal.Currency)
	f.PayPal.ReturnURL = env("PAYPAL_RETURN_URL", f.PayPal.ReturnURL)
	f.PayPal.CancelURL = env("PAYPAL_CANCEL_URL", f.PayPal.CancelURL)

	f.SMTP.Host = env("SMTP_HOST", f.SMTP.Host)
	f.SMTP.Port = envInt("SMTP_PORT", f.SMTP.Port)
	f.SMTP.User = env("SMTP_USER", f.SMTP.User)
	f.SMTP.Pass = env("SMTP_PASS", f.SMTP.Pass)
	f.SMTP.FromEmail = env("FROM_EMAIL", f.SMTP.FromEmail)
}

func (f *ConfigFile) build() (*Config, error) {
	resWnd, err := time.ParseDuration(f.OTP.ResendWindow)
	if err != nil {
		return nil, fmt.Errorf("invalid OTP resend window: %w", err)
	}

	apiBase := strings.TrimRight(f.PayPal.APIBase, "/")
	if apiBase == "" {
		apiBase = sandboxAPIBase
		if strings.EqualFold(f.PayPal.Mode, "live") {
			apiBase = liveAPIBase
		}
	}

	return &Config{
		Port:             strconv.Itoa(f.App.Port),
		Env:              f.App.Env,
		LogLevel:         f.App.LogLevel,
		GinMode:          f.App.GinMode,
		FrontendOrigin:   f.App.FrontendOrigin,
		RateLimitPerHour: f.App.RateLimitPerHour,

		DSN: f.Database.DSN,

		RedisAddr:     fmt.Sprintf("%s:%d", f.Redis.Host, f.Redis.Port),
		RedisPassword: f.Redis.Password,
		RedisDB:       f.Redis.DB,

		JWTSecret:    f.JWT.Secret,
		JWTAlgorithm: strings.ToUpper(f.JWT.Algorithm),
		JWTIssuer:    f.JWT.Issuer,
		AccessTTL:    time.Duration(f.JWT.AccessExpireMinutes) * time.Minute,

		OTP_TTL:          time.Duration(f.OTP.TTLSeconds) * time.Second,
		OTP_ResendWindow: resWnd,

		PayPalMode:                   f.PayPal.Mode,
		PayPalClientID:               f.PayPal.ClientID,
		PayPalClientSecret:           f.PayPal.ClientSecret,
		PayPalAPIBase:                apiBase,
		PayPalWebhookID:              f.PayPal.WebhookID,
		PayPalAllowUnverifiedWebhook: f.PayPal.AllowUnverifiedWebhook,
		PayPalCurrency:               strings.ToUpper(f.PayPal.Currency),
		PayPalBrandName:              f.PayPal.BrandName,
		PayPalReturnURL:              f.PayPal.ReturnURL,
		PayPalCancelURL:              f.PayPal.CancelURL,

		SMTPHost:  f.SMTP.Host,
		SMTPPort:  f.SMTP.Port,
		SMTPUser:  f.SMTP.User,
		SMTPPass:  f.SMTP.Pass,
		FromEmail: f.SMTP.FromEmail,
	}, nil
}

// Validate rejects configurations the service cannot start with
func (c *Config) Validate() error {
	var problems []string
	if c.DSN == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		problems = append(problems, "SECRET_KEY is required")
	}
	if !supportedAlgorithms[c.JWTAlgorithm] {
		problems = append(problems, fmt.Sprintf("unsupported ALGORITHM %q", c.JWTAlgorithm))
	}
	if c.AccessTTL <= 0 {
		problems = append(problems, "ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if c.OTP_TTL <= 0 {
		problems = append(problems, "OTP_EXP must be positive")
	}
	if c.OTP_ResendWindow < 0 {
		problems = append(problems, "OTP_RESEND_WINDOW must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// WebhookVerificationDisabled reports the operator-acknowledged insecure mode
func (c *Config) WebhookVerificationDisabled() bool {
	return c.PayPalWebhookID == "" && c.PayPalAllowUnverifiedWebhook
}
