package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/you/donationsvc/domain"
)

const (
	otpMin   = 100000
	otpRange = 900000
)

// OTPConfig controls code lifetime and resend throttling. A zero
// ResendWindow disables throttling.
type OTPConfig struct {
	TTL          time.Duration
	ResendWindow time.Duration
}

// OTPServiceImpl implements domain.OTPService on top of a TokenStore
type OTPServiceImpl struct {
	store           domain.TokenStore
	userRepo        domain.UserRepository
	notificationSvc domain.NotificationService
	config          OTPConfig
	logger          zerolog.Logger
	now             func() time.Time
}

// NewOTPService creates a new OTP service
func NewOTPService(store domain.TokenStore, userRepo domain.UserRepository, notificationSvc domain.NotificationService, config OTPConfig, logger zerolog.Logger) *OTPServiceImpl {
	return &OTPServiceImpl{
		store:           store,
		userRepo:        userRepo,
		notificationSvc: notificationSvc,
		config:          config,
		logger:          logger.With().Str("component", "otp").Logger(),
		now:             time.Now,
	}
}

func otpKey(email string) string    { return "otp:" + email }
func resendKey(email string) string { return "otp:res:" + email }

// NormalizeEmail is the canonical form used for storage and lookups
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Issue implements domain.OTPService. Any live code for the email is replaced.
func (s *OTPServiceImpl) Issue(ctx context.Context, email string) (*domain.OTP, error) {
	email = NormalizeEmail(email)

	allowed, wait, err := s.store.Throttle(ctx, resendKey(email), s.config.ResendWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to check resend throttle: %w", err)
	}
	if !allowed {
		return nil, fmt.Errorf("%w: retry in %d seconds", domain.ErrOTPResendLimit, int64(wait.Round(time.Second).Seconds()))
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate OTP code: %w", err)
	}
	if err := s.store.Put(ctx, otpKey(email), code, s.config.TTL); err != nil {
		return nil, fmt.Errorf("failed to store OTP: %w", err)
	}

	now := s.now()
	otp := &domain.OTP{Email: email, Code: code, IssuedAt: now, ExpiresAt: now.Add(s.config.TTL)}
	s.logger.Info().Str("event", domain.OTPIssuedEvent).Str("email", email).Time("expires_at", otp.ExpiresAt).Msg("otp issued")

	minutes := int(s.config.TTL.Round(time.Minute).Minutes())
	if minutes < 1 {
		minutes = 1
	}
	body := fmt.Sprintf("Your OTP is: %s. It is valid for %d minute(s).", code, minutes)
	if err := s.notificationSvc.SendEmail(ctx, email, "Your OTP Code", body); err != nil {
		s.logger.Warn().Err(err).Str("event", domain.NotificationFailureEvent).Str("email", email).Msg("otp email not sent")
	}
	return otp, nil
}

// Verify implements domain.OTPService. A matching code is consumed atomically,
// so at most one of several concurrent attempts succeeds.
func (s *OTPServiceImpl) Verify(ctx context.Context, email, code string) error {
	email = NormalizeEmail(email)

	result, err := s.store.Consume(ctx, otpKey(email), strings.TrimSpace(code))
	if err != nil {
		return fmt.Errorf("failed to check OTP: %w", err)
	}

	switch result {
	case domain.ConsumeAbsent:
		s.logger.Info().Str("event", domain.EmailVerifyFailureEvent).Str("email", email).Str("reason", "expired").Msg("otp verification failed")
		return domain.ErrOTPExpired
	case domain.ConsumeMismatch:
		s.logger.Info().Str("event", domain.EmailVerifyFailureEvent).Str("email", email).Str("reason", "mismatch").Msg("otp verification failed")
		return domain.ErrOTPInvalid
	}

	if err := s.userRepo.MarkVerified(ctx, email); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	s.logger.Info().Str("event", domain.EmailVerifiedEvent).Str("email", email).Msg("email verified")
	return nil
}

// generateCode returns a uniformly random code in [100000, 999999]
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpRange))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}

var _ domain.OTPService = (*OTPServiceImpl)(nil)
