package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/you/donationsvc/domain"
)

// AuthServiceImpl implements domain.AuthService
type AuthServiceImpl struct {
	userRepo    domain.UserRepository
	passwordSvc domain.PasswordService
	tokenSvc    domain.TokenService
	otpSvc      domain.OTPService
	logger      zerolog.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo domain.UserRepository,
	passwordSvc domain.PasswordService,
	tokenSvc domain.TokenService,
	otpSvc domain.OTPService,
	logger zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		userRepo:    userRepo,
		passwordSvc: passwordSvc,
		tokenSvc:    tokenSvc,
		otpSvc:      otpSvc,
		logger:      logger.With().Str("component", "auth").Logger(),
	}
}

// Register implements domain.AuthService. The account starts unverified and
// an OTP is sent to the email address.
func (s *AuthServiceImpl) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	email = NormalizeEmail(email)

	hashedPassword, err := s.passwordSvc.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         "user",
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.Info().Str("event", domain.UserRegisteredEvent).Uint("user_id", user.ID).Str("email", email).Msg("user registered")

	// the account exists either way; the user can ask for a new code
	if _, err := s.otpSvc.Issue(ctx, email); err != nil {
		s.logger.Warn().Err(err).Str("email", email).Msg("failed to issue otp after registration")
	}
	return user, nil
}

// Login implements domain.AuthService
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	email = NormalizeEmail(email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Info().Str("event", domain.UserLoginFailureEvent).Str("email", email).Str("reason", "unknown_email").Msg("login failed")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !s.passwordSvc.Verify(user.PasswordHash, password) {
		s.logger.Info().Str("event", domain.UserLoginFailureEvent).Uint("user_id", user.ID).Str("reason", "bad_password").Msg("login failed")
		return nil, domain.ErrInvalidCredentials
	}

	// checked after the password so unverified accounts are not enumerable
	if !user.Verified {
		return nil, domain.ErrEmailNotVerified
	}

	accessToken, err := s.tokenSvc.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	s.logger.Info().Str("event", domain.UserLoginEvent).Uint("user_id", user.ID).Msg("user logged in")

	return &domain.AuthResult{
		User:        user,
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokenSvc.AccessTTL().Seconds()),
	}, nil
}

// GetUserProfile implements domain.AuthService
func (s *AuthServiceImpl) GetUserProfile(ctx context.Context, userID uint) (*domain.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

var _ domain.AuthService = (*AuthServiceImpl)(nil)
