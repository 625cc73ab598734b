package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/donationsvc/domain"
	"github.com/you/donationsvc/internal/mocks"
)

type authMocks struct {
	users    *mocks.MockUserRepository
	password *mocks.MockPasswordService
	tokens   *mocks.MockTokenService
	otp      *mocks.MockOTPService
}

func newAuthServiceForTest() (*AuthServiceImpl, *authMocks) {
	m := &authMocks{
		users:    mocks.NewMockUserRepository(),
		password: mocks.NewMockPasswordService(),
		tokens:   mocks.NewMockTokenService(),
		otp:      mocks.NewMockOTPService(),
	}
	return NewAuthService(m.users, m.password, m.tokens, m.otp, testLogger), m
}

func TestAuthServiceImpl_Register(t *testing.T) {
	tests := []struct {
		name          string
		email         string
		password      string
		setupMocks    func(*authMocks)
		expectedError error
		validateUser  func(t *testing.T, user *domain.User)
	}{
		{
			name:     "successful registration",
			email:    " NewUser@Example.com",
			password: "securepassword123",
			setupMocks: func(m *authMocks) {
				m.users.CreateFunc = func(ctx context.Context, user *domain.User) error {
					user.ID = 7
					return nil
				}
			},
			validateUser: func(t *testing.T, user *domain.User) {
				require.NotNil(t, user)
				assert.Equal(t, uint(7), user.ID)
				assert.Equal(t, "newuser@example.com", user.Email)
				assert.Equal(t, "user", user.Role)
				assert.False(t, user.Verified)
				assert.Equal(t, "hashed_securepassword123", user.PasswordHash)
			},
		},
		{
			name:     "user already exists",
			email:    "existing@example.com",
			password: "password123",
			setupMocks: func(m *authMocks) {
				m.users.CreateFunc = func(ctx context.Context, user *domain.User) error {
					return domain.ErrUserAlreadyExists
				}
			},
			expectedError: domain.ErrUserAlreadyExists,
		},
		{
			name:     "password hashing fails",
			email:    "user@example.com",
			password: "password123",
			setupMocks: func(m *authMocks) {
				m.password.HashFunc = func(password string) (string, error) {
					return "", errors.New("hash failure")
				}
			},
			expectedError: errors.New("failed to hash password"),
		},
		{
			name:     "otp failure does not fail registration",
			email:    "user@example.com",
			password: "password123",
			setupMocks: func(m *authMocks) {
				m.otp.IssueFunc = func(ctx context.Context, email string) (*domain.OTP, error) {
					return nil, errors.New("redis down")
				}
			},
			validateUser: func(t *testing.T, user *domain.User) {
				require.NotNil(t, user)
				assert.Equal(t, "user@example.com", user.Email)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newAuthServiceForTest()
			tt.setupMocks(m)

			var issuedFor string
			if m.otp.IssueFunc == nil {
				m.otp.IssueFunc = func(ctx context.Context, email string) (*domain.OTP, error) {
					issuedFor = email
					return &domain.OTP{Email: email, Code: "123456"}, nil
				}
			}

			user, err := svc.Register(context.Background(), "New User", tt.email, tt.password)

			if tt.expectedError != nil {
				require.Error(t, err)
				if errors.Is(tt.expectedError, domain.ErrUserAlreadyExists) {
					assert.ErrorIs(t, err, tt.expectedError)
				} else {
					assert.Contains(t, err.Error(), tt.expectedError.Error())
				}
				assert.Nil(t, user)
				return
			}

			require.NoError(t, err)
			tt.validateUser(t, user)
			if tt.name == "successful registration" {
				assert.Equal(t, "newuser@example.com", issuedFor, "an OTP is issued on registration")
			}
		})
	}
}

func TestAuthServiceImpl_Login(t *testing.T) {
	verifiedUser := &domain.User{ID: 1, Email: "donor@example.com", PasswordHash: "hashed_secret", Role: "user", Verified: true}
	unverifiedUser := &domain.User{ID: 2, Email: "new@example.com", PasswordHash: "hashed_secret", Role: "user"}

	tests := []struct {
		name          string
		email         string
		password      string
		user          *domain.User
		findErr       error
		expectedError error
	}{
		{name: "successful login", email: "Donor@example.com", password: "secret", user: verifiedUser},
		{name: "unknown email", email: "nobody@example.com", password: "secret", findErr: domain.ErrUserNotFound, expectedError: domain.ErrInvalidCredentials},
		{name: "wrong password", email: "donor@example.com", password: "nope", user: verifiedUser, expectedError: domain.ErrInvalidCredentials},
		{name: "unverified email", email: "new@example.com", password: "secret", user: unverifiedUser, expectedError: domain.ErrEmailNotVerified},
		{name: "unverified with wrong password", email: "new@example.com", password: "nope", user: unverifiedUser, expectedError: domain.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newAuthServiceForTest()
			m.tokens.TTL = 30 * time.Minute
			m.users.FindByEmailFunc = func(ctx context.Context, email string) (*domain.User, error) {
				if tt.findErr != nil {
					return nil, tt.findErr
				}
				assert.Equal(t, NormalizeEmail(tt.email), email)
				return tt.user, nil
			}

			result, err := svc.Login(context.Background(), tt.email, tt.password)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "mock_access_token_1_user", result.AccessToken)
			assert.Equal(t, "bearer", result.TokenType)
			assert.Equal(t, int64(1800), result.ExpiresIn)
			assert.Equal(t, verifiedUser, result.User)
		})
	}
}

func TestAuthServiceImpl_Login_RepositoryError(t *testing.T) {
	svc, m := newAuthServiceForTest()
	m.users.FindByEmailFunc = func(ctx context.Context, email string) (*domain.User, error) {
		return nil, errors.New("connection refused")
	}

	_, err := svc.Login(context.Background(), "donor@example.com", "secret")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthServiceImpl_GetUserProfile(t *testing.T) {
	svc, m := newAuthServiceForTest()
	m.users.FindByIDFunc = func(ctx context.Context, id uint) (*domain.User, error) {
		if id == 3 {
			return &domain.User{ID: 3, Email: "donor@example.com", TotalDonated: 1500}, nil
		}
		return nil, domain.ErrUserNotFound
	}

	user, err := svc.GetUserProfile(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), user.TotalDonated)

	_, err = svc.GetUserProfile(context.Background(), 4)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
