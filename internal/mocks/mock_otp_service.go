package mocks

import (
	"context"
	"time"

	"github.com/you/donationsvc/domain"
)

// MockOTPService implements domain.OTPService interface for testing
type MockOTPService struct {
	IssueFunc  func(ctx context.Context, email string) (*domain.OTP, error)
	VerifyFunc func(ctx context.Context, email, code string) error
}

// NewMockOTPService creates a new MockOTPService with default behaviors
func NewMockOTPService() *MockOTPService {
	return &MockOTPService{}
}

// Issue issues a new code
func (m *MockOTPService) Issue(ctx context.Context, email string) (*domain.OTP, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(ctx, email)
	}
	now := time.Now()
	return &domain.OTP{Email: email, Code: "123456", IssuedAt: now, ExpiresAt: now.Add(5 * time.Minute)}, nil
}

// Verify checks a submitted code
func (m *MockOTPService) Verify(ctx context.Context, email, code string) error {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, email, code)
	}
	if code == "123456" {
		return nil
	}
	return domain.ErrOTPInvalid
}

// Compile-time interface compliance verification
var _ domain.OTPService = (*MockOTPService)(nil)
