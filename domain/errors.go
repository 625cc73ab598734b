package domain

import (
	"errors"
	"fmt"
)

// Authentication errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrEmailNotVerified   = errors.New("email not verified")
)

// OTP errors
var (
	ErrOTPExpired     = errors.New("otp has expired")
	ErrOTPInvalid     = errors.New("invalid otp code")
	ErrOTPResendLimit = errors.New("otp resend limit exceeded")
)

// Token errors
var (
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenMalformed = errors.New("malformed token")
)

// Payment errors
var (
	ErrGateway             = errors.New("payment gateway error")
	ErrPaymentNotCompleted = errors.New("payment not completed")
	ErrVerificationFailed  = errors.New("webhook verification failed")
	ErrDonationNotFound    = errors.New("donation not found")
	ErrInvalidAmount       = errors.New("amount must be a positive integer")
	ErrNegativeTotal       = errors.New("total donated would become negative")
	ErrIllegalTransition   = errors.New("illegal donation status transition")
	ErrUnparseableEvent    = errors.New("webhook event could not be parsed")
)

// Notification errors
var (
	ErrNotificationFailed = errors.New("notification failed")
)

// Authorization errors
var (
	ErrInvalidPolicy = errors.New("invalid policy")
)

// GatewayError carries the upstream failure of a payment gateway call
type GatewayError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("gateway %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Is makes every GatewayError match ErrGateway
func (e *GatewayError) Is(target error) bool { return target == ErrGateway }
