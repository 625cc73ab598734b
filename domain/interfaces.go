package domain

import (
	"context"
	"encoding/json"
	"time"
)

// UserRepository defines user data access operations
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uint) (*User, error)
	MarkVerified(ctx context.Context, email string) error
}

// DonationRepository defines donation data access operations. Transition is
// the only write path that touches Donation.Status or User.TotalDonated.
type DonationRepository interface {
	Create(ctx context.Context, donation *Donation) error
	FindByID(ctx context.Context, id uint) (*Donation, error)
	FindByPaymentReference(ctx context.Context, ref string) (*Donation, error)
	ListByUser(ctx context.Context, userID uint) ([]Donation, error)
	ListRecent(ctx context.Context, limit int) ([]Donation, error)
	Transition(ctx context.Context, paymentRef string, t Transition) (*TransitionResult, error)
}

// WebhookEventRepository keeps an audit trail of verified webhook deliveries
type WebhookEventRepository interface {
	// Record stores the delivery and reports whether the event id was seen before
	Record(ctx context.Context, record *WebhookRecord) (bool, error)
	MarkProcessed(ctx context.Context, id uint, outcome, processingError string) error
}

// ConsumeResult is the outcome of an atomic compare-and-delete
type ConsumeResult int

const (
	ConsumeAbsent ConsumeResult = iota
	ConsumeMismatch
	ConsumeMatched
)

// TokenStore is an expiring key/value store. Reads past TTL must miss.
type TokenStore interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	// Consume deletes key only when its value equals expected, atomically
	Consume(ctx context.Context, key, expected string) (ConsumeResult, error)
	Delete(ctx context.Context, key string) error
	// Throttle claims key for window; when already claimed it returns the wait
	Throttle(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error)
}

// AuthService defines authentication business logic
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*User, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	GetUserProfile(ctx context.Context, userID uint) (*User, error)
}

// OTPService defines OTP operations
type OTPService interface {
	Issue(ctx context.Context, email string) (*OTP, error)
	Verify(ctx context.Context, email, code string) error
}

// PasswordService defines password operations
type PasswordService interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) bool
}

// TokenService defines token operations
type TokenService interface {
	GenerateAccessToken(userID uint, role string) (string, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
	AccessTTL() time.Duration
}

// NotificationService defines outbound notification operations
type NotificationService interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// PaymentGateway wraps the payment processor's order and verification API
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount int64, currency string) (*Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*Capture, error)
	GetOrderDetails(ctx context.Context, orderID string) (json.RawMessage, error)
	VerifyWebhookSignature(ctx context.Context, req *SignatureVerification) (string, error)
}

// WebhookVerifier decides whether a delivery was issued by the processor
type WebhookVerifier interface {
	Verify(ctx context.Context, webhookID string, headers TransmissionHeaders, body []byte) bool
}

// ReconcileOutcome classifies what a reconciliation step did
type ReconcileOutcome string

const (
	OutcomeApplied     ReconcileOutcome = "applied"
	OutcomeNoop        ReconcileOutcome = "noop"
	OutcomeNotFound    ReconcileOutcome = "not_found"
	OutcomeIgnored     ReconcileOutcome = "ignored"
	OutcomeUnparseable ReconcileOutcome = "unparseable"
)

// ReconcileResult is returned by every reconciler entry point
type ReconcileResult struct {
	Outcome  ReconcileOutcome
	Donation *Donation
}

// DonationReconciler applies payment events to the Donation+User aggregate
type DonationReconciler interface {
	CompleteCapture(ctx context.Context, orderID string) (*ReconcileResult, error)
	RefundCapture(ctx context.Context, orderID string) (*ReconcileResult, error)
	HandleEvent(ctx context.Context, event *WebhookEvent) (*ReconcileResult, error)
}

// DonationService defines the synchronous donation flow
type DonationService interface {
	CreateOrder(ctx context.Context, userID uint, amount int64) (*Order, *Donation, error)
	CaptureOrder(ctx context.Context, userID uint, orderID string) (*Donation, error)
	ListForUser(ctx context.Context, userID uint) ([]Donation, error)
	GetForUser(ctx context.Context, userID, donationID uint) (*Donation, error)
	OrderDetails(ctx context.Context, userID uint, orderID string) (json.RawMessage, error)
}

// WebhookAck is the body acknowledged to the processor
type WebhookAck struct {
	Status    string `json:"status"`
	EventType string `json:"event_type"`
}

// Webhook acknowledgement statuses
const (
	AckSuccess = "success"
	AckIgnored = "ignored"
	AckError   = "error"
)

// WebhookService authenticates, records and reconciles inbound webhooks.
// The only error it returns is ErrVerificationFailed.
type WebhookService interface {
	Handle(ctx context.Context, headers TransmissionHeaders, body []byte) (*WebhookAck, error)
}

// PolicyService defines authorization policy operations. Roles are given
// without the role_ prefix used in stored policies.
type PolicyService interface {
	AddPolicy(role, resource, action string) (bool, error)
	RemovePolicy(role, resource, action string) (bool, error)
	CheckPermission(role, resource, action string) (bool, error)
	GetPolicies() ([][]string, error)
}

// CasbinEnforcer interface defines the methods we need from Casbin enforcer
type CasbinEnforcer interface {
	AddPolicy(params ...interface{}) (bool, error)
	RemovePolicy(params ...interface{}) (bool, error)
	Enforce(rvals ...interface{}) (bool, error)
	GetPolicy() ([][]string, error)
	SavePolicy() error
}
