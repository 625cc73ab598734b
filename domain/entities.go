package domain

import (
	"encoding/json"
	"time"
)

// User represents a donor account
type User struct {
	ID           uint
	Name         string
	Email        string
	PasswordHash string `gorm:"column:password"`
	Role         string
	Verified     bool
	TotalDonated int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DonationStatus is the lifecycle state of a donation
type DonationStatus string

const (
	DonationPending   DonationStatus = "pending"
	DonationCompleted DonationStatus = "completed"
	DonationRefunded  DonationStatus = "refunded"
)

// transitions lists every legal status change. Nothing leaves refunded and
// nothing returns to pending.
var transitions = map[DonationStatus][]DonationStatus{
	DonationPending:   {DonationCompleted},
	DonationCompleted: {DonationRefunded},
}

// CanTransitionTo reports whether the donation may move from s to next
func (s DonationStatus) CanTransitionTo(next DonationStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status
func (s DonationStatus) Valid() bool {
	switch s {
	case DonationPending, DonationCompleted, DonationRefunded:
		return true
	}
	return false
}

// Donation represents one payment attempt. Amount is in minor currency units.
type Donation struct {
	ID               uint
	UserID           uint
	Amount           int64
	Currency         string
	Status           DonationStatus
	PaymentReference string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Transition describes a guarded status change and its effect on the owner's
// running total. CreditSign is +1 for a credit, -1 for a debit.
type Transition struct {
	From       DonationStatus
	To         DonationStatus
	CreditSign int64
}

var (
	// CompleteTransition credits the donor when a capture settles
	CompleteTransition = Transition{From: DonationPending, To: DonationCompleted, CreditSign: 1}
	// RefundTransition debits the donor when a settled capture is refunded
	RefundTransition = Transition{From: DonationCompleted, To: DonationRefunded, CreditSign: -1}
)

// TransitionResult is the outcome of applying a Transition
type TransitionResult struct {
	Donation *Donation
	User     *User
	// Applied is false when the donation was not in the From state, which makes
	// replays and races a no-op.
	Applied bool
}

// OTP represents an issued one-time password
type OTP struct {
	Email     string
	Code      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AuthResult represents authentication outcome
type AuthResult struct {
	User        *User
	AccessToken string
	TokenType   string
	ExpiresIn   int64
}

// TokenClaims represents JWT token claims
type TokenClaims struct {
	UserID    uint   `json:"user_id"`
	Role      string `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Order is the gateway-side order created for a donation
type Order struct {
	ID           string
	Status       string
	ApprovalLink string
}

// Capture is the gateway response to an order capture
type Capture struct {
	Status string
	Raw    json.RawMessage
}

// StatusCompleted is the gateway status of a settled order or capture
const StatusCompleted = "COMPLETED"

// Completed reports whether the capture settled
func (c *Capture) Completed() bool {
	return c != nil && c.Status == StatusCompleted
}
