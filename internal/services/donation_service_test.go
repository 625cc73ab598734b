package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/donationsvc/domain"
	"github.com/you/donationsvc/internal/infrastructure/repositories"
	"github.com/you/donationsvc/internal/mocks"
	"gorm.io/gorm"
)

type donationFixture struct {
	svc      *DonationServiceImpl
	db       *gorm.DB
	gateway  *mocks.MockPaymentGateway
	notifier *mocks.MockNotificationService
	owner    *repositories.DBUser
	other    *repositories.DBUser
}

func newDonationFixture(t *testing.T) *donationFixture {
	t.Helper()

	db := setupTestDB(t)
	repo := repositories.NewDonationRepository(db)
	gateway := mocks.NewMockPaymentGateway()
	notifier := mocks.NewMockNotificationService()
	reconciler := NewReconciler(repo, notifier, testLogger)

	return &donationFixture{
		svc:      NewDonationService(repo, gateway, reconciler, "usd", testLogger),
		db:       db,
		gateway:  gateway,
		notifier: notifier,
		owner:    seedUser(t, db, "owner@example.com", 0),
		other:    seedUser(t, db, "other@example.com", 0),
	}
}

func TestDonationServiceImpl_CreateOrder(t *testing.T) {
	f := newDonationFixture(t)

	var gotAmount int64
	var gotCurrency string
	f.gateway.CreateOrderFunc = func(ctx context.Context, amount int64, currency string) (*domain.Order, error) {
		gotAmount, gotCurrency = amount, currency
		return &domain.Order{ID: "ORDER123", Status: "CREATED", ApprovalLink: "https://paypal.test/approve"}, nil
	}

	order, donation, err := f.svc.CreateOrder(context.Background(), f.owner.ID, 500)
	require.NoError(t, err)

	assert.Equal(t, int64(500), gotAmount)
	assert.Equal(t, "USD", gotCurrency)
	assert.Equal(t, "ORDER123", order.ID)
	assert.Equal(t, "https://paypal.test/approve", order.ApprovalLink)
	assert.Equal(t, domain.DonationPending, donation.Status)
	assert.Equal(t, "ORDER123", donation.PaymentReference)
	assert.Equal(t, f.owner.ID, donation.UserID)
	assert.Equal(t, "pending", donationStatus(t, f.db, "ORDER123"))
}

func TestDonationServiceImpl_CreateOrder_Failures(t *testing.T) {
	t.Run("non-positive amount never reaches the gateway", func(t *testing.T) {
		f := newDonationFixture(t)
		called := false
		f.gateway.CreateOrderFunc = func(ctx context.Context, amount int64, currency string) (*domain.Order, error) {
			called = true
			return nil, nil
		}

		_, _, err := f.svc.CreateOrder(context.Background(), f.owner.ID, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
		assert.False(t, called)
	})

	t.Run("gateway error leaves no donation", func(t *testing.T) {
		f := newDonationFixture(t)
		f.gateway.CreateOrderFunc = func(ctx context.Context, amount int64, currency string) (*domain.Order, error) {
			return nil, &domain.GatewayError{Op: "create order", StatusCode: 503, Body: "unavailable"}
		}

		_, _, err := f.svc.CreateOrder(context.Background(), f.owner.ID, 500)
		var gwErr *domain.GatewayError
		require.True(t, errors.As(err, &gwErr))
		assert.Equal(t, 503, gwErr.StatusCode)

		var count int64
		require.NoError(t, f.db.Model(&repositories.DBDonation{}).Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestDonationServiceImpl_CaptureOrder(t *testing.T) {
	tests := []struct {
		name          string
		status        string
		asOther       bool
		capture       *domain.Capture
		captureErr    error
		expectedError error
		expectStatus  string
		expectTotal   int64
		expectCapture bool
	}{
		{
			name:          "pending capture completes and credits",
			status:        "pending",
			capture:       &domain.Capture{Status: domain.StatusCompleted},
			expectStatus:  "completed",
			expectTotal:   500,
			expectCapture: true,
		},
		{
			name:          "already completed short-circuits",
			status:        "completed",
			expectStatus:  "completed",
			expectCapture: false,
		},
		{
			name:          "refunded cannot be captured",
			status:        "refunded",
			expectedError: domain.ErrIllegalTransition,
			expectStatus:  "refunded",
		},
		{
			name:          "another user's order",
			status:        "pending",
			asOther:       true,
			expectedError: domain.ErrDonationNotFound,
			expectStatus:  "pending",
		},
		{
			name:          "gateway reports non-completed",
			status:        "pending",
			capture:       &domain.Capture{Status: "PAYER_ACTION_REQUIRED"},
			expectedError: domain.ErrPaymentNotCompleted,
			expectStatus:  "pending",
			expectCapture: true,
		},
		{
			name:          "gateway transport failure",
			status:        "pending",
			captureErr:    &domain.GatewayError{Op: "capture order", StatusCode: 422, Body: `{"name":"UNPROCESSABLE_ENTITY"}`},
			expectedError: domain.ErrGateway,
			expectStatus:  "pending",
			expectCapture: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDonationFixture(t)
			seedDonation(t, f.db, f.owner.ID, "ORDER123", 500, tt.status)

			captured := false
			f.gateway.CaptureOrderFunc = func(ctx context.Context, orderID string) (*domain.Capture, error) {
				captured = true
				assert.Equal(t, "ORDER123", orderID)
				return tt.capture, tt.captureErr
			}

			userID := f.owner.ID
			if tt.asOther {
				userID = f.other.ID
			}
			donation, err := f.svc.CaptureOrder(context.Background(), userID, "ORDER123")

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, donation)
			} else {
				require.NoError(t, err)
				assert.Equal(t, domain.DonationStatus(tt.expectStatus), donation.Status)
			}
			assert.Equal(t, tt.expectCapture, captured)
			assert.Equal(t, tt.expectStatus, donationStatus(t, f.db, "ORDER123"))
			assert.Equal(t, tt.expectTotal, userTotal(t, f.db, f.owner.ID))
		})
	}
}

func TestDonationServiceImpl_CaptureThenWebhookCreditsOnce(t *testing.T) {
	f := newDonationFixture(t)
	seedDonation(t, f.db, f.owner.ID, "ORDER123", 500, "pending")

	_, err := f.svc.CaptureOrder(context.Background(), f.owner.ID, "ORDER123")
	require.NoError(t, err)

	res, err := f.svc.reconciler.HandleEvent(context.Background(), parseEvent(t, captureCompletedBody))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNoop, res.Outcome)
	assert.Equal(t, int64(500), userTotal(t, f.db, f.owner.ID))
	assert.Len(t, f.notifier.Sent(), 1)
}

func TestDonationServiceImpl_CaptureOrder_UnknownOrder(t *testing.T) {
	f := newDonationFixture(t)

	_, err := f.svc.CaptureOrder(context.Background(), f.owner.ID, "NOPE")
	assert.ErrorIs(t, err, domain.ErrDonationNotFound)

	_, err = f.svc.CaptureOrder(context.Background(), f.owner.ID, "  ")
	assert.ErrorIs(t, err, domain.ErrDonationNotFound)
}

func TestDonationServiceImpl_ListAndGet(t *testing.T) {
	f := newDonationFixture(t)
	mine := seedDonation(t, f.db, f.owner.ID, "A1", 100, "pending")
	seedDonation(t, f.db, f.owner.ID, "A2", 200, "completed")
	theirs := seedDonation(t, f.db, f.other.ID, "B1", 300, "pending")
	ctx := context.Background()

	list, err := f.svc.ListForUser(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	got, err := f.svc.GetForUser(ctx, f.owner.ID, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, "A1", got.PaymentReference)

	_, err = f.svc.GetForUser(ctx, f.owner.ID, theirs.ID)
	assert.ErrorIs(t, err, domain.ErrDonationNotFound)

	_, err = f.svc.GetForUser(ctx, f.owner.ID, 9999)
	assert.ErrorIs(t, err, domain.ErrDonationNotFound)
}

func TestDonationServiceImpl_OrderDetails(t *testing.T) {
	f := newDonationFixture(t)
	seedDonation(t, f.db, f.owner.ID, "ORDER123", 500, "pending")
	f.gateway.GetOrderDetailsFunc = func(ctx context.Context, orderID string) (json.RawMessage, error) {
		return json.RawMessage(`{"id":"ORDER123","status":"APPROVED"}`), nil
	}
	ctx := context.Background()

	raw, err := f.svc.OrderDetails(ctx, f.owner.ID, "ORDER123")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"ORDER123","status":"APPROVED"}`, string(raw))

	_, err = f.svc.OrderDetails(ctx, f.other.ID, "ORDER123")
	assert.ErrorIs(t, err, domain.ErrDonationNotFound)
}

func TestDonationServiceImpl_CaptureOrder_ReconcilerResults(t *testing.T) {
	boom := errors.New("deadlock detected")
	tests := []struct {
		name          string
		result        *domain.ReconcileResult
		err           error
		expectedError error
	}{
		{
			name:          "row vanished between lookup and transition",
			result:        &domain.ReconcileResult{Outcome: domain.OutcomeNotFound},
			expectedError: domain.ErrDonationNotFound,
		},
		{
			name:          "storage failure is returned",
			err:           boom,
			expectedError: boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			owner := seedUser(t, db, "owner@example.com", 0)
			seedDonation(t, db, owner.ID, "ORDER123", 500, "pending")

			reconciler := &mocks.MockDonationReconciler{CompleteCaptureFunc: func(ctx context.Context, orderID string) (*domain.ReconcileResult, error) {
				assert.Equal(t, "ORDER123", orderID)
				return tt.result, tt.err
			}}
			svc := NewDonationService(repositories.NewDonationRepository(db), mocks.NewMockPaymentGateway(), reconciler, "", testLogger)

			donation, err := svc.CaptureOrder(context.Background(), owner.ID, "ORDER123")
			assert.ErrorIs(t, err, tt.expectedError)
			assert.Nil(t, donation)
		})
	}
}
