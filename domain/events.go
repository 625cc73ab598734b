package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Audit event names written to the structured log
const (
	UserRegisteredEvent       = "USER_REGISTERED"
	UserLoginEvent            = "USER_LOGIN"
	UserLoginFailureEvent     = "USER_LOGIN_FAILED"
	OTPIssuedEvent            = "OTP_ISSUED"
	EmailVerifiedEvent        = "EMAIL_VERIFIED"
	EmailVerifyFailureEvent   = "EMAIL_VERIFICATION_FAILED"
	DonationCreatedEvent      = "DONATION_CREATED"
	DonationCompletedEvent    = "DONATION_COMPLETED"
	DonationRefundedEvent     = "DONATION_REFUNDED"
	PaymentDeniedEvent        = "PAYMENT_DENIED"
	WebhookVerifyFailureEvent = "WEBHOOK_VERIFICATION_FAILED"
	NotificationFailureEvent  = "NOTIFICATION_FAILED"
)

// PayPal webhook event types handled by the reconciler
const (
	EventTypeCaptureCompleted = "PAYMENT.CAPTURE.COMPLETED"
	EventTypeCaptureRefunded  = "PAYMENT.CAPTURE.REFUNDED"
	EventTypeCaptureDenied    = "PAYMENT.CAPTURE.DENIED"
	EventTypeOrderApproved    = "CHECKOUT.ORDER.APPROVED"
)

// EventKind tags a webhook event with the variant the reconciler understands
type EventKind int

const (
	EventUnrecognized EventKind = iota
	EventCaptureCompleted
	EventCaptureRefunded
	EventCaptureDenied
	EventOrderApproved
)

func (k EventKind) String() string {
	switch k {
	case EventCaptureCompleted:
		return "capture_completed"
	case EventCaptureRefunded:
		return "capture_refunded"
	case EventCaptureDenied:
		return "capture_denied"
	case EventOrderApproved:
		return "order_approved"
	default:
		return "unrecognized"
	}
}

// KindOf maps a PayPal event_type to its EventKind
func KindOf(eventType string) EventKind {
	switch strings.ToUpper(strings.TrimSpace(eventType)) {
	case EventTypeCaptureCompleted:
		return EventCaptureCompleted
	case EventTypeCaptureRefunded:
		return EventCaptureRefunded
	case EventTypeCaptureDenied:
		return EventCaptureDenied
	case EventTypeOrderApproved:
		return EventOrderApproved
	default:
		return EventUnrecognized
	}
}

// WebhookEvent is a parsed PayPal notification
type WebhookEvent struct {
	ID         string
	EventType  string
	Kind       EventKind
	ResourceID string
	// OrderID is the join key against Donation.PaymentReference. Empty when
	// neither the related order id nor the resource id could be resolved.
	OrderID string
	// OrderIDSource records which field path OrderID came from
	OrderIDSource string
	Raw           json.RawMessage
}

// Order id field paths, primary first
const (
	OrderIDFromRelatedIDs = "resource.supplementary_data.related_ids.order_id"
	OrderIDFromResource   = "resource.id"
)

type webhookEnvelope struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		ID                string `json:"id"`
		SupplementaryData struct {
			RelatedIDs struct {
				OrderID string `json:"order_id"`
			} `json:"related_ids"`
		} `json:"supplementary_data"`
	} `json:"resource"`
}

// ParseWebhookEvent decodes a raw webhook body. It only fails when the body
// is not a JSON object; a missing order id is reported through HasOrderID.
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableEvent, err)
	}

	ev := &WebhookEvent{
		ID:         env.ID,
		EventType:  env.EventType,
		Kind:       KindOf(env.EventType),
		ResourceID: env.Resource.ID,
		Raw:        json.RawMessage(body),
	}

	if id := strings.TrimSpace(env.Resource.SupplementaryData.RelatedIDs.OrderID); id != "" {
		ev.OrderID = id
		ev.OrderIDSource = OrderIDFromRelatedIDs
	} else if id := strings.TrimSpace(env.Resource.ID); id != "" {
		ev.OrderID = id
		ev.OrderIDSource = OrderIDFromResource
	}

	return ev, nil
}

// HasOrderID reports whether an order id was resolved
func (e *WebhookEvent) HasOrderID() bool {
	return e != nil && e.OrderID != ""
}
