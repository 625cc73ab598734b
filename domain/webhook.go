package domain

import (
	"encoding/json"
	"time"
)

// Transmission header names sent by PayPal with every webhook
const (
	HeaderTransmissionID   = "paypal-transmission-id"
	HeaderTransmissionTime = "paypal-transmission-time"
	HeaderCertURL          = "paypal-cert-url"
	HeaderAuthAlgo         = "paypal-auth-algo"
	HeaderTransmissionSig  = "paypal-transmission-sig"
)

// TransmissionHeaders holds the signature metadata of a webhook delivery
type TransmissionHeaders struct {
	TransmissionID   string
	TransmissionTime string
	CertURL          string
	AuthAlgo         string
	TransmissionSig  string
}

// Missing returns the names of required headers that are empty
func (h TransmissionHeaders) Missing() []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{HeaderTransmissionID, h.TransmissionID},
		{HeaderTransmissionTime, h.TransmissionTime},
		{HeaderCertURL, h.CertURL},
		{HeaderAuthAlgo, h.AuthAlgo},
		{HeaderTransmissionSig, h.TransmissionSig},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// SignatureVerification is the body of PayPal's verify-webhook-signature call
type SignatureVerification struct {
	TransmissionID   string          `json:"transmission_id"`
	TransmissionTime string          `json:"transmission_time"`
	CertURL          string          `json:"cert_url"`
	AuthAlgo         string          `json:"auth_algo"`
	TransmissionSig  string          `json:"transmission_sig"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

// VerificationSuccess is the verification_status of a genuine delivery
const VerificationSuccess = "SUCCESS"

// WebhookRecord is the audit row kept for every verified delivery
type WebhookRecord struct {
	ID              uint
	EventID         string
	EventType       string
	OrderID         string
	Payload         string
	SignatureValid  bool
	Outcome         string
	ProcessingError string
	ProcessedAt     *time.Time
	CreatedAt       time.Time
}
