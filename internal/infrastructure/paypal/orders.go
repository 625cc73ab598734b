package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/you/donationsvc/domain"
)

type money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	Amount      money  `json:"amount"`
	Description string `json:"description,omitempty"`
}

type applicationContext struct {
	BrandName          string `json:"brand_name,omitempty"`
	Locale             string `json:"locale,omitempty"`
	LandingPage        string `json:"landing_page,omitempty"`
	ShippingPreference string `json:"shipping_preference"`
	UserAction         string `json:"user_action"`
	ReturnURL          string `json:"return_url,omitempty"`
	CancelURL          string `json:"cancel_url,omitempty"`
}

type createOrderRequest struct {
	Intent             string             `json:"intent"`
	PurchaseUnits      []purchaseUnit     `json:"purchase_units"`
	ApplicationContext applicationContext `json:"application_context"`
}

type link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []link `json:"links"`
}

type verifyResponse struct {
	VerificationStatus string `json:"verification_status"`
}

// CreateOrder implements domain.PaymentGateway
func (c *Client) CreateOrder(ctx context.Context, amount int64, currency string) (*domain.Order, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	body := createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Amount:      money{CurrencyCode: strings.ToUpper(currency), Value: domain.FormatAmount(amount)},
			Description: "Donation",
		}},
		ApplicationContext: applicationContext{
			BrandName:          c.cfg.BrandName,
			Locale:             "en-US",
			LandingPage:        "LOGIN",
			ShippingPreference: "NO_SHIPPING",
			UserAction:         "PAY_NOW",
			ReturnURL:          c.cfg.ReturnURL,
			CancelURL:          c.cfg.CancelURL,
		},
	}

	const op = "create order"
	data, status, err := c.do(ctx, request{
		op:      op,
		method:  http.MethodPost,
		path:    "/v2/checkout/orders",
		body:    body,
		timeout: c.cfg.CreateTimeout,
		headers: map[string]string{"PayPal-Request-Id": uuid.NewString()},
	})
	if err != nil {
		return nil, err
	}

	var resp orderResponse
	if err := decode(op, status, data, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, &domain.GatewayError{Op: op, StatusCode: status, Body: string(data), Err: errors.New("response has no order id")}
	}

	order := &domain.Order{ID: resp.ID, Status: resp.Status}
	for _, l := range resp.Links {
		if l.Rel == "approve" {
			order.ApprovalLink = l.Href
			break
		}
	}
	c.logger.Info().Str("order_id", order.ID).Str("status", order.Status).Int64("amount", amount).Msg("paypal order created")
	return order, nil
}

// CaptureOrder implements domain.PaymentGateway. The caller decides what a
// non-COMPLETED status means.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*domain.Capture, error) {
	const op = "capture order"
	if strings.TrimSpace(orderID) == "" {
		return nil, &domain.GatewayError{Op: op, Err: errors.New("order id is required")}
	}

	data, status, err := c.do(ctx, request{
		op:      op,
		method:  http.MethodPost,
		path:    "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture",
		timeout: c.cfg.DefaultTimeout,
	})
	if err != nil {
		return nil, err
	}

	var resp orderResponse
	if err := decode(op, status, data, &resp); err != nil {
		return nil, err
	}
	return &domain.Capture{Status: resp.Status, Raw: json.RawMessage(data)}, nil
}

// GetOrderDetails implements domain.PaymentGateway
func (c *Client) GetOrderDetails(ctx context.Context, orderID string) (json.RawMessage, error) {
	const op = "get order"
	if strings.TrimSpace(orderID) == "" {
		return nil, &domain.GatewayError{Op: op, Err: errors.New("order id is required")}
	}

	data, status, err := c.do(ctx, request{
		op:      op,
		method:  http.MethodGet,
		path:    "/v2/checkout/orders/" + url.PathEscape(orderID),
		timeout: c.cfg.DefaultTimeout,
	})
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, &domain.GatewayError{Op: op, StatusCode: status, Body: string(data), Err: errors.New("response is not json")}
	}
	return json.RawMessage(data), nil
}

// VerifyWebhookSignature implements domain.PaymentGateway and returns
// PayPal's verification_status verbatim
func (c *Client) VerifyWebhookSignature(ctx context.Context, req *domain.SignatureVerification) (string, error) {
	const op = "verify webhook signature"
	data, status, err := c.do(ctx, request{
		op:      op,
		method:  http.MethodPost,
		path:    "/v1/notifications/verify-webhook-signature",
		body:    req,
		timeout: c.cfg.DefaultTimeout,
	})
	if err != nil {
		return "", err
	}

	var resp verifyResponse
	if err := decode(op, status, data, &resp); err != nil {
		return "", err
	}
	return resp.VerificationStatus, nil
}
