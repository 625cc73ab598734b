package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/you/donationsvc/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	defaultCreateTimeout = 30 * time.Second
	defaultCallTimeout   = 10 * time.Second

	// tokens are refreshed slightly before PayPal expires them
	expiryLeeway = 30 * time.Second

	maxResponseBody = 1 << 20
)

// Config holds the PayPal REST credentials and order defaults
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	BrandName    string
	ReturnURL    string
	CancelURL    string

	HTTPClient     *http.Client
	CreateTimeout  time.Duration
	DefaultTimeout time.Duration
}

// Client implements domain.PaymentGateway against the PayPal REST API.
// The bearer token is cached per instance.
type Client struct {
	cfg    Config
	http   *http.Client
	oauth  clientcredentials.Config
	logger zerolog.Logger
	now    func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

var _ domain.PaymentGateway = (*Client)(nil)

// NewClient creates a PayPal client
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.CreateTimeout <= 0 {
		cfg.CreateTimeout = defaultCreateTimeout
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaultCallTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		cfg:  cfg,
		http: httpClient,
		oauth: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.BaseURL + "/v1/oauth2/token",
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		logger: logger.With().Str("component", "paypal").Logger(),
		now:    time.Now,
	}
}

// Authenticate returns a bearer token, fetching one when none is cached or
// the cached one is about to expire
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && (c.expiry.IsZero() || c.now().Before(c.expiry)) {
		return c.token, nil
	}

	tok, err := c.oauth.Token(context.WithValue(ctx, oauth2.HTTPClient, c.http))
	if err != nil {
		gerr := &domain.GatewayError{Op: "authenticate", Err: err}
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			gerr.StatusCode = re.Response.StatusCode
			gerr.Body = string(re.Body)
			gerr.Err = nil
		}
		return "", gerr
	}

	c.token = tok.AccessToken
	c.expiry = time.Time{}
	if !tok.Expiry.IsZero() {
		c.expiry = tok.Expiry.Add(-expiryLeeway)
	}
	c.logger.Debug().Time("expires_at", tok.Expiry).Msg("paypal access token refreshed")
	return c.token, nil
}

// invalidate drops the cached token if it is still the one that was rejected
func (c *Client) invalidate(rejected string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == rejected {
		c.token = ""
		c.expiry = time.Time{}
	}
}

type request struct {
	op      string
	method  string
	path    string
	body    interface{}
	timeout time.Duration
	headers map[string]string
}

// do sends an authenticated request. A 401 triggers one re-authentication and
// one retry; nothing else is retried.
func (c *Client) do(ctx context.Context, r request) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var payload []byte
	if r.body != nil {
		var err error
		if payload, err = json.Marshal(r.body); err != nil {
			return nil, 0, &domain.GatewayError{Op: r.op, Err: err}
		}
	}

	for attempt := 0; ; attempt++ {
		token, err := c.Authenticate(ctx)
		if err != nil {
			return nil, 0, err
		}

		req, err := http.NewRequestWithContext(ctx, r.method, c.cfg.BaseURL+r.path, bytes.NewReader(payload))
		if err != nil {
			return nil, 0, &domain.GatewayError{Op: r.op, Err: err}
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if r.method != http.MethodGet {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range r.headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, 0, &domain.GatewayError{Op: r.op, Err: err}
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		resp.Body.Close()
		if err != nil {
			return nil, resp.StatusCode, &domain.GatewayError{Op: r.op, StatusCode: resp.StatusCode, Err: err}
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			c.logger.Info().Str("op", r.op).Msg("paypal rejected token, re-authenticating")
			c.invalidate(token)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, resp.StatusCode, &domain.GatewayError{Op: r.op, StatusCode: resp.StatusCode, Body: string(data)}
		}
		return data, resp.StatusCode, nil
	}
}

func decode(op string, status int, data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &domain.GatewayError{Op: op, StatusCode: status, Body: string(data), Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
