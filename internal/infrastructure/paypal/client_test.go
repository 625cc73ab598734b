package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/donationsvc/domain"
)

// fakePayPal is a minimal stand-in for the PayPal REST API
type fakePayPal struct {
	*httptest.Server
	tokenCalls atomic.Int32
	tokenSeq   atomic.Int32
	handler    http.HandlerFunc
}

func newFakePayPal(t *testing.T, handler http.HandlerFunc) *fakePayPal {
	t.Helper()

	f := &fakePayPal{handler: handler}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			f.tokenCalls.Add(1)
			user, pass, ok := r.BasicAuth()
			if !ok || user != "client" || pass != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
				return
			}
			n := f.tokenSeq.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "token-" + strconv.Itoa(int(n)),
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
			return
		}
		f.handler(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func newTestClient(f *fakePayPal) *Client {
	return NewClient(Config{
		ClientID:       "client",
		ClientSecret:   "secret",
		BaseURL:        f.URL,
		BrandName:      "Donation App",
		ReturnURL:      "http://localhost:5173/payment-success",
		CancelURL:      "http://localhost:5173/payment-failure",
		DefaultTimeout: 2 * time.Second,
		CreateTimeout:  2 * time.Second,
	}, zerolog.Nop())
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestClient_AuthenticateCachesToken(t *testing.T) {
	f := newFakePayPal(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"id":"ORDER123","status":"CREATED"}`)
	})
	c := newTestClient(f)
	ctx := context.Background()

	_, err := c.GetOrderDetails(ctx, "ORDER123")
	require.NoError(t, err)
	_, err = c.GetOrderDetails(ctx, "ORDER123")
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.tokenCalls.Load())
}

func TestClient_AuthenticateRefreshesExpiredToken(t *testing.T) {
	f := newFakePayPal(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})
	c := newTestClient(f)
	ctx := context.Background()

	_, err := c.Authenticate(ctx)
	require.NoError(t, err)

	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = c.Authenticate(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(2), f.tokenCalls.Load())
}

func TestClient_AuthenticateFailure(t *testing.T) {
	f := newFakePayPal(t, func(w http.ResponseWriter, r *http.Request) {})
	c := newTestClient(f)
	c.oauth.ClientSecret = "wrong"

	_, err := c.Authenticate(context.Background())
	require.Error(t, err)

	var gerr *domain.GatewayError
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, "authenticate", gerr.Op)
	assert.Equal(t, http.StatusUnauthorized, gerr.StatusCode)
	assert.True(t, errors.Is(err, domain.ErrGateway))
}

func TestClient_RetriesOnceOn401(t *testing.T) {
	var calls atomic.Int32
	f := newFakePayPal(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") == "Bearer token-1" {
			writeJSON(w, http.StatusUnauthorized, `{"name":"INVALID_TOKEN"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"id":"ORDER123","status":"APPROVED"}`)
	})
	c := newTestClient(f)

	raw, err := c.GetOrderDetails(context.Background(), "ORDER123")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"ORDER123","status":"APPROVED"}`, string(raw))
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int32(2), f.tokenCalls.Load())
}

func TestClient_FailsAfterSecond401(t *testing.T) {
	var calls atomic.Int32
	f := newFakePayPal(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusUnauthorized, `{"name":"INVALID_TOKEN"}`)
	})
	c := newTestClient(f)

	_, err := c.GetOrderDetails(context.Background(), "ORDER123")
	require.Error(t, err)

	var gerr *domain.GatewayError
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, http.StatusUnauthorized, gerr.StatusCode)
	assert.Equal(t, int32(2), calls.Load(), "exactly one retry")
}

func TestClient_DoesNotRetryServerErrors(t *testing.T) {
	var calls atomic.Int32
	f := newFakePayPal(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, `{"name":"SERVICE_UNAVAILABLE"}`)
	})
	c := newTestClient(f)

	_, err := c.CaptureOrder(context.Background(), "ORDER123")
	require.Error(t, err)

	var gerr *domain.GatewayError
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, http.StatusServiceUnavailable, gerr.StatusCode)
	assert.Contains(t, gerr.Body, "SERVICE_UNAVAILABLE")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Timeout(t *testing.T) {
	f := newFakePayPal(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	c := newTestClient(f)
	c.cfg.DefaultTimeout = 50 * time.Millisecond

	_, err := c.GetOrderDetails(context.Background(), "ORDER123")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrGateway))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
