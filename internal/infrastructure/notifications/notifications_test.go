package notifications

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/donationsvc/domain"
)

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []string
	err   error
	block chan struct{}
}

func (r *recordingNotifier) SendEmail(ctx context.Context, to, subject, body string) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, to+"|"+subject)
	return r.err
}

func TestBuildMessage(t *testing.T) {
	msg, err := buildMessage("noreply@example.com", "donor@example.com", "Your OTP Code", "Your OTP is: 123456")
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "Subject: Your OTP Code")
	assert.Contains(t, raw, "<donor@example.com>")
	assert.Contains(t, raw, "Your OTP is: 123456")
}

func TestBuildMessage_InvalidAddress(t *testing.T) {
	_, err := buildMessage("noreply@example.com", "not an address", "s", "b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotificationFailed))
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(zerolog.New(&buf))

	require.NoError(t, n.SendEmail(context.Background(), "a@b.com", "hello", "body"))
	assert.Contains(t, buf.String(), `"to":"a@b.com"`)
}

func TestAsyncNotifier_ReturnsBeforeDelivery(t *testing.T) {
	next := &recordingNotifier{block: make(chan struct{})}
	a := NewAsyncNotifier(next, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, a.SendEmail(ctx, "a@b.com", "Donation received", "thanks"))
	cancel()

	close(next.block)
	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	require.NoError(t, a.Wait(waitCtx))

	assert.Equal(t, []string{"a@b.com|Donation received"}, next.sent, "request cancellation does not abort delivery")
}

func TestAsyncNotifier_LogsFailures(t *testing.T) {
	var buf syncBuffer
	next := &recordingNotifier{err: errors.New("smtp down")}
	a := NewAsyncNotifier(next, zerolog.New(&buf))

	require.NoError(t, a.SendEmail(context.Background(), "a@b.com", "s", "b"))
	require.NoError(t, a.Wait(context.Background()))

	assert.Contains(t, buf.String(), domain.NotificationFailureEvent)
	assert.Contains(t, buf.String(), "smtp down")
}

func TestAsyncNotifier_WaitHonoursContext(t *testing.T) {
	next := &recordingNotifier{block: make(chan struct{})}
	defer close(next.block)
	a := NewAsyncNotifier(next, zerolog.Nop())

	require.NoError(t, a.SendEmail(context.Background(), "a@b.com", "s", "b"))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, a.Wait(ctx), context.DeadlineExceeded)
}

type syncBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}
