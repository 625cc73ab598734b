package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/you/donationsvc/domain"
)

const defaultSendTimeout = 30 * time.Second

// AsyncNotifier hands each message to a goroutine and returns immediately.
// Failures are logged and never reach the caller.
type AsyncNotifier struct {
	next    domain.NotificationService
	logger  zerolog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAsyncNotifier wraps next with fire-and-forget delivery
func NewAsyncNotifier(next domain.NotificationService, logger zerolog.Logger) *AsyncNotifier {
	return &AsyncNotifier{
		next:    next,
		logger:  logger.With().Str("component", "notifier").Logger(),
		timeout: defaultSendTimeout,
	}
}

// SendEmail implements domain.NotificationService. The request context's
// cancellation does not abort delivery.
func (a *AsyncNotifier) SendEmail(ctx context.Context, to, subject, body string) error {
	sendCtx := context.WithoutCancel(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(sendCtx, a.timeout)
		defer cancel()

		if err := a.next.SendEmail(ctx, to, subject, body); err != nil {
			a.logger.Error().Err(err).
				Str("event", domain.NotificationFailureEvent).
				Str("to", to).
				Str("subject", subject).
				Msg("email delivery failed")
			return
		}
		a.logger.Debug().Str("to", to).Str("subject", subject).Msg("email sent")
	}()
	return nil
}

// Wait blocks until in-flight deliveries finish or ctx is done
func (a *AsyncNotifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ domain.NotificationService = (*AsyncNotifier)(nil)
