package notifications

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
	"github.com/you/donationsvc/domain"
)

// SMTPConfig holds the outbound mail server settings
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	// Insecure disables the STARTTLS requirement, for local relays only
	Insecure bool
}

// SMTPServiceImpl implements domain.NotificationService over SMTP
type SMTPServiceImpl struct {
	client *mail.Client
	from   string
}

// NewSMTPService creates a new SMTP notification service
func NewSMTPService(cfg SMTPConfig) (*SMTPServiceImpl, error) {
	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Pass),
		)
	}
	if cfg.Insecure {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &SMTPServiceImpl{client: client, from: cfg.From}, nil
}

// SendEmail implements domain.NotificationService
func (s *SMTPServiceImpl) SendEmail(ctx context.Context, to, subject, body string) error {
	msg, err := buildMessage(s.from, to, subject, body)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotificationFailed, err)
	}
	return nil
}

func buildMessage(from, to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("%w: invalid sender %q: %v", domain.ErrNotificationFailed, from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("%w: invalid recipient %q: %v", domain.ErrNotificationFailed, to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

// LogNotifier implements domain.NotificationService by logging the message.
// It is used when no SMTP host is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a notifier that only logs
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notifier").Logger()}
}

// SendEmail implements domain.NotificationService
func (n *LogNotifier) SendEmail(_ context.Context, to, subject, body string) error {
	n.logger.Info().Str("to", to).Str("subject", subject).Str("body", body).Msg("[MOCK EMAIL]")
	return nil
}

var (
	_ domain.NotificationService = (*SMTPServiceImpl)(nil)
	_ domain.NotificationService = (*LogNotifier)(nil)
)
