// Package mail delivers password reset links over SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	gomail "github.com/wneessen/go-mail"

	"go-auth-service/internal/config"
	"go-auth-service/internal/metrics"
	"go-auth-service/internal/model"
)

const resetSubject = "Password Reset Request"

type transport interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// Sender delivers reset notifications. Each Send is bounded by the configured
// mail timeout, retries included.
type Sender struct {
	cfg          config.MailConfig
	resetURLBase string
	resetTTL     time.Duration
	retries      uint64
	backoff      time.Duration
	dial         func() (transport, error)
}

func NewSender(cfg config.MailConfig, resetURLBase string, resetTTL time.Duration) *Sender {
	s := &Sender{
		cfg:          cfg,
		resetURLBase: resetURLBase,
		resetTTL:     resetTTL,
		retries:      2,
		backoff:      250 * time.Millisecond,
	}
	s.dial = s.dialSMTP
	return s
}

func (s *Sender) dialSMTP() (transport, error) {
	return gomail.NewClient(s.cfg.Server,
		gomail.WithPort(s.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.Username),
		gomail.WithPassword(s.cfg.Password),
		gomail.WithTLSPortPolicy(gomail.TLSMandatory),
		gomail.WithTimeout(s.cfg.Timeout),
	)
}

// SendPasswordReset emails a reset link for token to the given address.
func (s *Sender) SendPasswordReset(ctx context.Context, to string, token string) error {
	if missing := s.cfg.Missing(); len(missing) > 0 {
		slog.Error("mail settings missing", "missing", strings.Join(missing, ","))
		metrics.RecordMailDelivery(metrics.OutcomeError)
		return fmt.Errorf("%w: missing %s", model.ErrMailNotConfigured, strings.Join(missing, ", "))
	}

	link, err := resetLink(s.resetURLBase, token)
	if err != nil {
		metrics.RecordMailDelivery(metrics.OutcomeError)
		return err
	}

	msg := gomail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		metrics.RecordMailDelivery(metrics.OutcomeError)
		return fmt.Errorf("set sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		metrics.RecordMailDelivery(metrics.OutcomeError)
		return fmt.Errorf("set recipient address: %w", err)
	}
	msg.Subject(resetSubject)
	msg.SetBodyString(gomail.TypeTextPlain, resetBody(link, s.resetTTL))

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	client, err := s.dial()
	if err != nil {
		metrics.RecordMailDelivery(metrics.OutcomeError)
		return fmt.Errorf("create smtp client: %w", err)
	}

	backoff := retry.WithMaxRetries(s.retries, retry.NewExponential(s.backoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if sendErr := client.DialAndSendWithContext(ctx, msg); sendErr != nil {
			if errors.Is(sendErr, context.Canceled) || errors.Is(sendErr, context.DeadlineExceeded) {
				return sendErr
			}
			slog.Warn("reset mail attempt failed", "error", sendErr)
			return retry.RetryableError(sendErr)
		}
		return nil
	})
	if err != nil {
		metrics.RecordMailDelivery(metrics.OutcomeFailure)
		return fmt.Errorf("send reset mail: %w", err)
	}

	metrics.RecordMailDelivery(metrics.OutcomeSuccess)
	return nil
}

func resetLink(base string, token string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid reset url base %q", base)
	}

	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func resetBody(link string, ttl time.Duration) string {
	var b strings.Builder
	b.WriteString("Hello,\n\n")
	b.WriteString("A password reset was requested for your account. Open the link below to choose a new password:\n\n")
	b.WriteString(link)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "The link expires in %d minutes.\n\n", int(ttl.Minutes()))
	b.WriteString("If you did not request a reset, you can ignore this message.\n")
	return b.String()
}
