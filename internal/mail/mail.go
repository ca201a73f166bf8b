package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"ecommerce/api/internal/config"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type Mailer struct {
	dialer  sender
	from    string
	timeout time.Duration
	log     zerolog.Logger
}

func NewMailer(cfg config.MailConfig, log zerolog.Logger) *Mailer {
	return &Mailer{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		timeout: cfg.SendTimeout,
		log:     log,
	}
}

// Send delivers msg, giving up after the configured send timeout.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("send mail: empty recipient")
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)

	// gomail has no context support; the SMTP exchange runs to completion
	// in the background if ctx ends first.
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(gm) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail: %w", err)
		}
		m.log.Debug().Str("to", msg.To).Str("subject", msg.Subject).Msg("mail sent")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send mail: %w", ctx.Err())
	}
}

func ResetCodeMessage(to, name, code, company string, validFor time.Duration) Message {
	minutes := int(validFor / time.Minute)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour password reset code is: %s\n\nThis code is valid for %d minutes.\n\nIf you did not request a password reset, please ignore this email.\n\nBest regards,\n%s",
		name, code, minutes, company,
	)
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Your Password Reset Code (valid for %d minutes)", minutes),
		Body:    body,
	}
}
