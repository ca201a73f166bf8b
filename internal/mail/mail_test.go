package mail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	sent  []*gomail.Message
	err   error
	delay time.Duration
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func TestSendSetsHeaders(t *testing.T) {
	d := &fakeDialer{}
	m := &Mailer{dialer: d, from: "shop@example.com", log: zerolog.Nop()}

	err := m.Send(context.Background(), Message{To: "a@example.com", Subject: "hi", Body: "body"})
	require.NoError(t, err)
	require.Len(t, d.sent, 1)
	require.Equal(t, []string{"shop@example.com"}, d.sent[0].GetHeader("From"))
	require.Equal(t, []string{"a@example.com"}, d.sent[0].GetHeader("To"))
	require.Equal(t, []string{"hi"}, d.sent[0].GetHeader("Subject"))
}

func TestSendErrors(t *testing.T) {
	d := &fakeDialer{err: errors.New("smtp down")}
	m := &Mailer{dialer: d, from: "shop@example.com", log: zerolog.Nop()}

	require.Error(t, m.Send(context.Background(), Message{To: ""}))
	require.ErrorContains(t, m.Send(context.Background(), Message{To: "a@example.com"}), "smtp down")
}

func TestSendHonoursContext(t *testing.T) {
	d := &fakeDialer{delay: 200 * time.Millisecond}
	m := &Mailer{dialer: d, from: "shop@example.com", log: zerolog.Nop()}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := m.Send(ctx, Message{To: "a@example.com"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSendAppliesConfiguredTimeout(t *testing.T) {
	d := &fakeDialer{delay: 200 * time.Millisecond}
	m := &Mailer{dialer: d, from: "shop@example.com", timeout: 10 * time.Millisecond, log: zerolog.Nop()}

	start := time.Now()
	err := m.Send(context.Background(), Message{To: "a@example.com"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 150*time.Millisecond)
}

func TestResetCodeMessage(t *testing.T) {
	msg := ResetCodeMessage("a@example.com", "Ann", "123456", "E-Shop", 10*time.Minute)
	require.Equal(t, "a@example.com", msg.To)
	require.Equal(t, "Your Password Reset Code (valid for 10 minutes)", msg.Subject)
	require.Contains(t, msg.Body, "Hi Ann,")
	require.Contains(t, msg.Body, "123456")
	require.Contains(t, msg.Body, "valid for 10 minutes")
	require.Contains(t, msg.Body, "Best regards,\nE-Shop")
}
