package email

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrDisabled is returned by a sender that was built without a transport.
var ErrDisabled = errors.New("email sender disabled")

// Sender delivers verification tokens to the user's mailbox.
type Sender interface {
	SendVerificationToken(ctx context.Context, toEmail string, token string, expiresAt time.Time) error
}

type disabledSender struct {
	reason string
}

// NewDisabledSender returns a Sender that refuses every message with
// ErrDisabled, annotated with reason.
func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendVerificationToken(_ context.Context, _ string, _ string, _ time.Time) error {
	if s.reason == "" {
		return ErrDisabled
	}
	return fmt.Errorf("%w: %s", ErrDisabled, s.reason)
}
