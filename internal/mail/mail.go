// Package mail delivers transactional email through a pluggable Sender.
package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/erazemk/lostfound/internal/model"
)

var (
	// ErrSendFailed is joined into every delivery error.
	ErrSendFailed = errors.New("sending email failed")
	// ErrInvalidConfig is returned when a sender is misconfigured.
	ErrInvalidConfig = errors.New("invalid mail configuration")
	// ErrInvalidMessage is returned for messages that cannot be sent.
	ErrInvalidMessage = errors.New("invalid email message")
)

// Sender delivers one message. Implementations make a single attempt.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a single email to one recipient.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"-"`
	Text    string `json:"-"`
	Tag     string `json:"tag,omitempty"`
}

// Validate checks that the message has a recipient, a subject and a body.
func (m Message) Validate() error {
	if m.To == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidMessage)
	}
	if !model.ValidEmail(m.To) {
		return fmt.Errorf("%w: recipient %q is not a valid address", ErrInvalidMessage, m.To)
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}
	if m.HTML == "" && m.Text == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}
	return nil
}
