package notify

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Channel names a delivery transport.
type Channel string

const (
	// ChannelEmail delivers over email.
	ChannelEmail Channel = "email"
	// ChannelSMS delivers over SMS.
	ChannelSMS Channel = "sms"
)

// ErrChannelUnavailable is returned when no sender is configured for the
// requested channel.
var ErrChannelUnavailable = errors.New("no sender for channel")

// Message is one code delivery.
type Message struct {
	// Recipient is the normalized identifier: an email address or an E.164
	// mobile number depending on the channel.
	Recipient string
	// Code is the plaintext one-time code.
	Code string
	// ExpiresIn tells the recipient how long the code stays valid.
	ExpiresIn time.Duration
}

// Sender delivers a message over one transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to [Sender].
type SenderFunc func(ctx context.Context, msg Message) error

// Send implements [Sender].
func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Dispatcher routes a message to the sender configured for its channel.
type Dispatcher struct {
	email  Sender
	sms    Sender
	logger zerolog.Logger
}

// NewDispatcher builds a Dispatcher. Either sender may be nil when the
// deployment does not use that channel.
func NewDispatcher(email, sms Sender, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{email: email, sms: sms, logger: logger}
}

// Dispatch sends msg over the given channel.
func (d *Dispatcher) Dispatch(ctx context.Context, channel Channel, msg Message) error {
	var sender Sender
	switch channel {
	case ChannelEmail:
		sender = d.email
	case ChannelSMS:
		sender = d.sms
	}
	if sender == nil {
		return ErrChannelUnavailable
	}

	if err := sender.Send(ctx, msg); err != nil {
		d.logger.Error().Str("channel", string(channel)).Err(err).Msg("code delivery failed")
		return err
	}
	d.logger.Debug().Str("channel", string(channel)).Msg("code delivered")
	return nil
}
