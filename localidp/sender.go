package localidp

import (
	"context"

	"github.com/MrEthical07/goSession/identity"
	"github.com/rs/zerolog"
)

// Delivery is one code on its way to a user.
type Delivery struct {
	Purpose     string
	Subject     string
	Medium      identity.DeliveryMedium
	Destination string
	Code        string
}

// Sender delivers one-time codes. A Send error fails the operation that
// issued the code.
type Sender interface {
	Send(ctx context.Context, d Delivery) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, d Delivery) error

func (f SenderFunc) Send(ctx context.Context, d Delivery) error {
	return f(ctx, d)
}

// LogSender writes codes to a zerolog logger. It is the development
// delivery channel and the only place the provider lets a code reach a log.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(l zerolog.Logger) *LogSender {
	return &LogSender{logger: l.With().Str("component", "localidp.sender").Logger()}
}

func (s *LogSender) Send(_ context.Context, d Delivery) error {
	s.logger.Info().
		Str("purpose", d.Purpose).
		Str("medium", string(d.Medium)).
		Str("destination", d.Destination).
		Str("code", d.Code).
		Msg("one-time code issued")
	return nil
}
