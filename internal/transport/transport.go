// Package transport delivers composed messages to a phone number. The
// campaign engine treats every implementation as a black box: Send returns
// nil on success and an error describing the failure otherwise.
package transport

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Sender delivers one text message to one normalized phone number.
type Sender interface {
	Send(ctx context.Context, phone, text string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, phone, text string) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, phone, text string) error { return f(ctx, phone, text) }

// LogSender writes messages to the application log instead of delivering
// them. Used in development and when no gateway is configured.
type LogSender struct{}

// Send logs the message and always succeeds.
func (LogSender) Send(_ context.Context, phone, text string) error {
	log.Info().
		Str("phone", phone).
		Int("chars", len(text)).
		Msg("transport: message (log only)")
	return nil
}

// Throttled wraps a Sender with a token-bucket limiter so bursts of sends
// stay within the gateway's rate.
type Throttled struct {
	next    Sender
	limiter *rate.Limiter
}

// NewThrottled limits next to rps sends per second with the given burst.
// A non-positive rps disables throttling.
func NewThrottled(next Sender, rps float64, burst int) Sender {
	if rps <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttled{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Send waits for a token, then delegates.
func (t *Throttled) Send(ctx context.Context, phone, text string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return t.next.Send(ctx, phone, text)
}
