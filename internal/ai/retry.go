package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/ledgerbook/internal/logger"
)

// Policy bounds retries for model calls. The delay doubles after every
// failed attempt; the sleep happens before the next attempt, never after
// the last one.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration

	sleep func(time.Duration)
}

// DefaultPolicy is the schedule applied when the caller supplies none:
// three attempts with a doubling half-second backoff.
func DefaultPolicy() Policy {
	return Policy{Attempts: defaultAttempts, BaseDelay: defaultBaseDelay}
}

// Do runs attempt up to p.Attempts times and returns nil as soon as one
// attempt succeeds. Once the budget is spent it returns an exhaustion
// error wrapping the last failure; callers convert that into a fallback
// result rather than surfacing it.
func (p Policy) Do(ctx context.Context, op string, attempt func(context.Context) error) error {
	log := logger.FromContext(ctx)
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	delay := p.BaseDelay
	var lastErr error
	for i := 1; i <= attempts; i++ {
		if i > 1 && delay > 0 {
			sleep(delay)
			delay *= 2
		}
		err := attempt(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		log.Warn().
			Err(err).
			Str("op", op).
			Int("attempt", i).
			Int("max_attempts", attempts).
			Msg("model call failed")
	}
	return &exhaustedError{op: op, attempts: attempts, last: lastErr}
}

// exhaustedError marks a retry loop that ran out of attempts. It never
// leaves this package; callers hand out a fallback result instead.
type exhaustedError struct {
	op       string
	attempts int
	last     error
}

func (e *exhaustedError) Error() string {
	return fmt.Sprintf("%s: %d attempts exhausted: %v", e.op, e.attempts, e.last)
}

func (e *exhaustedError) Unwrap() error { return e.last }
