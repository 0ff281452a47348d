package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
)

const (
	defaultBreakerMaxFailures uint32 = 5
	defaultBreakerTimeout            = 30 * time.Second
	defaultBreakerInterval           = 60 * time.Second
)

type BreakerConfig struct {
	MaxFailures uint32
	Timeout     time.Duration
	Interval    time.Duration
}

// BreakerCompleter fails fast once the wrapped completer keeps failing.
type BreakerCompleter struct {
	name    string
	inner   contractx.Completer
	breaker *gobreaker.CircuitBreaker[contractx.Completion]
}

var _ contractx.Completer = (*BreakerCompleter)(nil)

func NewBreakerCompleter(name string, inner contractx.Completer, cfg BreakerConfig) *BreakerCompleter {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultBreakerTimeout
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultBreakerInterval
	}

	cb := gobreaker.NewCircuitBreaker[contractx.Completion](gobreaker.Settings{
		Name:        "llm:" + name,
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
		// A caller giving up is not a provider failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerCompleter{name: name, inner: inner, breaker: cb}
}

func (b *BreakerCompleter) Complete(ctx context.Context, req contractx.CompletionRequest) (contractx.Completion, error) {
	out, err := b.breaker.Execute(func() (contractx.Completion, error) {
		return b.inner.Complete(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return contractx.Completion{}, fmt.Errorf("%w: %s circuit open: %w", contractx.ErrUpstream, b.name, err)
		}
		return contractx.Completion{}, err
	}
	return out, nil
}

func (b *BreakerCompleter) State() gobreaker.State {
	return b.breaker.State()
}
