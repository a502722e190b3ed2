package encoder

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/felixgeelhaar/sigil/internal/entitlement/domain"
)

// BreakerConfig configures the encoder circuit breaker.
type BreakerConfig struct {
	// MaxRequests is the maximum number of requests allowed in half-open state.
	MaxRequests uint32
	// Interval is the cyclic period of the closed state.
	Interval time.Duration
	// Timeout is the period of the open state.
	Timeout time.Duration
	// FailureThreshold is the consecutive failure count that trips the breaker.
	FailureThreshold uint32
}

// DefaultBreakerConfig returns sensible defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

type encodeOutcome struct {
	serial  int64
	payload []byte
}

// BreakerEncoder wraps a certificate encoder with a circuit breaker so a
// failing signing backend sheds load fast instead of stalling every
// regeneration pass.
type BreakerEncoder struct {
	inner   domain.CertificateEncoder
	breaker *gobreaker.CircuitBreaker[encodeOutcome]
}

// NewBreakerEncoder wraps an encoder.
func NewBreakerEncoder(inner domain.CertificateEncoder, config BreakerConfig, logger *slog.Logger) *BreakerEncoder {
	settings := gobreaker.Settings{
		Name:        "certificate-encoder",
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}
	return &BreakerEncoder{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[encodeOutcome](settings),
	}
}

// Encode runs the wrapped encoder through the breaker.
func (e *BreakerEncoder) Encode(ctx context.Context, req domain.EncodeRequest) (int64, []byte, error) {
	outcome, err := e.breaker.Execute(func() (encodeOutcome, error) {
		serial, payload, err := e.inner.Encode(ctx, req)
		return encodeOutcome{serial: serial, payload: payload}, err
	})
	if err != nil {
		return 0, nil, err
	}
	return outcome.serial, outcome.payload, nil
}
