package payment

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Outcome is the result of a charge attempt.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeDeclined  Outcome = "declined"
)

// ChargeResult holds the gateway's answer to a charge attempt. A decline is a
// normal result, not an error; errors are reserved for faults such as context
// cancellation.
type ChargeResult struct {
	TransactionID string
	Outcome       Outcome
	Reason        string
}

// Gateway models an external payment provider.
type Gateway interface {
	Charge(ctx context.Context, amount float64) (*ChargeResult, error)
}

const (
	defaultMinDelay    = 50 * time.Millisecond
	defaultMaxDelay    = 200 * time.Millisecond
	defaultDeclineRate = 0.05
)

// SimulatedGateway models gateway latency and unreliability: each charge
// waits a uniform random duration in [minDelay, maxDelay] and declines with
// probability declineRate. The wait is a timer select, so an in-flight charge
// suspends only its own goroutine.
type SimulatedGateway struct {
	minDelay    time.Duration
	maxDelay    time.Duration
	declineRate float64

	mu  sync.Mutex // guards rnd; rand.Rand is not goroutine-safe
	rnd *rand.Rand
}

// Option configures a SimulatedGateway.
type Option func(*SimulatedGateway)

// WithDelayWindow sets the latency window sampled per charge.
func WithDelayWindow(min, max time.Duration) Option {
	return func(g *SimulatedGateway) {
		g.minDelay = min
		g.maxDelay = max
	}
}

// WithDeclineRate sets the probability in [0,1) that a charge is declined.
func WithDeclineRate(rate float64) Option {
	return func(g *SimulatedGateway) {
		g.declineRate = rate
	}
}

// WithRand sets the random source. Tests use a seeded source for
// deterministic outcomes.
func WithRand(rnd *rand.Rand) Option {
	return func(g *SimulatedGateway) {
		g.rnd = rnd
	}
}

// NewSimulatedGateway creates a gateway with a 50-200ms latency window and a
// 5% decline rate, the fixed design constants of the simulation.
func NewSimulatedGateway(opts ...Option) *SimulatedGateway {
	g := &SimulatedGateway{
		minDelay:    defaultMinDelay,
		maxDelay:    defaultMaxDelay,
		declineRate: defaultDeclineRate,
		rnd:         rand.New(rand.NewSource(rand.Int63())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Charge simulates charging the given amount. It suspends the calling
// goroutine for the sampled latency, honoring context cancellation, then
// reports success or decline.
func (g *SimulatedGateway) Charge(ctx context.Context, amount float64) (*ChargeResult, error) {
	g.mu.Lock()
	delay := g.minDelay
	if g.maxDelay > g.minDelay {
		delay += time.Duration(g.rnd.Float64() * float64(g.maxDelay-g.minDelay))
	}
	declined := g.rnd.Float64() < g.declineRate
	g.mu.Unlock()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	if declined {
		return &ChargeResult{
			TransactionID: "sim_" + uuid.New().String(),
			Outcome:       OutcomeDeclined,
			Reason:        "card_declined",
		}, nil
	}

	return &ChargeResult{
		TransactionID: "sim_" + uuid.New().String(),
		Outcome:       OutcomeSucceeded,
	}, nil
}
