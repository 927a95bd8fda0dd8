package gateway

import (
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/sejinpark/commercepay/internal/domain/errors"
	"github.com/sejinpark/commercepay/internal/domain/ledger"
	"github.com/sejinpark/commercepay/internal/infrastructure/observability"
)

// Registry maps gateway identifiers to clients. Each client gets its own
// circuit breaker so one misbehaving provider fails fast without taking the
// others down with it.
type Registry struct {
	clients  map[ledger.PGType]Client
	breakers map[ledger.PGType]*gobreaker.CircuitBreaker[Result]
	metrics  *observability.Metrics
}

func NewRegistry(metrics *observability.Metrics, clients ...Client) *Registry {
	r := &Registry{
		clients:  make(map[ledger.PGType]Client),
		breakers: make(map[ledger.PGType]*gobreaker.CircuitBreaker[Result]),
		metrics:  metrics,
	}
	for _, c := range clients {
		r.Register(c)
	}
	return r
}

func (r *Registry) Register(c Client) {
	name := c.Name()
	r.clients[name] = c
	r.breakers[name] = gobreaker.NewCircuitBreaker[Result](gobreaker.Settings{
		Name:        string(name),
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		OnStateChange: func(breakerName string, from, to gobreaker.State) {
			r.metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(breakerStateValue(to))
		},
	})
	r.metrics.CircuitBreakerState.WithLabelValues(string(name)).Set(breakerStateValue(gobreaker.StateClosed))
}

// Get returns the client and breaker for a gateway identifier.
func (r *Registry) Get(name ledger.PGType) (Client, *gobreaker.CircuitBreaker[Result], error) {
	c, ok := r.clients[name]
	if !ok {
		return nil, nil, fmt.Errorf("gateway %q: %w", name, errors.ErrUnknownProvider)
	}
	return c, r.breakers[name], nil
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
