// Package events publishes ledger state changes to observers.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"bioauth/internal/ledger/models"
	"bioauth/internal/ticket"
)

type Kind string

const (
	KindAuthenticated        Kind = "authenticated"
	KindAuthorizationExpired Kind = "authorization_expired"
	KindDeauthenticated      Kind = "deauthenticated"
)

// Event is emitted after a ledger transition commits.
type Event struct {
	Kind      Kind                           `json:"kind"`
	PublicKey ticket.PublicKey               `json:"public_key"`
	Block     models.BlockNumber             `json:"block"`
	Nonce     ticket.Nonce                   `json:"nonce,omitempty"`
	ExpiresAt models.BlockNumber             `json:"expires_at,omitempty"`
	Reason    *models.DeauthenticationReason `json:"reason,omitempty"`
	Timestamp time.Time                      `json:"timestamp"`
}

// Publisher delivers events. Delivery failures never undo the transition.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// LogPublisher writes events to a structured logger.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	attrs := []any{
		"kind", string(e.Kind),
		"public_key", e.PublicKey.String(),
		"block", uint64(e.Block),
	}
	if e.Reason != nil {
		attrs = append(attrs, "reason", e.Reason.String())
	}
	p.logger.InfoContext(ctx, "ledger event", attrs...)
	return nil
}

// Fanout publishes to every publisher and returns the first error.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var first error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Recorder keeps events in memory. Tests use it to observe transitions.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
