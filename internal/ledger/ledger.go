// Package ledger implements the on-chain authorization state machine: it
// verifies gateway tickets, rejects replayed nonces and tracks which
// identities may currently act as validators.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"bioauth/internal/ledger/events"
	"bioauth/internal/ledger/models"
	"bioauth/internal/platform/metrics"
	"bioauth/internal/signer"
	"bioauth/internal/ticket"
	"bioauth/pkg/platform/sentinel"
)

// Clock reports the current block.
type Clock interface {
	Current() models.BlockNumber
}

// Config holds the ledger rules.
type Config struct {
	// GatewayKey is the only key whose tickets are accepted.
	GatewayKey        ticket.PublicKey
	ValidityWindow    uint64
	MaxAuthorizations int
	Prune             PrunePolicy
	// PruneInterval runs the prune pass every N blocks. Zero prunes every block.
	PruneInterval uint64
}

func (c Config) validate() error {
	if c.GatewayKey.IsZero() {
		return errors.New("gateway public key is required")
	}
	if c.ValidityWindow == 0 {
		return errors.New("validity window must be positive")
	}
	if c.MaxAuthorizations <= 0 {
		return errors.New("max authorizations must be positive")
	}
	if c.Prune.Enabled() && c.Prune.Horizon <= c.ValidityWindow {
		return fmt.Errorf("prune horizon %d must exceed validity window %d", c.Prune.Horizon, c.ValidityWindow)
	}
	return nil
}

type Ledger struct {
	store     Store
	clock     Clock
	cfg       Config
	publisher events.Publisher
	metrics   *metrics.Ledger
	logger    *slog.Logger
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Ledger) Option {
	return func(l *Ledger) {
		l.metrics = m
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(l *Ledger) {
		l.publisher = p
	}
}

func New(store Store, clock Clock, cfg Config, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if clock == nil {
		return nil, errors.New("clock is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	l := &Ledger{
		store:  store,
		clock:  clock,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.publisher == nil {
		l.publisher = events.NewLogPublisher(l.logger)
	}
	return l, nil
}

// verify checks the gateway signature and decodes the ticket.
func (l *Ledger) verify(raw, signature []byte) (ticket.AuthTicket, error) {
	if !signer.Verify(l.cfg.GatewayKey, raw, signature) {
		return ticket.AuthTicket{}, ErrInvalidSignature
	}
	t, err := ticket.Decode(raw)
	if err != nil {
		return ticket.AuthTicket{}, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}
	// Stores keep nonces in signed 64-bit columns.
	if uint64(t.Nonce) > math.MaxInt64 {
		return ticket.AuthTicket{}, fmt.Errorf("%w: nonce %d out of range", ErrInvalidTicket, uint64(t.Nonce))
	}
	return t, nil
}

// checkNonce rejects nonces already consumed, or at or below the prune
// watermark whose records may no longer exist.
func checkNonce(ctx context.Context, tx Tx, nonce ticket.Nonce) error {
	consumed, err := tx.NonceConsumed(ctx, nonce)
	if err != nil {
		return fmt.Errorf("checking nonce: %w", err)
	}
	if consumed {
		return ErrNonceAlreadyConsumed
	}
	watermark, ok, err := tx.GetMeta(ctx, MetaPruneWatermark)
	if err != nil {
		return fmt.Errorf("reading prune watermark: %w", err)
	}
	if ok && uint64(nonce) <= watermark {
		return ErrNonceAlreadyConsumed
	}
	return nil
}

// Validate runs the read-only checks of Authenticate without changing state.
func (l *Ledger) Validate(ctx context.Context, raw, signature []byte) error {
	t, err := l.verify(raw, signature)
	if err != nil {
		return err
	}
	return checkNonce(ctx, l.store, t.Nonce)
}

// Authenticate applies a signed ticket. On success the ticket's nonce is
// consumed and the identity is authorized for ValidityWindow blocks from now,
// replacing any existing window.
func (l *Ledger) Authenticate(ctx context.Context, raw, signature []byte) (*models.Authorization, error) {
	t, err := l.verify(raw, signature)
	if err != nil {
		l.reject(ctx, err)
		return nil, err
	}

	current := l.clock.Current()
	auth := &models.Authorization{
		PublicKey: t.PublicKey,
		Nonce:     t.Nonce,
		IssuedAt:  current,
		ExpiresAt: current + models.BlockNumber(l.cfg.ValidityWindow),
	}
	var active int
	err = l.store.RunInTx(ctx, func(tx Tx) error {
		if err := checkNonce(ctx, tx, t.Nonce); err != nil {
			return err
		}

		existing, err := tx.GetAuthorization(ctx, t.PublicKey)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return fmt.Errorf("loading authorization: %w", err)
		}
		active, err = tx.CountActive(ctx, current)
		if err != nil {
			return fmt.Errorf("counting authorizations: %w", err)
		}
		if !existing.ActiveAt(current) {
			if active >= l.cfg.MaxAuthorizations {
				return ErrTooManyAuthorizations
			}
			active++
		}

		err = tx.ConsumeNonce(ctx, models.ConsumedNonce{Nonce: t.Nonce, PublicKey: t.PublicKey, ConsumedAt: current})
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return ErrNonceAlreadyConsumed
		}
		if err != nil {
			return fmt.Errorf("consuming nonce: %w", err)
		}
		if err := tx.PutAuthorization(ctx, auth); err != nil {
			return fmt.Errorf("storing authorization: %w", err)
		}
		return nil
	})
	if err != nil {
		l.reject(ctx, err)
		return nil, err
	}

	l.metrics.Authenticated()
	l.metrics.SetActive(active)
	l.logger.InfoContext(ctx, "identity authenticated",
		"public_key", t.PublicKey.String(),
		"nonce", uint64(t.Nonce),
		"block", uint64(current),
		"expires_at", uint64(auth.ExpiresAt),
	)
	l.publish(ctx, events.Event{
		Kind:      events.KindAuthenticated,
		PublicKey: t.PublicKey,
		Nonce:     t.Nonce,
		Block:     current,
		ExpiresAt: auth.ExpiresAt,
	})
	return auth, nil
}

func (l *Ledger) reject(ctx context.Context, err error) {
	reason := "internal"
	switch {
	case errors.Is(err, ErrInvalidSignature):
		reason = "invalid_signature"
	case errors.Is(err, ErrInvalidTicket):
		reason = "invalid_ticket"
	case errors.Is(err, ErrNonceAlreadyConsumed):
		reason = "replay"
	case errors.Is(err, ErrTooManyAuthorizations):
		reason = "capacity"
	}
	l.metrics.Rejected(reason)
	l.logger.InfoContext(ctx, "ticket rejected", "reason", reason, "error", err)
}

// Deauthenticate removes an active authorization immediately. It is the
// privileged path used by offence handling, not by identities themselves.
func (l *Ledger) Deauthenticate(ctx context.Context, pk ticket.PublicKey, reason models.DeauthenticationReason) error {
	if !reason.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidReason, reason.Kind)
	}
	current := l.clock.Current()
	err := l.store.RunInTx(ctx, func(tx Tx) error {
		existing, err := tx.GetAuthorization(ctx, pk)
		if errors.Is(err, sentinel.ErrNotFound) {
			return ErrNotAuthorized
		}
		if err != nil {
			return fmt.Errorf("loading authorization: %w", err)
		}
		if !existing.ActiveAt(current) {
			return ErrNotAuthorized
		}
		return tx.DeleteAuthorization(ctx, pk)
	})
	if err != nil {
		return err
	}

	l.metrics.Deauthenticated(string(reason.Kind))
	l.logger.WarnContext(ctx, "identity deauthenticated",
		"public_key", pk.String(),
		"reason", reason.String(),
		"block", uint64(current),
	)
	l.publish(ctx, events.Event{
		Kind:      events.KindDeauthenticated,
		PublicKey: pk,
		Block:     current,
		Reason:    &reason,
	})
	return nil
}

// IsAuthorized reports whether pk may act at the current block. Store
// failures count as not authorized.
func (l *Ledger) IsAuthorized(ctx context.Context, pk ticket.PublicKey) bool {
	auth, err := l.store.GetAuthorization(ctx, pk)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			l.logger.ErrorContext(ctx, "authorization lookup failed", "public_key", pk.String(), "error", err)
		}
		return false
	}
	return auth.ActiveAt(l.clock.Current())
}

// Status returns the authorization window of pk as seen at the current block.
func (l *Ledger) Status(ctx context.Context, pk ticket.PublicKey) (models.Status, error) {
	current := l.clock.Current()
	status := models.Status{PublicKey: pk, Block: current}
	auth, err := l.store.GetAuthorization(ctx, pk)
	if errors.Is(err, sentinel.ErrNotFound) {
		return status, nil
	}
	if err != nil {
		return status, fmt.Errorf("loading authorization: %w", err)
	}
	if auth.ActiveAt(current) {
		status.Authorized = true
		status.IssuedAt = auth.IssuedAt
		status.ExpiresAt = auth.ExpiresAt
	}
	return status, nil
}

// OnBlock runs per-block maintenance: expired entries are swept and consumed
// nonces are pruned according to the prune policy.
func (l *Ledger) OnBlock(ctx context.Context) error {
	current := l.clock.Current()
	var (
		expired []*models.Authorization
		pruned  int
		active  int
	)
	err := l.store.RunInTx(ctx, func(tx Tx) error {
		var err error
		expired, err = tx.DeleteExpired(ctx, current)
		if err != nil {
			return fmt.Errorf("sweeping expired authorizations: %w", err)
		}
		if l.pruneDue(current) {
			if pruned, err = pruneNonces(ctx, tx, l.cfg.Prune, current); err != nil {
				return err
			}
		}
		if err := tx.SetMeta(ctx, MetaBlockHeight, uint64(current)); err != nil {
			return fmt.Errorf("saving block height: %w", err)
		}
		active, err = tx.CountActive(ctx, current)
		return err
	})
	if err != nil {
		return err
	}

	l.metrics.Expired(len(expired))
	l.metrics.Pruned(pruned)
	l.metrics.SetActive(active)
	if pruned > 0 {
		l.logger.InfoContext(ctx, "consumed nonces pruned", "count", pruned, "block", uint64(current))
	}
	for _, auth := range expired {
		l.publish(ctx, events.Event{
			Kind:      events.KindAuthorizationExpired,
			PublicKey: auth.PublicKey,
			Block:     current,
			ExpiresAt: auth.ExpiresAt,
		})
	}
	return nil
}

func (l *Ledger) pruneDue(current models.BlockNumber) bool {
	if !l.cfg.Prune.Enabled() {
		return false
	}
	return l.cfg.PruneInterval == 0 || uint64(current)%l.cfg.PruneInterval == 0
}

func pruneNonces(ctx context.Context, tx Tx, policy PrunePolicy, current models.BlockNumber) (int, error) {
	cutoff, ok := policy.Cutoff(current)
	if !ok {
		return 0, nil
	}
	removed, highest, err := tx.PruneNonces(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning nonces: %w", err)
	}
	if removed == 0 {
		return 0, nil
	}
	watermark, _, err := tx.GetMeta(ctx, MetaPruneWatermark)
	if err != nil {
		return 0, fmt.Errorf("reading prune watermark: %w", err)
	}
	if uint64(highest) > watermark {
		if err := tx.SetMeta(ctx, MetaPruneWatermark, uint64(highest)); err != nil {
			return 0, fmt.Errorf("saving prune watermark: %w", err)
		}
	}
	return removed, nil
}

// LastBlock returns the block height saved by the last OnBlock, if any.
func (l *Ledger) LastBlock(ctx context.Context) (models.BlockNumber, error) {
	height, _, err := l.store.GetMeta(ctx, MetaBlockHeight)
	return models.BlockNumber(height), err
}

func (l *Ledger) publish(ctx context.Context, e events.Event) {
	if err := l.publisher.Publish(ctx, e); err != nil {
		l.logger.ErrorContext(ctx, "failed to publish ledger event", "kind", e.Kind, "error", err)
	}
}
