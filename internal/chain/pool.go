package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"bioauth/internal/platform/metrics"
)

var (
	// ErrInvalidTransaction wraps the ledger error of a transaction that would fail.
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrAlreadyInPool      = errors.New("transaction already in pool")
	ErrPoolFull           = errors.New("transaction pool is full")
)

// Validator runs the read-only ledger checks before a transaction is pooled.
type Validator interface {
	Validate(ctx context.Context, ticket, signature []byte) error
}

// Transaction is a pending ledger authenticate call.
type Transaction struct {
	Hash        string
	Ticket      []byte
	Signature   []byte
	SubmittedAt time.Time
}

// Pool is a bounded FIFO of pending transactions.
type Pool struct {
	mu        sync.Mutex
	queue     []Transaction
	pending   map[string]struct{}
	capacity  int
	validator Validator
	metrics   *metrics.Ledger
}

func NewPool(capacity int, validator Validator, m *metrics.Ledger) *Pool {
	return &Pool{
		pending:   make(map[string]struct{}),
		capacity:  capacity,
		validator: validator,
		metrics:   m,
	}
}

// Submit validates and queues a transaction, returning it with its hash.
func (p *Pool) Submit(ctx context.Context, ticket, signature []byte) (Transaction, error) {
	if err := p.validator.Validate(ctx, ticket, signature); err != nil {
		return Transaction{}, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	key := string(ticket)
	if _, ok := p.pending[key]; ok {
		return Transaction{}, ErrAlreadyInPool
	}
	if len(p.queue) >= p.capacity {
		return Transaction{}, ErrPoolFull
	}
	tx := Transaction{
		Hash:        uuid.NewString(),
		Ticket:      append([]byte(nil), ticket...),
		Signature:   append([]byte(nil), signature...),
		SubmittedAt: time.Now(),
	}
	p.queue = append(p.queue, tx)
	p.pending[key] = struct{}{}
	p.metrics.SetPoolSize(len(p.queue))
	return tx, nil
}

// Drain removes and returns every pending transaction in submission order.
func (p *Pool) Drain() []Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	txs := p.queue
	p.queue = nil
	clear(p.pending)
	p.metrics.SetPoolSize(0)
	return txs
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}
