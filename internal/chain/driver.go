package chain

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"bioauth/internal/ledger/models"
	"bioauth/internal/platform/metrics"
)

// Ledger is the state machine the driver feeds.
type Ledger interface {
	Authenticate(ctx context.Context, ticket, signature []byte) (*models.Authorization, error)
	OnBlock(ctx context.Context) error
}

// Receipt is the outcome of an included transaction.
type Receipt struct {
	Hash  string             `json:"hash"`
	Block models.BlockNumber `json:"block"`
	Error string             `json:"error,omitempty"`
}

const defaultReceiptCapacity = 4096

// Driver produces blocks on a fixed interval. Transactions of a block are
// applied one at a time, in pool order, before per-block maintenance runs.
type Driver struct {
	clock    *Clock
	pool     *Pool
	ledger   Ledger
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Ledger

	mu       sync.RWMutex
	receipts map[string]Receipt
	order    []string
	maxKept  int
}

type DriverOption func(*Driver)

func WithDriverLogger(logger *slog.Logger) DriverOption {
	return func(d *Driver) {
		d.logger = logger
	}
}

func WithDriverMetrics(m *metrics.Ledger) DriverOption {
	return func(d *Driver) {
		d.metrics = m
	}
}

// WithReceiptCapacity bounds how many receipts are kept for lookup.
func WithReceiptCapacity(n int) DriverOption {
	return func(d *Driver) {
		if n > 0 {
			d.maxKept = n
		}
	}
}

func NewDriver(clock *Clock, pool *Pool, ledger Ledger, interval time.Duration, opts ...DriverOption) (*Driver, error) {
	if clock == nil || pool == nil || ledger == nil {
		return nil, errors.New("clock, pool and ledger are required")
	}
	if interval <= 0 {
		return nil, errors.New("block interval must be positive")
	}
	d := &Driver{
		clock:    clock,
		pool:     pool,
		ledger:   ledger,
		interval: interval,
		logger:   slog.Default(),
		receipts: make(map[string]Receipt),
		maxKept:  defaultReceiptCapacity,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Run produces blocks until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.InfoContext(ctx, "block driver started",
		"interval", d.interval.String(),
		"block", uint64(d.clock.Current()),
	)
	for {
		select {
		case <-ctx.Done():
			d.logger.InfoContext(ctx, "block driver stopped", "block", uint64(d.clock.Current()))
			return nil
		case <-ticker.C:
			d.ProduceBlock(ctx)
		}
	}
}

// ProduceBlock advances the chain by one block.
func (d *Driver) ProduceBlock(ctx context.Context) models.BlockNumber {
	block := d.clock.Advance()
	d.metrics.SetBlock(uint64(block))

	txs := d.pool.Drain()
	for _, tx := range txs {
		receipt := Receipt{Hash: tx.Hash, Block: block}
		if _, err := d.ledger.Authenticate(ctx, tx.Ticket, tx.Signature); err != nil {
			receipt.Error = err.Error()
			d.logger.InfoContext(ctx, "transaction failed", "hash", tx.Hash, "block", uint64(block), "error", err)
		}
		d.storeReceipt(receipt)
	}

	if err := d.ledger.OnBlock(ctx); err != nil {
		d.logger.ErrorContext(ctx, "block maintenance failed", "block", uint64(block), "error", err)
	}
	if len(txs) > 0 {
		d.logger.DebugContext(ctx, "block produced", "block", uint64(block), "transactions", len(txs))
	}
	return block
}

func (d *Driver) storeReceipt(r Receipt) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.order) >= d.maxKept {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.receipts, oldest)
	}
	d.receipts[r.Hash] = r
	d.order = append(d.order, r.Hash)
}

// Receipt returns the outcome of an included transaction.
func (d *Driver) Receipt(hash string) (Receipt, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.receipts[hash]
	return r, ok
}
