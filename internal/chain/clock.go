// Package chain is a minimal single-node block driver and transaction pool
// that hosts the authorization ledger. It is not a consensus engine.
package chain

import (
	"sync/atomic"

	"bioauth/internal/ledger/models"
)

// Clock holds the current block number.
type Clock struct {
	block atomic.Uint64
}

func NewClock(start models.BlockNumber) *Clock {
	c := &Clock{}
	c.block.Store(uint64(start))
	return c
}

func (c *Clock) Current() models.BlockNumber {
	return models.BlockNumber(c.block.Load())
}

// Advance moves to the next block and returns it.
func (c *Clock) Advance() models.BlockNumber {
	return models.BlockNumber(c.block.Add(1))
}

// Set moves the clock to block, used when restoring a persisted height.
func (c *Clock) Set(block models.BlockNumber) {
	c.block.Store(uint64(block))
}
