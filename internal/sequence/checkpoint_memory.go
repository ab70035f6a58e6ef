package sequence

import (
	"context"
	"sync"
)

// InMemoryCheckpoint keeps the checkpoint for the process lifetime. Used in
// tests and when Redis is not configured.
type InMemoryCheckpoint struct {
	mu    sync.Mutex
	value uint64
	set   bool
}

func NewInMemoryCheckpoint() *InMemoryCheckpoint {
	return &InMemoryCheckpoint{}
}

func (c *InMemoryCheckpoint) Load(_ context.Context) (uint64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.set, nil
}

func (c *InMemoryCheckpoint) Save(_ context.Context, value uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
	c.set = true
	return nil
}
