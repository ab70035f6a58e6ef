// Package sequence mints authentication nonces.
//
// A Sequence is not safe for concurrent use. The gateway logic owns one behind
// its exclusive lock and never exposes it outside that region.
package sequence

import "context"

// Sequence is a monotonic counter.
type Sequence struct {
	value uint64
}

// New returns a sequence starting at initial.
func New(initial uint64) *Sequence {
	return &Sequence{value: initial}
}

// Increment advances the counter by one.
func (s *Sequence) Increment() {
	s.value++
}

// Current returns the counter without mutating it.
func (s *Sequence) Current() uint64 {
	return s.value
}

// CheckpointStore persists the last issued value so a restarted gateway never
// mints a nonce the chain has already consumed.
type CheckpointStore interface {
	// Load returns the last saved value and whether one exists.
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, value uint64) error
}

// Restore builds a sequence starting at the larger of initial and the stored checkpoint.
// A nil store yields New(initial).
func Restore(ctx context.Context, store CheckpointStore, initial uint64) (*Sequence, error) {
	if store == nil {
		return New(initial), nil
	}
	saved, ok, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if ok && saved > initial {
		return New(saved), nil
	}
	return New(initial), nil
}
