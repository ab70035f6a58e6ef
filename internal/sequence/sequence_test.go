package sequence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequence(t *testing.T) {
	s := New(5)
	assert.Equal(t, uint64(5), s.Current())
	assert.Equal(t, uint64(5), s.Current(), "current does not mutate")

	s.Increment()
	s.Increment()
	assert.Equal(t, uint64(7), s.Current())
}

type failingStore struct{}

func (failingStore) Load(context.Context) (uint64, bool, error) {
	return 0, false, errors.New("unreachable")
}

func (failingStore) Save(context.Context, uint64) error {
	return errors.New("unreachable")
}

func TestRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("nil store uses initial", func(t *testing.T) {
		s, err := Restore(ctx, nil, 3)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), s.Current())
	})

	t.Run("empty store uses initial", func(t *testing.T) {
		s, err := Restore(ctx, NewInMemoryCheckpoint(), 3)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), s.Current())
	})

	t.Run("checkpoint above initial wins", func(t *testing.T) {
		store := NewInMemoryCheckpoint()
		require.NoError(t, store.Save(ctx, 40))
		s, err := Restore(ctx, store, 3)
		require.NoError(t, err)
		assert.Equal(t, uint64(40), s.Current())
	})

	t.Run("initial above checkpoint wins", func(t *testing.T) {
		store := NewInMemoryCheckpoint()
		require.NoError(t, store.Save(ctx, 2))
		s, err := Restore(ctx, store, 10)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), s.Current())
	})

	t.Run("store failure is surfaced", func(t *testing.T) {
		_, err := Restore(ctx, failingStore{}, 0)
		require.Error(t, err)
	})
}
