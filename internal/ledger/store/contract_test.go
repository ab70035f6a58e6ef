package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioauth/internal/ledger"
	"bioauth/internal/ledger/models"
	"bioauth/internal/ticket"
	"bioauth/pkg/platform/sentinel"
)

func key(b byte) ticket.PublicKey {
	var pk ticket.PublicKey
	pk[0] = b
	return pk
}

// runStoreContract exercises behaviour every ledger store must share.
// newStore must return an empty store.
func runStoreContract(t *testing.T, newStore func(t *testing.T) ledger.Store) {
	ctx := context.Background()

	t.Run("nonces are consumed once", func(t *testing.T) {
		s := newStore(t)
		rec := models.ConsumedNonce{Nonce: 5, PublicKey: key(1), ConsumedAt: 10}
		require.NoError(t, s.ConsumeNonce(ctx, rec))

		consumed, err := s.NonceConsumed(ctx, 5)
		require.NoError(t, err)
		assert.True(t, consumed)

		err = s.RunInTx(ctx, func(tx ledger.Tx) error { return tx.ConsumeNonce(ctx, rec) })
		assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
	})

	t.Run("prune removes old nonces and reports the highest", func(t *testing.T) {
		s := newStore(t)
		for i, at := range []models.BlockNumber{1, 2, 50} {
			require.NoError(t, s.ConsumeNonce(ctx, models.ConsumedNonce{Nonce: ticket.Nonce(10 + i), PublicKey: key(1), ConsumedAt: at}))
		}
		removed, highest, err := s.PruneNonces(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, removed)
		assert.Equal(t, ticket.Nonce(11), highest)

		consumed, err := s.NonceConsumed(ctx, 12)
		require.NoError(t, err)
		assert.True(t, consumed)

		removed, _, err = s.PruneNonces(ctx, 10)
		require.NoError(t, err)
		assert.Zero(t, removed)
	})

	t.Run("authorizations upsert and delete", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetAuthorization(ctx, key(1))
		assert.ErrorIs(t, err, sentinel.ErrNotFound)

		require.NoError(t, s.PutAuthorization(ctx, &models.Authorization{PublicKey: key(1), Nonce: 1, IssuedAt: 1, ExpiresAt: 11}))
		require.NoError(t, s.PutAuthorization(ctx, &models.Authorization{PublicKey: key(1), Nonce: 2, IssuedAt: 5, ExpiresAt: 15}))
		got, err := s.GetAuthorization(ctx, key(1))
		require.NoError(t, err)
		assert.Equal(t, models.Authorization{PublicKey: key(1), Nonce: 2, IssuedAt: 5, ExpiresAt: 15}, *got)

		require.NoError(t, s.DeleteAuthorization(ctx, key(1)))
		assert.ErrorIs(t, s.DeleteAuthorization(ctx, key(1)), sentinel.ErrNotFound)
	})

	t.Run("expiry sweep and active count", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.PutAuthorization(ctx, &models.Authorization{PublicKey: key(1), ExpiresAt: 10}))
		require.NoError(t, s.PutAuthorization(ctx, &models.Authorization{PublicKey: key(2), ExpiresAt: 20}))

		n, err := s.CountActive(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		expired, err := s.DeleteExpired(ctx, 10)
		require.NoError(t, err)
		require.Len(t, expired, 1)
		assert.Equal(t, key(1), expired[0].PublicKey)

		_, err = s.GetAuthorization(ctx, key(2))
		assert.NoError(t, err)
	})

	t.Run("meta values", func(t *testing.T) {
		s := newStore(t)
		_, ok, err := s.GetMeta(ctx, ledger.MetaPruneWatermark)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.SetMeta(ctx, ledger.MetaPruneWatermark, 7))
		require.NoError(t, s.SetMeta(ctx, ledger.MetaPruneWatermark, 9))
		v, ok, err := s.GetMeta(ctx, ledger.MetaPruneWatermark)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, uint64(9), v)
	})

	t.Run("failed transaction leaves no trace", func(t *testing.T) {
		s := newStore(t)
		boom := errors.New("boom")
		err := s.RunInTx(ctx, func(tx ledger.Tx) error {
			if err := tx.ConsumeNonce(ctx, models.ConsumedNonce{Nonce: 1, PublicKey: key(1), ConsumedAt: 1}); err != nil {
				return err
			}
			if err := tx.PutAuthorization(ctx, &models.Authorization{PublicKey: key(1), ExpiresAt: 10}); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		consumed, err := s.NonceConsumed(ctx, 1)
		require.NoError(t, err)
		assert.False(t, consumed)
		_, err = s.GetAuthorization(ctx, key(1))
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("committed transaction is visible", func(t *testing.T) {
		s := newStore(t)
		err := s.RunInTx(ctx, func(tx ledger.Tx) error {
			return tx.PutAuthorization(ctx, &models.Authorization{PublicKey: key(3), ExpiresAt: 10})
		})
		require.NoError(t, err)
		_, err = s.GetAuthorization(ctx, key(3))
		assert.NoError(t, err)
	})
}
