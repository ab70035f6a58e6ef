package ledger

import (
	"context"

	"bioauth/internal/ledger/models"
	"bioauth/internal/ticket"
)

// Meta keys persisted next to the ledger tables.
const (
	MetaPruneWatermark = "prune_watermark"
	MetaBlockHeight    = "block_height"
)

// Tx is the store view used inside a transaction. Missing rows are reported
// as sentinel.ErrNotFound and duplicate nonces as sentinel.ErrAlreadyUsed.
type Tx interface {
	NonceConsumed(ctx context.Context, nonce ticket.Nonce) (bool, error)
	ConsumeNonce(ctx context.Context, rec models.ConsumedNonce) error
	// PruneNonces removes nonces consumed before block and returns how many
	// were removed and the largest removed nonce.
	PruneNonces(ctx context.Context, before models.BlockNumber) (int, ticket.Nonce, error)

	GetAuthorization(ctx context.Context, pk ticket.PublicKey) (*models.Authorization, error)
	PutAuthorization(ctx context.Context, auth *models.Authorization) error
	DeleteAuthorization(ctx context.Context, pk ticket.PublicKey) error
	// CountActive counts entries whose window covers block.
	CountActive(ctx context.Context, block models.BlockNumber) (int, error)
	// DeleteExpired removes and returns entries whose window ended at or before block.
	DeleteExpired(ctx context.Context, block models.BlockNumber) ([]*models.Authorization, error)

	GetMeta(ctx context.Context, key string) (uint64, bool, error)
	SetMeta(ctx context.Context, key string, value uint64) error
}

// Store persists ledger state. Reads outside RunInTx see committed state only.
type Store interface {
	Tx
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}
