package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/lib/pq"

	"bioauth/internal/ledger"
	"bioauth/internal/ledger/models"
	"bioauth/internal/ticket"
	"bioauth/pkg/platform/sentinel"
)

//go:embed schema.sql
var schema string

const defaultTxTimeout = 5 * time.Second

// uniqueViolation is the PostgreSQL SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

// Migrate creates the ledger tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying ledger schema: %w", err)
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists ledger state in PostgreSQL. Block numbers and
// nonces are stored as BIGINT and must fit in an int64.
type PostgresStore struct {
	db      *sql.DB
	q       querier
	timeout time.Duration
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, q: db, timeout: defaultTxTimeout}
}

// RunInTx runs fn inside a serializable transaction.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(&PostgresStore{db: s.db, q: tx, timeout: s.timeout}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func toInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("value %d exceeds storage range", v)
	}
	return int64(v), nil
}

func (s *PostgresStore) NonceConsumed(ctx context.Context, nonce ticket.Nonce) (bool, error) {
	n, err := toInt64(uint64(nonce))
	if err != nil {
		return false, err
	}
	var exists bool
	err = s.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM consumed_nonces WHERE nonce = $1)`, n).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query nonce: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ConsumeNonce(ctx context.Context, rec models.ConsumedNonce) error {
	n, err := toInt64(uint64(rec.Nonce))
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx,
		`INSERT INTO consumed_nonces (nonce, public_key, consumed_at) VALUES ($1, $2, $3)`,
		n, rec.PublicKey[:], int64(rec.ConsumedAt),
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("nonce %d: %w", rec.Nonce, sentinel.ErrAlreadyUsed)
	}
	if err != nil {
		return fmt.Errorf("insert nonce: %w", err)
	}
	return nil
}

func (s *PostgresStore) PruneNonces(ctx context.Context, before models.BlockNumber) (int, ticket.Nonce, error) {
	var (
		removed int
		highest sql.NullInt64
	)
	err := s.q.QueryRowContext(ctx, `
		WITH deleted AS (
			DELETE FROM consumed_nonces WHERE consumed_at < $1 RETURNING nonce
		)
		SELECT COUNT(*), MAX(nonce) FROM deleted`, int64(before),
	).Scan(&removed, &highest)
	if err != nil {
		return 0, 0, fmt.Errorf("prune nonces: %w", err)
	}
	return removed, ticket.Nonce(highest.Int64), nil
}

func scanAuthorization(row interface{ Scan(dest ...any) error }) (*models.Authorization, error) {
	var (
		pk                         []byte
		nonce, issuedAt, expiresAt int64
	)
	if err := row.Scan(&pk, &nonce, &issuedAt, &expiresAt); err != nil {
		return nil, err
	}
	key, err := ticket.PublicKeyFromBytes(pk)
	if err != nil {
		return nil, err
	}
	return &models.Authorization{
		PublicKey: key,
		Nonce:     ticket.Nonce(nonce),
		IssuedAt:  models.BlockNumber(issuedAt),
		ExpiresAt: models.BlockNumber(expiresAt),
	}, nil
}

func (s *PostgresStore) GetAuthorization(ctx context.Context, pk ticket.PublicKey) (*models.Authorization, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT public_key, nonce, issued_at, expires_at FROM authorizations WHERE public_key = $1`, pk[:])
	auth, err := scanAuthorization(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("authorization %s: %w", pk, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query authorization: %w", err)
	}
	return auth, nil
}

func (s *PostgresStore) PutAuthorization(ctx context.Context, auth *models.Authorization) error {
	nonce, err := toInt64(uint64(auth.Nonce))
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO authorizations (public_key, nonce, issued_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (public_key) DO UPDATE SET
			nonce = EXCLUDED.nonce,
			issued_at = EXCLUDED.issued_at,
			expires_at = EXCLUDED.expires_at`,
		auth.PublicKey[:], nonce, int64(auth.IssuedAt), int64(auth.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("upsert authorization: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteAuthorization(ctx context.Context, pk ticket.PublicKey) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM authorizations WHERE public_key = $1`, pk[:])
	if err != nil {
		return fmt.Errorf("delete authorization: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete authorization: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("authorization %s: %w", pk, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) CountActive(ctx context.Context, block models.BlockNumber) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM authorizations WHERE expires_at > $1`, int64(block)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count authorizations: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, block models.BlockNumber) ([]*models.Authorization, error) {
	rows, err := s.q.QueryContext(ctx, `
		DELETE FROM authorizations WHERE expires_at <= $1
		RETURNING public_key, nonce, issued_at, expires_at`, int64(block))
	if err != nil {
		return nil, fmt.Errorf("delete expired: %w", err)
	}
	defer rows.Close()

	var expired []*models.Authorization
	for rows.Next() {
		auth, err := scanAuthorization(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expired: %w", err)
		}
		expired = append(expired, auth)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired: %w", err)
	}
	return expired, nil
}

func (s *PostgresStore) GetMeta(ctx context.Context, key string) (uint64, bool, error) {
	var v int64
	err := s.q.QueryRowContext(ctx, `SELECT value FROM ledger_meta WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query meta %s: %w", key, err)
	}
	return uint64(v), true, nil
}

func (s *PostgresStore) SetMeta(ctx context.Context, key string, value uint64) error {
	v, err := toInt64(value)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO ledger_meta (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, v)
	if err != nil {
		return fmt.Errorf("upsert meta %s: %w", key, err)
	}
	return nil
}
