// Package items provides the PostgreSQL-backed repository for admitted
// items: keyed storage, sequence assignment, and the two listing indexes
// that serve pagination without full scans.
package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/sigfeed/internal/common"
	"github.com/dmitrijs2005/sigfeed/internal/dbx"
	"github.com/dmitrijs2005/sigfeed/internal/identity"
	"github.com/dmitrijs2005/sigfeed/internal/item"
	"github.com/dmitrijs2005/sigfeed/internal/server/models"
	"github.com/dmitrijs2005/sigfeed/internal/syncx"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, user identity.UserID, sig identity.Signature) (*models.StoredItem, error) {
	query := `
		SELECT bytes, timestamp_ms, kind, seq FROM items
		WHERE user_id = $1 AND signature = $2
	`
	var (
		stored models.StoredItem
		kind   string
	)
	err := r.db.QueryRowContext(ctx, query, user.Bytes(), sig.Bytes()).
		Scan(&stored.Bytes, &stored.TimestampMsUTC, &kind, &stored.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select item: %w", err)
	}
	stored.UserID = user
	stored.Signature = sig
	stored.Kind = item.Kind(kind)
	return &stored, nil
}

func (r *PostgresRepository) NextSeq(ctx context.Context) (int64, error) {
	query := `UPDATE item_seq SET value = value + 1 WHERE id RETURNING value`
	var seq int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&seq); err != nil {
		return 0, fmt.Errorf("bump item seq: %w", err)
	}
	return seq, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, it *models.StoredItem) error {
	query := `
		INSERT INTO items (user_id, signature, bytes, timestamp_ms, kind, seq)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		it.UserID.Bytes(), it.Signature.Bytes(), it.Bytes, it.TimestampMsUTC, string(it.Kind), it.Seq)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, user identity.UserID, beforeSeq int64, limit int) ([]syncx.Entry, error) {
	query := `
		SELECT user_id, signature, timestamp_ms, seq FROM items
		WHERE user_id = $1 AND seq < $2
		ORDER BY seq DESC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, user.Bytes(), beforeSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("list user items: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *PostgresRepository) ListAllSince(ctx context.Context, afterSeq int64, limit int) ([]syncx.Entry, error) {
	query := `
		SELECT user_id, signature, timestamp_ms, seq FROM items
		WHERE seq > $1
		ORDER BY seq ASC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("list items since: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *PostgresRepository) LatestProfile(ctx context.Context, user identity.UserID) (*models.StoredItem, error) {
	query := `
		SELECT signature, bytes, timestamp_ms, seq FROM items
		WHERE user_id = $1 AND kind = $2
		ORDER BY timestamp_ms DESC, seq DESC
		LIMIT 1
	`
	var (
		sigBytes []byte
		stored   models.StoredItem
	)
	err := r.db.QueryRowContext(ctx, query, user.Bytes(), string(item.KindProfile)).
		Scan(&sigBytes, &stored.Bytes, &stored.TimestampMsUTC, &stored.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select latest profile: %w", err)
	}
	sig, err := identity.NewSignature(sigBytes)
	if err != nil {
		return nil, fmt.Errorf("stored signature: %w", err)
	}
	stored.UserID = user
	stored.Signature = sig
	stored.Kind = item.KindProfile
	return &stored, nil
}

func scanEntries(rows *sql.Rows) ([]syncx.Entry, error) {
	var result []syncx.Entry
	for rows.Next() {
		var (
			userBytes []byte
			sigBytes  []byte
			entry     syncx.Entry
		)
		if err := rows.Scan(&userBytes, &sigBytes, &entry.TimestampMsUTC, &entry.Seq); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		user, err := identity.NewUserID(userBytes)
		if err != nil {
			return nil, fmt.Errorf("stored user id: %w", err)
		}
		sig, err := identity.NewSignature(sigBytes)
		if err != nil {
			return nil, fmt.Errorf("stored signature: %w", err)
		}
		entry.UserID = user
		entry.Signature = sig
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return result, nil
}

// IsUniqueViolation reports whether err is a PostgreSQL duplicate-key error
// (SQLSTATE 23505), the signal of a concurrent admission for the same
// (user, signature) key.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
