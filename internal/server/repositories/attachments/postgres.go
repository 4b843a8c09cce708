// Package attachments provides the PostgreSQL-backed repository for
// attachment metadata. Contents live in object storage; only the pointer
// rows live here.
package attachments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sigfeed/internal/common"
	"github.com/dmitrijs2005/sigfeed/internal/dbx"
	"github.com/dmitrijs2005/sigfeed/internal/identity"
	"github.com/dmitrijs2005/sigfeed/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, a *models.Attachment) error {
	query := `
		INSERT INTO attachments (user_id, signature, name, size, storage_key)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, signature, name) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		a.UserID.Bytes(), a.Signature.Bytes(), a.Name, a.Size, a.StorageKey)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, user identity.UserID, sig identity.Signature, name string) (*models.Attachment, error) {
	query := `
		SELECT size, storage_key FROM attachments
		WHERE user_id = $1 AND signature = $2 AND name = $3
	`
	a := models.Attachment{UserID: user, Signature: sig, Name: name}
	err := r.db.QueryRowContext(ctx, query, user.Bytes(), sig.Bytes(), name).
		Scan(&a.Size, &a.StorageKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select attachment: %w", err)
	}
	return &a, nil
}
