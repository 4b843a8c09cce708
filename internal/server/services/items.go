// Package services implements the server's core operations on top of the
// repositories: item admission and retrieval, cursor-stable listings,
// profile resolution, and attachment presigning.
package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/dmitrijs2005/sigfeed/internal/common"
	"github.com/dmitrijs2005/sigfeed/internal/dbx"
	"github.com/dmitrijs2005/sigfeed/internal/identity"
	"github.com/dmitrijs2005/sigfeed/internal/item"
	"github.com/dmitrijs2005/sigfeed/internal/logging"
	"github.com/dmitrijs2005/sigfeed/internal/server/models"
	"github.com/dmitrijs2005/sigfeed/internal/server/repositories/items"
	"github.com/dmitrijs2005/sigfeed/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/sigfeed/internal/syncx"
)

const (
	// DefaultPageSize applies when a listing request carries no limit.
	DefaultPageSize = 20

	// MaxPageSize caps listing requests; larger limits are clamped.
	MaxPageSize = 100
)

// PutStatus discriminates the two successful Put outcomes.
type PutStatus int

const (
	// PutAccepted means the item was verified and persisted with a fresh
	// sequence number.
	PutAccepted PutStatus = iota + 1

	// PutNoOp means an identical record was already present; nothing
	// changed and no sequence number was consumed.
	PutNoOp
)

// PutResult reports a successful admission.
type PutResult struct {
	Status PutStatus
	Seq    int64
}

// ItemService implements the item store's boundary operations. Rejections
// (malformed bytes, bad signatures, conflicts) come back as sentinel errors
// from internal/common; only ErrStorageUnavailable indicates trouble with
// the store itself.
type ItemService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger
}

func NewItemService(db *sql.DB, repos repomanager.RepositoryManager, logger logging.Logger) *ItemService {
	return &ItemService{
		db:     db,
		repos:  repos,
		logger: logger.With("module", "items"),
	}
}

// Put runs the admission pipeline: decode, verify, then a transactional
// insert serialized by the sequence counter's row lock. Identical
// re-publication is an idempotent no-op; a same-key write with divergent
// bytes is rejected and logged, never silently resolved.
func (s *ItemService) Put(ctx context.Context, user identity.UserID, sig identity.Signature, raw []byte) (PutResult, error) {
	decoded, err := item.Decode(raw)
	if err != nil {
		return PutResult{}, err
	}

	if !user.Verify(sig, raw) {
		return PutResult{}, common.ErrInvalidSignature
	}

	var res PutResult
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Items(tx)

		existing, err := repo.Get(ctx, user, sig)
		switch {
		case err == nil:
			if bytes.Equal(existing.Bytes, raw) {
				res = PutResult{Status: PutNoOp, Seq: existing.Seq}
				return nil
			}
			return common.ErrContentConflict
		case !errors.Is(err, common.ErrNotFound):
			return err
		}

		seq, err := repo.NextSeq(ctx)
		if err != nil {
			return err
		}

		if err := repo.Insert(ctx, &models.StoredItem{
			UserID:         user,
			Signature:      sig,
			Bytes:          raw,
			TimestampMsUTC: decoded.TimestampMsUTC,
			Kind:           decoded.Content.Kind(),
			Seq:            seq,
		}); err != nil {
			return err
		}

		res = PutResult{Status: PutAccepted, Seq: seq}
		return nil
	})

	switch {
	case err == nil:
		if res.Status == PutAccepted {
			s.logger.Debug(ctx, "item admitted",
				"user", user.String(), "signature", sig.String(), "seq", res.Seq)
		}
		return res, nil
	case errors.Is(err, common.ErrContentConflict):
		s.logger.Error(ctx, "content conflict: same key, divergent bytes",
			"user", user.String(), "signature", sig.String())
		return PutResult{}, common.ErrContentConflict
	case items.IsUniqueViolation(err):
		// Lost a race with a concurrent admission of the same key. The
		// counter bump rolled back with our transaction, so no sequence
		// number leaked; classify against what the winner committed.
		return s.classifyRace(ctx, user, sig, raw)
	default:
		return PutResult{}, s.storageFailure(ctx, "put", err)
	}
}

func (s *ItemService) classifyRace(ctx context.Context, user identity.UserID, sig identity.Signature, raw []byte) (PutResult, error) {
	existing, err := s.repos.Items(s.db).Get(ctx, user, sig)
	if err != nil {
		return PutResult{}, s.storageFailure(ctx, "put", err)
	}
	if bytes.Equal(existing.Bytes, raw) {
		return PutResult{Status: PutNoOp, Seq: existing.Seq}, nil
	}
	s.logger.Error(ctx, "content conflict: same key, divergent bytes",
		"user", user.String(), "signature", sig.String())
	return PutResult{}, common.ErrContentConflict
}

// Get returns the stored record for one content address.
func (s *ItemService) Get(ctx context.Context, user identity.UserID, sig identity.Signature) (*models.StoredItem, error) {
	stored, err := s.repos.Items(s.db).Get(ctx, user, sig)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, s.storageFailure(ctx, "get", err)
	}
	return stored, nil
}

// FetchItem returns an item's canonical bytes; it makes the service usable
// as a syncx.Fetcher for local pipelines.
func (s *ItemService) FetchItem(ctx context.Context, user identity.UserID, sig identity.Signature) ([]byte, error) {
	stored, err := s.Get(ctx, user, sig)
	if err != nil {
		return nil, err
	}
	return stored.Bytes, nil
}

// ListUserItems pages through one user's items, newest first. The cursor
// resumes exactly after the last returned entry; new concurrent inserts
// never appear behind an already-issued cursor.
func (s *ItemService) ListUserItems(ctx context.Context, user identity.UserID, cursor syncx.Cursor, limit int) (syncx.Page, error) {
	watermark, err := cursor.Watermark()
	if err != nil {
		return syncx.Page{}, err
	}
	before := watermark
	if cursor.IsZero() {
		before = math.MaxInt64
	}

	entries, err := s.repos.Items(s.db).ListByUser(ctx, user, before, clampLimit(limit))
	if err != nil {
		return syncx.Page{}, s.storageFailure(ctx, "list_user_items", err)
	}
	if len(entries) == 0 {
		return syncx.Page{Next: cursor}, nil
	}
	return syncx.Page{Entries: entries, Next: syncx.NewCursor(entries[len(entries)-1].Seq)}, nil
}

// ListAllItems pages through the global feed in insertion order, the shape
// peers replicate from.
func (s *ItemService) ListAllItems(ctx context.Context, cursor syncx.Cursor, limit int) (syncx.Page, error) {
	watermark, err := cursor.Watermark()
	if err != nil {
		return syncx.Page{}, err
	}

	entries, err := s.repos.Items(s.db).ListAllSince(ctx, watermark, clampLimit(limit))
	if err != nil {
		return syncx.Page{}, s.storageFailure(ctx, "list_all_items", err)
	}
	if len(entries) == 0 {
		return syncx.Page{Next: cursor}, nil
	}
	return syncx.Page{Entries: entries, Next: syncx.NewCursor(entries[len(entries)-1].Seq)}, nil
}

// ResolveDisplayName returns the display name from the user's latest
// profile item, by greatest (timestamp, seq). ErrNotFound when the user
// has no profile or the profile declares no name.
func (s *ItemService) ResolveDisplayName(ctx context.Context, user identity.UserID) (string, error) {
	stored, err := s.repos.Items(s.db).LatestProfile(ctx, user)
	if errors.Is(err, common.ErrNotFound) {
		return "", common.ErrNotFound
	}
	if err != nil {
		return "", s.storageFailure(ctx, "resolve_display_name", err)
	}

	decoded, err := item.Decode(stored.Bytes)
	if err != nil {
		// Stored bytes passed admission once; failing to decode now means
		// local corruption.
		s.logger.Error(ctx, "stored profile no longer decodes",
			"user", user.String(), "signature", stored.Signature.String(), "error", err)
		return "", common.ErrNotFound
	}

	name, ok := decoded.DisplayName()
	if !ok || name == "" {
		return "", common.ErrNotFound
	}
	return name, nil
}

// UserSource adapts ListUserItems to the enumeration contract.
func (s *ItemService) UserSource(user identity.UserID) syncx.Source {
	return syncx.SourceFunc(func(ctx context.Context, cursor syncx.Cursor, limit int) (syncx.Page, error) {
		return s.ListUserItems(ctx, user, cursor, limit)
	})
}

// GlobalSource adapts ListAllItems to the enumeration contract.
func (s *ItemService) GlobalSource() syncx.Source {
	return syncx.SourceFunc(func(ctx context.Context, cursor syncx.Cursor, limit int) (syncx.Page, error) {
		return s.ListAllItems(ctx, cursor, limit)
	})
}

func (s *ItemService) storageFailure(ctx context.Context, op string, err error) error {
	s.logger.Error(ctx, "storage failure", "op", op, "error", err.Error())
	return fmt.Errorf("%w: %s: %v", common.ErrStorageUnavailable, op, err)
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageSize
	case limit > MaxPageSize:
		return MaxPageSize
	default:
		return limit
	}
}
