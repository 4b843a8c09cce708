package items

import (
	"context"

	"github.com/dmitrijs2005/sigfeed/internal/identity"
	"github.com/dmitrijs2005/sigfeed/internal/server/models"
	"github.com/dmitrijs2005/sigfeed/internal/syncx"
)

// Repository is the persistence contract for admitted items. Implementations
// return common.ErrNotFound for missing rows and pass other database errors
// through wrapped; the service layer classifies those as storage failures.
type Repository interface {
	// Get loads the stored record for one content address.
	Get(ctx context.Context, user identity.UserID, sig identity.Signature) (*models.StoredItem, error)

	// NextSeq bumps the admission counter and returns the fresh sequence
	// number. The counter row lock it takes serializes concurrent
	// admissions until the surrounding transaction ends.
	NextSeq(ctx context.Context) (int64, error)

	// Insert persists a new record. A duplicate (user, signature) key
	// surfaces as a unique violation (see IsUniqueViolation).
	Insert(ctx context.Context, it *models.StoredItem) error

	// ListByUser returns up to limit entries for user with seq < beforeSeq,
	// newest first.
	ListByUser(ctx context.Context, user identity.UserID, beforeSeq int64, limit int) ([]syncx.Entry, error)

	// ListAllSince returns up to limit entries across all users with
	// seq > afterSeq, in insertion order.
	ListAllSince(ctx context.Context, afterSeq int64, limit int) ([]syncx.Entry, error)

	// LatestProfile returns the user's profile item with the greatest
	// (timestamp, seq), or common.ErrNotFound.
	LatestProfile(ctx context.Context, user identity.UserID) (*models.StoredItem, error)
}
