package attachments

import (
	"context"

	"github.com/dmitrijs2005/sigfeed/internal/identity"
	"github.com/dmitrijs2005/sigfeed/internal/server/models"
)

type Repository interface {
	// Insert registers attachment metadata. Re-registering the same
	// (user, signature, name) is a no-op.
	Insert(ctx context.Context, a *models.Attachment) error

	// Get loads attachment metadata, or common.ErrNotFound.
	Get(ctx context.Context, user identity.UserID, sig identity.Signature, name string) (*models.Attachment, error)
}
