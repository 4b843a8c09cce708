package syncx

import (
	"context"

	"github.com/dmitrijs2005/sigfeed/internal/identity"
)

// Entry is a lightweight item reference as carried by listing pages. It
// does not include the item body.
type Entry struct {
	UserID         identity.UserID
	Signature      identity.Signature
	TimestampMsUTC int64
	Seq            int64
}

// Page is one listing page plus the token resuming after it.
type Page struct {
	Entries []Entry
	Next    Cursor
}

// Source enumerates item references page by page. Submitting the returned
// Next cursor resumes exactly after the last entry of the page. The stream
// is exhausted when a page comes back with no entries and Next equal to the
// submitted cursor; callers may poll again later for new data.
type Source interface {
	NextPage(ctx context.Context, cursor Cursor, limit int) (Page, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, cursor Cursor, limit int) (Page, error)

func (f SourceFunc) NextPage(ctx context.Context, cursor Cursor, limit int) (Page, error) {
	return f(ctx, cursor, limit)
}

// Fetcher retrieves one item's canonical bytes by its content address.
// A missing item is reported as common.ErrNotFound.
type Fetcher interface {
	FetchItem(ctx context.Context, user identity.UserID, sig identity.Signature) ([]byte, error)
}
