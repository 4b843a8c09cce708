package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/sigfeed/internal/dbx"
	"github.com/dmitrijs2005/sigfeed/internal/server/repositories/attachments"
	"github.com/dmitrijs2005/sigfeed/internal/server/repositories/items"
)

// RepositoryManager vends repositories bound to a DBTX, so services can run
// several repositories inside one transaction, and owns schema migrations.
type RepositoryManager interface {
	Items(db dbx.DBTX) items.Repository
	Attachments(db dbx.DBTX) attachments.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
