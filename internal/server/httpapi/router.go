// Package httpapi exposes the item store over REST. Item bodies travel as
// their canonical bytes (application/octet-stream); everything else is JSON.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/sigfeed/internal/identity"
	"github.com/dmitrijs2005/sigfeed/internal/logging"
	"github.com/dmitrijs2005/sigfeed/internal/server/models"
	"github.com/dmitrijs2005/sigfeed/internal/server/services"
	"github.com/dmitrijs2005/sigfeed/internal/syncx"
)

// ItemStore is the slice of the item service the HTTP layer needs.
type ItemStore interface {
	Put(ctx context.Context, user identity.UserID, sig identity.Signature, raw []byte) (services.PutResult, error)
	Get(ctx context.Context, user identity.UserID, sig identity.Signature) (*models.StoredItem, error)
	ListUserItems(ctx context.Context, user identity.UserID, cursor syncx.Cursor, limit int) (syncx.Page, error)
	ListAllItems(ctx context.Context, cursor syncx.Cursor, limit int) (syncx.Page, error)
	ResolveDisplayName(ctx context.Context, user identity.UserID) (string, error)
}

// AttachmentStore is the slice of the attachment service the HTTP layer needs.
type AttachmentStore interface {
	Register(ctx context.Context, user identity.UserID, sig identity.Signature, name string, size int64) (*models.Attachment, string, error)
	DownloadURL(ctx context.Context, user identity.UserID, sig identity.Signature, name string) (*models.Attachment, string, error)
}

// NewRouter builds the public HTTP surface.
func NewRouter(items ItemStore, attachments AttachmentStore, logger logging.Logger) chi.Router {
	h := &handler{
		items:       items,
		attachments: attachments,
		logger:      logger.With("module", "httpapi"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/items", h.listAllItems)

	r.Route("/u/{userID}", func(r chi.Router) {
		r.Get("/items", h.listUserItems)
		r.Get("/profile/displayName", h.displayName)

		r.Route("/i/{signature}", func(r chi.Router) {
			r.Put("/", h.putItem)
			r.Get("/", h.getItem)
			r.Post("/attachments", h.registerAttachment)
			r.Get("/attachments/{name}", h.downloadAttachment)
		})
	})

	return r
}
