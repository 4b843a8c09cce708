package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/sigfeed/internal/common"
	"github.com/dmitrijs2005/sigfeed/internal/identity"
	"github.com/dmitrijs2005/sigfeed/internal/logging"
	"github.com/dmitrijs2005/sigfeed/internal/server/services"
	"github.com/dmitrijs2005/sigfeed/internal/syncx"
)

// maxItemBytes caps an uploaded item body. Large payloads belong in
// attachments, not in the signed item itself.
const maxItemBytes = 32 << 10

type handler struct {
	items       ItemStore
	attachments AttachmentStore
	logger      logging.Logger
}

type putResponse struct {
	Status string `json:"status"`
	Seq    int64  `json:"seq"`
}

type entryJSON struct {
	UserID         string `json:"userId"`
	Signature      string `json:"signature"`
	TimestampMsUTC int64  `json:"timestampMsUtc"`
	Seq            int64  `json:"seq"`
}

type listResponse struct {
	Items  []entryJSON `json:"items"`
	Cursor string      `json:"cursor"`
}

type displayNameResponse struct {
	DisplayName string `json:"displayName"`
}

type registerAttachmentRequest struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type registerAttachmentResponse struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	UploadURL string `json:"uploadUrl"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) putItem(w http.ResponseWriter, r *http.Request) {
	user, sig, ok := h.address(w, r)
	if !ok {
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxItemBytes))
	if err != nil {
		h.writeError(w, r, common.ErrMalformed)
		return
	}

	res, err := h.items.Put(r.Context(), user, sig, raw)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	switch res.Status {
	case services.PutAccepted:
		writeJSON(w, http.StatusCreated, putResponse{Status: "accepted", Seq: res.Seq})
	default:
		writeJSON(w, http.StatusOK, putResponse{Status: "no_op", Seq: res.Seq})
	}
}

func (h *handler) getItem(w http.ResponseWriter, r *http.Request) {
	user, sig, ok := h.address(w, r)
	if !ok {
		return
	}

	stored, err := h.items.Get(r.Context(), user, sig)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(stored.Bytes)))
	_, _ = w.Write(stored.Bytes)
}

func (h *handler) listUserItems(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userID(w, r)
	if !ok {
		return
	}

	cursor, limit, ok := h.paging(w, r)
	if !ok {
		return
	}

	page, err := h.items.ListUserItems(r.Context(), user, cursor, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListResponse(page))
}

func (h *handler) listAllItems(w http.ResponseWriter, r *http.Request) {
	cursor, limit, ok := h.paging(w, r)
	if !ok {
		return
	}

	page, err := h.items.ListAllItems(r.Context(), cursor, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListResponse(page))
}

func (h *handler) displayName(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userID(w, r)
	if !ok {
		return
	}

	name, err := h.items.ResolveDisplayName(r.Context(), user)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, displayNameResponse{DisplayName: name})
}

func (h *handler) registerAttachment(w http.ResponseWriter, r *http.Request) {
	user, sig, ok := h.address(w, r)
	if !ok {
		return
	}

	var req registerAttachmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, common.ErrMalformed)
		return
	}

	a, url, err := h.attachments.Register(r.Context(), user, sig, req.Name, req.Size)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerAttachmentResponse{
		Name:      a.Name,
		Size:      a.Size,
		UploadURL: url,
	})
}

func (h *handler) downloadAttachment(w http.ResponseWriter, r *http.Request) {
	user, sig, ok := h.address(w, r)
	if !ok {
		return
	}

	_, url, err := h.attachments.DownloadURL(r.Context(), user, sig, chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (h *handler) userID(w http.ResponseWriter, r *http.Request) (identity.UserID, bool) {
	user, err := identity.DecodeUserID(chi.URLParam(r, "userID"))
	if err != nil {
		h.writeError(w, r, err)
		return identity.UserID{}, false
	}
	return user, true
}

func (h *handler) address(w http.ResponseWriter, r *http.Request) (identity.UserID, identity.Signature, bool) {
	user, ok := h.userID(w, r)
	if !ok {
		return identity.UserID{}, identity.Signature{}, false
	}
	sig, err := identity.DecodeSignature(chi.URLParam(r, "signature"))
	if err != nil {
		h.writeError(w, r, err)
		return identity.UserID{}, identity.Signature{}, false
	}
	return user, sig, true
}

func (h *handler) paging(w http.ResponseWriter, r *http.Request) (syncx.Cursor, int, bool) {
	cursor := syncx.Cursor(r.URL.Query().Get("cursor"))

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.writeError(w, r, common.ErrInvalidFormat)
			return "", 0, false
		}
		limit = n
	}
	return cursor, limit, true
}

func toListResponse(page syncx.Page) listResponse {
	resp := listResponse{Items: []entryJSON{}, Cursor: string(page.Next)}
	for _, e := range page.Entries {
		resp.Items = append(resp.Items, entryJSON{
			UserID:         e.UserID.String(),
			Signature:      e.Signature.String(),
			TimestampMsUTC: e.TimestampMsUTC,
			Seq:            e.Seq,
		})
	}
	return resp
}

// writeError maps service sentinels onto HTTP statuses. 5xx responses log;
// client errors do not.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, common.ErrMalformed), errors.Is(err, common.ErrInvalidFormat),
		errors.Is(err, common.ErrChecksumMismatch):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrInvalidSignature):
		status = http.StatusUnauthorized
	case errors.Is(err, common.ErrContentConflict):
		status = http.StatusConflict
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
		w.Header().Set("Retry-After", "5")
	default:
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "status", status, "error", err.Error())
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
