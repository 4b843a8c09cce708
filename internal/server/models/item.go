// Package models holds the server-side persistence records.
package models

import (
	"github.com/dmitrijs2005/sigfeed/internal/identity"
	"github.com/dmitrijs2005/sigfeed/internal/item"
)

// StoredItem is an admitted item as persisted: the canonical signed bytes
// plus the sequence number assigned at local admission time. Sequence
// numbers are local to this store, strictly increasing and never reused;
// peers compare by (user, signature), not by seq.
type StoredItem struct {
	UserID         identity.UserID
	Signature      identity.Signature
	Bytes          []byte
	TimestampMsUTC int64
	Kind           item.Kind
	Seq            int64
}
