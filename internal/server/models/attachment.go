package models

import "github.com/dmitrijs2005/sigfeed/internal/identity"

// Attachment is file metadata registered against an admitted item. The
// content itself lives in object storage under StorageKey.
type Attachment struct {
	UserID     identity.UserID
	Signature  identity.Signature
	Name       string
	Size       int64
	StorageKey string
}
