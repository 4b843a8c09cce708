// Package item defines the structured content unit of sigfeed and its
// canonical binary encoding. The encoded bytes are exactly what authors
// sign, so the codec is deterministic by contract: field order, zero-value
// omission and content placement are fixed here, never left to runtime
// behavior.
package item

import (
	"fmt"

	"github.com/dmitrijs2005/sigfeed/internal/common"
	"github.com/dmitrijs2005/sigfeed/internal/identity"
)

// Kind discriminates item content.
type Kind string

const (
	KindPost    Kind = "post"
	KindProfile Kind = "profile"
	KindComment Kind = "comment"
	KindUnknown Kind = "unknown"
)

// Item is one signed unit of content. Items are immutable once signed;
// "editing" means publishing a new item.
type Item struct {
	// TimestampMsUTC is the author-declared creation time in milliseconds
	// since the Unix epoch. Required.
	TimestampMsUTC int64

	// OffsetMinutes is the author's UTC offset at creation time, for
	// display purposes only.
	OffsetMinutes int32

	// Content is exactly one of Post, Profile, Comment or Unknown.
	Content Content
}

// Content is the kind-discriminated payload of an Item.
type Content interface {
	Kind() Kind
}

// Post is an ordinary published entry.
type Post struct {
	Title string
	Body  string
}

func (Post) Kind() Kind { return KindPost }

// Profile carries user metadata. Display resolution is last-write-wins by
// (timestamp, sequence); older profiles stay stored for history.
type Profile struct {
	DisplayName string
	About       string
	Follows     []Follow
}

func (Profile) Kind() Kind { return KindProfile }

// Follow names another user this profile follows.
type Follow struct {
	UserID      identity.UserID
	DisplayName string
}

// Comment is a reply to another item.
type Comment struct {
	ReplyTo Ref
	Text    string
}

func (Comment) Kind() Kind { return KindComment }

// Ref addresses another item by its global content address.
type Ref struct {
	UserID    identity.UserID
	Signature identity.Signature
}

// Unknown preserves a content kind this build does not understand. The raw
// payload re-encodes byte-identically, so servers can store and relay items
// from newer peers as long as the signature verifies.
type Unknown struct {
	FieldNum uint32
	Raw      []byte
}

func (Unknown) Kind() Kind { return KindUnknown }

// Validate checks structural rules that hold for every item regardless of
// kind.
func (it Item) Validate() error {
	if it.TimestampMsUTC == 0 {
		return fmt.Errorf("%w: missing timestamp", common.ErrMalformed)
	}
	if it.Content == nil {
		return fmt.Errorf("%w: missing content", common.ErrMalformed)
	}
	if c, ok := it.Content.(Comment); ok {
		var zeroUser identity.UserID
		if c.ReplyTo.UserID.Equal(zeroUser) {
			return fmt.Errorf("%w: comment without reply target", common.ErrMalformed)
		}
	}
	return nil
}

// DisplayName extracts the declared display name if this is a profile item.
func (it Item) DisplayName() (string, bool) {
	p, ok := it.Content.(Profile)
	if !ok {
		return "", false
	}
	return p.DisplayName, true
}
