// Package syncx holds the pieces of the sync protocol shared by the server
// and replicating clients: the opaque pagination cursor, the enumeration
// contract, and the bounded-concurrency retrieval pipeline.
package syncx

import (
	"encoding/base64"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dmitrijs2005/sigfeed/internal/common"
)

// Cursor is an opaque pagination token. Callers may compare cursors for
// equality and hand them back unchanged; nothing else about the contents is
// part of the contract, which leaves the sequencing scheme free to change.
//
// The empty Cursor means "start of the stream".
type Cursor string

const cursorWatermark = 1

// NewCursor builds a token resuming after the given sequence watermark.
func NewCursor(watermark int64) Cursor {
	buf := protowire.AppendTag(nil, cursorWatermark, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(watermark))
	return Cursor(base64.RawURLEncoding.EncodeToString(buf))
}

// IsZero reports whether c is the start-of-stream token.
func (c Cursor) IsZero() bool { return c == "" }

// Watermark extracts the sequence watermark. The zero cursor has watermark 0.
// Garbage tokens yield ErrInvalidFormat.
func (c Cursor) Watermark() (int64, error) {
	if c.IsZero() {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(string(c))
	if err != nil {
		return 0, fmt.Errorf("%w: cursor: %v", common.ErrInvalidFormat, err)
	}
	var watermark int64
	seen := false
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return 0, fmt.Errorf("%w: cursor tag", common.ErrInvalidFormat)
		}
		raw = raw[n:]
		if num == cursorWatermark && typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(raw)
			if n < 0 {
				return 0, fmt.Errorf("%w: cursor watermark", common.ErrInvalidFormat)
			}
			raw = raw[n:]
			watermark = int64(v)
			seen = true
			continue
		}
		// Skip fields added by a newer scheme.
		n = protowire.ConsumeFieldValue(num, typ, raw)
		if n < 0 {
			return 0, fmt.Errorf("%w: cursor field %d", common.ErrInvalidFormat, num)
		}
		raw = raw[n:]
	}
	if !seen {
		return 0, fmt.Errorf("%w: cursor without watermark", common.ErrInvalidFormat)
	}
	return watermark, nil
}
