package item

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dmitrijs2005/sigfeed/internal/common"
	"github.com/dmitrijs2005/sigfeed/internal/identity"
)

// Wire layout. Signatures bind to these bytes, so the numbers and the
// encoding rules below are frozen: fields appear in ascending number order,
// zero values are omitted, and exactly one content field is present.
//
//	Item:    1=timestamp_ms_utc varint, 2=utc_offset_minutes zigzag,
//	         3=post, 4=profile, 5=comment (length-delimited, one of);
//	         higher length-delimited numbers are reserved for future kinds.
//	Post:    1=title, 2=body
//	Profile: 1=display_name, 2=about, 3=follow (repeated)
//	Follow:  1=user_id, 2=display_name
//	Comment: 1=reply_to (Ref), 2=text
//	Ref:     1=user_id, 2=signature
const (
	fieldTimestamp = 1
	fieldOffset    = 2
	fieldPost      = 3
	fieldProfile   = 4
	fieldComment   = 5

	postTitle = 1
	postBody  = 2

	profileDisplayName = 1
	profileAbout       = 2
	profileFollow      = 3

	followUserID      = 1
	followDisplayName = 2

	commentReplyTo = 1
	commentText    = 2

	refUserID    = 1
	refSignature = 2
)

// Encode serializes it into its canonical byte form. Two logically equal
// items always produce byte-identical output.
func Encode(it Item) ([]byte, error) {
	if err := it.Validate(); err != nil {
		return nil, err
	}

	buf := protowire.AppendTag(nil, fieldTimestamp, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(it.TimestampMsUTC))

	if it.OffsetMinutes != 0 {
		buf = protowire.AppendTag(buf, fieldOffset, protowire.VarintType)
		buf = protowire.AppendVarint(buf, protowire.EncodeZigZag(int64(it.OffsetMinutes)))
	}

	switch c := it.Content.(type) {
	case Post:
		buf = protowire.AppendTag(buf, fieldPost, protowire.BytesType)
		buf = protowire.AppendBytes(buf, encodePost(c))
	case Profile:
		buf = protowire.AppendTag(buf, fieldProfile, protowire.BytesType)
		buf = protowire.AppendBytes(buf, encodeProfile(c))
	case Comment:
		buf = protowire.AppendTag(buf, fieldComment, protowire.BytesType)
		buf = protowire.AppendBytes(buf, encodeComment(c))
	case Unknown:
		if c.FieldNum <= fieldComment {
			return nil, fmt.Errorf("%w: unknown content with reserved field %d", common.ErrMalformed, c.FieldNum)
		}
		buf = protowire.AppendTag(buf, protowire.Number(c.FieldNum), protowire.BytesType)
		buf = protowire.AppendBytes(buf, c.Raw)
	default:
		return nil, fmt.Errorf("%w: unsupported content %T", common.ErrMalformed, it.Content)
	}

	return buf, nil
}

func encodePost(p Post) []byte {
	var buf []byte
	buf = appendStringField(buf, postTitle, p.Title)
	buf = appendStringField(buf, postBody, p.Body)
	return buf
}

func encodeProfile(p Profile) []byte {
	var buf []byte
	buf = appendStringField(buf, profileDisplayName, p.DisplayName)
	buf = appendStringField(buf, profileAbout, p.About)
	for _, f := range p.Follows {
		var fb []byte
		fb = protowire.AppendTag(fb, followUserID, protowire.BytesType)
		fb = protowire.AppendBytes(fb, f.UserID.Bytes())
		fb = appendStringField(fb, followDisplayName, f.DisplayName)
		buf = protowire.AppendTag(buf, profileFollow, protowire.BytesType)
		buf = protowire.AppendBytes(buf, fb)
	}
	return buf
}

func encodeComment(c Comment) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, commentReplyTo, protowire.BytesType)
	buf = protowire.AppendBytes(buf, encodeRef(c.ReplyTo))
	buf = appendStringField(buf, commentText, c.Text)
	return buf
}

func encodeRef(r Ref) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, refUserID, protowire.BytesType)
	buf = protowire.AppendBytes(buf, r.UserID.Bytes())
	buf = protowire.AppendTag(buf, refSignature, protowire.BytesType)
	buf = protowire.AppendBytes(buf, r.Signature.Bytes())
	return buf
}

// Zero-value strings are omitted, matching Encode's determinism contract.
func appendStringField(buf []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return buf
	}
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	return protowire.AppendString(buf, s)
}

// Decode parses canonical item bytes. All failures wrap ErrMalformed.
// Content kinds this build does not know decode into Unknown, preserving
// the raw payload so Encode reproduces the input byte for byte.
func Decode(b []byte) (Item, error) {
	var it Item

	d := decoder{buf: b}
	for !d.done() {
		num, typ, err := d.tag()
		if err != nil {
			return Item{}, err
		}
		switch {
		case num == fieldTimestamp && typ == protowire.VarintType:
			v, err := d.varint(num)
			if err != nil {
				return Item{}, err
			}
			it.TimestampMsUTC = int64(v)
		case num == fieldOffset && typ == protowire.VarintType:
			v, err := d.varint(num)
			if err != nil {
				return Item{}, err
			}
			it.OffsetMinutes = int32(protowire.DecodeZigZag(v))
		case typ == protowire.BytesType && num >= fieldPost:
			payload, err := d.bytes(num)
			if err != nil {
				return Item{}, err
			}
			if it.Content != nil {
				return Item{}, fmt.Errorf("%w: multiple content fields", common.ErrMalformed)
			}
			content, err := decodeContent(num, payload)
			if err != nil {
				return Item{}, err
			}
			it.Content = content
		default:
			return Item{}, fmt.Errorf("%w: unexpected field %d (wire type %d)", common.ErrMalformed, num, typ)
		}
	}

	if err := it.Validate(); err != nil {
		return Item{}, err
	}
	return it, nil
}

func decodeContent(num protowire.Number, payload []byte) (Content, error) {
	switch num {
	case fieldPost:
		return decodePost(payload)
	case fieldProfile:
		return decodeProfile(payload)
	case fieldComment:
		return decodeComment(payload)
	default:
		raw := make([]byte, len(payload))
		copy(raw, payload)
		return Unknown{FieldNum: uint32(num), Raw: raw}, nil
	}
}

func decodePost(b []byte) (Post, error) {
	var p Post
	d := decoder{buf: b}
	for !d.done() {
		num, typ, err := d.tag()
		if err != nil {
			return Post{}, err
		}
		if typ != protowire.BytesType {
			return Post{}, d.unexpected(num, typ)
		}
		s, err := d.str(num)
		if err != nil {
			return Post{}, err
		}
		switch num {
		case postTitle:
			p.Title = s
		case postBody:
			p.Body = s
		default:
			return Post{}, d.unexpected(num, typ)
		}
	}
	return p, nil
}

func decodeProfile(b []byte) (Profile, error) {
	var p Profile
	d := decoder{buf: b}
	for !d.done() {
		num, typ, err := d.tag()
		if err != nil {
			return Profile{}, err
		}
		if typ != protowire.BytesType {
			return Profile{}, d.unexpected(num, typ)
		}
		switch num {
		case profileDisplayName:
			s, err := d.str(num)
			if err != nil {
				return Profile{}, err
			}
			p.DisplayName = s
		case profileAbout:
			s, err := d.str(num)
			if err != nil {
				return Profile{}, err
			}
			p.About = s
		case profileFollow:
			payload, err := d.bytes(num)
			if err != nil {
				return Profile{}, err
			}
			f, err := decodeFollow(payload)
			if err != nil {
				return Profile{}, err
			}
			p.Follows = append(p.Follows, f)
		default:
			return Profile{}, d.unexpected(num, typ)
		}
	}
	return p, nil
}

func decodeFollow(b []byte) (Follow, error) {
	var f Follow
	d := decoder{buf: b}
	for !d.done() {
		num, typ, err := d.tag()
		if err != nil {
			return Follow{}, err
		}
		if typ != protowire.BytesType {
			return Follow{}, d.unexpected(num, typ)
		}
		switch num {
		case followUserID:
			payload, err := d.bytes(num)
			if err != nil {
				return Follow{}, err
			}
			u, err := identity.NewUserID(payload)
			if err != nil {
				return Follow{}, fmt.Errorf("%w: follow user id: %v", common.ErrMalformed, err)
			}
			f.UserID = u
		case followDisplayName:
			s, err := d.str(num)
			if err != nil {
				return Follow{}, err
			}
			f.DisplayName = s
		default:
			return Follow{}, d.unexpected(num, typ)
		}
	}
	return f, nil
}

func decodeComment(b []byte) (Comment, error) {
	var c Comment
	d := decoder{buf: b}
	for !d.done() {
		num, typ, err := d.tag()
		if err != nil {
			return Comment{}, err
		}
		if typ != protowire.BytesType {
			return Comment{}, d.unexpected(num, typ)
		}
		switch num {
		case commentReplyTo:
			payload, err := d.bytes(num)
			if err != nil {
				return Comment{}, err
			}
			r, err := decodeRef(payload)
			if err != nil {
				return Comment{}, err
			}
			c.ReplyTo = r
		case commentText:
			s, err := d.str(num)
			if err != nil {
				return Comment{}, err
			}
			c.Text = s
		default:
			return Comment{}, d.unexpected(num, typ)
		}
	}
	return c, nil
}

func decodeRef(b []byte) (Ref, error) {
	var r Ref
	d := decoder{buf: b}
	for !d.done() {
		num, typ, err := d.tag()
		if err != nil {
			return Ref{}, err
		}
		if typ != protowire.BytesType {
			return Ref{}, d.unexpected(num, typ)
		}
		payload, err := d.bytes(num)
		if err != nil {
			return Ref{}, err
		}
		switch num {
		case refUserID:
			u, err := identity.NewUserID(payload)
			if err != nil {
				return Ref{}, fmt.Errorf("%w: ref user id: %v", common.ErrMalformed, err)
			}
			r.UserID = u
		case refSignature:
			s, err := identity.NewSignature(payload)
			if err != nil {
				return Ref{}, fmt.Errorf("%w: ref signature: %v", common.ErrMalformed, err)
			}
			r.Signature = s
		default:
			return Ref{}, d.unexpected(num, typ)
		}
	}
	return r, nil
}

// decoder walks a protowire buffer enforcing canonical form: field numbers
// must be non-decreasing, and a repeated number is only legal for repeated
// fields (the caller sees it again and decides).
type decoder struct {
	buf  []byte
	last protowire.Number
}

func (d *decoder) done() bool { return len(d.buf) == 0 }

func (d *decoder) tag() (protowire.Number, protowire.Type, error) {
	num, typ, n := protowire.ConsumeTag(d.buf)
	if n < 0 {
		return 0, 0, fmt.Errorf("%w: bad tag", common.ErrMalformed)
	}
	if num < d.last {
		return 0, 0, fmt.Errorf("%w: field %d out of order", common.ErrMalformed, num)
	}
	if num == d.last && num != profileFollow {
		return 0, 0, fmt.Errorf("%w: duplicate field %d", common.ErrMalformed, num)
	}
	d.last = num
	d.buf = d.buf[n:]
	return num, typ, nil
}

func (d *decoder) varint(num protowire.Number) (uint64, error) {
	v, n := protowire.ConsumeVarint(d.buf)
	if n < 0 {
		return 0, fmt.Errorf("%w: bad varint in field %d", common.ErrMalformed, num)
	}
	d.buf = d.buf[n:]
	return v, nil
}

func (d *decoder) bytes(num protowire.Number) ([]byte, error) {
	v, n := protowire.ConsumeBytes(d.buf)
	if n < 0 {
		return nil, fmt.Errorf("%w: bad length-delimited field %d", common.ErrMalformed, num)
	}
	d.buf = d.buf[n:]
	return v, nil
}

func (d *decoder) str(num protowire.Number) (string, error) {
	v, err := d.bytes(num)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (d *decoder) unexpected(num protowire.Number, typ protowire.Type) error {
	return fmt.Errorf("%w: unexpected field %d (wire type %d)", common.ErrMalformed, num, typ)
}
