package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dmitrijs2005/sigfeed/internal/common"
	"github.com/dmitrijs2005/sigfeed/internal/identity"
)

func testIdentity(t *testing.T) (identity.UserID, identity.SigningKey) {
	t.Helper()
	u, k, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	return u, k
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	author, key := testIdentity(t)
	other, _ := testIdentity(t)
	parentSig := key.Sign([]byte("parent"))

	tests := []struct {
		name string
		item Item
	}{
		{
			name: "post",
			item: Item{
				TimestampMsUTC: 1700000000000,
				OffsetMinutes:  120,
				Content:        Post{Title: "hello", Body: "first post"},
			},
		},
		{
			name: "post without title",
			item: Item{
				TimestampMsUTC: 1700000000001,
				Content:        Post{Body: "untitled"},
			},
		},
		{
			name: "profile",
			item: Item{
				TimestampMsUTC: 1700000000002,
				OffsetMinutes:  -300,
				Content: Profile{
					DisplayName: "Alice",
					About:       "hi",
					Follows: []Follow{
						{UserID: author, DisplayName: "me"},
						{UserID: other, DisplayName: "friend"},
					},
				},
			},
		},
		{
			name: "comment",
			item: Item{
				TimestampMsUTC: 1700000000003,
				Content: Comment{
					ReplyTo: Ref{UserID: author, Signature: parentSig},
					Text:    "nice post",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Encode(tt.item)
			require.NoError(t, err)

			decoded, err := Decode(b)
			require.NoError(t, err)
			assert.Equal(t, tt.item, decoded)
		})
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	it := Item{
		TimestampMsUTC: 42,
		OffsetMinutes:  -60,
		Content:        Post{Title: "t", Body: "b"},
	}

	a, err := Encode(it)
	require.NoError(t, err)
	b, err := Encode(it)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestUnknownKindPassthrough(t *testing.T) {
	// A future content kind in field 9: store, decode, re-encode. The
	// output must reproduce the input byte for byte so signatures over it
	// still verify.
	payload := []byte{0x0a, 0x03, 'x', 'y', 'z'}
	buf := protowire.AppendTag(nil, 1, protowire.VarintType)
	buf = protowire.AppendVarint(buf, 123456)
	buf = protowire.AppendTag(buf, 9, protowire.BytesType)
	buf = protowire.AppendBytes(buf, payload)

	it, err := Decode(buf)
	require.NoError(t, err)

	unknown, ok := it.Content.(Unknown)
	require.True(t, ok)
	assert.Equal(t, uint32(9), unknown.FieldNum)
	assert.Equal(t, payload, unknown.Raw)
	assert.Equal(t, KindUnknown, it.Content.Kind())

	out, err := Encode(it)
	require.NoError(t, err)
	assert.Equal(t, buf, out)
}

func TestDecodeMalformed(t *testing.T) {
	goodPost, err := Encode(Item{TimestampMsUTC: 1, Content: Post{Body: "x"}})
	require.NoError(t, err)

	duplicateTimestamp := protowire.AppendTag(nil, 1, protowire.VarintType)
	duplicateTimestamp = protowire.AppendVarint(duplicateTimestamp, 1)
	duplicateTimestamp = protowire.AppendTag(duplicateTimestamp, 1, protowire.VarintType)
	duplicateTimestamp = protowire.AppendVarint(duplicateTimestamp, 2)

	twoContents, err := Encode(Item{TimestampMsUTC: 1, Content: Post{Body: "x"}})
	require.NoError(t, err)
	twoContents = protowire.AppendTag(twoContents, 4, protowire.BytesType)
	twoContents = protowire.AppendBytes(twoContents, nil)

	noTimestamp := protowire.AppendTag(nil, 3, protowire.BytesType)
	noTimestamp = protowire.AppendBytes(noTimestamp, nil)

	// A comment whose payload lacks a reply target.
	commentNoTarget := protowire.AppendTag(nil, 1, protowire.VarintType)
	commentNoTarget = protowire.AppendVarint(commentNoTarget, 1)
	commentNoTarget = protowire.AppendTag(commentNoTarget, 5, protowire.BytesType)
	commentNoTarget = protowire.AppendBytes(commentNoTarget, nil)

	tests := []struct {
		name string
		in   []byte
	}{
		{"empty", nil},
		{"truncated", goodPost[:len(goodPost)-1]},
		{"garbage", []byte{0xff, 0xff, 0xff}},
		{"duplicate timestamp", duplicateTimestamp},
		{"two content fields", twoContents},
		{"missing timestamp", noTimestamp},
		{"comment without target", commentNoTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.in)
			assert.ErrorIs(t, err, common.ErrMalformed)
		})
	}
}

func TestEncodeRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		item Item
	}{
		{"no timestamp", Item{Content: Post{Body: "x"}}},
		{"no content", Item{TimestampMsUTC: 1}},
		{"unknown on reserved field", Item{TimestampMsUTC: 1, Content: Unknown{FieldNum: 4, Raw: []byte{1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.item)
			assert.ErrorIs(t, err, common.ErrMalformed)
		})
	}
}

func TestSignedRoundTrip(t *testing.T) {
	// put-style flow: encode, sign, verify over the exact bytes.
	author, key := testIdentity(t)

	b, err := Encode(Item{TimestampMsUTC: 1700000000000, Content: Post{Title: "t", Body: "b"}})
	require.NoError(t, err)

	sig := key.Sign(b)
	assert.True(t, author.Verify(sig, b))

	// Any single-bit change invalidates the signature.
	tampered := append([]byte(nil), b...)
	tampered[len(tampered)/2] ^= 0x01
	assert.False(t, author.Verify(sig, tampered))
}
