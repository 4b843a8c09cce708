package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/sigfeed/internal/common"
	"github.com/dmitrijs2005/sigfeed/internal/identity"
	"github.com/dmitrijs2005/sigfeed/internal/item"
	"github.com/dmitrijs2005/sigfeed/internal/server/config"
	"github.com/dmitrijs2005/sigfeed/internal/server/models"
)

type attachmentKey struct {
	user identity.UserID
	sig  identity.Signature
	name string
}

type fakeAttachmentRepo struct {
	rows map[attachmentKey]*models.Attachment
}

func newFakeAttachmentRepo() *fakeAttachmentRepo {
	return &fakeAttachmentRepo{rows: make(map[attachmentKey]*models.Attachment)}
}

func (r *fakeAttachmentRepo) Insert(_ context.Context, a *models.Attachment) error {
	k := attachmentKey{a.UserID, a.Signature, a.Name}
	if _, ok := r.rows[k]; ok {
		return nil // ON CONFLICT DO NOTHING
	}
	r.rows[k] = a
	return nil
}

func (r *fakeAttachmentRepo) Get(_ context.Context, user identity.UserID, sig identity.Signature, name string) (*models.Attachment, error) {
	a, ok := r.rows[attachmentKey{user, sig, name}]
	if !ok {
		return nil, common.ErrNotFound
	}
	return a, nil
}

// stubPresignClient returns URLs derived from the object key, or fails.
type stubPresignClient struct {
	err error
}

func (c *stubPresignClient) PresignPutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &v4.PresignedHTTPRequest{URL: "https://s3.test/put/" + *in.Key}, nil
}

func (c *stubPresignClient) PresignGetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &v4.PresignedHTTPRequest{URL: "https://s3.test/get/" + *in.Key}, nil
}

func newTestAttachmentService(t *testing.T) (*AttachmentService, *fakeRepoManager, *stubPresignClient) {
	t.Helper()

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()

	repos := &fakeRepoManager{items: newFakeItemRepo(), attachments: newFakeAttachmentRepo()}
	stub := &stubPresignClient{}

	svc := NewAttachmentService(db, repos, cfg, testLogger())
	svc.newPresignClient = func(context.Context) (presignClient, error) { return stub, nil }
	return svc, repos, stub
}

// seedStoredItem plants an admitted item directly in the fake repository.
func seedStoredItem(repos *fakeRepoManager, user identity.UserID, sig identity.Signature) {
	repos.items.rows[itemKey{user, sig}] = &models.StoredItem{
		UserID:    user,
		Signature: sig,
		Bytes:     []byte("item"),
		Kind:      item.KindPost,
		Seq:       1,
	}
}

func TestAttachmentServiceRegister(t *testing.T) {
	ctx := context.Background()

	user, key, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	sig := key.Sign([]byte("item"))

	t.Run("success", func(t *testing.T) {
		svc, repos, _ := newTestAttachmentService(t)
		seedStoredItem(repos, user, sig)

		a, url, err := svc.Register(ctx, user, sig, "photo.jpg", 1024)
		require.NoError(t, err)
		assert.Equal(t, "photo.jpg", a.Name)
		assert.True(t, strings.HasPrefix(a.StorageKey, "items/"))
		assert.Equal(t, "https://s3.test/put/"+a.StorageKey, url)
	})

	t.Run("idempotent re-register keeps original key", func(t *testing.T) {
		svc, repos, _ := newTestAttachmentService(t)
		seedStoredItem(repos, user, sig)

		first, _, err := svc.Register(ctx, user, sig, "photo.jpg", 1024)
		require.NoError(t, err)

		second, url, err := svc.Register(ctx, user, sig, "photo.jpg", 1024)
		require.NoError(t, err)
		assert.Equal(t, first.StorageKey, second.StorageKey)
		assert.Equal(t, "https://s3.test/put/"+first.StorageKey, url)
	})

	t.Run("unknown item rejected", func(t *testing.T) {
		svc, _, _ := newTestAttachmentService(t)

		_, _, err := svc.Register(ctx, user, sig, "photo.jpg", 1024)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("invalid metadata rejected", func(t *testing.T) {
		svc, repos, _ := newTestAttachmentService(t)
		seedStoredItem(repos, user, sig)

		_, _, err := svc.Register(ctx, user, sig, "", 1024)
		assert.ErrorIs(t, err, common.ErrMalformed)

		_, _, err = svc.Register(ctx, user, sig, "photo.jpg", 0)
		assert.ErrorIs(t, err, common.ErrMalformed)
	})

	t.Run("presign failure maps to storage unavailable", func(t *testing.T) {
		svc, repos, stub := newTestAttachmentService(t)
		seedStoredItem(repos, user, sig)
		stub.err = errors.New("minio down")

		_, _, err := svc.Register(ctx, user, sig, "photo.jpg", 1024)
		assert.ErrorIs(t, err, common.ErrStorageUnavailable)
	})
}

func TestAttachmentServiceDownloadURL(t *testing.T) {
	ctx := context.Background()

	user, key, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	sig := key.Sign([]byte("item"))

	svc, repos, _ := newTestAttachmentService(t)
	seedStoredItem(repos, user, sig)

	_, _, err = svc.DownloadURL(ctx, user, sig, "photo.jpg")
	assert.ErrorIs(t, err, common.ErrNotFound)

	registered, _, err := svc.Register(ctx, user, sig, "photo.jpg", 1024)
	require.NoError(t, err)

	a, url, err := svc.DownloadURL(ctx, user, sig, "photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, registered.StorageKey, a.StorageKey)
	assert.Equal(t, "https://s3.test/get/"+a.StorageKey, url)
}

func TestRandomStorageKey(t *testing.T) {
	a, b := randomStorageKey(), randomStorageKey()
	assert.True(t, strings.HasPrefix(a, "items/"))
	assert.NotEqual(t, a, b)
}
