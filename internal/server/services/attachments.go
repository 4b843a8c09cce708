package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/sigfeed/internal/common"
	"github.com/dmitrijs2005/sigfeed/internal/identity"
	"github.com/dmitrijs2005/sigfeed/internal/logging"
	"github.com/dmitrijs2005/sigfeed/internal/server/config"
	"github.com/dmitrijs2005/sigfeed/internal/server/models"
	"github.com/dmitrijs2005/sigfeed/internal/server/repositories/repomanager"
)

// presignClient is the slice of s3.PresignClient the service uses; a seam
// for tests.
type presignClient interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// AttachmentService manages attachment metadata and hands out presigned
// URLs so blob traffic bypasses the API server entirely. An attachment may
// only be registered against an item that already exists, by that item's
// author.
type AttachmentService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	config *config.Config
	logger logging.Logger

	// overridable in tests
	newPresignClient func(ctx context.Context) (presignClient, error)
}

func NewAttachmentService(db *sql.DB, repos repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *AttachmentService {
	s := &AttachmentService{
		db:     db,
		repos:  repos,
		config: cfg,
		logger: logger.With("module", "attachments"),
	}
	s.newPresignClient = s.buildPresignClient
	return s
}

// randomStorageKey scatters objects by date so bucket listings stay usable.
func randomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("items/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *AttachmentService) buildPresignClient(ctx context.Context) (presignClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return s3.NewPresignClient(client), nil
}

// Register records attachment metadata for an existing item and returns a
// presigned PUT URL the client uploads the blob to. Re-registering the same
// name is idempotent: the stored pointer wins and a fresh upload URL for
// its key is returned.
func (s *AttachmentService) Register(ctx context.Context, user identity.UserID, sig identity.Signature, name string, size int64) (*models.Attachment, string, error) {
	if name == "" || size <= 0 {
		return nil, "", fmt.Errorf("%w: attachment needs a name and a positive size", common.ErrMalformed)
	}

	if _, err := s.repos.Items(s.db).Get(ctx, user, sig); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, "", common.ErrNotFound
		}
		return nil, "", s.storageFailure(ctx, "register_attachment", err)
	}

	repo := s.repos.Attachments(s.db)

	a := &models.Attachment{
		UserID:     user,
		Signature:  sig,
		Name:       name,
		Size:       size,
		StorageKey: randomStorageKey(),
	}
	if err := repo.Insert(ctx, a); err != nil {
		return nil, "", s.storageFailure(ctx, "register_attachment", err)
	}

	// Insert is ON CONFLICT DO NOTHING; read back whichever row won so a
	// repeated registration presigns the original key.
	stored, err := repo.Get(ctx, user, sig, name)
	if err != nil {
		return nil, "", s.storageFailure(ctx, "register_attachment", err)
	}

	url, err := s.presignPut(ctx, stored.StorageKey)
	if err != nil {
		return nil, "", s.storageFailure(ctx, "presign_put", err)
	}
	return stored, url, nil
}

// DownloadURL returns a presigned GET URL for a registered attachment.
func (s *AttachmentService) DownloadURL(ctx context.Context, user identity.UserID, sig identity.Signature, name string) (*models.Attachment, string, error) {
	a, err := s.repos.Attachments(s.db).Get(ctx, user, sig, name)
	if errors.Is(err, common.ErrNotFound) {
		return nil, "", common.ErrNotFound
	}
	if err != nil {
		return nil, "", s.storageFailure(ctx, "download_url", err)
	}

	client, err := s.newPresignClient(ctx)
	if err != nil {
		return nil, "", s.storageFailure(ctx, "presign_get", err)
	}

	req, err := client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.S3Bucket),
		Key:    aws.String(a.StorageKey),
	}, s3.WithPresignExpires(s.config.PresignExpiry))
	if err != nil {
		return nil, "", s.storageFailure(ctx, "presign_get", err)
	}
	return a, req.URL, nil
}

func (s *AttachmentService) presignPut(ctx context.Context, key string) (string, error) {
	client, err := s.newPresignClient(ctx)
	if err != nil {
		return "", err
	}

	req, err := client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.config.S3Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.config.PresignExpiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (s *AttachmentService) storageFailure(ctx context.Context, op string, err error) error {
	s.logger.Error(ctx, "storage failure", "op", op, "error", err.Error())
	return fmt.Errorf("%w: %s: %v", common.ErrStorageUnavailable, op, err)
}
