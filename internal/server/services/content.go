package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/identity"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
	sc "github.com/dmitrijs2005/medkeeper/internal/server/config"
	"github.com/dmitrijs2005/medkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Presigner is the part of *s3.PresignClient the content service uses.
type Presigner interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// ContentService hands out presigned URLs for the external content store.
// The registry itself never sees record content.
type ContentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	presigner   Presigner
	bucket      string
	expiry      time.Duration
	logger      logging.Logger
	now         Clock
}

// NewContentService builds an S3 presign client from cfg.
func NewContentService(ctx context.Context, db *sql.DB, m repomanager.RepositoryManager, cfg *sc.Config, l logging.Logger) (*ContentService, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newContentService(db, m, s3.NewPresignClient(client), cfg.S3Bucket, cfg.PresignExpiry, l), nil
}

func newContentService(db *sql.DB, m repomanager.RepositoryManager, p Presigner, bucket string, expiry time.Duration, l logging.Logger) *ContentService {
	return &ContentService{
		db:          db,
		repomanager: m,
		presigner:   p,
		bucket:      bucket,
		expiry:      expiry,
		logger:      l.With("module", "content"),
		now:         time.Now,
	}
}

// NewLocator returns a fresh content locator under the caller's prefix.
func NewLocator(caller identity.Address, t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("records/%s/%04d/%02d/%02d/%s", caller.Hex(), t.Year(), t.Month(), t.Day(), uuid.New())
}

// PresignUpload allocates a locator and returns it with a PUT URL.
func (s *ContentService) PresignUpload(ctx context.Context, caller identity.Address) (string, string, error) {
	locator := NewLocator(caller, s.now())

	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(locator),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		s.logger.Error(ctx, "presign put failed", "caller", caller, "error", err)
		return "", "", err
	}

	return locator, req.URL, nil
}

// PresignDownload returns a GET URL for the record's content. The creator
// and every provider currently holding a key may download.
func (s *ContentService) PresignDownload(ctx context.Context, caller identity.Address, recordID int64) (string, error) {
	rec, err := getRecord(ctx, s.repomanager.Records(s.db), recordID)
	if err != nil {
		return "", err
	}

	if rec.Creator != caller {
		if _, err := s.repomanager.ProviderKeys(s.db).Get(ctx, recordID, caller); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return "", common.ErrorUnauthorized
			}
			return "", err
		}
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(rec.ContentLocator),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		s.logger.Error(ctx, "presign get failed", "record_id", recordID, "error", err)
		return "", err
	}

	return req.URL, nil
}
