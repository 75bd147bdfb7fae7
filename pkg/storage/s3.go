package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"go.uber.org/zap"

	"github.com/JaimeStill/casse/pkg/lifecycle"
)

// s3Store talks to any S3-compatible endpoint (Cloudflare R2, MinIO, AWS).
type s3Store struct {
	client   *s3.S3
	uploader *s3manager.Uploader
	bucket   string
	pageSize int64
	logger   *zap.Logger
}

func newS3(cfg *Config, logger *zap.Logger) (System, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String(cfg.Region),
		Endpoint:         aws.String(cfg.Endpoint),
		S3ForcePathStyle: aws.Bool(cfg.PathStyle),
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 session: %w", err)
	}

	client := s3.New(sess)

	return &s3Store{
		client:   client,
		uploader: s3manager.NewUploaderWithClient(client),
		bucket:   cfg.Bucket,
		pageSize: int64(cfg.MaxListSize),
		logger:   logger,
	}, nil
}

func (s *s3Store) Start(lc *lifecycle.Coordinator) error {
	s.logger.Info("starting storage system")

	lc.OnStartup("storage", func() error {
		ctx := lc.Context()
		_, err := s.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
			Bucket: aws.String(s.bucket),
		})
		if err == nil {
			s.logger.Info("storage bucket ready", zap.String("bucket", s.bucket))
			return nil
		}
		if !isS3NotFound(err) {
			return fmt.Errorf("head bucket %s: %w", s.bucket, err)
		}

		_, err = s.client.CreateBucketWithContext(ctx, &s3.CreateBucketInput{
			Bucket: aws.String(s.bucket),
		})
		if err != nil && !hasS3Code(err, s3.ErrCodeBucketAlreadyOwnedByYou) {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}

		s.logger.Info("storage bucket created", zap.String("bucket", s.bucket))
		return nil
	})

	return nil
}

func (s *s3Store) Put(
	ctx context.Context,
	owner string,
	category Category,
	filename string,
	r io.Reader,
	size int64,
	contentType string,
) (string, error) {
	key, err := Key(owner, category, filename)
	if err != nil {
		return "", err
	}

	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload blob %s: %w", key, err)
	}

	s.logger.Debug("blob uploaded", zap.String("key", key), zap.Int64("size", size))
	return key, nil
}

func (s *s3Store) Get(ctx context.Context, owner string, category Category, key string) (*Object, error) {
	key, err := scopedKey(owner, category, key)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("download blob %s: %w", key, err)
	}

	return &Object{
		Body:          out.Body,
		ContentType:   aws.StringValue(out.ContentType),
		ContentLength: aws.Int64Value(out.ContentLength),
	}, nil
}

func (s *s3Store) Delete(ctx context.Context, owner string, category Category, key string) error {
	key, err := scopedKey(owner, category, key)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !hasS3Code(err, s3.ErrCodeNoSuchKey) {
		return fmt.Errorf("delete blob %s: %w", key, err)
	}

	return nil
}

func (s *s3Store) List(ctx context.Context, owner string) ([]string, error) {
	prefix, err := ownerPrefix(owner)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0)
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int64(s.pageSize),
	}

	err = s.client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, last bool) bool {
		for _, obj := range page.Contents {
			names = append(names, strings.TrimPrefix(aws.StringValue(obj.Key), prefix))
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("list blobs for %s: %w", owner, err)
	}

	slices.Sort(names)
	return names, nil
}

func isS3NotFound(err error) bool {
	return hasS3Code(err, s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound")
}

func hasS3Code(err error, codes ...string) bool {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	return slices.Contains(codes, aerr.Code())
}
