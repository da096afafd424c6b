package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/atheneum-lms/atheneum/internal/shared"
)

// S3Store keeps media in an S3 bucket using the same object layout as the
// filesystem backend.
type S3Store struct {
	client *s3.Client
	bucket string
	logger *slog.Logger
}

// NewS3Store builds an S3-backed Store. A custom endpoint switches the
// client to path-style addressing for MinIO-compatible servers.
func NewS3Store(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage: s3 bucket required")
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID:     cfg.AccessKey,
				SecretAccessKey: cfg.SecretKey,
			},
		}))
	}
	if cfg.Endpoint != "" {
		loadOpts = append(loadOpts, awsconfig.WithBaseEndpoint(cfg.Endpoint))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.Endpoint != ""
	})
	return &S3Store{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

func (s *S3Store) Save(ctx context.Context, key Key, content io.Reader, allowed []string) (string, error) {
	if err := key.validate(allowed); err != nil {
		return "", err
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key.ObjectPath()),
		Body:   content,
	})
	if err != nil {
		return "", fmt.Errorf("%w: put object %s: %v", shared.ErrUploadFailed, key.ObjectPath(), err)
	}
	if s.logger != nil {
		s.logger.Debug("stored media object", slog.String("key", key.ObjectPath()))
	}
	return key.Filename, nil
}

func (s *S3Store) Remove(ctx context.Context, key Key) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key.ObjectPath()),
	})
	if err != nil {
		return fmt.Errorf("storage: delete object %s: %w", key.ObjectPath(), err)
	}
	return nil
}

// RemoveOwner lists everything under the owner prefix and deletes it in
// batches of up to 1000 keys, the S3 DeleteObjects limit.
func (s *S3Store) RemoveOwner(ctx context.Context, ns Namespace, ownerUUID string) error {
	if ownerUUID == "" {
		return errors.New("storage: owner uuid required")
	}
	prefix := OwnerPrefix(ns, ownerUUID)
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("storage: list owner objects %s: %w", prefix, err)
		}
		if len(page.Contents) == 0 {
			continue
		}
		objects := make([]s3types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			objects = append(objects, s3types.ObjectIdentifier{Key: obj.Key})
		}
		_, err = s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &s3types.Delete{Objects: objects},
		})
		if err != nil {
			return fmt.Errorf("storage: delete owner objects %s: %w", prefix, err)
		}
	}
	return nil
}
