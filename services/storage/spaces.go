package storage

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// SpacesConfig holds configuration for an S3-compatible bucket such as
// DigitalOcean Spaces.
type SpacesConfig struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string
	Prefix    string
}

// SpacesMirror copies uploads to a bucket. Objects stay private.
type SpacesMirror struct {
	s3Client *s3.S3
	bucket   string
	prefix   string
}

func NewSpacesMirror(config SpacesConfig) (*SpacesMirror, error) {
	region := config.Region
	if region == "" {
		region = "us-east-1"
	}
	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"",
		),
		Endpoint:         aws.String(config.Endpoint),
		Region:           aws.String(region),
		S3ForcePathStyle: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spaces session: %w", err)
	}

	prefix := config.Prefix
	if prefix == "" {
		prefix = "uploads"
	}
	return &SpacesMirror{
		s3Client: s3.New(sess),
		bucket:   config.Bucket,
		prefix:   prefix,
	}, nil
}

func (s *SpacesMirror) key(rel string) string {
	return path.Join(s.prefix, rel)
}

func (s *SpacesMirror) Put(ctx context.Context, rel string, body io.ReadSeeker, contentType string) error {
	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(rel)),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}
	return nil
}

func (s *SpacesMirror) Delete(ctx context.Context, rel string) error {
	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(rel)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
