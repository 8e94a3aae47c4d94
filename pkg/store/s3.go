package store

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Store keeps figures in a bucket, under an optional key prefix.
type S3Store struct {
	api    s3iface.S3API
	Bucket string
	Prefix string
}

func NewS3Store(api s3iface.S3API, bucket, prefix string) *S3Store {
	return &S3Store{api: api, Bucket: bucket, Prefix: prefix}
}

// NewS3StoreFromRegion builds the client from the usual AWS environment/credential chain.
func NewS3StoreFromRegion(region, bucket, prefix string) (*S3Store, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	return NewS3Store(s3.New(sess), bucket, prefix), nil
}

func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.api.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(objectKey(s.Prefix, key)),
	})
	if err == nil {
		return true, nil
	}

	if aerr, ok := err.(awserr.Error); ok {
		if aerr.Code() == "NotFound" || aerr.Code() == s3.ErrCodeNoSuchKey {
			return false, nil
		}
	}
	return false, fmt.Errorf("head s3://%s/%s: %w", s.Bucket, objectKey(s.Prefix, key), err)
}

func (s *S3Store) Write(ctx context.Context, key string, data []byte) error {
	input := &s3.PutObjectInput{
		Body:   bytes.NewReader(data),
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(objectKey(s.Prefix, key)),
	}
	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		input.ContentType = aws.String(ct)
	}

	if _, err := s.api.PutObjectWithContext(ctx, input); err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.Bucket, *input.Key, err)
	}
	return nil
}
