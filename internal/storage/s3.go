package storage

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"golang.org/x/xerrors"
)

type s3Storage struct {
	client *s3.Client
}

// NewS3Storage creates a backend for s3://bucket/key paths. S3_ENDPOINT_URL
// points the client at an S3 compatible endpoint.
func NewS3Storage(ctx context.Context) (Storage, error) {
	c, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, xerrors.Errorf("failed to load AWS config: %w", err)
	}

	endpointURL, hasEndpoint := os.LookupEnv("S3_ENDPOINT_URL")
	s3Client := s3.NewFromConfig(c, func(o *s3.Options) {
		if hasEndpoint {
			o.BaseEndpoint = aws.String(endpointURL)
		}
		o.UsePathStyle = true
	})

	return &s3Storage{
		client: s3Client,
	}, nil
}

// SplitS3URL splits s3://bucket/key into its bucket and key.
func SplitS3URL(url string) (string, string, error) {
	rest, ok := strings.CutPrefix(url, "s3://")
	if !ok {
		return "", "", xerrors.Errorf("not an s3 url: %s", url)
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", xerrors.Errorf("s3 url must be s3://bucket/key: %s", url)
	}
	return bucket, key, nil
}

func (s *s3Storage) Put(ctx context.Context, url string, data []byte) (string, error) {
	bucket, key, err := SplitS3URL(url)
	if err != nil {
		return "", err
	}

	contentType := http.DetectContentType(data)

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}); err != nil {
		return "", xerrors.Errorf("failed to upload to S3: %w", err)
	}

	return url, nil
}

func (s *s3Storage) Get(ctx context.Context, url string) ([]byte, error) {
	bucket, key, err := SplitS3URL(url)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to download from S3: %w", err)
	}
	defer result.Body.Close()

	var buffer bytes.Buffer
	if _, err := buffer.ReadFrom(result.Body); err != nil {
		return nil, xerrors.Errorf("failed to read S3 object: %w", err)
	}

	return buffer.Bytes(), nil
}

func (s *s3Storage) Exists(ctx context.Context, url string) (bool, error) {
	bucket, key, err := SplitS3URL(url)
	if err != nil {
		return false, err
	}

	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		// HeadObject has no body, so a missing key only surfaces as a NotFound code
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey") {
			return false, nil
		}
		return false, xerrors.Errorf("failed to stat S3 object: %w", err)
	}

	return true, nil
}
