package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ErrNotConfigured はバケット未設定
var ErrNotConfigured = errors.New("object storage not configured")

// 画像の保存先
type ImageStore interface {
	// 保存して公開URLを返す
	Upload(ctx context.Context, prefix, filename, contentType string, body io.Reader) (string, error)
}

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3ImageStore struct {
	client   putObjectAPI
	bucket   string
	region   string
	endpoint string
}

// endpointが空でなければパススタイルでそこへ向ける
func NewS3ImageStore(awsCfg sdkaws.Config, bucket, endpoint string) *S3ImageStore {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = sdkaws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3ImageStore{client: client, bucket: bucket, region: awsCfg.Region, endpoint: endpoint}
}

func (s *S3ImageStore) Upload(ctx context.Context, prefix, filename, contentType string, body io.Reader) (string, error) {
	if s.bucket == "" {
		return "", ErrNotConfigured
	}

	// 元ファイル名は拡張子だけ使う
	key := path.Join(prefix, uuid.NewString()+strings.ToLower(path.Ext(filename)))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      sdkaws.String(s.bucket),
		Key:         sdkaws.String(key),
		Body:        body,
		ContentType: sdkaws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object failed: %w", err)
	}
	return s.objectURL(key), nil
}

func (s *S3ImageStore) objectURL(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.endpoint, "/"), s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
