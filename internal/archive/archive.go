// Package archive writes merge receipts to object storage.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"asset-fork-merge/internal/entities"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Config holds the object storage connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Minio stores receipts in an S3 compatible bucket.
type Minio struct {
	client *minio.Client
	bucket string
	log    *zap.SugaredLogger
}

// NewMinio connects to the endpoint and creates the bucket when missing.
func NewMinio(ctx context.Context, log *zap.SugaredLogger, cfg Config) (*Minio, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		log.Infow("receipt bucket created", "bucket", cfg.Bucket)
	}

	return &Minio{client: client, bucket: cfg.Bucket, log: log.Named("archive")}, nil
}

// Archive uploads the receipt as JSON.
func (m *Minio) Archive(ctx context.Context, receipt entities.MergeReceipt) error {
	body, err := Encode(receipt)
	if err != nil {
		return err
	}
	key := ObjectKey(receipt)
	info, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	m.log.Debugw("receipt archived", "key", key, "etag", info.ETag, "size", info.Size)
	return nil
}

// ObjectKey is where a receipt lives inside the bucket.
func ObjectKey(receipt entities.MergeReceipt) string {
	return path.Join("merges", receipt.TargetProjectID, receipt.PullRequestID+".json")
}

// Encode renders a receipt the way it is stored.
func Encode(receipt entities.MergeReceipt) ([]byte, error) {
	body, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode receipt: %w", err)
	}
	return body, nil
}

// Nop discards receipts.
type Nop struct{}

// Archive implements the archiver contract without storing anything.
func (Nop) Archive(context.Context, entities.MergeReceipt) error { return nil }
