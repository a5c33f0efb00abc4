package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStore is the subset of the S3 client the archive uses.
type ObjectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type ArchiveConfig struct {
	Endpoint string
	Region   string
	Bucket   string
	Prefix   string
	Key      string
	Secret   string
}

// SnapshotArchive stores pre-migration snapshots in an S3-compatible bucket.
type SnapshotArchive struct {
	client ObjectStore
	bucket string
	prefix string
}

// SnapshotInfo describes one archived snapshot.
type SnapshotInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

func NewSnapshotArchive(ctx context.Context, cfg ArchiveConfig) (*SnapshotArchive, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.Key != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Key, cfg.Secret, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load archive config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewSnapshotArchiveWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

func NewSnapshotArchiveWithClient(client ObjectStore, bucket, prefix string) *SnapshotArchive {
	return &SnapshotArchive{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (a *SnapshotArchive) key(name string) string {
	if a.prefix == "" {
		return name
	}
	return path.Join(a.prefix, name)
}

// ArchiveSnapshot uploads data under name.
func (a *SnapshotArchive) ArchiveSnapshot(ctx context.Context, name string, data []byte) error {
	key := a.key(name)
	start := time.Now()

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot %s: %w", key, err)
	}

	slog.Info("Snapshot archived",
		slog.String("type", "sys"),
		slog.String("bucket", a.bucket),
		slog.String("key", key),
		slog.Int("bytes", len(data)),
		slog.Duration("took", time.Since(start)))
	return nil
}

// List returns archived snapshots, newest first.
func (a *SnapshotArchive) List(ctx context.Context) ([]SnapshotInfo, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(a.bucket)}
	if a.prefix != "" {
		input.Prefix = aws.String(a.prefix + "/")
	}

	var out []SnapshotInfo
	for {
		page, err := a.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to list snapshots: %w", err)
		}
		for _, obj := range page.Contents {
			out = append(out, SnapshotInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
		if !aws.ToBool(page.IsTruncated) {
			break
		}
		input.ContinuationToken = page.NextContinuationToken
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastModified.After(out[j].LastModified)
	})
	return out, nil
}

// Fetch downloads an archived snapshot by its full key.
func (a *SnapshotArchive) Fetch(ctx context.Context, key string) ([]byte, error) {
	obj, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download snapshot %s: %w", key, err)
	}
	defer obj.Body.Close()
	return io.ReadAll(obj.Body)
}
