// Package backup exports periodic JSON snapshots of the tracking data
// to an S3 bucket.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/trackfit-dev/trackfit/internal/store"
)

// ObjectPutter is the slice of the S3 client the exporter needs.
// *s3.Client satisfies it.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Exporter serializes the store and uploads snapshots.
type Exporter struct {
	store  *store.Store
	putter ObjectPutter
	bucket string
	prefix string
	logger *slog.Logger

	now func() time.Time
}

// NewExporter builds an exporter targeting bucket/prefix.
func NewExporter(st *store.Store, putter ObjectPutter, bucket, prefix string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		store:  st,
		putter: putter,
		bucket: bucket,
		prefix: prefix,
		logger: logger.With("component", "backup"),
		now:    time.Now,
	}
}

// snapshot is the serialized backup document.
type snapshot struct {
	TakenAt time.Time      `json:"taken_at"`
	Users   []userSnapshot `json:"users"`
}

type userSnapshot struct {
	store.UserSummary
	Entries []store.Entry     `json:"entries"`
	Water   []store.WaterLog  `json:"water_logs"`
	Weight  []store.WeightLog `json:"weight_logs"`
}

// Snapshot serializes every user's data to a single JSON document.
// Password hashes are never included.
func (e *Exporter) Snapshot(ctx context.Context) ([]byte, error) {
	users, err := e.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot users: %w", err)
	}

	doc := snapshot{TakenAt: e.now().UTC(), Users: make([]userSnapshot, 0, len(users))}
	for _, u := range users {
		entries, err := e.store.Entries(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("snapshot entries for user %d: %w", u.ID, err)
		}
		water, err := e.store.WaterLogs(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("snapshot water logs for user %d: %w", u.ID, err)
		}
		weight, err := e.store.WeightLogs(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("snapshot weight logs for user %d: %w", u.ID, err)
		}
		doc.Users = append(doc.Users, userSnapshot{
			UserSummary: u,
			Entries:     entries,
			Water:       water,
			Weight:      weight,
		})
	}

	return json.MarshalIndent(doc, "", "  ")
}

// objectKey names one snapshot, e.g. backups/trackfit-20260301T040500Z.json.
func (e *Exporter) objectKey(now time.Time) string {
	return fmt.Sprintf("%strackfit-%s.json", e.prefix, now.UTC().Format("20060102T150405Z"))
}

// Upload takes a snapshot and writes it to the bucket.
func (e *Exporter) Upload(ctx context.Context) (string, error) {
	data, err := e.Snapshot(ctx)
	if err != nil {
		return "", err
	}

	key := e.objectKey(e.now())
	_, err = e.putter.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}

	e.logger.Info("snapshot uploaded", "bucket", e.bucket, "key", key, "bytes", len(data))
	return key, nil
}

// Run uploads a snapshot every interval until ctx is cancelled. Upload
// failures are logged and the next tick retries.
func (e *Exporter) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("periodic backup started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("periodic backup stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := e.Upload(ctx); err != nil {
				e.logger.Error("backup failed", "error", err)
			}
		}
	}
}
