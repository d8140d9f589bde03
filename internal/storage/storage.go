// Package storage abstracts audio blob persistence (spec.md §6: "filesystem
// directory keyed by segment id"). Local disk is the required backend; an
// optional S3 tier archives merged/long-retention segments, mirroring the
// teacher's local/S3/tiered split.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// AudioStore abstracts audio blob storage backends, keyed by segment id
// (merged segments share the same namespace, per spec.md §4.G step 2).
type AudioStore interface {
	// Save stores audio data under key, a segment id (or "merged_<...>").
	Save(ctx context.Context, key string, data []byte, contentType string) error

	// LocalPath returns the local filesystem path if the blob exists on disk.
	// Returns "" if not available locally.
	LocalPath(key string) string

	// Open returns a reader for the blob.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if a blob exists in any backend.
	Exists(ctx context.Context, key string) bool

	// Type returns "local", "s3", or "tiered".
	Type() string
}

// S3Config configures the optional S3 archival tier.
type S3Config struct {
	Bucket     string
	Region     string
	UploadMode string // "sync" or "async"
}

func (c S3Config) Enabled() bool { return c.Bucket != "" }

// BackgroundService is a long-running helper (pruner, async uploader) the
// caller must Start and Stop alongside the main process lifecycle.
type BackgroundService interface {
	Start()
	Stop()
}

// New builds an AudioStore from config: local-only, or local+S3 tiered.
func New(cfg S3Config, audioDir string, log zerolog.Logger) (AudioStore, []BackgroundService, error) {
	local := NewLocalStore(audioDir)
	if !cfg.Enabled() {
		return local, nil, nil
	}

	s3store, err := NewS3Store(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("S3 init failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s3store.HeadBucket(ctx); err != nil {
		return nil, nil, fmt.Errorf("S3 startup check failed (bucket=%q): %w", cfg.Bucket, err)
	}
	log.Info().Str("bucket", cfg.Bucket).Msg("S3 archival tier verified")

	tiered := NewTieredStore(local, s3store, log)
	var services []BackgroundService
	pruner := NewPruner(local, log)
	pruner.s3 = s3store
	services = append(services, pruner)
	return tiered, services, nil
}
