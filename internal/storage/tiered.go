package storage

import (
	"bytes"
	"context"
	"io"

	"github.com/rs/zerolog"
)

// TieredStore combines local disk (source of truth for the currently-live
// segment window) with S3 (long-retention archive for merged/linked
// segments). Write path: save locally first, then push to S3 best-effort.
// Read path: local first, S3 fallback with cache-on-read.
type TieredStore struct {
	local *LocalStore
	s3    *S3Store
	log   zerolog.Logger
}

// NewTieredStore creates a tiered local-primary + S3-archive store.
func NewTieredStore(local *LocalStore, s3 *S3Store, log zerolog.Logger) *TieredStore {
	return &TieredStore{
		local: local,
		s3:    s3,
		log:   log.With().Str("component", "tiered-store").Logger(),
	}
}

// Save writes to local disk first (fatal on failure), then S3 (a failure
// there is logged as a warning and not retried).
func (s *TieredStore) Save(ctx context.Context, key string, data []byte, ct string) error {
	if err := s.local.Save(ctx, key, data, ct); err != nil {
		return err
	}
	if err := s.s3.Save(ctx, key, data, ct); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("S3 archive write failed")
	}
	return nil
}

func (s *TieredStore) LocalPath(key string) string { return s.local.LocalPath(key) }

// Open checks local disk first, then falls back to S3, caching the result
// locally on a hit.
func (s *TieredStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if r, err := s.local.Open(ctx, key); err == nil {
		return r, nil
	}
	r, err := s.s3.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		return nil, err
	}
	if cacheErr := s.local.Save(ctx, key, data, ""); cacheErr != nil {
		s.log.Warn().Err(cacheErr).Str("key", key).Msg("failed to cache archived segment locally")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *TieredStore) Exists(ctx context.Context, key string) bool {
	if s.local.Exists(ctx, key) {
		return true
	}
	return s.s3.Exists(ctx, key)
}

func (s *TieredStore) Type() string { return "tiered" }

// S3Store returns the underlying S3 store, used by the async uploader.
func (s *TieredStore) S3Store() *S3Store { return s.s3 }
