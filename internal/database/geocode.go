package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// GetGeocodeCache loads a cached entry by normalized address, or nil if
// absent or expired (§4.F step 2).
func (db *DB) GetGeocodeCache(ctx context.Context, normalized string) (*GeocodeCacheEntry, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT normalized_address, latitude, longitude, formatted, negative, expires_at
		FROM geocode_cache WHERE normalized_address = $1 AND expires_at > now()
	`, normalized)
	var e GeocodeCacheEntry
	err := row.Scan(&e.NormalizedAddress, &e.Latitude, &e.Longitude, &e.Formatted, &e.Negative, &e.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &e, err
}

// PutGeocodeCache upserts a geocode result (positive or negative) with its TTL (§4.F step 4).
func (db *DB) PutGeocodeCache(ctx context.Context, e *GeocodeCacheEntry) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO geocode_cache (normalized_address, latitude, longitude, formatted, negative, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (normalized_address) DO UPDATE SET
			latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
			formatted = EXCLUDED.formatted, negative = EXCLUDED.negative, expires_at = EXCLUDED.expires_at
	`, e.NormalizedAddress, e.Latitude, e.Longitude, e.Formatted, e.Negative, e.ExpiresAt)
	return err
}

// PruneExpiredGeocodeCache removes stale rows, called from periodic maintenance.
func (db *DB) PruneExpiredGeocodeCache(ctx context.Context) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM geocode_cache WHERE expires_at <= $1`, time.Now())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
