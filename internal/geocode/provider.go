package geocode

import "context"

// Coordinates is one successful geocode hit.
type Coordinates struct {
	Latitude  float64
	Longitude float64
	Formatted string
}

// Provider resolves a normalized address string to coordinates. A nil
// *Coordinates with a nil error means the address genuinely has no match
// (a negative result, cached with a shorter TTL); a non-nil error means the
// provider call itself failed (network, timeout, 5xx) and should not be
// cached as a negative result.
type Provider interface {
	Geocode(ctx context.Context, address string) (*Coordinates, error)
	Name() string
}
