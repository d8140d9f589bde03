package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// NominatimProvider geocodes against an OpenStreetMap Nominatim-compatible
// search endpoint. It is the default "nominatim" GEOCODER_PRIMARY.
type NominatimProvider struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewNominatimProvider builds a provider against baseURL (e.g.
// "https://nominatim.openstreetmap.org"). timeout bounds each individual
// HTTP call (§4.F: 5s per attempt).
func NewNominatimProvider(baseURL, userAgent string, timeout time.Duration) *NominatimProvider {
	return &NominatimProvider{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

func (p *NominatimProvider) Name() string { return "nominatim" }

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode performs one attempt plus a single retry on a 5xx response
// (§4.F step 3).
func (p *NominatimProvider) Geocode(ctx context.Context, address string) (*Coordinates, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		coords, retryable, err := p.tryGeocode(ctx, address)
		if err == nil {
			return coords, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, lastErr
}

func (p *NominatimProvider) tryGeocode(ctx context.Context, address string) (coords *Coordinates, retryable bool, err error) {
	u := fmt.Sprintf("%s/search?%s", p.baseURL, url.Values{
		"q":      {address},
		"format": {"json"},
		"limit":  {"1"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, err
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("nominatim: server error %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("nominatim: unexpected status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, false, fmt.Errorf("nominatim: decode response: %w", err)
	}
	if len(results) == 0 {
		return nil, false, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, false, fmt.Errorf("nominatim: parse lat: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, false, fmt.Errorf("nominatim: parse lon: %w", err)
	}

	return &Coordinates{Latitude: lat, Longitude: lon, Formatted: results[0].DisplayName}, false, nil
}
