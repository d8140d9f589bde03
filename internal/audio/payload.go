package audio

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Payload is the three shapes a scanner-bridge "call" message's audio field
// may take, per spec.md §6.
type Payload struct {
	Base64 string
	Raw    []byte
	URL    string
}

// Normalized is the result of resolving a Payload into bytes + content-type,
// ready to persist (§4.B step 2).
type Normalized struct {
	Bytes       []byte
	ContentType string
	IsEmpty     bool // zero-length payload: store as metadata-only segment
}

// Resolve fetches/decodes p and wraps raw PCM in a WAV container.
// sampleRate/channels describe the PCM when RawIsPCM is true.
func Resolve(ctx context.Context, p Payload, fetchTimeout time.Duration, rawIsPCM bool, sampleRate, channels int) (Normalized, error) {
	var raw []byte
	var err error

	switch {
	case p.URL != "":
		raw, err = fetchURL(ctx, p.URL, fetchTimeout)
		if err != nil {
			return Normalized{}, fmt.Errorf("fetch audio url: %w", err)
		}
	case p.Base64 != "":
		raw, err = base64.StdEncoding.DecodeString(p.Base64)
		if err != nil {
			return Normalized{}, fmt.Errorf("decode base64 audio: %w", err)
		}
	default:
		raw = p.Raw
	}

	if len(raw) == 0 {
		return Normalized{IsEmpty: true}, nil
	}

	if IsWAVContainer(raw) {
		return Normalized{Bytes: raw, ContentType: "audio/wav"}, nil
	}
	if rawIsPCM {
		return Normalized{Bytes: WriteWAV(raw, sampleRate, channels), ContentType: "audio/wav"}, nil
	}

	return Normalized{Bytes: raw, ContentType: sniffContentType(raw)}, nil
}

func fetchURL(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	if _, err := url.Parse(rawURL); err != nil {
		return nil, fmt.Errorf("invalid audio url: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("audio fetch: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 64<<20))
}

// sniffContentType makes a best-effort guess from magic bytes; scanner
// bridges mostly deliver wav/mp3/m4a.
func sniffContentType(data []byte) string {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && (data[1]&0xE0) == 0xE0:
		return "audio/mpeg"
	case len(data) >= 4 && string(data[0:4]) == "RIFF":
		return "audio/wav"
	case len(data) >= 8 && strings.Contains(string(data[4:8]), "ftyp"):
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}
