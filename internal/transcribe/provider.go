// Package transcribe runs ingested audio segments through a speech-to-text
// provider and hands the raw transcript off to the enrichment pipeline
// (post-processing, classification, geocoding — spec.md §4.C).
package transcribe

import "context"

// Provider is the interface for speech-to-text backends. Matching the
// teacher's provider abstraction lets the worker pool stay agnostic to
// which STT backend is configured.
type Provider interface {
	Transcribe(ctx context.Context, audioPath string, opts Options) (*Response, error)
	Name() string  // "whisper", "deepinfra"
	Model() string // model identifier for logs/DB
}

// Options are per-request knobs passed to the provider.
type Options struct {
	Language    string
	Temperature float64
	Prompt      string // domain vocabulary / hotwords, e.g. cross-streets and unit codes
}

// Response is the common transcription result from any provider.
type Response struct {
	Text       string
	Language   string
	Duration   float64 // audio duration in seconds
	Confidence float64 // 0 when the provider doesn't report one
}
