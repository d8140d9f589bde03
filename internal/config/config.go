// Package config loads dispatch-engine's runtime configuration from a .env
// file, environment variables, and CLI flag overrides, in that ascending
// priority order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every recognized option from spec.md §6.
type Config struct {
	// Scanner bridge
	ScannerBinaryPath string `env:"SCANNER_BINARY_PATH"`
	ScannerListenPort int    `env:"SCANNER_LISTEN_PORT" envDefault:"3001"`
	ScannerSystems    string `env:"SCANNER_SYSTEMS"`    // comma-separated allow-list
	ScannerTalkgroups string `env:"SCANNER_TALKGROUPS"` // comma-separated allow-list
	ScannerSocketAddr string `env:"SCANNER_SOCKET_ADDR" envDefault:"localhost:3001"`
	ScannerMQTTURL    string `env:"SCANNER_MQTT_URL"` // alternate bridge transport
	ScannerMQTTTopic  string `env:"SCANNER_MQTT_TOPIC" envDefault:"scanner/calls"`
	ScannerWatchDir   string `env:"SCANNER_WATCH_DIR"` // alternate bridge transport

	// Segment intake
	SegmentQueueSize int `env:"SEGMENT_QUEUE_SIZE" envDefault:"1000"`
	DedupeCacheSize  int `env:"DEDUPE_CACHE_SIZE" envDefault:"10000"`
	AudioFetchTimeout time.Duration `env:"AUDIO_FETCH_TIMEOUT" envDefault:"10s"`
	AudioDir         string        `env:"AUDIO_DIR" envDefault:"./audio"`

	// Transcription
	TranscriptionProvider    string        `env:"TRANSCRIPTION_PROVIDER" envDefault:"whisper"`
	TranscriptionConcurrency int           `env:"TRANSCRIPTION_CONCURRENCY" envDefault:"4"`
	TranscriptionTimeout     time.Duration `env:"TRANSCRIPTION_TIMEOUT" envDefault:"60s"`
	WhisperURL               string        `env:"WHISPER_URL"`
	WhisperAPIKey            string        `env:"WHISPER_API_KEY"`
	WhisperModel             string        `env:"WHISPER_MODEL" envDefault:"whisper-1"`

	// Geocoder
	GeocoderPrimary         string        `env:"GEOCODER_PRIMARY" envDefault:"nominatim"`
	GeocoderFallback        string        `env:"GEOCODER_FALLBACK"`
	GeocoderCacheTTLSeconds int           `env:"GEOCODER_CACHE_TTL_SECONDS" envDefault:"86400"`
	GeocoderTimeout         time.Duration `env:"GEOCODER_TIMEOUT" envDefault:"5s"`
	GeocoderJurisdiction    string        `env:"GEOCODER_JURISDICTION" envDefault:"Marion County, IN"`

	// Alerts
	AlertsScanIntervalSeconds int `env:"ALERTS_SCAN_INTERVAL_SECONDS" envDefault:"30"`

	// Hospital grouper
	HospitalTalkgroups      string `env:"HOSPITAL_TALKGROUPS"` // comma-separated talkgroup ids
	HospitalWindowSeconds   int    `env:"HOSPITAL_WINDOW_SECONDS" envDefault:"600"`
	HospitalCloseIdleSeconds int   `env:"HOSPITAL_CLOSE_IDLE_SECONDS" envDefault:"420"`

	// Call linker
	LinkerWindowSeconds int `env:"LINKER_WINDOW_SECONDS" envDefault:"300"`

	// Live hub
	LiveHubHeartbeatSeconds int `env:"LIVE_HUB_HEARTBEAT_SECONDS" envDefault:"25"`
	LiveHubQueueSize        int `env:"LIVE_HUB_QUEUE_SIZE" envDefault:"256"`

	// Persistence
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Optional S3 archival tier for audio blobs
	S3Bucket      string `env:"S3_BUCKET"`
	S3Region      string `env:"S3_REGION" envDefault:"us-east-1"`
	S3UploadMode  string `env:"S3_UPLOAD_MODE" envDefault:"async"`

	// HTTP API
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	CORSOrigins  string        `env:"CORS_ORIGINS"`

	// TrustedProxies lists the reverse-proxy IPs allowed to set
	// X-Forwarded-For/X-Real-IP; empty means no proxy is trusted and the
	// rate limiter keys off RemoteAddr only.
	TrustedProxies string `env:"TRUSTED_PROXIES"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`

	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
}

// ScannerSystemList splits ScannerSystems into a trimmed slice.
func (c *Config) ScannerSystemList() []string { return splitCSV(c.ScannerSystems) }

// ScannerTalkgroupList splits ScannerTalkgroups into a trimmed slice.
func (c *Config) ScannerTalkgroupList() []string { return splitCSV(c.ScannerTalkgroups) }

// TrustedProxyList splits TrustedProxies into a trimmed slice.
func (c *Config) TrustedProxyList() []string { return splitCSV(c.TrustedProxies) }

// HospitalTalkgroupSet returns the configured hospital-channel talkgroups as a set.
func (c *Config) HospitalTalkgroupSet() map[int]bool {
	set := make(map[int]bool)
	for _, s := range splitCSV(c.HospitalTalkgroups) {
		if n, err := strconv.Atoi(s); err == nil {
			set[n] = true
		}
	}
	return set
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Validate checks that at least one bridge transport is configured.
func (c *Config) Validate() error {
	if c.ScannerSocketAddr == "" && c.ScannerMQTTURL == "" && c.ScannerWatchDir == "" {
		return fmt.Errorf("at least one of SCANNER_SOCKET_ADDR, SCANNER_MQTT_URL, or SCANNER_WATCH_DIR must be set")
	}
	if c.HospitalWindowSeconds > 600 {
		return fmt.Errorf("HOSPITAL_WINDOW_SECONDS may not exceed the 10 minute conversation-window invariant")
	}
	return nil
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile     string
	HTTPAddr    string
	LogLevel    string
	DatabaseURL string
	ScannerAddr string
	AudioDir    string
	WhisperURL  string
}

// Load reads configuration from a .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.DatabaseURL != "" {
		cfg.DatabaseURL = overrides.DatabaseURL
	}
	if overrides.ScannerAddr != "" {
		cfg.ScannerSocketAddr = overrides.ScannerAddr
	}
	if overrides.AudioDir != "" {
		cfg.AudioDir = overrides.AudioDir
	}
	if overrides.WhisperURL != "" {
		cfg.WhisperURL = overrides.WhisperURL
	}

	return cfg, nil
}
