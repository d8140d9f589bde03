// Command dispatch-engine is the supervised process described in spec.md
// §6: it wires the Scanner Bridge, Transcription Worker Pool, the
// enrichment pipeline, and the read-only HTTP/WebSocket API together and
// runs them until told to stop.
//
// Exit codes: 0 clean shutdown, 1 startup failure, 2 unrecoverable
// dependency failure.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/scanwatch/dispatch-engine/internal/alerts"
	"github.com/scanwatch/dispatch-engine/internal/api"
	"github.com/scanwatch/dispatch-engine/internal/bridge"
	"github.com/scanwatch/dispatch-engine/internal/config"
	"github.com/scanwatch/dispatch-engine/internal/database"
	"github.com/scanwatch/dispatch-engine/internal/geocode"
	"github.com/scanwatch/dispatch-engine/internal/hospital"
	"github.com/scanwatch/dispatch-engine/internal/linker"
	"github.com/scanwatch/dispatch-engine/internal/live"
	"github.com/scanwatch/dispatch-engine/internal/pipeline"
	"github.com/scanwatch/dispatch-engine/internal/storage"
	"github.com/scanwatch/dispatch-engine/internal/transcribe"
	"github.com/scanwatch/dispatch-engine/internal/units"
)

// version is injected at build time via ldflags.
var version = "dev"

func main() {
	var overrides config.Overrides
	var showVersion bool
	flag.StringVar(&overrides.EnvFile, "env-file", "", "Path to .env file (default: .env)")
	flag.StringVar(&overrides.HTTPAddr, "listen", "", "HTTP listen address (overrides HTTP_ADDR)")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	flag.StringVar(&overrides.DatabaseURL, "database-url", "", "PostgreSQL connection URL (overrides DATABASE_URL)")
	flag.StringVar(&overrides.ScannerAddr, "scanner-addr", "", "Scanner bridge socket address (overrides SCANNER_SOCKET_ADDR)")
	flag.StringVar(&overrides.AudioDir, "audio-dir", "", "Audio segment directory (overrides AUDIO_DIR)")
	flag.StringVar(&overrides.WhisperURL, "whisper-url", "", "Whisper-compatible transcription URL (overrides WHISPER_URL)")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	startTime := time.Now()

	cfg, err := config.Load(overrides)
	if err != nil {
		earlyFatal("failed to load config", err)
	}
	if err := cfg.Validate(); err != nil {
		earlyFatal("invalid config", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Str("log_level", level.String()).Msg("dispatch-engine starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DatabaseURL, log.With().Str("component", "database").Logger())
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to database")
		os.Exit(2)
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		log.Error().Err(err).Msg("schema initialization failed")
		os.Exit(2)
	}

	store, bgServices, err := storage.New(storage.S3Config{
		Bucket:     cfg.S3Bucket,
		Region:     cfg.S3Region,
		UploadMode: cfg.S3UploadMode,
	}, cfg.AudioDir, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize audio storage")
		os.Exit(2)
	}
	for _, svc := range bgServices {
		svc.Start()
		defer svc.Stop()
	}
	log.Info().Str("type", store.Type()).Msg("audio storage initialized")

	bridgeSvc, err := bridge.New(cfg, db, store, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize scanner bridge")
		os.Exit(1)
	}

	provider, err := newTranscriptionProvider(cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize transcription provider")
		os.Exit(1)
	}

	geocoder := newGeocoder(cfg, db, log)
	hospitalGrouper := hospital.New(db, cfg.HospitalTalkgroupSet(),
		time.Duration(cfg.HospitalWindowSeconds)*time.Second,
		time.Duration(cfg.HospitalCloseIdleSeconds)*time.Second, log)
	unitTagger := units.New(db)
	alertEngine := alerts.New(db, log)
	hub := live.New(db, cfg.LiveHubQueueSize, log)

	callLinker := linker.New(db, store, provider, geocoder, transcribe.Options{
		Language: "en",
	}, log)

	enricher := pipeline.New(db, geocoder, callLinker, hospitalGrouper, unitTagger, alertEngine, hub, log)

	workerPool := transcribe.NewWorkerPool(bridgeSvc.Intake.Jobs(), transcribe.WorkerPoolOptions{
		DB:       db,
		Store:    store,
		Provider: provider,
		Enricher: enricher,
		Timeout:  cfg.TranscriptionTimeout,
		Language: "en",
		Workers:  cfg.TranscriptionConcurrency,
		Log:      log,
	})
	workerPool.Start()
	defer workerPool.Stop()

	go bridgeSvc.Run(ctx)
	defer bridgeSvc.Stop()

	go hub.Run(ctx)
	go hub.RunPeriodicStats(ctx, 10*time.Second,
		func() any {
			stats, err := db.Stats(ctx)
			if err != nil {
				return nil
			}
			return stats
		},
		func() any {
			return map[string]string{"scannerBridge": bridgeSvc.Supervisor.Status()}
		},
	)

	go runAlertScanLoop(ctx, alertEngine, time.Duration(cfg.AlertsScanIntervalSeconds)*time.Second, log)
	go runHospitalSweepLoop(ctx, hospitalGrouper, log)

	srv := api.NewServer(api.ServerOptions{
		Config:    cfg,
		DB:        db,
		Bridge:    bridgeSvc.Supervisor,
		Hub:       hub,
		Version:   version,
		StartTime: startTime,
		Log:       log,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	log.Info().Str("listen", cfg.HTTPAddr).Dur("startup_ms", time.Since(startTime)).Msg("dispatch-engine ready")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("dispatch-engine stopped")
}

// newTranscriptionProvider builds the configured speech-to-text backend.
// "whisper" is the only supported provider today; additional Provider
// implementations slot in here as they are added.
func newTranscriptionProvider(cfg *config.Config) (transcribe.Provider, error) {
	switch cfg.TranscriptionProvider {
	case "whisper", "":
		if cfg.WhisperURL == "" {
			return nil, fmt.Errorf("WHISPER_URL is required for the whisper transcription provider")
		}
		return transcribe.NewWhisperClient(cfg.WhisperURL, cfg.WhisperAPIKey, cfg.WhisperModel, cfg.TranscriptionTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported TRANSCRIPTION_PROVIDER %q", cfg.TranscriptionProvider)
	}
}

// newGeocoder builds the §4.F Geocoder with its configured provider chain.
// Only "nominatim" is implemented; an unrecognized fallback is skipped
// rather than treated as fatal, since the primary alone still satisfies
// the module.
func newGeocoder(cfg *config.Config, db *database.DB, log zerolog.Logger) *geocode.Geocoder {
	var providers []geocode.Provider
	for _, name := range []string{cfg.GeocoderPrimary, cfg.GeocoderFallback} {
		switch name {
		case "nominatim":
			providers = append(providers, geocode.NewNominatimProvider(
				"https://nominatim.openstreetmap.org", "dispatch-engine/"+version, cfg.GeocoderTimeout))
		case "":
		default:
			log.Warn().Str("provider", name).Msg("unrecognized geocoder provider, skipping")
		}
	}
	return geocode.New(providers, db, geocode.Options{
		Jurisdiction:    cfg.GeocoderJurisdiction,
		PositiveTTL:     time.Duration(cfg.GeocoderCacheTTLSeconds) * time.Second,
		ProviderTimeout: cfg.GeocoderTimeout,
		ConcurrencyCap:  2,
	}, log)
}

// runAlertScanLoop runs the §4.J periodic anomaly scan on the configured
// interval until ctx is cancelled.
func runAlertScanLoop(ctx context.Context, engine *alerts.Engine, interval time.Duration, log zerolog.Logger) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := engine.Scan(ctx); err != nil {
				log.Warn().Err(err).Msg("alert scan failed")
			}
		}
	}
}

// runHospitalSweepLoop closes hospital conversations that have sat idle
// past the configured close-idle window (§4.H).
func runHospitalSweepLoop(ctx context.Context, grouper *hospital.Grouper, log zerolog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := grouper.CloseIdle(ctx); err != nil {
				log.Warn().Err(err).Msg("hospital conversation sweep failed")
			} else if n > 0 {
				log.Info().Int64("closed", n).Msg("closed idle hospital conversations")
			}
		}
	}
}

func earlyFatal(msg string, err error) {
	early := zerolog.New(os.Stderr).With().Timestamp().Logger()
	early.Error().Err(err).Msg(msg)
	os.Exit(1)
}
