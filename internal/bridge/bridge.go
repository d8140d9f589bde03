package bridge

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/scanwatch/dispatch-engine/internal/config"
	"github.com/scanwatch/dispatch-engine/internal/database"
)

// transport is satisfied by every Segment Source implementation.
type transport interface {
	Run(ctx context.Context)
}

// Service wires the Scanner Supervisor to whichever Segment Source
// transports are configured, sharing one Intake between them so dedupe and
// allow-listing apply regardless of which transport a given message arrived
// on (spec.md §4.A/§4.B).
type Service struct {
	Supervisor *Supervisor
	Intake     *Intake

	transports []transport
	log        zerolog.Logger
}

// New builds the bridge Service from configuration. At least one transport
// must be configured, enforced by config.Config.Validate before this runs.
func New(cfg *config.Config, db *database.DB, store Store, log zerolog.Logger) (*Service, error) {
	intake, err := NewIntake(db, store, Options{
		DedupeCacheSize:   cfg.DedupeCacheSize,
		QueueSize:         cfg.SegmentQueueSize,
		AudioFetchTimeout: cfg.AudioFetchTimeout,
		RawIsPCM:          true,
		SampleRate:        8000,
		Channels:          1,
		AllowedSystems:    cfg.ScannerSystemList(),
		AllowedTalkgroups: cfg.ScannerTalkgroupList(),
	}, log)
	if err != nil {
		return nil, err
	}

	svc := &Service{
		Supervisor: NewSupervisor(cfg.ScannerBinaryPath, "", log),
		Intake:     intake,
		log:        log.With().Str("component", "bridge-service").Logger(),
	}

	if cfg.ScannerSocketAddr != "" {
		svc.transports = append(svc.transports, NewSocketSource(cfg.ScannerSocketAddr, intake, log))
	}
	if cfg.ScannerMQTTURL != "" {
		svc.transports = append(svc.transports, NewMQTTSource(MQTTOptions{
			BrokerURL: cfg.ScannerMQTTURL,
			ClientID:  "dispatch-engine",
			Topics:    cfg.ScannerMQTTTopic,
			QOS:       1,
		}, intake, log))
	}
	if cfg.ScannerWatchDir != "" {
		svc.transports = append(svc.transports, NewWatchSource(cfg.ScannerWatchDir, intake, log))
	}

	return svc, nil
}

// Run launches the supervisor and every configured transport, blocking
// until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Supervisor.Run(ctx)
	}()

	for _, t := range s.transports {
		wg.Add(1)
		go func(t transport) {
			defer wg.Done()
			t.Run(ctx)
		}(t)
	}

	if len(s.transports) == 0 {
		s.log.Warn().Msg("no scanner bridge transport configured, ingest is idle")
	}

	wg.Wait()
}

// Stop halts the subprocess supervisor. Transports stop on ctx cancellation.
func (s *Service) Stop() {
	s.Supervisor.Stop()
}
