package bridge

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// WatchSource is an alternate Segment Source transport for bridges that drop
// a JSON call-metadata file (plus an audio sidecar referenced from it) into a
// directory instead of talking socket or MQTT (spec.md §4.B: "transports are
// interchangeable"). Grounded on the debounced fsnotify pattern used for
// watching scanner output directories.
type WatchSource struct {
	dir    string
	intake *Intake
	log    zerolog.Logger

	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer
}

// NewWatchSource creates a file-watch transport over dir.
func NewWatchSource(dir string, intake *Intake, log zerolog.Logger) *WatchSource {
	return &WatchSource{
		dir:            dir,
		intake:         intake,
		log:            log.With().Str("component", "watch-source").Str("dir", dir).Logger(),
		debounceTimers: make(map[string]*time.Timer),
	}
}

// Run watches dir for new/changed .json call-metadata files until ctx is
// cancelled.
func (w *WatchSource) Run(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Error().Err(err).Msg("failed to create file watcher")
		return
	}
	defer watcher.Close()

	dirCount := 0
	_ = filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if addErr := watcher.Add(path); addErr == nil {
				dirCount++
			}
		}
		return nil
	})
	w.log.Info().Int("directories", dirCount).Msg("file watcher initialized")

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				_ = watcher.Add(event.Name)
				continue
			}
			if !strings.HasSuffix(strings.ToLower(event.Name), ".json") {
				continue
			}
			w.scheduleProcess(ctx, event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("fsnotify error")
		}
	}
}

// scheduleProcess debounces by 500ms to coalesce rapid Create+Write events
// and give the bridge time to finish writing the file.
func (w *WatchSource) scheduleProcess(ctx context.Context, path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if t, ok := w.debounceTimers[path]; ok {
		t.Reset(500 * time.Millisecond)
		return
	}
	w.debounceTimers[path] = time.AfterFunc(500*time.Millisecond, func() {
		w.debounceMu.Lock()
		delete(w.debounceTimers, path)
		w.debounceMu.Unlock()
		w.processFile(ctx, path)
	})
}

func (w *WatchSource) processFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		w.log.Warn().Err(err).Str("path", path).Msg("failed to read call metadata file")
		return
	}

	var d CallData
	if err := json.Unmarshal(data, &d); err != nil {
		w.log.Warn().Err(err).Str("path", path).Msg("failed to parse call metadata")
		return
	}
	if d.Talkgroup <= 0 {
		w.log.Warn().Str("path", path).Msg("skipping file with invalid talkgroup")
		return
	}

	if len(d.Audio) == 0 {
		if audioPath := audioSidecarPath(path); audioPath != "" {
			if blob, err := os.ReadFile(audioPath); err == nil {
				raw, _ := json.Marshal(blob)
				d.Audio = raw
			}
		}
	}

	if err := w.intake.Accept(ctx, d); err != nil {
		w.log.Error().Err(err).Str("path", path).Msg("failed to ingest watched segment")
	}
}

// audioSidecarPath looks for an audio file with the same base name as the
// JSON metadata file (e.g. call_123.json -> call_123.wav).
func audioSidecarPath(jsonPath string) string {
	base := strings.TrimSuffix(jsonPath, filepath.Ext(jsonPath))
	for _, ext := range []string{".wav", ".mp3", ".m4a"} {
		candidate := base + ext
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
