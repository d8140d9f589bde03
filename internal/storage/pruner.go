package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Pruner evicts old blobs from local disk once they're durably archived in
// S3. With no S3 tier configured it is an age-only local sweep.
type Pruner struct {
	local     *LocalStore
	retention time.Duration
	maxBytes  int64
	interval  time.Duration
	s3        *S3Store // nil when no archival tier is configured
	log       zerolog.Logger
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewPruner creates a pruner with a 30-day default retention.
func NewPruner(local *LocalStore, log zerolog.Logger) *Pruner {
	return &Pruner{
		local:     local,
		retention: 30 * 24 * time.Hour,
		interval:  1 * time.Hour,
		log:       log.With().Str("component", "pruner").Logger(),
		stop:      make(chan struct{}),
	}
}

func (p *Pruner) Start() { go p.loop() }

func (p *Pruner) Stop() { p.stopOnce.Do(func() { close(p.stop) }) }

func (p *Pruner) loop() {
	p.prune()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.prune()
		case <-p.stop:
			return
		}
	}
}

func (p *Pruner) prune() {
	if p.retention == 0 {
		return
	}
	cutoff := time.Now().Add(-p.retention)

	type fileEntry struct {
		path    string
		key     string
		modTime time.Time
		size    int64
	}
	var files []fileEntry

	filepath.WalkDir(p.local.Dir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(p.local.Dir(), path)
		if relErr != nil {
			return nil
		}
		files = append(files, fileEntry{path: path, key: filepath.ToSlash(rel), modTime: info.ModTime(), size: info.Size()})
		return nil
	})

	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	var prunedCount, skippedNotArchived int
	var prunedBytes int64
	for _, f := range files {
		if !f.modTime.Before(cutoff) {
			continue
		}
		if p.s3 != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			inS3 := p.s3.Exists(ctx, f.key)
			cancel()
			if !inS3 {
				skippedNotArchived++
				p.log.Warn().Str("key", f.key).Msg("skipping prune: segment not archived")
				continue
			}
		}
		if err := os.Remove(f.path); err == nil {
			prunedCount++
			prunedBytes += f.size
		}
	}

	if prunedCount > 0 || skippedNotArchived > 0 {
		p.log.Info().
			Int("pruned", prunedCount).
			Str("freed", humanizeBytes(prunedBytes)).
			Int("skipped_not_archived", skippedNotArchived).
			Msg("segment prune complete")
	}
}

func humanizeBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case b >= GB:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
