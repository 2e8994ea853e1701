package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hfauzan/audiotube/internal/constants"
	"github.com/hfauzan/audiotube/internal/logger"
)

// Janitor sweeps the scratch directory for leftover work files. Conversions
// clean up after themselves; the janitor only catches files orphaned by a
// crash or kill.
type Janitor struct {
	log        *logger.Logger
	scratchDir string
	maxAge     time.Duration
	interval   time.Duration
}

func NewJanitor(scratchDir string, maxAge time.Duration, log *logger.Logger) *Janitor {
	if maxAge <= 0 {
		maxAge = 2 * constants.DefaultMaxJobLifetime
	}
	return &Janitor{
		scratchDir: scratchDir,
		maxAge:     maxAge,
		interval:   maxAge,
		log:        log.WithComponent("janitor"),
	}
}

// Start sweeps periodically until ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.Sweep()
			}
		}
	}()
}

// Sweep removes work files older than maxAge. Only the app's own file
// extensions are touched; the scratch dir may be the shared OS temp dir.
func (j *Janitor) Sweep() {
	entries, err := os.ReadDir(j.scratchDir)
	if err != nil {
		j.log.Warn("scratch sweep failed", "dir", j.scratchDir, "error", err)
		return
	}

	cutoff := time.Now().Add(-j.maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, constants.ExtDownload) && !strings.HasSuffix(name, constants.ExtMP3) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(j.scratchDir, name)); err == nil {
			removed++
		}
	}
	if removed > 0 {
		j.log.Info("removed orphaned scratch files", "count", removed)
	}
}
