// Package strategy holds the interchangeable ways of acquiring a local audio
// file for a video. Each strategy is self-contained; ordering and fallback
// live in the pipeline.
package strategy

import (
	"context"
	"fmt"
	"os"

	"github.com/hfauzan/audiotube/internal/constants"
	"github.com/hfauzan/audiotube/internal/domain"
)

// ProgressFunc receives coarse progress from a running strategy. percent is
// 0-100 within the strategy's own work; the pipeline maps it into the job's
// overall progress.
type ProgressFunc func(percent float64, message string)

// Strategy is one acquisition method. Acquire must leave a non-empty file at
// dest on success and must not leave a partial file behind on failure.
type Strategy interface {
	Name() string
	// Available reports whether the strategy can run in this environment
	// (binary installed, credentials configured). Unavailable strategies
	// are skipped without counting as failures.
	Available() bool
	Acquire(ctx context.Context, sourceURL string, meta *domain.Metadata, dest string, report ProgressFunc) error
}

// verifyDestination rejects missing and zero-byte results. Extractors
// sometimes return success while writing nothing usable.
func verifyDestination(dest string) error {
	info, err := os.Stat(dest)
	if err != nil {
		return fmt.Errorf("output file missing: %w", err)
	}
	if info.Size() == 0 {
		os.Remove(dest)
		return fmt.Errorf("output file is empty")
	}
	return nil
}

// progressWriter reports download progress every ProgressUpdateBytes. With an
// unknown total it reports bytes only.
type progressWriter struct {
	report   ProgressFunc
	total    int64
	written  int64
	lastMark int64
}

func newProgressWriter(total int64, report ProgressFunc) *progressWriter {
	return &progressWriter{report: report, total: total}
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	if w.written-w.lastMark >= constants.ProgressUpdateBytes {
		w.lastMark = w.written
		if w.report != nil {
			if w.total > 0 {
				pct := float64(w.written) / float64(w.total) * 100
				if pct > 100 {
					pct = 100
				}
				w.report(pct, fmt.Sprintf("downloaded %d of %d bytes", w.written, w.total))
			} else {
				w.report(-1, fmt.Sprintf("downloaded %d bytes", w.written))
			}
		}
	}
	return len(p), nil
}
