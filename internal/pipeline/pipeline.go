// Package pipeline runs the ordered acquisition strategies for a job,
// retrying with backoff and falling through until one produces a file or all
// are exhausted.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hfauzan/audiotube/internal/constants"
	"github.com/hfauzan/audiotube/internal/domain"
	"github.com/hfauzan/audiotube/internal/logger"
	"github.com/hfauzan/audiotube/internal/progress"
	"github.com/hfauzan/audiotube/internal/strategy"
)

// Download progress occupies a fixed band of the job's overall percentage.
const (
	downloadBandStart = 10.0
	downloadBandWidth = 30.0
)

type Config struct {
	// AttemptsPerStrategy is how many times each strategy is tried before
	// falling through to the next one.
	AttemptsPerStrategy int
	BackoffBase         time.Duration
	BackoffCap          time.Duration
}

func (c Config) withDefaults() Config {
	if c.AttemptsPerStrategy <= 0 {
		c.AttemptsPerStrategy = constants.DefaultStrategyAttempts
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = constants.DefaultBackoffBase
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = constants.DefaultBackoffCap
	}
	return c
}

type Pipeline struct {
	strategies []strategy.Strategy
	tracker    *progress.Tracker
	log        *logger.Logger
	cfg        Config
}

func New(strategies []strategy.Strategy, tracker *progress.Tracker, log *logger.Logger, cfg Config) *Pipeline {
	return &Pipeline{
		strategies: strategies,
		tracker:    tracker,
		log:        log.WithComponent("pipeline"),
		cfg:        cfg.withDefaults(),
	}
}

// Run tries each available strategy in order until one leaves a verified file
// at dest. On total failure it returns an ExhaustedError carrying every
// attempt's failure, and guarantees no partial file remains at dest.
func (p *Pipeline) Run(ctx context.Context, trackingToken, sourceURL string, meta *domain.Metadata, dest string) error {
	var attempts []*domain.StrategyError

	for _, s := range p.strategies {
		if !s.Available() {
			p.log.Debug("skipping unavailable strategy", "strategy", s.Name())
			continue
		}

		log := p.log.WithStrategy(s.Name())
		for attempt := 1; attempt <= p.cfg.AttemptsPerStrategy; attempt++ {
			if err := ctx.Err(); err != nil {
				attempts = append(attempts, &domain.StrategyError{
					Strategy: s.Name(), Attempt: attempt, Err: err,
				})
				return &domain.ExhaustedError{Attempts: attempts}
			}

			p.tracker.Update(trackingToken, progress.StageDownloading, -1,
				fmt.Sprintf("trying %s (attempt %d of %d)", s.Name(), attempt, p.cfg.AttemptsPerStrategy))

			report := func(pct float64, msg string) {
				overall := -1.0
				if pct >= 0 {
					overall = downloadBandStart + pct/100*downloadBandWidth
				}
				p.tracker.Update(trackingToken, progress.StageDownloading, overall, msg)
			}

			err := s.Acquire(ctx, sourceURL, meta, dest, report)
			if err == nil {
				log.Info("acquisition succeeded", "attempt", attempt)
				p.tracker.Update(trackingToken, progress.StageDownloading,
					downloadBandStart+downloadBandWidth,
					fmt.Sprintf("%s succeeded", s.Name()))
				return nil
			}

			log.Warn("acquisition attempt failed", "attempt", attempt, "error", err)
			attempts = append(attempts, &domain.StrategyError{
				Strategy: s.Name(), Attempt: attempt, Err: err,
			})
			os.Remove(dest)
			p.tracker.Update(trackingToken, progress.StageDownloading, -1,
				fmt.Sprintf("%s failed: %v", s.Name(), err))

			if attempt < p.cfg.AttemptsPerStrategy {
				if err := p.backoff(ctx, attempt); err != nil {
					attempts = append(attempts, &domain.StrategyError{
						Strategy: s.Name(), Attempt: attempt, Err: err,
					})
					return &domain.ExhaustedError{Attempts: attempts}
				}
			}
		}
	}

	p.log.Error("all acquisition strategies exhausted", "source_url", sourceURL, "attempts", len(attempts))
	return &domain.ExhaustedError{Attempts: attempts}
}

func (p *Pipeline) backoff(ctx context.Context, attempt int) error {
	wait := p.cfg.BackoffBase * (1 << (attempt - 1))
	if wait > p.cfg.BackoffCap {
		wait = p.cfg.BackoffCap
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
