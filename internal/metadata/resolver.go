// Package metadata resolves title, artist and artwork for a source video,
// falling through a chain of providers so a conversion never stalls on a
// metadata outage.
package metadata

import (
	"context"
	"time"

	"github.com/hfauzan/audiotube/internal/domain"
	"github.com/hfauzan/audiotube/internal/logger"
)

// Provider is one way of describing a video. Providers are queried in order;
// later providers only backfill fields the earlier ones left empty.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, sourceURL, videoID string) (*domain.Metadata, error)
}

// Resolver runs a provider chain. The last provider is expected to be the
// synthetic one, which never fails, so Resolve only returns an error for an
// unparseable source URL.
type Resolver struct {
	providers []Provider
	timeouts  []time.Duration
	log       *logger.Logger
}

func NewResolver(log *logger.Logger, providers ...Provider) *Resolver {
	timeouts := make([]time.Duration, len(providers))
	return &Resolver{
		providers: providers,
		timeouts:  timeouts,
		log:       log.WithComponent("metadata"),
	}
}

// WithTimeout sets a per-call timeout for the provider at index i. A zero
// timeout means the provider runs under the caller's context alone.
func (r *Resolver) WithTimeout(i int, d time.Duration) *Resolver {
	if i >= 0 && i < len(r.timeouts) {
		r.timeouts[i] = d
	}
	return r
}

func (r *Resolver) Resolve(ctx context.Context, sourceURL string) (*domain.Metadata, error) {
	videoID, err := ExtractVideoID(sourceURL)
	if err != nil {
		return nil, err
	}

	result := &domain.Metadata{VideoID: videoID}
	for i, p := range r.providers {
		pctx := ctx
		var cancel context.CancelFunc
		if r.timeouts[i] > 0 {
			pctx, cancel = context.WithTimeout(ctx, r.timeouts[i])
		}
		meta, perr := p.Resolve(pctx, sourceURL, videoID)
		if cancel != nil {
			cancel()
		}
		if perr != nil {
			r.log.Debug("metadata provider failed",
				"provider", p.Name(),
				"video_id", videoID,
				"error", perr)
			continue
		}
		result.Merge(meta)
		if meta.StreamURL != "" && result.StreamURL == "" {
			result.StreamURL = meta.StreamURL
			result.StreamSize = meta.StreamSize
		}
		if result.Title != "" && result.Artist != "" && result.ThumbnailURL != "" {
			break
		}
	}

	return result, nil
}
