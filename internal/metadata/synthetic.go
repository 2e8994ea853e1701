package metadata

import (
	"context"
	"fmt"

	"github.com/hfauzan/audiotube/internal/domain"
)

// SyntheticProvider fabricates placeholder metadata from the video ID alone.
// It never fails and sits last in the chain so metadata outages cannot block
// a conversion.
type SyntheticProvider struct{}

func NewSyntheticProvider() *SyntheticProvider { return &SyntheticProvider{} }

func (p *SyntheticProvider) Name() string { return "synthetic" }

func (p *SyntheticProvider) Resolve(_ context.Context, _, videoID string) (*domain.Metadata, error) {
	return &domain.Metadata{
		VideoID:      videoID,
		Title:        fmt.Sprintf("YouTube Audio - %s", videoID),
		Artist:       "Unknown",
		ThumbnailURL: fmt.Sprintf("https://img.youtube.com/vi/%s/hqdefault.jpg", videoID),
	}, nil
}
