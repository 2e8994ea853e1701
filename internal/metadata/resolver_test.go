package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/hfauzan/audiotube/internal/domain"
	"github.com/hfauzan/audiotube/internal/logger"
)

type fakeProvider struct {
	name string
	meta *domain.Metadata
	err  error
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Resolve(_ context.Context, _, videoID string) (*domain.Metadata, error) {
	if p.err != nil {
		return nil, p.err
	}
	m := *p.meta
	m.VideoID = videoID
	return &m, nil
}

func TestResolverFallsThroughFailedProviders(t *testing.T) {
	r := NewResolver(logger.Default(),
		&fakeProvider{name: "a", err: errors.New("unreachable")},
		&fakeProvider{name: "b", meta: &domain.Metadata{Title: "Song", Artist: "Channel", ThumbnailURL: "https://img/t.jpg"}},
	)

	meta, err := r.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if meta.Title != "Song" || meta.Artist != "Channel" {
		t.Errorf("got %+v", meta)
	}
	if meta.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("video id = %s", meta.VideoID)
	}
}

func TestResolverBackfillsFromLaterProviders(t *testing.T) {
	r := NewResolver(logger.Default(),
		&fakeProvider{name: "partial", meta: &domain.Metadata{Title: "Song"}},
		&fakeProvider{name: "rest", meta: &domain.Metadata{Title: "Other Title", Artist: "Channel", ThumbnailURL: "https://img/t.jpg", DurationSeconds: 120}},
	)

	meta, err := r.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if meta.Title != "Song" {
		t.Errorf("earlier provider's title must win, got %q", meta.Title)
	}
	if meta.Artist != "Channel" || meta.DurationSeconds != 120 {
		t.Errorf("later provider must backfill, got %+v", meta)
	}
}

func TestResolverInvalidSource(t *testing.T) {
	r := NewResolver(logger.Default(),
		&fakeProvider{name: "never-called", meta: &domain.Metadata{Title: "x"}},
	)

	_, err := r.Resolve(context.Background(), "https://example.com/not-a-video")
	if !errors.Is(err, domain.ErrInvalidSource) {
		t.Fatalf("expected ErrInvalidSource, got %v", err)
	}
}

func TestResolverSyntheticLastResort(t *testing.T) {
	r := NewResolver(logger.Default(),
		&fakeProvider{name: "a", err: errors.New("down")},
		&fakeProvider{name: "b", err: errors.New("down too")},
		NewSyntheticProvider(),
	)

	meta, err := r.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if meta.Title != "YouTube Audio - dQw4w9WgXcQ" {
		t.Errorf("title = %q", meta.Title)
	}
	if meta.Artist != "Unknown" {
		t.Errorf("artist = %q", meta.Artist)
	}
}

func TestCachedResolverStripsStreamURL(t *testing.T) {
	inner := &fakeSource{meta: &domain.Metadata{
		VideoID:   "dQw4w9WgXcQ",
		Title:     "Song",
		StreamURL: "https://signed.example.com/stream",
	}}
	cache := NewRedisCache(nil, 0, logger.Default())
	r := NewCachedResolver(inner, cache)

	meta, err := r.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if meta.StreamURL == "" {
		t.Error("caller must still receive the stream URL")
	}
	if inner.calls != 1 {
		t.Errorf("source calls = %d", inner.calls)
	}
}

type fakeSource struct {
	meta  *domain.Metadata
	calls int
}

func (s *fakeSource) Resolve(_ context.Context, _ string) (*domain.Metadata, error) {
	s.calls++
	return s.meta, nil
}
