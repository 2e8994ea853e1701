package metadata

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/kkdai/youtube/v2"

	"github.com/hfauzan/audiotube/internal/domain"
)

// LibraryProvider resolves through the extraction library. Slower than
// oEmbed, but the only provider that yields duration and a direct audio
// stream URL.
type LibraryProvider struct {
	client *youtube.Client
}

func NewLibraryProvider(httpClient *http.Client) *LibraryProvider {
	return &LibraryProvider{
		client: &youtube.Client{HTTPClient: httpClient},
	}
}

func (p *LibraryProvider) Name() string { return "library" }

func (p *LibraryProvider) Resolve(ctx context.Context, sourceURL, videoID string) (*domain.Metadata, error) {
	video, err := p.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch video info: %w", err)
	}

	meta := &domain.Metadata{
		VideoID:         videoID,
		Title:           video.Title,
		Artist:          video.Author,
		DurationSeconds: int(video.Duration.Seconds()),
	}

	if len(video.Thumbnails) > 0 {
		// Thumbnails are ordered smallest first.
		meta.ThumbnailURL = video.Thumbnails[len(video.Thumbnails)-1].URL
	}

	if f := bestAudioFormat(video.Formats); f != nil {
		meta.StreamURL = f.URL
		meta.StreamSize = f.ContentLength
	}

	return meta, nil
}

// bestAudioFormat returns the highest-bitrate audio-only format with a usable
// URL, or nil if the video exposes none.
func bestAudioFormat(formats youtube.FormatList) *youtube.Format {
	var audio []youtube.Format
	for _, f := range formats {
		if strings.HasPrefix(f.MimeType, "audio/") && f.URL != "" {
			audio = append(audio, f)
		}
	}
	if len(audio) == 0 {
		return nil
	}
	sort.Slice(audio, func(i, j int) bool {
		return audio[i].Bitrate > audio[j].Bitrate
	})
	return &audio[0]
}
