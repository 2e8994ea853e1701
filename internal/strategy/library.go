package strategy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/kkdai/youtube/v2"

	"github.com/hfauzan/audiotube/internal/constants"
	"github.com/hfauzan/audiotube/internal/domain"
)

// identityMu serializes mutation of the extraction library's package-level
// client identity while a download is in flight.
var identityMu sync.Mutex

// identityNames are tried in order. Different player identities are throttled
// independently upstream, so rotating through them survives per-identity
// blocks.
var identityNames = []string{"android", "web", "embedded"}

func setIdentity(name string) {
	switch name {
	case "web":
		youtube.DefaultClient = youtube.WebClient
	case "embedded":
		youtube.DefaultClient = youtube.EmbeddedClient
	default:
		youtube.DefaultClient = youtube.AndroidClient
	}
}

// LibraryExtraction downloads through the extraction library, rotating
// player identities and audio formats until one combination streams.
type LibraryExtraction struct {
	httpClient *http.Client
}

func NewLibraryExtraction(httpClient *http.Client) *LibraryExtraction {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.LibraryTimeout}
	}
	return &LibraryExtraction{httpClient: httpClient}
}

func (s *LibraryExtraction) Name() string { return "library-extraction" }

func (s *LibraryExtraction) Available() bool { return true }

func (s *LibraryExtraction) Acquire(ctx context.Context, sourceURL string, meta *domain.Metadata, dest string, report ProgressFunc) error {
	if meta == nil || meta.VideoID == "" {
		return fmt.Errorf("no video id resolved")
	}

	var errs []error
	for _, name := range identityNames {
		err := s.acquireAs(ctx, name, meta.VideoID, dest, report)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("identity %s: %w", name, err))
		if ctx.Err() != nil {
			break
		}
	}
	return errors.Join(errs...)
}

func (s *LibraryExtraction) acquireAs(ctx context.Context, identity, videoID, dest string, report ProgressFunc) error {
	identityMu.Lock()
	saved := youtube.DefaultClient
	setIdentity(identity)
	defer func() {
		youtube.DefaultClient = saved
		identityMu.Unlock()
	}()

	client := &youtube.Client{HTTPClient: s.httpClient}
	video, err := client.GetVideoContext(ctx, videoID)
	if err != nil {
		return fmt.Errorf("fetching video: %w", err)
	}

	formats := audioFormats(video.Formats)
	if len(formats) == 0 {
		return fmt.Errorf("no audio formats exposed")
	}
	if len(formats) > constants.MaxLibraryFormats {
		formats = formats[:constants.MaxLibraryFormats]
	}

	var lastErr error
	for _, f := range formats {
		if err := s.streamFormat(ctx, client, video, &f, dest, report); err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return lastErr
			}
			continue
		}
		return nil
	}
	return lastErr
}

func (s *LibraryExtraction) streamFormat(ctx context.Context, client *youtube.Client, video *youtube.Video, format *youtube.Format, dest string, report ProgressFunc) error {
	stream, size, err := client.GetStreamContext(ctx, video, format)
	if err != nil {
		return fmt.Errorf("opening stream: %w", err)
	}
	defer stream.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	_, err = io.Copy(io.MultiWriter(out, newProgressWriter(size, report)), stream)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return fmt.Errorf("stream copy failed: %w", err)
	}

	return verifyDestination(dest)
}

func audioFormats(formats youtube.FormatList) []youtube.Format {
	var audio []youtube.Format
	for _, f := range formats {
		if strings.HasPrefix(f.MimeType, "audio/") {
			audio = append(audio, f)
		}
	}
	sort.Slice(audio, func(i, j int) bool {
		return audio[i].Bitrate > audio[j].Bitrate
	})
	return audio
}
