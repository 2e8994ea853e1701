package strategy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/hfauzan/audiotube/internal/constants"
	"github.com/hfauzan/audiotube/internal/domain"
	"github.com/hfauzan/audiotube/internal/httpclient"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// DirectFormat streams a pre-signed audio URL from resolved metadata. The
// fastest strategy when a stream URL is available, useless otherwise.
type DirectFormat struct {
	client *httpclient.Client
}

func NewDirectFormat(client *httpclient.Client) *DirectFormat {
	return &DirectFormat{client: client}
}

func (s *DirectFormat) Name() string { return "direct-format" }

func (s *DirectFormat) Available() bool { return true }

func (s *DirectFormat) Acquire(ctx context.Context, sourceURL string, meta *domain.Metadata, dest string, report ProgressFunc) error {
	if meta == nil || meta.StreamURL == "" {
		return fmt.Errorf("no direct stream url available")
	}

	ctx, cancel := context.WithTimeout(ctx, streamTimeout(meta.StreamSize))
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.StreamURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("stream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	total := resp.ContentLength
	if total <= 0 {
		total = meta.StreamSize
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	_, err = io.Copy(io.MultiWriter(out, newProgressWriter(total, report)), resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return fmt.Errorf("stream copy failed: %w", err)
	}

	return verifyDestination(dest)
}

// streamTimeout derives a download deadline from the expected size at an
// assumed transfer rate, clamped to sane bounds.
func streamTimeout(size int64) time.Duration {
	if size <= 0 {
		return constants.DirectTimeoutFloor
	}
	d := time.Duration(size/constants.DirectAssumedBytesPerSecond) * time.Second
	if d < constants.DirectTimeoutFloor {
		return constants.DirectTimeoutFloor
	}
	if d > constants.DirectTimeoutCeiling {
		return constants.DirectTimeoutCeiling
	}
	return d
}
