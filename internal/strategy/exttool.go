package strategy

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/hfauzan/audiotube/internal/constants"
	"github.com/hfauzan/audiotube/internal/domain"
)

// ExternalTool shells out to yt-dlp. The heaviest strategy, but the most
// resilient to upstream player changes. Skipped entirely when the binary is
// not installed.
type ExternalTool struct {
	binPath string
}

func NewExternalTool() *ExternalTool {
	path, err := exec.LookPath("yt-dlp")
	if err != nil {
		return &ExternalTool{}
	}
	return &ExternalTool{binPath: path}
}

func (s *ExternalTool) Name() string { return "external-tool" }

func (s *ExternalTool) Available() bool { return s.binPath != "" }

func (s *ExternalTool) Acquire(ctx context.Context, sourceURL string, meta *domain.Metadata, dest string, report ProgressFunc) error {
	if s.binPath == "" {
		return fmt.Errorf("yt-dlp not installed")
	}

	ctx, cancel := context.WithTimeout(ctx, constants.ExternalToolTimeout)
	defer cancel()

	if report != nil {
		report(0, "invoking external extractor")
	}

	cmd := exec.CommandContext(ctx, s.binPath,
		"-f", "bestaudio",
		"--no-warnings",
		"--no-playlist",
		"-o", dest,
		sourceURL,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(dest)
		if msg := stderr.String(); msg != "" {
			return fmt.Errorf("yt-dlp failed: %w: %s", err, truncate(msg, 500))
		}
		return fmt.Errorf("yt-dlp failed: %w", err)
	}

	if report != nil {
		report(100, "external extractor finished")
	}

	return verifyDestination(dest)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
