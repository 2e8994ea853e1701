// Package transcode converts acquired audio streams to MP3.
package transcode

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Transcoder wraps ffmpeg. When the binary is missing the service still
// works; acquired files are delivered in their native container.
type Transcoder struct {
	binPath string
}

func New() *Transcoder {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return &Transcoder{}
	}
	return &Transcoder{binPath: path}
}

func (t *Transcoder) Available() bool { return t.binPath != "" }

// ToMP3 re-encodes in to a 192kbps MP3 at out. The partial output is removed
// on failure.
func (t *Transcoder) ToMP3(ctx context.Context, in, out string) error {
	if t.binPath == "" {
		return fmt.Errorf("ffmpeg not installed")
	}

	done := make(chan error, 1)
	go func() {
		done <- ffmpeg.Input(in).
			Output(out, ffmpeg.KwArgs{
				"vn":     "",
				"acodec": "libmp3lame",
				"ar":     "44100",
				"b:a":    "192k",
			}).
			OverWriteOutput().
			Silent(true).
			Run()
	}()

	select {
	case <-ctx.Done():
		os.Remove(out)
		return ctx.Err()
	case err := <-done:
		if err != nil {
			os.Remove(out)
			return fmt.Errorf("ffmpeg transcode failed: %w", err)
		}
	}

	info, err := os.Stat(out)
	if err != nil {
		return fmt.Errorf("transcoded file missing: %w", err)
	}
	if info.Size() == 0 {
		os.Remove(out)
		return fmt.Errorf("transcoded file is empty")
	}
	return nil
}
