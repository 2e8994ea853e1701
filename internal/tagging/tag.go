// Package tagging writes ID3 metadata into finished MP3 files.
package tagging

import (
	"fmt"

	"github.com/bogem/id3v2/v2"

	"github.com/hfauzan/audiotube/internal/domain"
)

// Apply writes title and artist tags into the MP3 at path. Tagging is a
// nicety; callers treat a failure as non-fatal.
func Apply(path string, meta *domain.Metadata) error {
	if meta == nil {
		return nil
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open tags: %w", err)
	}
	defer tag.Close()

	if meta.Title != "" {
		tag.SetTitle(meta.Title)
	}
	if meta.Artist != "" {
		tag.SetArtist(meta.Artist)
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save tags: %w", err)
	}
	return nil
}
