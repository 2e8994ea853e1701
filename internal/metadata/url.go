package metadata

import (
	"regexp"

	"github.com/hfauzan/audiotube/internal/domain"
)

// videoIDPatterns cover the URL shapes YouTube serves: watch pages, short
// links, embeds, shorts and live pages. The ID itself is always 11 chars.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com|youtube-nocookie\.com)/(?:watch\?(?:.*&)?v=|embed/|v/|shorts/|live/)([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`^([a-zA-Z0-9_-]{11})$`),
}

// ExtractVideoID pulls the 11-character video ID out of a YouTube URL or a
// bare ID. Returns ErrInvalidSource for anything else.
func ExtractVideoID(sourceURL string) (string, error) {
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(sourceURL); m != nil {
			return m[1], nil
		}
	}
	return "", domain.ErrInvalidSource
}
