package metadata

import (
	"errors"
	"testing"

	"github.com/hfauzan/audiotube/internal/domain"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name      string
		sourceURL string
		want      string
		wantErr   bool
	}{
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"watch url extra params", "https://www.youtube.com/watch?list=PL123&v=dQw4w9WgXcQ&t=42", "dQw4w9WgXcQ", false},
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"short link with params", "https://youtu.be/dQw4w9WgXcQ?si=xyz", "dQw4w9WgXcQ", false},
		{"embed", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"shorts", "https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"live", "https://www.youtube.com/live/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"nocookie", "https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"bare id", "dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"no scheme", "youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"empty", "", "", true},
		{"not youtube", "https://vimeo.com/123456789", "", true},
		{"id too short", "https://www.youtube.com/watch?v=short", "", true},
		{"garbage", "not a url at all", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractVideoID(tt.sourceURL)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidSource) {
					t.Fatalf("expected ErrInvalidSource, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
