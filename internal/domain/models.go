package domain

import (
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Active reports whether a conversion is still claimed for this record.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusProcessing
}

// Audio is the durable record of one conversion request and its outcome.
// SourceURL is the idempotency key: at most one active record and at most one
// completed record may exist per source URL (enforced by the store schema).
type Audio struct {
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
	Error           *string   `json:"error,omitempty" db:"error"`
	ID              string    `json:"id" db:"id"`
	SourceURL       string    `json:"source_url" db:"source_url"`
	Title           string    `json:"title" db:"title"`
	Artist          string    `json:"artist" db:"artist"`
	ThumbnailURL    string    `json:"thumbnail_url" db:"thumbnail_url"`
	Status          Status    `json:"status" db:"status"`
	AudioURL        string    `json:"audio_url" db:"audio_url"`
	PublicID        string    `json:"public_id" db:"public_id"`
	TrackingToken   string    `json:"tracking_token,omitempty" db:"tracking_token"`
	DurationSeconds int       `json:"duration_seconds" db:"duration_seconds"`
	DownloadCount   int       `json:"download_count" db:"download_count"`
}

// Metadata is the resolved (or placeholder) description of a source video.
type Metadata struct {
	VideoID         string `json:"video_id"`
	Title           string `json:"title"`
	Artist          string `json:"artist"`
	ThumbnailURL    string `json:"thumbnail_url"`
	DurationSeconds int    `json:"duration_seconds"`

	// StreamURL is a pre-signed direct audio URL when a provider exposed one.
	// It expires quickly and must never be persisted or cached.
	StreamURL  string `json:"-"`
	StreamSize int64  `json:"-"`
}

// Merge backfills empty fields of m from other without overwriting resolved
// values. Resolved values always take precedence over placeholders.
func (m *Metadata) Merge(other *Metadata) {
	if other == nil {
		return
	}
	if m.Title == "" {
		m.Title = other.Title
	}
	if m.Artist == "" {
		m.Artist = other.Artist
	}
	if m.ThumbnailURL == "" {
		m.ThumbnailURL = other.ThumbnailURL
	}
	if m.DurationSeconds == 0 {
		m.DurationSeconds = other.DurationSeconds
	}
}
