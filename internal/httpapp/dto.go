package httpapp

import (
	"github.com/hfauzan/audiotube/internal/domain"
	"github.com/hfauzan/audiotube/internal/progress"
)

type convertRequest struct {
	URL string `json:"url"`
}

type convertResponse struct {
	ID            string        `json:"id"`
	Status        domain.Status `json:"status"`
	TrackingToken string        `json:"tracking_token,omitempty"`
	EstimatedTime string        `json:"estimated_time,omitempty"`
	Audio         *domain.Audio `json:"audio,omitempty"`
}

type statusResponse struct {
	ID       string          `json:"id"`
	Status   domain.Status   `json:"status"`
	Error    *string         `json:"error,omitempty"`
	AudioURL string          `json:"audio_url,omitempty"`
	Progress *progress.Entry `json:"progress,omitempty"`
	// Stalled means the job claims to be active but no live progress stream
	// exists for it, typically after a server restart.
	Stalled bool `json:"stalled,omitempty"`
}

type listResponse struct {
	Audios []*domain.Audio `json:"audios"`
	Count  int             `json:"count"`
}

type errorResponse struct {
	Error string `json:"error"`
}
