// Package httpapp exposes the conversion service over HTTP: submit, inspect,
// stream progress, download.
package httpapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hfauzan/audiotube/internal/app"
	"github.com/hfauzan/audiotube/internal/constants"
	"github.com/hfauzan/audiotube/internal/domain"
	"github.com/hfauzan/audiotube/internal/logger"
	"github.com/hfauzan/audiotube/internal/progress"
	"github.com/hfauzan/audiotube/internal/store"
)

type Handler struct {
	service *app.ConversionService
	store   *store.DB
	tracker *progress.Tracker
	log     *logger.Logger
}

func NewHandler(service *app.ConversionService, db *store.DB, tracker *progress.Tracker, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		store:   db,
		tracker: tracker,
		log:     log.WithComponent("http"),
	}
}

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		h.writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	result, err := h.service.Convert(r.Context(), strings.TrimSpace(req.URL))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSource) {
			h.writeError(w, http.StatusBadRequest, "not a valid YouTube URL")
			return
		}
		h.log.Error("convert request failed", "url", req.URL, "error", err)
		h.writeError(w, http.StatusInternalServerError, "conversion request failed")
		return
	}

	resp := convertResponse{
		ID:     result.Audio.ID,
		Status: result.Audio.Status,
	}
	status := http.StatusAccepted
	if result.Audio.Status == domain.StatusCompleted {
		status = http.StatusOK
		resp.Audio = result.Audio
	} else {
		resp.TrackingToken = result.Audio.TrackingToken
		resp.EstimatedTime = result.EstimatedTime
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) ListAudios(w http.ResponseWriter, r *http.Request) {
	limit := constants.MaxListResults
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < limit {
			limit = n
		}
	}

	audios, err := h.store.ListAudios(limit)
	if err != nil {
		h.log.Error("failed to list audios", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list audios")
		return
	}
	if audios == nil {
		audios = []*domain.Audio{}
	}
	h.writeJSON(w, http.StatusOK, listResponse{Audios: audios, Count: len(audios)})
}

func (h *Handler) GetAudio(w http.ResponseWriter, r *http.Request) {
	audio, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, audio)
}

// GetStatus merges the durable record with the in-memory progress stream.
// An active record with no live progress entry is reported as stalled and
// its token re-registered so later subscribers get a stream again.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	audio, ok := h.lookup(w, r)
	if !ok {
		return
	}

	resp := statusResponse{
		ID:       audio.ID,
		Status:   audio.Status,
		Error:    audio.Error,
		AudioURL: audio.AudioURL,
	}

	if snap, found := h.tracker.Snapshot(audio.TrackingToken); found {
		resp.Progress = &snap
	} else if audio.Status.Active() {
		resp.Stalled = true
		h.tracker.Start(audio.TrackingToken)
		h.tracker.Update(audio.TrackingToken, "", -1, "progress tracking re-registered")
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// StreamEvents serves job progress over SSE. When the tracker has no entry
// for the token the durable record is polled instead, so a subscriber who
// arrives after a restart still sees the outcome.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	audio, ok := h.lookup(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		h.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if snap, found := h.tracker.Snapshot(audio.TrackingToken); found {
		h.writeEvent(w, progress.Event{
			Token:   audio.TrackingToken,
			Stage:   snap.Stage,
			Percent: snap.Percent,
			Message: snap.Message,
			At:      snap.UpdatedAt,
		})
		flusher.Flush()
	}

	events, cancel := h.tracker.Subscribe(audio.TrackingToken)
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				h.streamFromStore(w, flusher, r, audio.ID)
				return
			}
			h.writeEvent(w, ev)
			flusher.Flush()
		}
	}
}

// streamFromStore polls the record until it reaches a terminal state, then
// emits one final event. The fallback path when the live stream is gone.
func (h *Handler) streamFromStore(w http.ResponseWriter, flusher http.Flusher, r *http.Request, id string) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		audio, err := h.store.GetAudio(id)
		if err == nil && audio != nil && audio.Status.Terminal() {
			ev := progress.Event{Token: audio.TrackingToken, At: time.Now()}
			if audio.Status == domain.StatusCompleted {
				ev.Stage = progress.StageCompleted
				ev.Percent = 100
				ev.Message = "conversion complete"
			} else {
				ev.Stage = progress.StageFailed
				if audio.Error != nil {
					ev.Message = *audio.Error
				}
			}
			h.writeEvent(w, ev)
			flusher.Flush()
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// Download redirects to the hosted file as an attachment. Optional format and
// quality query parameters rewrite the media host's delivery transformation.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	audio, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if audio.Status != domain.StatusCompleted {
		msg := fmt.Sprintf("audio not ready, status: %s", audio.Status)
		if audio.Status == domain.StatusFailed && audio.Error != nil {
			msg = fmt.Sprintf("conversion failed: %s", *audio.Error)
		}
		h.writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.store.IncrementDownloadCount(audio.ID); err != nil {
		h.log.Warn("failed to count download", "audio_id", audio.ID, "error", err)
	}

	target := buildDownloadURL(audio.AudioURL,
		r.URL.Query().Get("format"),
		r.URL.Query().Get("quality"))
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats()
	if err != nil {
		h.log.Error("failed to compute stats", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// lookup fetches the record addressed by the id path parameter, writing the
// error response itself when the record is absent.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*domain.Audio, bool) {
	id := chi.URLParam(r, "id")
	audio, err := h.store.GetAudio(id)
	if err != nil {
		h.log.Error("record lookup failed", "audio_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "lookup failed")
		return nil, false
	}
	if audio == nil {
		h.writeError(w, http.StatusNotFound, "audio not found")
		return nil, false
	}
	return audio, true
}

// buildDownloadURL forces attachment delivery and optionally injects format
// and quality transformations into a media-host delivery URL.
func buildDownloadURL(audioURL, format, quality string) string {
	var transforms []string
	if format != "" {
		transforms = append(transforms, "f_"+format)
	}
	if quality != "" {
		transforms = append(transforms, "q_"+quality)
	}
	if len(transforms) > 0 {
		if i := strings.Index(audioURL, "/upload/"); i >= 0 {
			audioURL = audioURL[:i+len("/upload/")] + strings.Join(transforms, ",") + "/" + audioURL[i+len("/upload/"):]
		}
	}

	u, err := url.Parse(audioURL)
	if err != nil {
		return audioURL
	}
	q := u.Query()
	q.Set("fl_attachment", "true")
	u.RawQuery = q.Encode()
	return u.String()
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}

func (h *Handler) writeEvent(w http.ResponseWriter, ev progress.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}
