// Package app holds the conversion service, the orchestrator that ties
// metadata resolution, acquisition, transcoding, upload and persistence into
// one idempotent operation per source URL.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hfauzan/audiotube/internal/constants"
	"github.com/hfauzan/audiotube/internal/domain"
	"github.com/hfauzan/audiotube/internal/logger"
	"github.com/hfauzan/audiotube/internal/progress"
	"github.com/hfauzan/audiotube/internal/storage"
	"github.com/hfauzan/audiotube/internal/tagging"
)

// Resolver yields metadata for a source URL, or ErrInvalidSource.
type Resolver interface {
	Resolve(ctx context.Context, sourceURL string) (*domain.Metadata, error)
}

// Acquirer produces a local audio file at dest, or an ExhaustedError.
type Acquirer interface {
	Run(ctx context.Context, trackingToken, sourceURL string, meta *domain.Metadata, dest string) error
}

// Transcoder converts an acquired stream to MP3.
type Transcoder interface {
	Available() bool
	ToMP3(ctx context.Context, in, out string) error
}

// Store is the durable record store the service writes outcomes to.
type Store interface {
	CreateAudio(a *domain.Audio) (bool, error)
	GetAudio(id string) (*domain.Audio, error)
	GetAudioBySourceURL(sourceURL string) (*domain.Audio, error)
	UpdateMetadata(id string, meta *domain.Metadata) error
	FinalizeResult(id, audioURL, publicID string) error
	FailAudio(id, msg string) error
	RestartAudio(id, trackingToken string) error
}

type Config struct {
	ScratchDir         string
	UploadFolder       string
	StalenessThreshold time.Duration
	MaxJobLifetime     time.Duration
}

func (c Config) withDefaults() Config {
	if c.ScratchDir == "" {
		c.ScratchDir = os.TempDir()
	}
	if c.UploadFolder == "" {
		c.UploadFolder = constants.DefaultUploadFolder
	}
	if c.StalenessThreshold <= 0 {
		c.StalenessThreshold = constants.DefaultStalenessThreshold
	}
	if c.MaxJobLifetime <= 0 {
		c.MaxJobLifetime = constants.DefaultMaxJobLifetime
	}
	return c
}

// ConversionService owns the lifecycle of a conversion: claim, resolve,
// acquire, transcode, upload, finalize. One instance serves all requests.
type ConversionService struct {
	store      Store
	resolver   Resolver
	acquirer   Acquirer
	uploader   storage.Uploader
	tracker    *progress.Tracker
	transcoder Transcoder
	log        *logger.Logger
	cfg        Config

	wg sync.WaitGroup
}

func NewConversionService(
	store Store,
	resolver Resolver,
	acquirer Acquirer,
	uploader storage.Uploader,
	tracker *progress.Tracker,
	transcoder Transcoder,
	log *logger.Logger,
	cfg Config,
) *ConversionService {
	return &ConversionService{
		store:      store,
		resolver:   resolver,
		acquirer:   acquirer,
		uploader:   uploader,
		tracker:    tracker,
		transcoder: transcoder,
		log:        log.WithComponent("conversion"),
		cfg:        cfg.withDefaults(),
	}
}

// ConvertResult is what a conversion request gets back immediately.
type ConvertResult struct {
	Audio *domain.Audio
	// Created is true when this request started a new conversion rather than
	// attaching to an existing record.
	Created       bool
	EstimatedTime string
}

// Convert is the idempotent entry point. For a URL with a completed record it
// returns that record. For a URL with a fresh active record it returns the
// same handle without starting new work. A stale active record is restarted
// in place. Otherwise a new record is claimed and a background job launched.
func (s *ConversionService) Convert(ctx context.Context, sourceURL string) (*ConvertResult, error) {
	existing, err := s.store.GetAudioBySourceURL(sourceURL)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		switch {
		case existing.Status == domain.StatusCompleted:
			return &ConvertResult{Audio: existing}, nil
		case existing.Status.Active() && time.Since(existing.UpdatedAt) < s.cfg.StalenessThreshold:
			return &ConvertResult{Audio: existing, EstimatedTime: constants.EstimatedTime}, nil
		case existing.Status.Active():
			// Presumed stuck. Reclaim the record under a fresh token.
			return s.restart(ctx, existing)
		}
	}

	meta, err := s.resolver.Resolve(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	audio := &domain.Audio{
		ID:              uuid.New().String(),
		SourceURL:       sourceURL,
		Title:           meta.Title,
		Artist:          meta.Artist,
		ThumbnailURL:    meta.ThumbnailURL,
		DurationSeconds: meta.DurationSeconds,
		Status:          domain.StatusProcessing,
		TrackingToken:   uuid.New().String(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	claimed, err := s.store.CreateAudio(audio)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// Lost the race; attach to whoever won.
		winner, err := s.store.GetAudioBySourceURL(sourceURL)
		if err != nil {
			return nil, err
		}
		if winner == nil {
			return nil, fmt.Errorf("claim rejected but no record found for %s", sourceURL)
		}
		if winner.Status == domain.StatusCompleted {
			return &ConvertResult{Audio: winner}, nil
		}
		return &ConvertResult{Audio: winner, EstimatedTime: constants.EstimatedTime}, nil
	}

	s.launch(audio, meta)
	return &ConvertResult{Audio: audio, Created: true, EstimatedTime: constants.EstimatedTime}, nil
}

func (s *ConversionService) restart(ctx context.Context, existing *domain.Audio) (*ConvertResult, error) {
	meta, err := s.resolver.Resolve(ctx, existing.SourceURL)
	if err != nil {
		return nil, err
	}

	token := uuid.New().String()
	if err := s.store.RestartAudio(existing.ID, token); err != nil {
		return nil, err
	}

	restarted, err := s.store.GetAudio(existing.ID)
	if err != nil {
		return nil, err
	}
	if restarted == nil {
		return nil, fmt.Errorf("record %s vanished during restart", existing.ID)
	}

	s.log.WithJob(existing.ID, existing.SourceURL).Info("restarting stale conversion",
		"stuck_since", existing.UpdatedAt)

	s.launch(restarted, meta)
	return &ConvertResult{Audio: restarted, Created: true, EstimatedTime: constants.EstimatedTime}, nil
}

func (s *ConversionService) launch(audio *domain.Audio, meta *domain.Metadata) {
	s.tracker.Start(audio.TrackingToken)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.process(audio, meta)
	}()
}

// Wait blocks until all in-flight conversions finish. Used by shutdown and
// tests.
func (s *ConversionService) Wait() {
	s.wg.Wait()
}

// process runs the whole conversion in the background. The job is bounded by
// MaxJobLifetime; every exit path leaves the record in a terminal state and
// no scratch files behind.
func (s *ConversionService) process(audio *domain.Audio, meta *domain.Metadata) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.MaxJobLifetime)
	defer cancel()

	log := s.log.WithJob(audio.ID, audio.SourceURL)
	token := audio.TrackingToken

	defer func() {
		if r := recover(); r != nil {
			log.Error("conversion panicked", "panic", r)
			s.fail(audio.ID, token, fmt.Sprintf("internal error: %v", r))
		}
	}()

	s.tracker.Update(token, progress.StageMetadata, 5, "metadata resolved")
	if err := s.store.UpdateMetadata(audio.ID, meta); err != nil {
		log.Warn("failed to persist metadata", "error", err)
	}

	rawPath := filepath.Join(s.cfg.ScratchDir, audio.ID+constants.ExtDownload)
	defer os.Remove(rawPath)

	s.tracker.Update(token, progress.StageDownloading, 10, "starting acquisition")
	if err := s.acquirer.Run(ctx, token, audio.SourceURL, meta, rawPath); err != nil {
		log.Error("acquisition exhausted", "error", err)
		s.fail(audio.ID, token, err.Error())
		return
	}

	uploadPath := rawPath
	if s.transcoder.Available() {
		s.tracker.Update(token, progress.StageProcessing, 45, "converting to mp3")
		mp3Path := filepath.Join(s.cfg.ScratchDir, audio.ID+constants.ExtMP3)
		if err := s.transcoder.ToMP3(ctx, rawPath, mp3Path); err != nil {
			log.Warn("transcode failed, delivering original container", "error", err)
		} else {
			defer os.Remove(mp3Path)
			uploadPath = mp3Path
			if err := tagging.Apply(mp3Path, meta); err != nil {
				log.Warn("tagging failed", "error", err)
			}
		}
	}

	s.tracker.Update(token, progress.StageUploading, 50, "uploading to storage")
	result, err := s.uploader.Upload(ctx, uploadPath, s.cfg.UploadFolder)
	if err != nil {
		log.Error("upload failed", "error", err)
		s.fail(audio.ID, token, err.Error())
		return
	}
	s.tracker.Update(token, progress.StageUploading, 80, fmt.Sprintf("uploaded %d bytes", result.Bytes))

	s.tracker.Update(token, progress.StageFinalizing, 90, "finalizing record")
	if err := s.store.FinalizeResult(audio.ID, result.URL, result.ID); err != nil {
		log.Error("failed to finalize record", "error", err)
		s.fail(audio.ID, token, err.Error())
		return
	}

	s.tracker.Complete(token, "conversion complete")
	log.Info("conversion completed", "audio_url", result.URL, "bytes", result.Bytes)
}

// fail records the failure durably first, then tears down the progress
// stream. Order matters: subscribers woken by the tracker must find the
// record already terminal.
func (s *ConversionService) fail(id, token, msg string) {
	if err := s.store.FailAudio(id, msg); err != nil {
		s.log.Error("failed to mark record failed", "audio_id", id, "error", err)
	}
	s.tracker.Fail(token, msg)
}
