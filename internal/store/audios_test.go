package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hfauzan/audiotube/internal/domain"
)

func setupTestDB(t *testing.T) (*DB, func()) {
	t.Helper()

	dir, err := os.MkdirTemp("", "audiotube-store-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	db, err := NewSQLiteDB(filepath.Join(dir, "test.db"))
	if err != nil {
		os.RemoveAll(dir)
		t.Fatalf("failed to open test db: %v", err)
	}

	return db, func() {
		db.Close()
		os.RemoveAll(dir)
	}
}

func newTestAudio(sourceURL string) *domain.Audio {
	now := time.Now()
	return &domain.Audio{
		ID:            uuid.New().String(),
		SourceURL:     sourceURL,
		Status:        domain.StatusProcessing,
		TrackingToken: uuid.New().String(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestCreateAudioClaimsSourceURL(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	first := newTestAudio("https://youtube.com/watch?v=abc123xyz00")
	claimed, err := db.CreateAudio(first)
	if err != nil {
		t.Fatalf("CreateAudio: %v", err)
	}
	if !claimed {
		t.Fatal("expected first insert to claim the source URL")
	}

	second := newTestAudio(first.SourceURL)
	claimed, err = db.CreateAudio(second)
	if err != nil {
		t.Fatalf("CreateAudio duplicate: %v", err)
	}
	if claimed {
		t.Fatal("expected duplicate insert for an active source URL to be rejected")
	}

	if got, _ := db.GetAudio(second.ID); got != nil {
		t.Fatal("rejected insert must not create a record")
	}
}

func TestCreateAudioAllowsRetryAfterFailure(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	first := newTestAudio("https://youtube.com/watch?v=abc123xyz00")
	if _, err := db.CreateAudio(first); err != nil {
		t.Fatalf("CreateAudio: %v", err)
	}
	if err := db.FailAudio(first.ID, "network unreachable"); err != nil {
		t.Fatalf("FailAudio: %v", err)
	}

	second := newTestAudio(first.SourceURL)
	claimed, err := db.CreateAudio(second)
	if err != nil {
		t.Fatalf("CreateAudio after failure: %v", err)
	}
	if !claimed {
		t.Fatal("a failed record must not block a fresh attempt")
	}
}

func TestGetAudioMissing(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	audio, err := db.GetAudio("nope")
	if err != nil {
		t.Fatalf("GetAudio: %v", err)
	}
	if audio != nil {
		t.Fatal("expected nil for a missing record")
	}
}

func TestFinalizeResult(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	audio := newTestAudio("https://youtube.com/watch?v=abc123xyz00")
	if _, err := db.CreateAudio(audio); err != nil {
		t.Fatalf("CreateAudio: %v", err)
	}

	if err := db.FinalizeResult(audio.ID, "https://cdn.example.com/a.mp3", "youtube-audios/a"); err != nil {
		t.Fatalf("FinalizeResult: %v", err)
	}

	got, err := db.GetAudio(audio.ID)
	if err != nil {
		t.Fatalf("GetAudio: %v", err)
	}
	if got.Status != domain.StatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.AudioURL != "https://cdn.example.com/a.mp3" {
		t.Errorf("audio_url = %s", got.AudioURL)
	}
	if got.PublicID != "youtube-audios/a" {
		t.Errorf("public_id = %s", got.PublicID)
	}
	if got.Error != nil {
		t.Errorf("error should be cleared, got %v", *got.Error)
	}
}

func TestFailAudioNeverRegressesCompleted(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	audio := newTestAudio("https://youtube.com/watch?v=abc123xyz00")
	if _, err := db.CreateAudio(audio); err != nil {
		t.Fatalf("CreateAudio: %v", err)
	}
	if err := db.FinalizeResult(audio.ID, "https://cdn.example.com/a.mp3", "pub"); err != nil {
		t.Fatalf("FinalizeResult: %v", err)
	}

	if err := db.FailAudio(audio.ID, "late failure"); err != nil {
		t.Fatalf("FailAudio: %v", err)
	}

	got, _ := db.GetAudio(audio.ID)
	if got.Status != domain.StatusCompleted {
		t.Errorf("completed record regressed to %s", got.Status)
	}
	if got.Error != nil {
		t.Errorf("completed record picked up error %q", *got.Error)
	}
}

func TestRestartAudio(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	audio := newTestAudio("https://youtube.com/watch?v=abc123xyz00")
	if _, err := db.CreateAudio(audio); err != nil {
		t.Fatalf("CreateAudio: %v", err)
	}
	if err := db.FailAudio(audio.ID, "stuck"); err != nil {
		t.Fatalf("FailAudio: %v", err)
	}

	newToken := uuid.New().String()
	if err := db.RestartAudio(audio.ID, newToken); err != nil {
		t.Fatalf("RestartAudio: %v", err)
	}

	got, _ := db.GetAudio(audio.ID)
	if got.Status != domain.StatusProcessing {
		t.Errorf("status = %s, want processing", got.Status)
	}
	if got.TrackingToken != newToken {
		t.Errorf("tracking token not superseded")
	}
	if got.Error != nil {
		t.Errorf("error not cleared: %v", *got.Error)
	}
}

func TestGetAudioBySourceURLPrefersCompleted(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	sourceURL := "https://youtube.com/watch?v=abc123xyz00"

	done := newTestAudio(sourceURL)
	if _, err := db.CreateAudio(done); err != nil {
		t.Fatalf("CreateAudio: %v", err)
	}
	if err := db.FinalizeResult(done.ID, "https://cdn.example.com/a.mp3", "pub"); err != nil {
		t.Fatalf("FinalizeResult: %v", err)
	}

	failed := newTestAudio(sourceURL)
	failed.CreatedAt = failed.CreatedAt.Add(time.Minute)
	if _, err := db.CreateAudio(failed); err != nil {
		t.Fatalf("CreateAudio: %v", err)
	}
	if err := db.FailAudio(failed.ID, "later attempt failed"); err != nil {
		t.Fatalf("FailAudio: %v", err)
	}

	got, err := db.GetAudioBySourceURL(sourceURL)
	if err != nil {
		t.Fatalf("GetAudioBySourceURL: %v", err)
	}
	if got == nil || got.ID != done.ID {
		t.Fatal("expected the completed record to win over a newer failed one")
	}
}

func TestUpdateMetadata(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	audio := newTestAudio("https://youtube.com/watch?v=abc123xyz00")
	if _, err := db.CreateAudio(audio); err != nil {
		t.Fatalf("CreateAudio: %v", err)
	}

	meta := &domain.Metadata{
		Title:           "Test Track",
		Artist:          "Test Channel",
		ThumbnailURL:    "https://img.example.com/t.jpg",
		DurationSeconds: 215,
	}
	if err := db.UpdateMetadata(audio.ID, meta); err != nil {
		t.Fatalf("UpdateMetadata: %v", err)
	}

	got, _ := db.GetAudio(audio.ID)
	if got.Title != meta.Title || got.Artist != meta.Artist || got.DurationSeconds != 215 {
		t.Errorf("metadata not persisted: %+v", got)
	}
}

func TestIncrementDownloadCount(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	audio := newTestAudio("https://youtube.com/watch?v=abc123xyz00")
	if _, err := db.CreateAudio(audio); err != nil {
		t.Fatalf("CreateAudio: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := db.IncrementDownloadCount(audio.ID); err != nil {
			t.Fatalf("IncrementDownloadCount: %v", err)
		}
	}

	got, _ := db.GetAudio(audio.ID)
	if got.DownloadCount != 3 {
		t.Errorf("download_count = %d, want 3", got.DownloadCount)
	}
}

func TestGetStats(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	a := newTestAudio("https://youtube.com/watch?v=aaa11122233")
	b := newTestAudio("https://youtube.com/watch?v=bbb11122233")
	c := newTestAudio("https://youtube.com/watch?v=ccc11122233")
	for _, audio := range []*domain.Audio{a, b, c} {
		if _, err := db.CreateAudio(audio); err != nil {
			t.Fatalf("CreateAudio: %v", err)
		}
	}
	if err := db.FinalizeResult(a.ID, "u", "p"); err != nil {
		t.Fatalf("FinalizeResult: %v", err)
	}
	if err := db.FailAudio(b.ID, "oops"); err != nil {
		t.Fatalf("FailAudio: %v", err)
	}

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.Total != 3 || stats.Completed != 1 || stats.Failed != 1 || stats.Active != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
