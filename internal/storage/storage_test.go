package storage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hfauzan/audiotube/internal/domain"
	"github.com/hfauzan/audiotube/internal/logger"
)

func writeTempAudio(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte("mp3 bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLocalUploaderCopiesAndBuildsURL(t *testing.T) {
	mediaDir := t.TempDir()
	u := NewLocalUploader(mediaDir, "http://localhost:8080")

	src := writeTempAudio(t, "track.mp3")
	res, err := u.Upload(context.Background(), src, "youtube-audios")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if res.URL != "http://localhost:8080/media/youtube-audios/track.mp3" {
		t.Errorf("url = %s", res.URL)
	}
	if res.ID != "youtube-audios/track.mp3" {
		t.Errorf("id = %s", res.ID)
	}
	if res.Bytes == 0 {
		t.Error("bytes not reported")
	}
	if _, err := os.Stat(filepath.Join(mediaDir, "youtube-audios", "track.mp3")); err != nil {
		t.Errorf("file not copied: %v", err)
	}
}

func TestCloudUploaderParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("not multipart: %v", err)
		}
		if r.FormValue("upload_preset") != "preset1" {
			t.Errorf("upload_preset = %s", r.FormValue("upload_preset"))
		}
		if r.FormValue("folder") != "youtube-audios" {
			t.Errorf("folder = %s", r.FormValue("folder"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"secure_url": "https://cdn.example.com/v1/track.mp3",
			"public_id":  "youtube-audios/track",
			"bytes":      9,
		})
	}))
	defer srv.Close()

	u := NewCloudUploader(srv.URL, "preset1", logger.Default())
	res, err := u.Upload(context.Background(), writeTempAudio(t, "track.mp3"), "youtube-audios")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.URL != "https://cdn.example.com/v1/track.mp3" || res.ID != "youtube-audios/track" {
		t.Errorf("result = %+v", res)
	}
}

func TestCloudUploaderRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid preset"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	u := NewCloudUploader(srv.URL, "bad", logger.Default())
	_, err := u.Upload(context.Background(), writeTempAudio(t, "track.mp3"), "")

	var uploadErr *domain.UploadError
	if !errors.As(err, &uploadErr) {
		t.Fatalf("expected UploadError, got %v", err)
	}
}
