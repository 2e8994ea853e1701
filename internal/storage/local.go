package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/hfauzan/audiotube/internal/domain"
	"github.com/hfauzan/audiotube/internal/filesystem"
)

// LocalUploader copies files into a served media directory. The fallback when
// no cloud endpoint is configured, and the backend used in tests.
type LocalUploader struct {
	mediaDir string
	baseURL  string
}

func NewLocalUploader(mediaDir, baseURL string) *LocalUploader {
	return &LocalUploader{mediaDir: mediaDir, baseURL: baseURL}
}

func (u *LocalUploader) Upload(_ context.Context, localPath, folder string) (*UploadResult, error) {
	rel := path.Join(folder, filesystem.Sanitize(filepath.Base(localPath)))
	dst := filepath.Join(u.mediaDir, filepath.FromSlash(rel))

	n, err := filesystem.CopyFile(localPath, dst)
	if err != nil {
		return nil, &domain.UploadError{Err: err}
	}

	return &UploadResult{
		URL:   fmt.Sprintf("%s/media/%s", u.baseURL, rel),
		ID:    rel,
		Bytes: n,
	}, nil
}
