package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/hfauzan/audiotube/internal/constants"
	"github.com/hfauzan/audiotube/internal/domain"
	"github.com/hfauzan/audiotube/internal/logger"
)

// CloudUploader streams files to an unsigned-upload media host endpoint.
// The file body is piped straight into the multipart writer, so large files
// never sit in memory.
type CloudUploader struct {
	httpClient *http.Client
	log        *logger.Logger
	endpoint   string
	preset     string
}

func NewCloudUploader(endpoint, preset string, log *logger.Logger) *CloudUploader {
	return &CloudUploader{
		httpClient: &http.Client{Timeout: constants.UploadTimeout},
		endpoint:   endpoint,
		preset:     preset,
		log:        log.WithComponent("storage"),
	}
}

func (u *CloudUploader) Upload(ctx context.Context, localPath, folder string) (*UploadResult, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return nil, &domain.UploadError{Err: fmt.Errorf("failed to open %s: %w", localPath, err)}
	}
	defer file.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeMultipart(mw, file, filepath.Base(localPath), u.preset, folder)
		mw.Close()
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, pr)
	if err != nil {
		return nil, &domain.UploadError{Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, &domain.UploadError{Err: fmt.Errorf("upload request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &domain.UploadError{Err: fmt.Errorf("upload returned status %d: %s", resp.StatusCode, body)}
	}

	var payload struct {
		SecureURL string `json:"secure_url"`
		PublicID  string `json:"public_id"`
		Bytes     int64  `json:"bytes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &domain.UploadError{Err: fmt.Errorf("failed to decode upload response: %w", err)}
	}
	if payload.SecureURL == "" {
		return nil, &domain.UploadError{Err: fmt.Errorf("upload response missing secure_url")}
	}

	u.log.Info("file uploaded", "public_id", payload.PublicID, "bytes", payload.Bytes)
	return &UploadResult{
		URL:   payload.SecureURL,
		ID:    payload.PublicID,
		Bytes: payload.Bytes,
	}, nil
}

func writeMultipart(mw *multipart.Writer, file io.Reader, filename, preset, folder string) error {
	if err := mw.WriteField("upload_preset", preset); err != nil {
		return err
	}
	if folder != "" {
		if err := mw.WriteField("folder", folder); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, file)
	return err
}
