// Package storage pushes acquired audio files to durable hosting and hands
// back a public URL.
package storage

import "context"

// UploadResult describes a successfully hosted file.
type UploadResult struct {
	// URL is the public, directly downloadable location.
	URL string
	// ID is the host-side identifier, kept for later management.
	ID    string
	Bytes int64
}

type Uploader interface {
	Upload(ctx context.Context, localPath, folder string) (*UploadResult, error)
}
