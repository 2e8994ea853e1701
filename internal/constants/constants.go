// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort         = "8080"
	DefaultDBPath       = "audiotube.db"
	DefaultUploadFolder = "youtube-audios"
	DefaultMediaDir     = "media"
	DefaultBaseURL      = "http://localhost:8080"
)

// Job lifecycle
const (
	// DefaultStalenessThreshold is the age beyond which a processing record
	// is presumed stuck and eligible for restart.
	DefaultStalenessThreshold = 10 * time.Minute
	// DefaultMaxJobLifetime bounds the whole acquire/upload/finalize sequence.
	DefaultMaxJobLifetime = 5 * time.Minute
	KeepAliveInterval     = 15 * time.Second
	EstimatedTime         = "30-60 seconds"
)

// Persistence retries
const (
	DefaultRetryCount = 3
	DefaultRetryBase  = 1 * time.Second
)

// Acquisition strategies
const (
	DefaultStrategyAttempts = 2
	DefaultBackoffBase      = 500 * time.Millisecond
	DefaultBackoffCap       = 8 * time.Second

	// Dynamic timeout bounds for direct stream downloads.
	DirectTimeoutFloor   = 30 * time.Second
	DirectTimeoutCeiling = 10 * time.Minute
	// Assumed transfer rate used to derive a timeout from an expected size.
	DirectAssumedBytesPerSecond = 256 * 1024

	LibraryTimeout      = 90 * time.Second
	ExternalToolTimeout = 2 * time.Minute
	MaxLibraryFormats   = 3
)

// Metadata resolution
const (
	OEmbedTimeout          = 5 * time.Second
	LibraryMetadataTimeout = 10 * time.Second
	MetadataCacheTTL       = 1 * time.Hour
)

// Upload
const (
	UploadTimeout = 2 * time.Minute
)

// Progress tracking
const (
	MaxProgressLogLines = 200
	ProgressUpdateBytes = 1024 * 1024 // 1MB
)

// HTTP surface
const (
	DefaultRequestsPerSecond = 100
	DefaultBurstSize         = 200
	MaxListResults           = 50
)

// MIME Types
const (
	MimeTypeMP3  = "audio/mpeg"
	MimeTypeMP4  = "audio/mp4"
	MimeTypeWebM = "audio/webm"
)

// File Extensions
const (
	ExtMP3      = ".mp3"
	ExtDownload = ".download"
)

// File Permissions
const (
	DirPermissions  = 0755
	FilePermissions = 0644
)

// Characters to sanitize from filesystem paths
const InvalidPathChars = "<>:\"/\\|?*"
