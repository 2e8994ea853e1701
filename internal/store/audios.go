package store

import (
	"database/sql"
	"time"

	"github.com/hfauzan/audiotube/internal/domain"
)

const audioColumns = `id, source_url, title, artist, thumbnail_url, duration_seconds,
	status, audio_url, public_id, error, tracking_token, download_count, created_at, updated_at`

// CreateAudio inserts a new record, claiming the source URL. Returns false
// when another active or completed record already holds the claim (the
// partial unique indexes swallow the insert via OR IGNORE).
func (db *DB) CreateAudio(audio *domain.Audio) (bool, error) {
	query := `INSERT OR IGNORE INTO audios
		(id, source_url, title, artist, thumbnail_url, duration_seconds, status,
		 audio_url, public_id, tracking_token, created_at, updated_at)
		VALUES (:id, :source_url, :title, :artist, :thumbnail_url, :duration_seconds, :status,
		 :audio_url, :public_id, :tracking_token, :created_at, :updated_at)`

	var claimed bool
	err := db.withRetry("create audio", func() error {
		res, err := db.NamedExec(query, audio)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		claimed = n > 0
		return err
	})
	return claimed, err
}

func (db *DB) GetAudio(id string) (*domain.Audio, error) {
	query := `SELECT ` + audioColumns + ` FROM audios WHERE id = ?`

	audio := &domain.Audio{}
	err := db.Get(audio, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return audio, nil
}

// GetAudioBySourceURL returns the most relevant record for a source URL:
// a completed one first, otherwise the newest.
func (db *DB) GetAudioBySourceURL(sourceURL string) (*domain.Audio, error) {
	query := `SELECT ` + audioColumns + ` FROM audios
		WHERE source_url = ?
		ORDER BY CASE status WHEN 'completed' THEN 0 ELSE 1 END, created_at DESC
		LIMIT 1`

	audio := &domain.Audio{}
	err := db.Get(audio, query, sourceURL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return audio, nil
}

func (db *DB) GetAudioByTrackingToken(token string) (*domain.Audio, error) {
	query := `SELECT ` + audioColumns + ` FROM audios WHERE tracking_token = ? LIMIT 1`

	audio := &domain.Audio{}
	err := db.Get(audio, query, token)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return audio, nil
}

func (db *DB) UpdateMetadata(id string, meta *domain.Metadata) error {
	query := `UPDATE audios SET title = ?, artist = ?, thumbnail_url = ?, duration_seconds = ?, updated_at = ?
		WHERE id = ?`
	return db.withRetry("update metadata", func() error {
		_, err := db.Exec(query, meta.Title, meta.Artist, meta.ThumbnailURL, meta.DurationSeconds, time.Now(), id)
		return err
	})
}

// FinalizeResult marks a processing record completed with its hosted result.
// The status guard keeps a late finalize from touching a record that already
// reached a terminal state.
func (db *DB) FinalizeResult(id, audioURL, publicID string) error {
	query := `UPDATE audios SET status = ?, audio_url = ?, public_id = ?, error = NULL, updated_at = ?
		WHERE id = ? AND status = ?`
	return db.withRetry("finalize result", func() error {
		_, err := db.Exec(query, domain.StatusCompleted, audioURL, publicID, time.Now(), id, domain.StatusProcessing)
		return err
	})
}

// FailAudio records a terminal failure. Completed records never regress.
func (db *DB) FailAudio(id, errorMsg string) error {
	query := `UPDATE audios SET status = ?, error = ?, updated_at = ?
		WHERE id = ? AND status != ?`
	return db.withRetry("fail audio", func() error {
		_, err := db.Exec(query, domain.StatusFailed, errorMsg, time.Now(), id, domain.StatusCompleted)
		return err
	})
}

// RestartAudio reclaims a stuck or failed record for a fresh pipeline run,
// reusing the record id but superseding its tracking token.
func (db *DB) RestartAudio(id, trackingToken string) error {
	query := `UPDATE audios SET status = ?, error = NULL, audio_url = '', public_id = '',
		tracking_token = ?, updated_at = ?
		WHERE id = ? AND status != ?`
	return db.withRetry("restart audio", func() error {
		_, err := db.Exec(query, domain.StatusProcessing, trackingToken, time.Now(), id, domain.StatusCompleted)
		return err
	})
}

// IncrementDownloadCount is mutated only by the download-delivery path.
func (db *DB) IncrementDownloadCount(id string) error {
	query := `UPDATE audios SET download_count = download_count + 1, updated_at = ? WHERE id = ?`
	return db.withRetry("increment download count", func() error {
		_, err := db.Exec(query, time.Now(), id)
		return err
	})
}

func (db *DB) ListAudios(limit int) ([]*domain.Audio, error) {
	query := `SELECT ` + audioColumns + ` FROM audios ORDER BY created_at DESC LIMIT ?`

	var audios []*domain.Audio
	err := db.Select(&audios, query, limit)
	return audios, err
}

func (db *DB) ListActiveAudios() ([]*domain.Audio, error) {
	query := `SELECT ` + audioColumns + ` FROM audios
		WHERE status IN ('pending', 'processing') ORDER BY created_at ASC`

	var audios []*domain.Audio
	err := db.Select(&audios, query)
	return audios, err
}

type Stats struct {
	Total     int `db:"total" json:"total"`
	Completed int `db:"completed" json:"completed"`
	Failed    int `db:"failed" json:"failed"`
	Active    int `db:"active" json:"active"`
}

func (db *DB) GetStats() (*Stats, error) {
	query := `SELECT
		COUNT(*) as total,
		COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0) as completed,
		COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) as failed,
		COALESCE(SUM(CASE WHEN status IN ('pending', 'processing') THEN 1 ELSE 0 END), 0) as active
	FROM audios`

	stats := &Stats{}
	err := db.Get(stats, query)
	return stats, err
}
