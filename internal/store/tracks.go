package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cratekeeper/internal/domain"
)

func (db *DB) CreateTrack(track *domain.Track) error {
	track.Normalize()
	if track.ID == "" {
		track.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if track.CreatedAt.IsZero() {
		track.CreatedAt = now
	}
	track.UpdatedAt = now

	query := `INSERT INTO tracks (
		id, source_url, platform, platform_id,
		title, artist, album, genre,
		bpm, key_name, duration_sec, lufs, fingerprint,
		paths, eagle_id, notion_id,
		status, error, created_at, updated_at, completed_at
	) VALUES (
		:id, :source_url, :platform, :platform_id,
		:title, :artist, :album, :genre,
		:bpm, :key_name, :duration_sec, :lufs, :fingerprint,
		:paths, :eagle_id, :notion_id,
		:status, :error, :created_at, :updated_at, :completed_at
	)`

	if _, err := db.NamedExec(query, track); err != nil {
		return fmt.Errorf("failed to create track: %w", err)
	}
	return nil
}

// GetTrackBySourceURL returns nil without error when the URL has never been
// journaled, so the pre-download check reads as a plain miss.
func (db *DB) GetTrackBySourceURL(sourceURL string) (*domain.Track, error) {
	var track domain.Track
	err := db.Get(&track, `SELECT * FROM tracks WHERE source_url = ?`, sourceURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &track, nil
}

func (db *DB) GetTrackByID(id string) (*domain.Track, error) {
	var track domain.Track
	err := db.Get(&track, `SELECT * FROM tracks WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return &track, nil
}

func (db *DB) UpdateTrack(track *domain.Track) error {
	track.Normalize()
	track.UpdatedAt = time.Now().UTC()

	query := `UPDATE tracks SET
		source_url = :source_url, platform = :platform, platform_id = :platform_id,
		title = :title, artist = :artist, album = :album, genre = :genre,
		bpm = :bpm, key_name = :key_name, duration_sec = :duration_sec,
		lufs = :lufs, fingerprint = :fingerprint,
		paths = :paths, eagle_id = :eagle_id, notion_id = :notion_id,
		status = :status, error = :error,
		updated_at = :updated_at, completed_at = :completed_at
	WHERE id = :id`

	result, err := db.NamedExec(query, track)
	if err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("track %s not found", track.ID)
	}
	return nil
}

func (db *DB) ListRecentTracks(limit int) ([]*domain.Track, error) {
	if limit <= 0 {
		limit = 50
	}
	var tracks []*domain.Track
	err := db.Select(&tracks, `SELECT * FROM tracks ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return tracks, nil
}

func (db *DB) ListTracksByStatus(status domain.TrackStatus) ([]*domain.Track, error) {
	var tracks []*domain.Track
	err := db.Select(&tracks, `SELECT * FROM tracks WHERE status = ? ORDER BY updated_at DESC`, status)
	if err != nil {
		return nil, err
	}
	return tracks, nil
}

// ListTracksMissingFeatures returns completed tracks with no BPM or no
// usable key, feeding the library report.
func (db *DB) ListTracksMissingFeatures() ([]*domain.Track, error) {
	var tracks []*domain.Track
	err := db.Select(&tracks, `
		SELECT * FROM tracks
		WHERE status = ? AND (bpm = 0 OR key_name = '' OR key_name = 'Unknown')
		ORDER BY updated_at DESC`, domain.TrackStatusCompleted)
	if err != nil {
		return nil, err
	}
	return tracks, nil
}

func (db *DB) CountTracksByStatus() (map[domain.TrackStatus]int, error) {
	rows, err := db.Query(`SELECT status, COUNT(*) FROM tracks GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // deferred cleanup

	counts := make(map[domain.TrackStatus]int)
	for rows.Next() {
		var status domain.TrackStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
