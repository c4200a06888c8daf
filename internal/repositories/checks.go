// package repositories implements SQLite persistence for tracking state and
// recorded playlist hits.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/chartwatch/internal/models"
)

// CheckRepository persists per-UPC scheduling state and playlist hits.
type CheckRepository struct {
	db *sql.DB
}

// NewCheckRepository creates a repository backed by the given database.
func NewCheckRepository(db *sql.DB) *CheckRepository {
	return &CheckRepository{db: db}
}

// Upsert inserts or replaces the scheduling state for a UPC.
func (r *CheckRepository) Upsert(ctx context.Context, check models.CheckRecord) error {
	query := `INSERT INTO upc_checks (upc, artist, release_title, release_date, next_check, attempts_remaining)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(upc) DO UPDATE SET
			artist = excluded.artist,
			release_title = excluded.release_title,
			release_date = excluded.release_date,
			next_check = excluded.next_check,
			attempts_remaining = excluded.attempts_remaining`

	_, err := r.db.ExecContext(ctx, query,
		check.UPC,
		check.Artist,
		check.ReleaseTitle,
		check.ReleaseDate.Format(models.DateLayout),
		check.NextCheck.Format(models.DateLayout),
		check.AttemptsRemaining,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert check for %s: %w", check.UPC, err)
	}

	return nil
}

// Get returns the scheduling state for a UPC, or nil when the UPC is not
// under tracking.
func (r *CheckRepository) Get(ctx context.Context, upc string) (*models.CheckRecord, error) {
	query := `SELECT upc, artist, release_title, release_date, next_check, attempts_remaining
		FROM upc_checks WHERE upc = ?`

	var check models.CheckRecord
	var releaseDate, nextCheck string

	err := r.db.QueryRowContext(ctx, query, upc).Scan(
		&check.UPC,
		&check.Artist,
		&check.ReleaseTitle,
		&releaseDate,
		&nextCheck,
		&check.AttemptsRemaining,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get check for %s: %w", upc, err)
	}

	if check.ReleaseDate, err = models.ParseDate(releaseDate); err != nil {
		return nil, fmt.Errorf("corrupt release date for %s: %w", upc, err)
	}
	if check.NextCheck, err = models.ParseDate(nextCheck); err != nil {
		return nil, fmt.Errorf("corrupt next check date for %s: %w", upc, err)
	}

	return &check, nil
}

// Delete removes the scheduling state for a UPC. Deleting an untracked UPC is
// a no-op.
func (r *CheckRepository) Delete(ctx context.Context, upc string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM upc_checks WHERE upc = ?`, upc); err != nil {
		return fmt.Errorf("failed to delete check for %s: %w", upc, err)
	}
	return nil
}

// Due returns every tracked UPC whose next check date has arrived, ordered by
// next check date then UPC for stable processing.
func (r *CheckRepository) Due(ctx context.Context, today time.Time) ([]models.CheckRecord, error) {
	query := `SELECT upc, artist, release_title, release_date, next_check, attempts_remaining
		FROM upc_checks WHERE next_check <= ? ORDER BY next_check, upc`

	rows, err := r.db.QueryContext(ctx, query, today.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query due checks: %w", err)
	}
	defer rows.Close()

	var checks []models.CheckRecord
	for rows.Next() {
		var check models.CheckRecord
		var releaseDate, nextCheck string

		if err := rows.Scan(&check.UPC, &check.Artist, &check.ReleaseTitle, &releaseDate, &nextCheck, &check.AttemptsRemaining); err != nil {
			return nil, fmt.Errorf("failed to scan due check: %w", err)
		}
		if check.ReleaseDate, err = models.ParseDate(releaseDate); err != nil {
			return nil, fmt.Errorf("corrupt release date for %s: %w", check.UPC, err)
		}
		if check.NextCheck, err = models.ParseDate(nextCheck); err != nil {
			return nil, fmt.Errorf("corrupt next check date for %s: %w", check.UPC, err)
		}

		checks = append(checks, check)
	}

	return checks, rows.Err()
}

// RecordHit stores a playlist hit for a UPC, replacing any earlier hit.
func (r *CheckRepository) RecordHit(ctx context.Context, upc string, hit models.PlaylistHit, foundAt time.Time) error {
	playlists, err := json.Marshal(hit.Playlists)
	if err != nil {
		return fmt.Errorf("failed to encode playlists for %s: %w", upc, err)
	}

	query := `INSERT INTO playlist_hits (upc, artist, release_title, release_date, week_label, playlists, found_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(upc) DO UPDATE SET
			artist = excluded.artist,
			release_title = excluded.release_title,
			release_date = excluded.release_date,
			week_label = excluded.week_label,
			playlists = excluded.playlists,
			found_at = excluded.found_at`

	_, err = r.db.ExecContext(ctx, query,
		upc,
		hit.Artist,
		hit.ReleaseTitle,
		hit.ReleaseDate.Format(models.DateLayout),
		hit.WeekLabel,
		string(playlists),
		foundAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record hit for %s: %w", upc, err)
	}

	return nil
}

// ListHits returns every recorded hit, newest releases first, ties broken by
// artist name.
func (r *CheckRepository) ListHits(ctx context.Context) ([]models.HitRecord, error) {
	query := `SELECT upc, artist, release_title, release_date, week_label, playlists, found_at
		FROM playlist_hits ORDER BY release_date DESC, artist`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query hits: %w", err)
	}
	defer rows.Close()

	var hits []models.HitRecord
	for rows.Next() {
		var record models.HitRecord
		var releaseDate, playlists, foundAt string

		if err := rows.Scan(&record.UPC, &record.Hit.Artist, &record.Hit.ReleaseTitle, &releaseDate, &record.Hit.WeekLabel, &playlists, &foundAt); err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}
		if record.Hit.ReleaseDate, err = models.ParseDate(releaseDate); err != nil {
			return nil, fmt.Errorf("corrupt release date for %s: %w", record.UPC, err)
		}
		if err := json.Unmarshal([]byte(playlists), &record.Hit.Playlists); err != nil {
			return nil, fmt.Errorf("corrupt playlists for %s: %w", record.UPC, err)
		}
		if record.FoundAt, err = time.Parse(time.RFC3339, foundAt); err != nil {
			return nil, fmt.Errorf("corrupt found_at for %s: %w", record.UPC, err)
		}

		hits = append(hits, record)
	}

	return hits, rows.Err()
}
