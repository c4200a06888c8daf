package models

import (
	"fmt"
	"time"
)

// DateLayout is the ISO-8601 calendar date format used for all persisted dates.
const DateLayout = "2006-01-02"

// InitialAttempts is the retry budget assigned to a freshly tracked UPC.
const InitialAttempts = 2

// CheckRecord is one row of scheduling state per UPC under active tracking.
//
// A record exists only while the UPC has neither produced a hit nor exhausted
// its retry budget nor passed the retention cutoff.
type CheckRecord struct {
	UPC               string
	Artist            string
	ReleaseTitle      string
	ReleaseDate       time.Time
	NextCheck         time.Time
	AttemptsRemaining int
}

// PlaylistHit describes a release found on at least one curated playlist.
type PlaylistHit struct {
	Artist       string    `json:"artist"`
	ReleaseTitle string    `json:"release_title"`
	WeekLabel    string    `json:"week_label"`
	ReleaseDate  time.Time `json:"-"`
	Playlists    []string  `json:"playlists"`
}

// HitRecord is a persisted PlaylistHit keyed by UPC.
type HitRecord struct {
	UPC     string
	Hit     PlaylistHit
	FoundAt time.Time
}

// LookupResult is the outcome of processing a single UPC: a hit, an
// explanatory note, or neither (silently rescheduled or abandoned).
type LookupResult struct {
	Hit  *PlaylistHit
	Note string
}

// WeekLabel formats the human label for the release's calendar week
// (Monday through Sunday).
func WeekLabel(releaseDate time.Time) string {
	offset := (int(releaseDate.Weekday()) + 6) % 7
	weekStart := releaseDate.AddDate(0, 0, -offset)
	weekEnd := weekStart.AddDate(0, 0, 6)
	return fmt.Sprintf("Неделя %s - %s", weekStart.Format("02.01"), weekEnd.Format("02.01"))
}

// Cutoff returns the retention cutoff for a release: releaseDate + 7 days.
// Tracking is abandoned once probing reaches this date.
func Cutoff(releaseDate time.Time) time.Time {
	return releaseDate.AddDate(0, 0, 7)
}

// ProbeDate computes the playlist query date: one week after release or
// today, whichever is earlier. Freshly released titles are not probed before
// playlists have had a chance to update.
func ProbeDate(releaseDate, today time.Time) time.Time {
	target := Cutoff(releaseDate)
	if target.After(today) {
		return today
	}
	return target
}

// Today returns the operator's current calendar date, normalized to midnight
// UTC like every other date in the system. Truncating the wall clock instead
// would yield the UTC day, which differs from the local one near midnight in
// zones behind UTC.
func Today() time.Time {
	y, m, d := time.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MinDate returns the earlier of two dates.
func MinDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// ParseDate parses an ISO calendar date, truncating any trailing time
// component the upstream API may append.
func ParseDate(raw string) (time.Time, error) {
	if len(raw) > len(DateLayout) {
		raw = raw[:len(DateLayout)]
	}
	return time.Parse(DateLayout, raw)
}
