// package services defines clients for the distributor's HTTP APIs
//
// Catalog (album lookup by UPC) and Charts (curated playlist search)
package services

import (
	"context"
	"strings"
	"time"

	"github.com/desertthunder/chartwatch/internal/models"
	"golang.org/x/text/cases"
)

// TokenSource supplies a valid bearer token for outbound API calls.
// Implemented by auth.TokenManager.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Catalog resolves UPC codes to album records.
type Catalog interface {
	// AlbumByUPC returns the first album matching the UPC, or an error
	// wrapping shared.ErrAlbumNotFound when the catalog has no match.
	AlbumByUPC(ctx context.Context, upc string) (*Album, error)
}

// Charts searches curated playlists for a release across all platforms.
type Charts interface {
	// SearchPlacements returns formatted placement lines for every platform
	// playlist containing the release on the given date. Platform failures
	// degrade to zero results and are never surfaced as errors.
	SearchPlacements(ctx context.Context, artist, releaseTitle string, date time.Time) []string
}

// Platform is one statically configured streaming platform.
type Platform struct {
	Key   string // query parameter value
	Label string // human-readable name used in placement lines
}

// Platforms enumerates the four supported streaming platforms. All four are
// always queried regardless of prior results.
var Platforms = []Platform{
	{Key: "vk", Label: "ВКонтакте"},
	{Key: "yandex", Label: "Яндекс Музыка"},
	{Key: "mts", Label: "МТС Музыка"},
	{Key: "zvooq", Label: "Звук"},
}

// Album represents one entry of the catalog API's albums list. All fields are
// optional on the wire; accessors below apply the documented fallbacks.
type Album struct {
	ArtistName     string `json:"artist_name"`
	AlbumName      string `json:"album_name"`
	Title          string `json:"title"`
	Name           string `json:"name"`
	ReleaseTitle   string `json:"release_title"`
	SalesStartDate string `json:"sales_start_date"`
	ReleaseDate    string `json:"release_date"`
}

// titleFields is the fixed preference order for extracting a release title,
// evaluated first-match-wins.
var titleFields = []func(Album) string{
	func(a Album) string { return a.AlbumName },
	func(a Album) string { return a.Title },
	func(a Album) string { return a.Name },
	func(a Album) string { return a.ReleaseTitle },
}

// DisplayTitle returns the release title, defaulting to a generic label when
// all candidate fields are absent.
func (a Album) DisplayTitle() string {
	for _, field := range titleFields {
		if v := field(a); v != "" {
			return v
		}
	}
	return "Релиз"
}

// Artist returns the artist name, defaulting to an "unknown artist" label.
func (a Album) Artist() string {
	if a.ArtistName == "" {
		return "Неизвестный исполнитель"
	}
	return a.ArtistName
}

// SalesStart returns the release's sales-start date. The second return value
// is false when the catalog carries no usable date.
func (a Album) SalesStart() (time.Time, bool) {
	raw := a.SalesStartDate
	if raw == "" {
		raw = a.ReleaseDate
	}
	if raw == "" {
		return time.Time{}, false
	}

	date, err := models.ParseDate(raw)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

// PlaylistEntry represents one entry of the playlist search results list.
type PlaylistEntry struct {
	PlaylistName string `json:"playlist_name"`
	TrackName    string `json:"track_name"`
	AlbumName    string `json:"album_name"`
	Position     *int   `json:"position"`
}

// MatchesRelease reports whether this entry belongs to the release: the
// case-folded release title must appear as a substring of the entry's track
// or album name. Full Unicode folding, so titles with ß or dotted I still
// match their upper-cased playlist entries.
func (e PlaylistEntry) MatchesRelease(releaseTitle string) bool {
	// A Caser is stateful and must not be shared across goroutines.
	fold := cases.Fold()
	title := fold.String(releaseTitle)
	return strings.Contains(fold.String(e.TrackName), title) ||
		strings.Contains(fold.String(e.AlbumName), title)
}
