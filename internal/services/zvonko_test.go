package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/chartwatch/internal/shared"
)

type staticTokens struct{}

func (staticTokens) AccessToken(ctx context.Context) (string, error) {
	return "test-token", nil
}

func newTestService(t *testing.T, handler http.Handler) *ZvonkoService {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := shared.APIConfig{
		AlbumURL:          server.URL + "/api/albums_list",
		PlaylistURL:       server.URL + "/playlists/",
		RequestsPerSecond: 1000,
	}

	return NewZvonkoService(cfg, staticTokens{}, shared.NewLogger(nil))
}

func TestAlbumByUPC(t *testing.T) {
	t.Run("Returns First Match", func(t *testing.T) {
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("search"); got != "123456789" {
				t.Errorf("expected search=123456789, got %s", got)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
				t.Errorf("expected bearer header, got %s", got)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"albums": []map[string]any{
					{"artist_name": "Artist", "album_name": "First", "sales_start_date": "2024-03-01"},
					{"artist_name": "Other", "album_name": "Second"},
				},
			})
		}))

		album, err := svc.AlbumByUPC(context.Background(), "123456789")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if album.AlbumName != "First" {
			t.Errorf("expected first album, got %s", album.AlbumName)
		}
	})

	t.Run("Empty List Is Not Found", func(t *testing.T) {
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"albums": []any{}})
		}))

		_, err := svc.AlbumByUPC(context.Background(), "000")
		if !errors.Is(err, shared.ErrAlbumNotFound) {
			t.Errorf("expected ErrAlbumNotFound, got %v", err)
		}
	})

	t.Run("Upstream Error Surfaces", func(t *testing.T) {
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))

		_, err := svc.AlbumByUPC(context.Background(), "000")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestAlbumAccessors(t *testing.T) {
	t.Run("Display Title Preference Order", func(t *testing.T) {
		tc := []struct {
			name  string
			album Album
			want  string
		}{
			{"album name wins", Album{AlbumName: "A", Title: "B", Name: "C", ReleaseTitle: "D"}, "A"},
			{"title second", Album{Title: "B", Name: "C", ReleaseTitle: "D"}, "B"},
			{"name third", Album{Name: "C", ReleaseTitle: "D"}, "C"},
			{"release title last", Album{ReleaseTitle: "D"}, "D"},
			{"all empty", Album{}, "Релиз"},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				if got := tt.album.DisplayTitle(); got != tt.want {
					t.Errorf("DisplayTitle() = %v, want %v", got, tt.want)
				}
			})
		}
	})

	t.Run("Artist Fallback", func(t *testing.T) {
		if got := (Album{}).Artist(); got != "Неизвестный исполнитель" {
			t.Errorf("expected fallback artist, got %s", got)
		}
		if got := (Album{ArtistName: "X"}).Artist(); got != "X" {
			t.Errorf("expected X, got %s", got)
		}
	})

	t.Run("Sales Start Parsing", func(t *testing.T) {
		tc := []struct {
			name  string
			album Album
			want  string
			ok    bool
		}{
			{"sales start date", Album{SalesStartDate: "2024-03-01"}, "2024-03-01", true},
			{"timestamp truncated", Album{SalesStartDate: "2024-03-01T10:00:00Z"}, "2024-03-01", true},
			{"release date fallback", Album{ReleaseDate: "2024-04-02"}, "2024-04-02", true},
			{"no date", Album{}, "", false},
			{"garbage", Album{SalesStartDate: "not-a-date"}, "", false},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				date, ok := tt.album.SalesStart()
				if ok != tt.ok {
					t.Fatalf("SalesStart() ok = %v, want %v", ok, tt.ok)
				}
				if ok && date.Format("2006-01-02") != tt.want {
					t.Errorf("SalesStart() = %v, want %v", date, tt.want)
				}
			})
		}
	})
}

func TestSearchPlacements(t *testing.T) {
	position := func(n int) *int { return &n }

	t.Run("Formats And Orders By Platform", func(t *testing.T) {
		var mu sync.Mutex
		queried := map[string]bool{}

		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			platform := r.URL.Query().Get("platform")
			mu.Lock()
			queried[platform] = true
			mu.Unlock()

			if got := r.URL.Query().Get("q"); got != "Artist" {
				t.Errorf("expected q=Artist, got %s", got)
			}
			if got := r.URL.Query().Get("date"); got != "2024-03-01" {
				t.Errorf("expected date=2024-03-01, got %s", got)
			}

			results := map[string][]PlaylistEntry{
				"vk":     {{PlaylistName: "Новинки", TrackName: "My Song", Position: position(3)}},
				"yandex": {},
				"mts":    {{PlaylistName: "Подборка", AlbumName: "my song deluxe"}},
				"zvooq":  {{PlaylistName: "Хиты", TrackName: "My Song", Position: position(1)}},
			}
			json.NewEncoder(w).Encode(map[string]any{"results": results[platform]})
		}))

		date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		lines := svc.SearchPlacements(context.Background(), "Artist", "My Song", date)

		want := []string{
			"«Новинки» (ВКонтакте) (позиция 3)",
			"«Подборка» (МТС Музыка) (Плейлист подборка)",
			"«Хиты» (Звук) (позиция 1)",
		}
		if len(lines) != len(want) {
			t.Fatalf("expected %d lines, got %d: %v", len(want), len(lines), lines)
		}
		for i, line := range want {
			if lines[i] != line {
				t.Errorf("line %d = %q, want %q", i, lines[i], line)
			}
		}

		for _, platform := range Platforms {
			if !queried[platform.Key] {
				t.Errorf("platform %s was never queried", platform.Key)
			}
		}
	})

	t.Run("Skips Unnamed Playlists And Mismatches", func(t *testing.T) {
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"results": []PlaylistEntry{
				{PlaylistName: "", TrackName: "My Song"},
				{PlaylistName: "Другое", TrackName: "Unrelated"},
			}})
		}))

		date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		if lines := svc.SearchPlacements(context.Background(), "Artist", "My Song", date); len(lines) != 0 {
			t.Errorf("expected no placements, got %v", lines)
		}
	})

	t.Run("Platform Failure Degrades To Empty", func(t *testing.T) {
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("platform") == "vk" {
				http.Error(w, "down", http.StatusBadGateway)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"results": []PlaylistEntry{
				{PlaylistName: "Хиты", TrackName: "My Song", Position: position(2)},
			}})
		}))

		date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		lines := svc.SearchPlacements(context.Background(), "Artist", "My Song", date)
		if len(lines) != 3 {
			t.Fatalf("expected 3 lines from surviving platforms, got %d", len(lines))
		}
		for i, line := range lines {
			if line != fmt.Sprintf("«Хиты» (%s) (позиция 2)", []string{"Яндекс Музыка", "МТС Музыка", "Звук"}[i]) {
				t.Errorf("unexpected line %d: %q", i, line)
			}
		}
	})
}

func TestMatchesRelease(t *testing.T) {
	tc := []struct {
		name  string
		entry PlaylistEntry
		title string
		want  bool
	}{
		{"track name match", PlaylistEntry{TrackName: "My Song (Remix)"}, "my song", true},
		{"album name match", PlaylistEntry{AlbumName: "MY SONG"}, "My Song", true},
		{"full fold sharp s", PlaylistEntry{TrackName: "GROSSE FREIHEIT"}, "Große Freiheit", true},
		{"full fold dotted capital i", PlaylistEntry{AlbumName: "\u0130STANBUL"}, "i\u0307stanbul", true},
		{"no match", PlaylistEntry{TrackName: "Other", AlbumName: "Other"}, "My Song", false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.MatchesRelease(tt.title); got != tt.want {
				t.Errorf("MatchesRelease() = %v, want %v", got, tt.want)
			}
		})
	}
}
