package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chartwatch/internal/models"
	"github.com/desertthunder/chartwatch/internal/shared"
	"golang.org/x/time/rate"
)

// playlistPageSize is the fixed page size for playlist searches. The upstream
// API caps curated playlists well below this, so one page is always enough.
const playlistPageSize = 50

// ZvonkoService talks to the distributor's catalog and charts APIs. It
// implements [Catalog] and [Charts].
type ZvonkoService struct {
	cfg     shared.APIConfig
	tokens  TokenSource
	client  *http.Client
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewZvonkoService creates a service with a shared rate limiter applied to
// every outbound request.
func NewZvonkoService(cfg shared.APIConfig, tokens TokenSource, logger *log.Logger) *ZvonkoService {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5.0
	}

	return &ZvonkoService{
		cfg:     cfg,
		tokens:  tokens,
		client:  &http.Client{Timeout: cfg.Timeout()},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger,
	}
}

// getJSON performs a rate-limited, bearer-authorized GET and decodes the JSON
// response into out.
func (s *ZvonkoService) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d", shared.ErrAPIRequest, endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", shared.ErrAPIRequest, endpoint, err)
	}

	return nil
}

// AlbumByUPC looks the UPC up in the catalog and returns the first match.
func (s *ZvonkoService) AlbumByUPC(ctx context.Context, upc string) (*Album, error) {
	params := url.Values{"search": {upc}}

	var envelope struct {
		Albums []Album `json:"albums"`
	}
	if err := s.getJSON(ctx, s.cfg.AlbumURL, params, &envelope); err != nil {
		return nil, err
	}

	if len(envelope.Albums) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrAlbumNotFound, upc)
	}

	return &envelope.Albums[0], nil
}

// SearchPlacements queries every platform's curated playlists for the release
// and returns formatted placement lines. Platforms are queried concurrently;
// results keep the fixed platform order. A failing platform contributes
// nothing rather than failing the whole search.
func (s *ZvonkoService) SearchPlacements(ctx context.Context, artist, releaseTitle string, date time.Time) []string {
	perPlatform := make([][]string, len(Platforms))

	var wg sync.WaitGroup
	for i, platform := range Platforms {
		wg.Add(1)
		go func() {
			defer wg.Done()
			perPlatform[i] = s.platformPlacements(ctx, platform, artist, releaseTitle, date)
		}()
	}
	wg.Wait()

	var lines []string
	for _, batch := range perPlatform {
		lines = append(lines, batch...)
	}
	return lines
}

// platformPlacements fetches one platform's playlists and formats the entries
// that match the release.
func (s *ZvonkoService) platformPlacements(ctx context.Context, platform Platform, artist, releaseTitle string, date time.Time) []string {
	params := url.Values{
		"platform": {platform.Key},
		"date":     {date.Format(models.DateLayout)},
		"limit":    {fmt.Sprint(playlistPageSize)},
		"offset":   {"0"},
		"q":        {artist},
	}

	var envelope struct {
		Results []PlaylistEntry `json:"results"`
	}
	if err := s.getJSON(ctx, s.cfg.PlaylistURL, params, &envelope); err != nil {
		s.logger.Warn("playlist search failed", "platform", platform.Key, "err", err)
		return nil
	}

	var lines []string
	for _, entry := range envelope.Results {
		if entry.PlaylistName == "" || !entry.MatchesRelease(releaseTitle) {
			continue
		}
		lines = append(lines, formatPlacement(entry, platform))
	}

	s.logger.Debug("platform searched", "platform", platform.Key, "placements", len(lines))
	return lines
}

// formatPlacement renders one placement line. Entries without a chart position
// are labeled as editorial selections.
func formatPlacement(entry PlaylistEntry, platform Platform) string {
	if entry.Position != nil {
		return fmt.Sprintf("«%s» (%s) (позиция %d)", entry.PlaylistName, platform.Label, *entry.Position)
	}
	return fmt.Sprintf("«%s» (%s) (Плейлист подборка)", entry.PlaylistName, platform.Label)
}
