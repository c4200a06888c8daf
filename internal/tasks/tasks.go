// package tasks contains the per-UPC reconciliation engine and the background
// check scheduler.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chartwatch/internal/models"
	"github.com/desertthunder/chartwatch/internal/repositories"
	"github.com/desertthunder/chartwatch/internal/services"
	"github.com/desertthunder/chartwatch/internal/shared"
)

// retryDelayDays is the reschedule distance after an empty probe.
const retryDelayDays = 7

// Engine decides, per UPC, whether a release has landed on curated playlists
// and maintains the scheduling state accordingly.
type Engine struct {
	catalog services.Catalog
	charts  services.Charts
	repo    *repositories.CheckRepository
	logger  *log.Logger
}

// NewEngine wires the reconciliation engine.
func NewEngine(catalog services.Catalog, charts services.Charts, repo *repositories.CheckRepository, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{catalog: catalog, charts: charts, repo: repo, logger: logger}
}

// ProcessUPC runs one reconciliation pass for a single UPC as of the given
// date. The result is a playlist hit, an explanatory note, or neither when
// the UPC was silently rescheduled or abandoned.
func (e *Engine) ProcessUPC(ctx context.Context, upc string, today time.Time) (models.LookupResult, error) {
	album, err := e.catalog.AlbumByUPC(ctx, upc)
	if errors.Is(err, shared.ErrAlbumNotFound) || errors.Is(err, shared.ErrAPIRequest) {
		// A catalog transport failure reads the same as a missing album to the
		// caller; the UPC can simply be resubmitted.
		if errors.Is(err, shared.ErrAPIRequest) {
			e.logger.Warn("album lookup failed", "upc", upc, "err", err)
		}
		return models.LookupResult{Note: fmt.Sprintf("%s: альбом не найден", upc)}, nil
	}
	if err != nil {
		return models.LookupResult{}, err
	}

	release, ok := album.SalesStart()
	if !ok {
		return models.LookupResult{Note: fmt.Sprintf("%s: нет даты начала продаж", upc)}, nil
	}

	artist := album.Artist()
	title := album.DisplayTitle()

	tracked, err := e.repo.Get(ctx, upc)
	if err != nil {
		return models.LookupResult{}, err
	}
	if tracked == nil {
		check := models.CheckRecord{
			UPC:               upc,
			Artist:            artist,
			ReleaseTitle:      title,
			ReleaseDate:       release,
			NextCheck:         today,
			AttemptsRemaining: models.InitialAttempts,
		}

		// First sighting of an unreleased UPC: schedule the first check for
		// the release date and stop, no playlist probing yet.
		if release.After(today) {
			check.NextCheck = release
			if err := e.repo.Upsert(ctx, check); err != nil {
				return models.LookupResult{}, err
			}

			e.logger.Info("release not out yet, scheduled", "upc", upc, "release", release.Format(models.DateLayout))
			note := fmt.Sprintf("%s: релиз ещё не вышел, проверка запланирована на %s", upc, release.Format("02.01.2006"))
			return models.LookupResult{Note: note}, nil
		}

		// First sighting of a released UPC: start tracking and probe in the
		// same call rather than waiting for the next scheduler tick.
		if err := e.repo.Upsert(ctx, check); err != nil {
			return models.LookupResult{}, err
		}
		tracked = &check
	}

	probe := models.ProbeDate(release, today)
	placements := e.charts.SearchPlacements(ctx, artist, title, probe)

	if len(placements) > 0 {
		hit := models.PlaylistHit{
			Artist:       artist,
			ReleaseTitle: title,
			WeekLabel:    models.WeekLabel(release),
			ReleaseDate:  release,
			Playlists:    placements,
		}
		if err := e.repo.RecordHit(ctx, upc, hit, time.Now()); err != nil {
			return models.LookupResult{}, err
		}
		if err := e.repo.Delete(ctx, upc); err != nil {
			return models.LookupResult{}, err
		}

		e.logger.Info("playlist hit recorded", "upc", upc, "placements", len(placements))
		return models.LookupResult{Hit: &hit}, nil
	}

	// Nothing found and the retention window is over: stop tracking silently.
	if !probe.Before(models.Cutoff(release)) {
		if err := e.repo.Delete(ctx, upc); err != nil {
			return models.LookupResult{}, err
		}
		e.logger.Info("retention window passed, tracking abandoned", "upc", upc)
		return models.LookupResult{}, nil
	}

	if tracked.AttemptsRemaining <= 0 {
		if err := e.repo.Delete(ctx, upc); err != nil {
			return models.LookupResult{}, err
		}
		e.logger.Info("retry budget exhausted, tracking abandoned", "upc", upc)
		return models.LookupResult{}, nil
	}

	check := models.CheckRecord{
		UPC:               upc,
		Artist:            artist,
		ReleaseTitle:      title,
		ReleaseDate:       release,
		NextCheck:         models.MinDate(models.Cutoff(release), today.AddDate(0, 0, retryDelayDays)),
		AttemptsRemaining: tracked.AttemptsRemaining - 1,
	}
	if err := e.repo.Upsert(ctx, check); err != nil {
		return models.LookupResult{}, err
	}

	e.logger.Info("no placements yet, rescheduled", "upc", upc,
		"next", check.NextCheck.Format(models.DateLayout), "attempts", check.AttemptsRemaining)
	return models.LookupResult{}, nil
}

// ProcessUPCCodes reconciles a batch of UPC codes concurrently. Results keep
// the input order; a per-UPC failure becomes a note rather than failing the
// batch.
func (e *Engine) ProcessUPCCodes(ctx context.Context, codes []string, today time.Time) []models.LookupResult {
	batch := shared.GenerateID()
	e.logger.Info("processing batch", "batch", batch, "codes", len(codes))

	results := make([]models.LookupResult, len(codes))

	var wg sync.WaitGroup
	for i, upc := range codes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := e.ProcessUPC(ctx, upc, today)
			if err != nil {
				e.logger.Error("failed to process UPC", "batch", batch, "upc", upc, "err", err)
				result = models.LookupResult{Note: fmt.Sprintf("%s: ошибка проверки", upc)}
			}
			results[i] = result
		}()
	}
	wg.Wait()

	return results
}
