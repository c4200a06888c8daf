// package formatter assembles human-readable reports and exports from lookup
// results and stored hits.
package formatter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/desertthunder/chartwatch/internal/models"
)

// EmptyReport is returned when a lookup produced no playlist placements.
const EmptyReport = "Плейлисты не найдены для переданных UPC."

// ExtractUPCCodes splits free-form input into UPC tokens. Commas, semicolons,
// and any whitespace separate tokens; duplicates keep their first position.
func ExtractUPCCodes(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})

	seen := make(map[string]bool, len(fields))
	var codes []string
	for _, field := range fields {
		if seen[field] {
			continue
		}
		seen[field] = true
		codes = append(codes, field)
	}

	return codes
}

// BuildReport renders lookup results as a message: hits grouped by release
// week, followed by any explanatory notes. Weeks appear in first-seen order.
func BuildReport(results []models.LookupResult) string {
	var hits []models.PlaylistHit
	var notes []string
	for _, result := range results {
		if result.Hit != nil {
			hits = append(hits, *result.Hit)
		}
		if result.Note != "" {
			notes = append(notes, result.Note)
		}
	}

	var sections []string
	if len(hits) == 0 {
		sections = append(sections, EmptyReport)
	} else {
		sections = append(sections, FormatHitGroups(hits))
	}
	if len(notes) > 0 {
		sections = append(sections, strings.Join(notes, "\n"))
	}

	return strings.Join(sections, "\n\n")
}

// FormatHitGroups renders hits grouped under week headers:
//
//	Неделя 26.02 - 03.03:
//	Artist - Title
//	«Новинки» (ВКонтакте) (позиция 3)
func FormatHitGroups(hits []models.PlaylistHit) string {
	var order []string
	groups := make(map[string][]models.PlaylistHit)
	for _, hit := range hits {
		if _, ok := groups[hit.WeekLabel]; !ok {
			order = append(order, hit.WeekLabel)
		}
		groups[hit.WeekLabel] = append(groups[hit.WeekLabel], hit)
	}

	var blocks []string
	for _, week := range order {
		var lines []string
		lines = append(lines, week+":")
		for _, hit := range groups[week] {
			lines = append(lines, fmt.Sprintf("%s - %s", hit.Artist, hit.ReleaseTitle))
			lines = append(lines, hit.Playlists...)
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	return strings.Join(blocks, "\n\n")
}

// FormatHitRecords renders stored hits the same way as a lookup report,
// falling back to the empty-report message.
func FormatHitRecords(records []models.HitRecord) string {
	if len(records) == 0 {
		return EmptyReport
	}

	hits := make([]models.PlaylistHit, len(records))
	for i, record := range records {
		hits[i] = record.Hit
	}
	return FormatHitGroups(hits)
}

// WriteCSV exports stored hits as CSV with one row per hit. Playlists are
// joined with "; " into a single column.
func WriteCSV(w io.Writer, records []models.HitRecord) error {
	writer := csv.NewWriter(w)

	header := []string{"upc", "artist", "release_title", "release_date", "week_label", "playlists", "found_at"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, record := range records {
		row := []string{
			record.UPC,
			record.Hit.Artist,
			record.Hit.ReleaseTitle,
			record.Hit.ReleaseDate.Format(models.DateLayout),
			record.Hit.WeekLabel,
			strings.Join(record.Hit.Playlists, "; "),
			record.FoundAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", record.UPC, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
