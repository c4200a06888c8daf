package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/desertthunder/chartwatch/internal/formatter"
	"github.com/desertthunder/chartwatch/internal/repositories"
	"github.com/urfave/cli/v3"
)

// Hits lists recorded playlist hits as a report, JSON, or CSV.
func (r *Runner) Hits(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	db, owned, err := r.database()
	if err != nil {
		return err
	}
	if owned {
		defer db.Close()
	}

	repo := repositories.NewCheckRepository(db)
	records, err := repo.ListHits(ctx)
	if err != nil {
		return fmt.Errorf("failed to list hits: %w", err)
	}

	out := r.output
	if path := cmd.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch {
	case cmd.Bool("csv"):
		return formatter.WriteCSV(out, records)
	case cmd.Bool("json"):
		type entry struct {
			UPC       string   `json:"upc"`
			Artist    string   `json:"artist"`
			Title     string   `json:"release_title"`
			Week      string   `json:"week_label"`
			Playlists []string `json:"playlists"`
		}
		entries := make([]entry, len(records))
		for i, record := range records {
			entries[i] = entry{
				UPC:       record.UPC,
				Artist:    record.Hit.Artist,
				Title:     record.Hit.ReleaseTitle,
				Week:      record.Hit.WeekLabel,
				Playlists: record.Hit.Playlists,
			}
		}
		return writeJSONTo(out, entries)
	default:
		if _, err := io.WriteString(out, formatter.FormatHitRecords(records)+"\n"); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
}
