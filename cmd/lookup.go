package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/chartwatch/internal/formatter"
	"github.com/desertthunder/chartwatch/internal/models"
	"github.com/desertthunder/chartwatch/internal/shared"
	"github.com/urfave/cli/v3"
)

// Lookup checks the given UPC codes against curated playlists and prints a
// report.
func (r *Runner) Lookup(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	codes := formatter.ExtractUPCCodes(strings.Join(cmd.Args().Slice(), " "))
	if len(codes) == 0 {
		return fmt.Errorf("%w: at least one UPC code is required", shared.ErrMissingArgument)
	}

	db, owned, err := r.database()
	if err != nil {
		return err
	}
	if owned {
		defer db.Close()
	}

	engine, _ := r.engine(db)
	today := models.Today()

	r.logger.Info("looking up UPC codes", "count", len(codes))
	results := engine.ProcessUPCCodes(ctx, codes, today)

	if cmd.Bool("json") {
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
		return r.writeJSON(map[string]any{"hits": hits, "notes": notes}, cmd.Bool("pretty"))
	}

	return r.writePlain("%s\n", formatter.BuildReport(results))
}
