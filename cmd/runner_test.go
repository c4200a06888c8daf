package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/chartwatch/internal/models"
	"github.com/desertthunder/chartwatch/internal/repositories"
	"github.com/desertthunder/chartwatch/internal/services"
	"github.com/desertthunder/chartwatch/internal/shared"
	tu "github.com/desertthunder/chartwatch/internal/testing"
	"github.com/urfave/cli/v3"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			catalog := &tu.MockCatalog{}
			charts := &tu.MockCharts{}

			runner := NewRunner(RunnerOpts{
				Config:  config,
				Logger:  logger,
				Output:  output,
				Catalog: catalog,
				Charts:  charts,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.catalog != catalog {
				t.Error("expected catalog to be set")
			}
			if runner.charts != charts {
				t.Error("expected charts to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})
	})
}

// runCommand executes a CLI command tree rooted at the runner's registered
// commands.
func runCommand(t *testing.T, r *Runner, args ...string) error {
	t.Helper()

	app := &cli.Command{Name: "chartwatch", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"chartwatch"}, args...))
}

func newTestRunner(t *testing.T, catalog services.Catalog, charts services.Charts) (*Runner, *bytes.Buffer, *repositories.CheckRepository) {
	t.Helper()

	db := tu.NewTestDB(t)
	output := &bytes.Buffer{}

	runner := NewRunner(RunnerOpts{
		Config:  shared.DefaultConfig(),
		Catalog: catalog,
		Charts:  charts,
		DB:      db,
		Logger:  shared.NewLogger(nil),
		Output:  output,
	})

	return runner, output, repositories.NewCheckRepository(db)
}

func TestLookupCommand(t *testing.T) {
	t.Run("Prints Report For Hit", func(t *testing.T) {
		catalog := &tu.MockCatalog{Albums: map[string]services.Album{
			"111": {ArtistName: "Artist", AlbumName: "Album", SalesStartDate: "2020-01-01"},
		}}
		charts := &tu.MockCharts{Placements: []string{"«Новинки» (ВКонтакте) (позиция 3)"}}
		runner, output, _ := newTestRunner(t, catalog, charts)

		if err := runCommand(t, runner, "lookup", "111"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		got := output.String()
		if !strings.Contains(got, "Artist - Album") {
			t.Errorf("expected report with hit line, got %q", got)
		}
		if !strings.Contains(got, "«Новинки» (ВКонтакте) (позиция 3)") {
			t.Errorf("expected placement line, got %q", got)
		}
	})

	t.Run("JSON Output", func(t *testing.T) {
		catalog := &tu.MockCatalog{}
		runner, output, _ := newTestRunner(t, catalog, &tu.MockCharts{})

		if err := runCommand(t, runner, "lookup", "--json", "missing"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var payload struct {
			Notes []string `json:"notes"`
		}
		if err := json.Unmarshal(output.Bytes(), &payload); err != nil {
			t.Fatalf("failed to decode output: %v", err)
		}
		if len(payload.Notes) != 1 || payload.Notes[0] != "missing: альбом не найден" {
			t.Errorf("unexpected notes %v", payload.Notes)
		}
	})

	t.Run("Requires UPC Codes", func(t *testing.T) {
		runner, _, _ := newTestRunner(t, &tu.MockCatalog{}, &tu.MockCharts{})

		if err := runCommand(t, runner, "lookup"); err == nil {
			t.Error("expected error for missing arguments")
		}
	})
}

func TestHitsCommand(t *testing.T) {
	seed := func(t *testing.T, repo *repositories.CheckRepository) {
		t.Helper()
		hit := models.PlaylistHit{
			Artist:       "Artist",
			ReleaseTitle: "Title",
			WeekLabel:    "Неделя 26.02 - 03.03",
			ReleaseDate:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Playlists:    []string{"line-1"},
		}
		if err := repo.RecordHit(context.Background(), "111", hit, time.Now()); err != nil {
			t.Fatalf("failed to seed hit: %v", err)
		}
	}

	t.Run("Plain Report", func(t *testing.T) {
		runner, output, repo := newTestRunner(t, &tu.MockCatalog{}, &tu.MockCharts{})
		seed(t, repo)

		if err := runCommand(t, runner, "hits"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Неделя 26.02 - 03.03:") {
			t.Errorf("expected week header, got %q", output.String())
		}
	})

	t.Run("Empty Store Prints Fallback", func(t *testing.T) {
		runner, output, _ := newTestRunner(t, &tu.MockCatalog{}, &tu.MockCharts{})

		if err := runCommand(t, runner, "hits"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Плейлисты не найдены") {
			t.Errorf("expected fallback message, got %q", output.String())
		}
	})

	t.Run("CSV Output", func(t *testing.T) {
		runner, output, repo := newTestRunner(t, &tu.MockCatalog{}, &tu.MockCharts{})
		seed(t, repo)

		if err := runCommand(t, runner, "hits", "--csv"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		lines := strings.Split(strings.TrimSpace(output.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected header and one row, got %d lines", len(lines))
		}
		if !strings.HasPrefix(lines[1], "111,Artist,Title") {
			t.Errorf("unexpected CSV row %q", lines[1])
		}
	})
}
