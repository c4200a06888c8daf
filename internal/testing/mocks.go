// package testing provides shared test doubles for the catalog and charts
// clients plus database helpers.
package testing

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/desertthunder/chartwatch/internal/services"
	"github.com/desertthunder/chartwatch/internal/shared"
)

// MockCatalog implements [services.Catalog] over a fixed album map.
type MockCatalog struct {
	Albums map[string]services.Album
	Err    error

	// Requested records every UPC looked up, in call order.
	Requested []string
}

func (m *MockCatalog) AlbumByUPC(ctx context.Context, upc string) (*services.Album, error) {
	m.Requested = append(m.Requested, upc)
	if m.Err != nil {
		return nil, m.Err
	}
	album, ok := m.Albums[upc]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrAlbumNotFound, upc)
	}
	return &album, nil
}

// MockCharts implements [services.Charts] with canned placements.
type MockCharts struct {
	Placements []string

	// LastDate records the probe date of the most recent search.
	LastDate time.Time
}

func (m *MockCharts) SearchPlacements(ctx context.Context, artist, releaseTitle string, date time.Time) []string {
	m.LastDate = date
	return m.Placements
}

// MockTokenSource implements [services.TokenSource] with a static token.
type MockTokenSource struct {
	Token string
	Err   error
}

func (m *MockTokenSource) AccessToken(ctx context.Context) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Token, nil
}

// NewTestDB opens a migrated in-memory database limited to a single
// connection.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// One connection only: every in-memory connection is its own database.
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}
