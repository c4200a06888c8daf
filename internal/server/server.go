// package server exposes the lookup and hits API over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chartwatch/internal/formatter"
	"github.com/desertthunder/chartwatch/internal/models"
	"github.com/desertthunder/chartwatch/internal/repositories"
	"github.com/desertthunder/chartwatch/internal/shared"
	"github.com/desertthunder/chartwatch/internal/tasks"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server handles the JSON API around the reconciliation engine.
type Server struct {
	engine *tasks.Engine
	repo   *repositories.CheckRepository
	logger *log.Logger
}

// New creates an API server.
func New(engine *tasks.Engine, repo *repositories.CheckRepository, logger *log.Logger) *Server {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Server{engine: engine, repo: repo, logger: logger}
}

// Routes builds the HTTP router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/lookup", s.handleLookup)
		r.Get("/hits", s.handleHits)
	})

	return r
}

type lookupRequest struct {
	UPCs []string `json:"upcs"`
}

type lookupResponse struct {
	Hits   []models.PlaylistHit `json:"hits"`
	Notes  []string             `json:"notes"`
	Report string               `json:"report"`
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.UPCs) == 0 {
		s.writeError(w, http.StatusBadRequest, "upcs must not be empty")
		return
	}

	today := models.Today()
	results := s.engine.ProcessUPCCodes(r.Context(), req.UPCs, today)

	resp := lookupResponse{Hits: []models.PlaylistHit{}, Notes: []string{}}
	for _, result := range results {
		if result.Hit != nil {
			resp.Hits = append(resp.Hits, *result.Hit)
		}
		if result.Note != "" {
			resp.Notes = append(resp.Notes, result.Note)
		}
	}
	resp.Report = formatter.BuildReport(results)

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHits(w http.ResponseWriter, r *http.Request) {
	records, err := s.repo.ListHits(r.Context())
	if err != nil {
		s.logger.Error("failed to list hits", "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list hits")
		return
	}

	type hitEntry struct {
		UPC string `json:"upc"`
		models.PlaylistHit
		ReleaseDate string `json:"release_date"`
		FoundAt     string `json:"found_at"`
	}

	entries := make([]hitEntry, len(records))
	for i, record := range records {
		entries[i] = hitEntry{
			UPC:         record.UPC,
			PlaylistHit: record.Hit,
			ReleaseDate: record.Hit.ReleaseDate.Format(models.DateLayout),
			FoundAt:     record.FoundAt.UTC().Format(time.RFC3339),
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"hits": entries})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
