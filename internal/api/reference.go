package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nyashahama/carefund-backend/internal/environment"
)

// ─── GET /api/reference/cities ───────────────────────────────────────────────

func (s *Server) handleListCities(w http.ResponseWriter, r *http.Request) {
	respondOK(w, s.catalog.Cities())
}

// ─── GET /api/reference/occupations ──────────────────────────────────────────

func (s *Server) handleListOccupations(w http.ResponseWriter, r *http.Request) {
	respondOK(w, s.catalog.Occupations())
}

// ─── GET /api/environment?city= ──────────────────────────────────────────────

// handleGetEnvironment returns the live-or-estimated snapshot for a supported
// city. Upstream outages never fail the request; only an unknown city does.
func (s *Server) handleGetEnvironment(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if city == "" {
		respondErr(w, http.StatusBadRequest, "Invalid city")
		return
	}

	reading, err := s.env.Lookup(r.Context(), city)
	if errors.Is(err, environment.ErrUnknownCity) {
		respondErr(w, http.StatusBadRequest, "Invalid city")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("environment lookup: %w", err))
		return
	}

	respondOK(w, reading)
}
