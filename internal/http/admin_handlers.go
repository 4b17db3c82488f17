package httpapi

import (
	"net/http"

	"cordforge-backend-go/internal/models"

	"github.com/go-chi/chi/v5"
)

func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Store.ListUsers(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, map[string][]models.User{"items": users})
}

func (s *Server) ToggleUser(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.ToggleUserActive(r.Context(), chi.URLParam(r, "userId")); err != nil {
		WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.DeleteUser(r.Context(), chi.URLParam(r, "userId")); err != nil {
		WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) AllAnalyses(w http.ResponseWriter, r *http.Request) {
	items, err := s.Store.ListAnalyses(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, map[string][]models.AnalysisResult{"items": items})
}

func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Store.Stats(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

type HealthResponse struct {
	Database        bool `json:"database"`
	DatabaseHealthy bool `json:"databaseHealthy"`
	CustomModel     bool `json:"customModel"`
	AIFallback      bool `json:"aiFallback"`
}

// Health reports which backends are configured and probes the active store
// with a lightweight read. Computed per call; no caching.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Database:    s.Config.DatabaseConfigured(),
		CustomModel: s.Config.CustomModelConfigured(),
		AIFallback:  s.Config.AIConfigured(),
	}
	resp.DatabaseHealthy = s.Store.Ping(r.Context()) == nil
	WriteJSON(w, http.StatusOK, resp)
}
