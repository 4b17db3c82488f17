package httpapi

import (
	"encoding/json"
	"net/http"

	"cordforge-backend-go/internal/models"

	"github.com/go-chi/chi/v5"
)

type AnalysisRequest struct {
	Text               string `json:"text"`
	Image              string `json:"image,omitempty"`
	RunOCR             bool   `json:"runOcr"`
	RunObjectDetection bool   `json:"runObjectDetection"`
}

func (s *Server) CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	result, err := s.Analysis.Submit(r.Context(), CurrentUserID(r), req.Text, req.Image, req.RunOCR, req.RunObjectDetection)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) MyAnalyses(w http.ResponseWriter, r *http.Request) {
	items, err := s.Store.ListAnalysesForUser(r.Context(), CurrentUserID(r))
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, map[string][]models.AnalysisResult{"items": items})
}

// DeleteAnalysis removes one record; regular users may only delete their
// own, administrators may delete any.
func (s *Server) DeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	analysisID := chi.URLParam(r, "analysisId")
	if CurrentRole(r) != models.RoleAdmin {
		owned, err := s.Store.ListAnalysesForUser(r.Context(), CurrentUserID(r))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		mine := false
		for _, item := range owned {
			if item.ID == analysisID {
				mine = true
				break
			}
		}
		if !mine {
			WriteError(w, http.StatusForbidden, "Not allowed")
			return
		}
	}
	if err := s.Store.DeleteAnalysis(r.Context(), analysisID); err != nil {
		WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
