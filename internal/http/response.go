package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"cordforge-backend-go/internal/services"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Message: message})
}

// WriteServiceError surfaces service and store errors verbatim; anything
// unmapped becomes a generic 500 so internals never leak.
func WriteServiceError(w http.ResponseWriter, err error) {
	status := services.StatusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	var serr services.ServiceError
	if errors.As(err, &serr) {
		message = serr.Message
	}
	WriteError(w, status, message)
}
