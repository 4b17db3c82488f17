package services

import (
	"errors"
	"net/http"

	"cordforge-backend-go/internal/inference"
	"cordforge-backend-go/internal/store"
)

type ServiceError struct {
	Status  int
	Message string
}

func (e ServiceError) Error() string {
	return e.Message
}

func ErrBadRequest(msg string) error {
	return ServiceError{Status: http.StatusBadRequest, Message: msg}
}

// StatusForError maps store sentinel errors onto HTTP statuses. Unmapped
// errors are internal.
func StatusForError(err error) int {
	var serr ServiceError
	if errors.As(err, &serr) {
		return serr.Status
	}
	switch {
	case errors.Is(err, store.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrAccountDeactivated):
		return http.StatusForbidden
	case errors.Is(err, store.ErrDuplicateEmail),
		errors.Is(err, store.ErrDuplicateUsername),
		errors.Is(err, store.ErrProfileCreationFailed):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrProfileNotFound),
		errors.Is(err, store.ErrAnalysisNotFound):
		return http.StatusNotFound
	case errors.Is(err, inference.ErrNoServiceConfigured):
		return http.StatusServiceUnavailable
	}
	var cmErr inference.CustomModelError
	if errors.As(err, &cmErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
