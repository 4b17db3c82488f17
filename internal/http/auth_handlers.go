package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"cordforge-backend-go/internal/models"
	"cordforge-backend-go/internal/store"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresAt    int64        `json:"expiresAt"`
	User         *models.User `json:"user"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ResetRequest struct {
	Email string `json:"email"`
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" || email == "" || strings.TrimSpace(req.Password) == "" {
		WriteError(w, http.StatusBadRequest, "Username, email and password are required")
		return
	}
	user, err := s.Store.CreateUser(r.Context(), username, email, req.Password)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]*models.User{"user": user})
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || strings.TrimSpace(req.Password) == "" {
		WriteError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	user, err := s.Store.AuthenticateUser(r.Context(), email, req.Password)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	access, exp, err := s.Tokens.CreateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	refresh, err := s.Tokens.CreateRefreshToken(user.ID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	// Session marker mirrored into the store so a restarted client can
	// restore itself. Failure here never blocks the login.
	_ = s.Store.SaveSession(r.Context(), &models.Session{
		UserID:    user.ID,
		Token:     access,
		CreatedAt: time.Now().UTC(),
	})
	WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    exp,
		User:         user,
	})
}

func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Authentication failed")
		return
	}
	token, claims, err := s.Tokens.ParseToken(req.RefreshToken)
	if err != nil || !token.Valid || claims["typ"] != "refresh" {
		WriteError(w, http.StatusUnauthorized, "Authentication failed")
		return
	}
	userID, _ := claims["sub"].(string)
	if userID == "" {
		WriteError(w, http.StatusUnauthorized, "Authentication failed")
		return
	}
	user, err := s.Store.GetUser(r.Context(), userID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if !user.IsActive {
		WriteError(w, http.StatusForbidden, store.ErrAccountDeactivated.Error())
		return
	}
	access, exp, err := s.Tokens.CreateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	refresh, err := s.Tokens.CreateRefreshToken(user.ID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    exp,
		User:         user,
	})
}

// Session restores the caller's identity from a still-valid access token.
// Deactivation since issue invalidates the session.
func (s *Server) Session(w http.ResponseWriter, r *http.Request) {
	user, err := s.Store.GetUser(r.Context(), CurrentUserID(r))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			WriteError(w, http.StatusUnauthorized, "Authentication failed")
			return
		}
		WriteServiceError(w, err)
		return
	}
	if !user.IsActive {
		WriteError(w, http.StatusForbidden, store.ErrAccountDeactivated.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]*models.User{"user": user})
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	_ = s.Store.ClearSession(r.Context(), CurrentUserID(r))
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RequestPasswordReset always answers 204: the response never reveals
// whether the address exists.
func (s *Server) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
