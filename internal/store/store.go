package store

import (
	"context"
	"errors"

	"cordforge-backend-go/internal/models"
)

// Error kinds surfaced to the HTTP layer. Messages are shown to users
// verbatim, so they stay human-readable.
var (
	ErrInvalidCredentials    = errors.New("Invalid credentials")
	ErrAccountDeactivated    = errors.New("Account is deactivated")
	ErrDuplicateEmail        = errors.New("Email already exists")
	ErrDuplicateUsername     = errors.New("Username already exists")
	ErrUserNotFound          = errors.New("User not found")
	ErrProfileNotFound       = errors.New("Profile not found for this account")
	ErrProfileCreationFailed = errors.New("Account created but profile setup failed")
	ErrAnalysisNotFound      = errors.New("Analysis not found")
)

// Store is the single persistence surface behind the API. Two adapters
// implement it: a Postgres-backed one used when DATABASE_URL is set, and a
// JSON-file one used otherwise. Call sites never branch on which backend is
// active.
type Store interface {
	// CreateUser registers a new account with the default USER role.
	// The password arrives raw and is hashed before persistence.
	CreateUser(ctx context.Context, username, email, password string) (*models.User, error)
	// AuthenticateUser verifies credentials. Wrong email or password yields
	// ErrInvalidCredentials; a matching but deactivated account yields
	// ErrAccountDeactivated regardless of password correctness.
	AuthenticateUser(ctx context.Context, email, password string) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	// ListUsers returns every account with password hashes stripped.
	ListUsers(ctx context.Context) ([]models.User, error)
	// ToggleUserActive flips the active flag; toggling twice restores the
	// original state. Absent ids are a no-op.
	ToggleUserActive(ctx context.Context, id string) error
	DeleteUser(ctx context.Context, id string) error

	AppendAnalysis(ctx context.Context, result *models.AnalysisResult) error
	ListAnalysesForUser(ctx context.Context, userID string) ([]models.AnalysisResult, error)
	ListAnalyses(ctx context.Context) ([]models.AnalysisResult, error)
	DeleteAnalysis(ctx context.Context, id string) error

	// Session operations are scoped to one user: clearing or loading a
	// session never touches another user's marker.
	SaveSession(ctx context.Context, session *models.Session) error
	LoadSession(ctx context.Context, userID string) (*models.Session, error)
	ClearSession(ctx context.Context, userID string) error

	Stats(ctx context.Context) (*models.SystemStats, error)

	// Ping is the backend health probe: a lightweight read, computed on
	// demand with no caching or retry.
	Ping(ctx context.Context) error
	Close() error
}

// PasswordHasher is satisfied by services.TokenService; adapters depend on
// it instead of the concrete type so tests can plug in cheap hashing.
type PasswordHasher interface {
	HashPassword(raw string) (string, error)
	VerifyPassword(raw, hashed string) bool
}
