package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"cordforge-backend-go/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

// PostgresStore is the centralized-database adapter. The auth identity
// (users table) and the application profile (profiles table) are separate
// rows joined by user id; registration writes both in two non-transactional
// steps, and user deletion removes only the profile row. Both choices mirror
// the upstream service contract: identity cleanup needs elevated privileges
// this client does not hold.
type PostgresStore struct {
	db     *sqlx.DB
	hasher PasswordHasher
}

func NewPostgresStore(db *sqlx.DB, hasher PasswordHasher) *PostgresStore {
	return &PostgresStore{db: db, hasher: hasher}
}

func (s *PostgresStore) CreateUser(ctx context.Context, username, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM profiles WHERE lower(email) = $1)`, email); err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateEmail
	}
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM profiles WHERE lower(username) = lower($1))`, username); err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateUsername
	}
	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return nil, err
	}
	userID := uuid.NewString()
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, `
INSERT INTO users (id, email, password_hash, created_at)
VALUES ($1,$2,$3,$4)
`, userID, email, hash, now); err != nil {
		if dup := uniqueViolation(err); dup != nil {
			return nil, dup
		}
		return nil, err
	}
	// Second step is deliberately outside a transaction: the identity row
	// stays behind when profile creation fails, and the caller is told so.
	if _, err := s.db.ExecContext(ctx, `
INSERT INTO profiles (user_id, username, email, role, is_active, created_at)
VALUES ($1,$2,$3,$4,TRUE,$5)
`, userID, username, email, models.RoleUser, now); err != nil {
		if dup := uniqueViolation(err); dup != nil {
			return nil, dup
		}
		return nil, ErrProfileCreationFailed
	}
	return &models.User{
		ID:        userID,
		Username:  username,
		Email:     email,
		Role:      models.RoleUser,
		IsActive:  true,
		CreatedAt: now,
	}, nil
}

// uniqueViolation maps a unique-constraint insert failure onto the same
// sentinel the pre-insert existence check would have produced. Two
// registrations racing past that check both reach the insert; the loser must
// still see a duplicate error, not a bare database error.
func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "username"):
		return ErrDuplicateUsername
	case strings.Contains(pgErr.ConstraintName, "email"):
		return ErrDuplicateEmail
	}
	return nil
}

func (s *PostgresStore) AuthenticateUser(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := struct {
		ID           string `db:"id"`
		PasswordHash string `db:"password_hash"`
	}{}
	err := s.db.GetContext(ctx, &row, `SELECT id, password_hash FROM users WHERE lower(email) = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	user, err := s.GetUser(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	// Deactivation wins over password correctness.
	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}
	if !s.hasher.VerifyPassword(password, row.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := struct {
		UserID    string    `db:"user_id"`
		Username  string    `db:"username"`
		Email     string    `db:"email"`
		Role      string    `db:"role"`
		IsActive  bool      `db:"is_active"`
		CreatedAt time.Time `db:"created_at"`
	}{}
	err := s.db.GetContext(ctx, &row, `
SELECT user_id, username, email, role, is_active, created_at
FROM profiles
WHERE user_id = $1
`, id)
	if errors.Is(err, sql.ErrNoRows) {
		// Identity without profile: registration's second step never
		// completed. Treated as a configuration error, not "not found".
		var identity bool
		if probe := s.db.GetContext(ctx, &identity, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id); probe == nil && identity {
			return nil, ErrProfileNotFound
		}
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &models.User{
		ID:        row.UserID,
		Username:  row.Username,
		Email:     row.Email,
		Role:      row.Role,
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows := []struct {
		UserID    string    `db:"user_id"`
		Username  string    `db:"username"`
		Email     string    `db:"email"`
		Role      string    `db:"role"`
		IsActive  bool      `db:"is_active"`
		CreatedAt time.Time `db:"created_at"`
	}{}
	if err := s.db.SelectContext(ctx, &rows, `
SELECT user_id, username, email, role, is_active, created_at
FROM profiles
ORDER BY created_at DESC
`); err != nil {
		return nil, err
	}
	items := make([]models.User, 0, len(rows))
	for _, row := range rows {
		items = append(items, models.User{
			ID:        row.UserID,
			Username:  row.Username,
			Email:     row.Email,
			Role:      row.Role,
			IsActive:  row.IsActive,
			CreatedAt: row.CreatedAt,
		})
	}
	return items, nil
}

func (s *PostgresStore) ToggleUserActive(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE profiles SET is_active = NOT is_active WHERE user_id = $1`, id)
	return err
}

// DeleteUser removes the profile row only; the auth identity row is left in
// place (deleting it requires privileges this client does not have).
func (s *PostgresStore) DeleteUser(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE user_id = $1`, id)
	return err
}

func (s *PostgresStore) AppendAnalysis(ctx context.Context, result *models.AnalysisResult) error {
	objects, err := json.Marshal(result.DetectedObjects)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO analysis_results (
  id, user_id, original_text, image_url, ocr_text, detected_objects,
  sentiment, sarcasm, humor, confidence_score, processing_time_ms, timestamp
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`, result.ID, result.UserID, result.OriginalText, result.ImageURL, result.OcrText, objects,
		result.Sentiment, result.Sarcasm, result.Humor, result.ConfidenceScore, result.ProcessingTimeMs, result.Timestamp)
	return err
}

type analysisRow struct {
	ID               string    `db:"id"`
	UserID           string    `db:"user_id"`
	OriginalText     string    `db:"original_text"`
	ImageURL         string    `db:"image_url"`
	OcrText          string    `db:"ocr_text"`
	DetectedObjects  []byte    `db:"detected_objects"`
	Sentiment        string    `db:"sentiment"`
	Sarcasm          bool      `db:"sarcasm"`
	Humor            bool      `db:"humor"`
	ConfidenceScore  float64   `db:"confidence_score"`
	ProcessingTimeMs int64     `db:"processing_time_ms"`
	Timestamp        time.Time `db:"timestamp"`
}

func (r analysisRow) toModel() models.AnalysisResult {
	objects := []string{}
	_ = json.Unmarshal(r.DetectedObjects, &objects)
	return models.AnalysisResult{
		ID:               r.ID,
		UserID:           r.UserID,
		OriginalText:     r.OriginalText,
		ImageURL:         r.ImageURL,
		OcrText:          r.OcrText,
		DetectedObjects:  objects,
		Sentiment:        r.Sentiment,
		Sarcasm:          r.Sarcasm,
		Humor:            r.Humor,
		ConfidenceScore:  r.ConfidenceScore,
		ProcessingTimeMs: r.ProcessingTimeMs,
		Timestamp:        r.Timestamp,
	}
}

const analysisColumns = `
SELECT id, user_id, original_text, image_url, ocr_text, detected_objects,
       sentiment, sarcasm, humor, confidence_score, processing_time_ms, timestamp
FROM analysis_results
`

func (s *PostgresStore) ListAnalysesForUser(ctx context.Context, userID string) ([]models.AnalysisResult, error) {
	rows := []analysisRow{}
	if err := s.db.SelectContext(ctx, &rows, analysisColumns+`WHERE user_id = $1 ORDER BY timestamp DESC`, userID); err != nil {
		return nil, err
	}
	items := make([]models.AnalysisResult, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toModel())
	}
	return items, nil
}

func (s *PostgresStore) ListAnalyses(ctx context.Context) ([]models.AnalysisResult, error) {
	rows := []analysisRow{}
	if err := s.db.SelectContext(ctx, &rows, analysisColumns+`ORDER BY timestamp DESC`); err != nil {
		return nil, err
	}
	items := make([]models.AnalysisResult, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toModel())
	}
	return items, nil
}

func (s *PostgresStore) DeleteAnalysis(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM analysis_results WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) SaveSession(ctx context.Context, session *models.Session) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO sessions (user_id, token, created_at)
VALUES ($1,$2,$3)
ON CONFLICT (user_id) DO UPDATE SET token = EXCLUDED.token, created_at = EXCLUDED.created_at
`, session.UserID, session.Token, session.CreatedAt)
	return err
}

func (s *PostgresStore) LoadSession(ctx context.Context, userID string) (*models.Session, error) {
	row := struct {
		UserID    string    `db:"user_id"`
		Token     string    `db:"token"`
		CreatedAt time.Time `db:"created_at"`
	}{}
	err := s.db.GetContext(ctx, &row, `SELECT user_id, token, created_at FROM sessions WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.Session{UserID: row.UserID, Token: row.Token, CreatedAt: row.CreatedAt}, nil
}

func (s *PostgresStore) ClearSession(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

func (s *PostgresStore) Stats(ctx context.Context) (*models.SystemStats, error) {
	stats := &models.SystemStats{}
	if err := s.db.GetContext(ctx, &stats.TotalUsers, `SELECT count(*) FROM profiles`); err != nil {
		return nil, err
	}
	row := struct {
		Total    int `db:"total"`
		Positive int `db:"positive"`
		Negative int `db:"negative"`
		Neutral  int `db:"neutral"`
		Sarcasm  int `db:"sarcasm"`
		Humor    int `db:"humor"`
	}{}
	if err := s.db.GetContext(ctx, &row, `
SELECT count(*) AS total,
       count(*) FILTER (WHERE sentiment = 'Positive') AS positive,
       count(*) FILTER (WHERE sentiment = 'Negative') AS negative,
       count(*) FILTER (WHERE sentiment = 'Neutral') AS neutral,
       count(*) FILTER (WHERE sarcasm) AS sarcasm,
       count(*) FILTER (WHERE humor) AS humor
FROM analysis_results
`); err != nil {
		return nil, err
	}
	stats.TotalAnalyses = row.Total
	stats.PositiveCount = row.Positive
	stats.NegativeCount = row.Negative
	stats.NeutralCount = row.Neutral
	stats.SarcasmCount = row.Sarcasm
	stats.HumorCount = row.Humor
	if err := s.db.GetContext(ctx, &stats.ActiveUsersToday, `
SELECT count(DISTINCT user_id) FROM analysis_results WHERE timestamp >= date_trunc('day', now() AT TIME ZONE 'utc')
`); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	var one int
	return s.db.GetContext(ctx, &one, `SELECT 1`)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
