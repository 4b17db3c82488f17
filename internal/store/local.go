package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cordforge-backend-go/internal/models"

	"github.com/google/uuid"
)

const (
	usersFile    = "users.json"
	analysesFile = "analyses.json"
	sessionFile  = "session.json"
)

// LocalStore persists users, analyses and the session as three JSON
// documents under a data directory. It is the offline fallback used when no
// database is configured. One lock guards all three collections; every
// mutation rewrites the affected file atomically.
type LocalStore struct {
	mu           sync.RWMutex
	dir          string
	historyLimit int
	hasher       PasswordHasher

	users    []models.User
	hashes   map[string]string
	analyses []models.AnalysisResult
	session  *models.Session
}

type localUserRecord struct {
	models.User
	PasswordHash string `json:"passwordHash"`
}

func NewLocalStore(dir string, historyLimit int, hasher PasswordHasher) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	s := &LocalStore{
		dir:          dir,
		historyLimit: historyLimit,
		hasher:       hasher,
		hashes:       map[string]string{},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// SeedAdmin creates the bootstrap administrator account unless an account
// with that email already exists. An empty password skips seeding.
func (s *LocalStore) SeedAdmin(ctx context.Context, username, email, password string) error {
	if password == "" {
		return nil
	}
	s.mu.RLock()
	exists := s.findByEmailLocked(email) != nil
	s.mu.RUnlock()
	if exists {
		return nil
	}
	user, err := s.CreateUser(ctx, username, email, password)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID == user.ID {
			s.users[i].Role = models.RoleAdmin
			break
		}
	}
	return s.persistUsersLocked()
}

func (s *LocalStore) CreateUser(ctx context.Context, username, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findByEmailLocked(email) != nil {
		return nil, ErrDuplicateEmail
	}
	for i := range s.users {
		if strings.EqualFold(s.users[i].Username, username) {
			return nil, ErrDuplicateUsername
		}
	}
	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		Role:      models.RoleUser,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	s.users = append(s.users, user)
	s.hashes[user.ID] = hash
	if err := s.persistUsersLocked(); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *LocalStore) AuthenticateUser(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.RLock()
	defer s.mu.RUnlock()
	user := s.findByEmailLocked(email)
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	// Deactivation wins over password correctness.
	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}
	if !s.hasher.VerifyPassword(password, s.hashes[user.ID]) {
		return nil, ErrInvalidCredentials
	}
	copied := *user
	return &copied, nil
}

func (s *LocalStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.users {
		if s.users[i].ID == id {
			copied := s.users[i]
			return &copied, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *LocalStore) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]models.User, len(s.users))
	copy(items, s.users)
	return items, nil
}

func (s *LocalStore) ToggleUserActive(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID == id {
			s.users[i].IsActive = !s.users[i].IsActive
			return s.persistUsersLocked()
		}
	}
	return nil
}

func (s *LocalStore) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.users[:0]
	for _, user := range s.users {
		if user.ID != id {
			kept = append(kept, user)
		}
	}
	s.users = kept
	delete(s.hashes, id)
	return s.persistUsersLocked()
}

func (s *LocalStore) AppendAnalysis(ctx context.Context, result *models.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses = append(s.analyses, *result)
	// Bounded history: evict oldest first.
	if s.historyLimit > 0 && len(s.analyses) > s.historyLimit {
		s.analyses = s.analyses[len(s.analyses)-s.historyLimit:]
	}
	return s.persistAnalysesLocked()
}

func (s *LocalStore) ListAnalysesForUser(ctx context.Context, userID string) ([]models.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := []models.AnalysisResult{}
	for i := len(s.analyses) - 1; i >= 0; i-- {
		if s.analyses[i].UserID == userID {
			items = append(items, s.analyses[i])
		}
	}
	return items, nil
}

func (s *LocalStore) ListAnalyses(ctx context.Context) ([]models.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]models.AnalysisResult, 0, len(s.analyses))
	for i := len(s.analyses) - 1; i >= 0; i-- {
		items = append(items, s.analyses[i])
	}
	return items, nil
}

func (s *LocalStore) DeleteAnalysis(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.analyses[:0]
	for _, item := range s.analyses {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	s.analyses = kept
	return s.persistAnalysesLocked()
}

func (s *LocalStore) SaveSession(ctx context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
	return s.writeFile(sessionFile, session)
}

func (s *LocalStore) LoadSession(ctx context.Context, userID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil || s.session.UserID != userID {
		return nil, nil
	}
	copied := *s.session
	return &copied, nil
}

// ClearSession removes the stored session only when it belongs to the given
// user; a foreign session slot is left untouched.
func (s *LocalStore) ClearSession(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || s.session.UserID != userID {
		return nil
	}
	s.session = nil
	err := os.Remove(filepath.Join(s.dir, sessionFile))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *LocalStore) Stats(ctx context.Context) (*models.SystemStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &models.SystemStats{
		TotalUsers:    len(s.users),
		TotalAnalyses: len(s.analyses),
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	active := map[string]bool{}
	for _, item := range s.analyses {
		switch item.Sentiment {
		case models.SentimentPositive:
			stats.PositiveCount++
		case models.SentimentNegative:
			stats.NegativeCount++
		case models.SentimentNeutral:
			stats.NeutralCount++
		}
		if item.Sarcasm {
			stats.SarcasmCount++
		}
		if item.Humor {
			stats.HumorCount++
		}
		if !item.Timestamp.Before(today) {
			active[item.UserID] = true
		}
	}
	stats.ActiveUsersToday = len(active)
	return stats, nil
}

func (s *LocalStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, err := os.Stat(s.dir)
	return err
}

func (s *LocalStore) Close() error {
	return nil
}

func (s *LocalStore) findByEmailLocked(email string) *models.User {
	for i := range s.users {
		if strings.EqualFold(s.users[i].Email, email) {
			return &s.users[i]
		}
	}
	return nil
}

func (s *LocalStore) load() error {
	records := []localUserRecord{}
	if err := s.readFile(usersFile, &records); err != nil {
		return err
	}
	s.users = make([]models.User, 0, len(records))
	for _, record := range records {
		s.users = append(s.users, record.User)
		s.hashes[record.User.ID] = record.PasswordHash
	}
	if err := s.readFile(analysesFile, &s.analyses); err != nil {
		return err
	}
	session := models.Session{}
	err := s.readFile(sessionFile, &session)
	if err != nil {
		return err
	}
	if session.UserID != "" {
		s.session = &session
	}
	return nil
}

func (s *LocalStore) persistUsersLocked() error {
	records := make([]localUserRecord, 0, len(s.users))
	for _, user := range s.users {
		records = append(records, localUserRecord{User: user, PasswordHash: s.hashes[user.ID]})
	}
	return s.writeFile(usersFile, records)
}

func (s *LocalStore) persistAnalysesLocked() error {
	return s.writeFile(analysesFile, s.analyses)
}

func (s *LocalStore) readFile(name string, out interface{}) error {
	content, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(content, out)
}

func (s *LocalStore) writeFile(name string, value interface{}) error {
	content, err := json.Marshal(value)
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
