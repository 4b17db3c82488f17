package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cordforge-backend-go/internal/config"
	"cordforge-backend-go/internal/inference"
	"cordforge-backend-go/internal/models"
	"cordforge-backend-go/internal/services"
	"cordforge-backend-go/internal/store"
)

type plainHasher struct{}

func (plainHasher) HashPassword(raw string) (string, error) { return "plain:" + raw, nil }
func (plainHasher) VerifyPassword(raw, hashed string) bool  { return hashed == "plain:"+raw }

type fixture struct {
	server  *Server
	handler http.Handler
}

func newFixture(t *testing.T, customModelURL string) *fixture {
	t.Helper()
	local, err := store.NewLocalStore(t.TempDir(), 50, plainHasher{})
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	if err := local.SeedAdmin(context.Background(), "SystemAdmin", "admin@cordforge.com", "admin-pw"); err != nil {
		t.Fatalf("SeedAdmin: %v", err)
	}
	cfg := config.Config{
		CustomModelURL:    customModelURL,
		JWTSecret:         "test-secret",
		JWTIssuer:         "cordforge-test",
		AccessTTLSeconds:  3600,
		RefreshTTLSeconds: 86400,
	}
	gateway := inference.NewGateway(customModelURL, "", "")
	analysis := &services.AnalysisService{Store: local, Gateway: gateway}
	server := NewServer(local, cfg, analysis, services.NewMetricsHub(10))
	return &fixture{server: server, handler: server.Router()}
}

func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	f.handler.ServeHTTP(recorder, req)
	return recorder
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	if err := json.Unmarshal(recorder.Body.Bytes(), &value); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
	return value
}

func (f *fixture) register(t *testing.T, username, email, password string) *httptest.ResponseRecorder {
	return f.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
}

func (f *fixture) login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	return f.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: email, Password: password})
}

func (f *fixture) mustLogin(t *testing.T, email, password string) TokenResponse {
	t.Helper()
	recorder := f.login(t, email, password)
	if recorder.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", email, recorder.Code, recorder.Body.String())
	}
	return decode[TokenResponse](t, recorder)
}

func TestRegisterAndLoginScenario(t *testing.T) {
	f := newFixture(t, "")
	if recorder := f.register(t, "alice", "alice@example.com", "secret"); recorder.Code != http.StatusOK {
		t.Fatalf("register: %d %s", recorder.Code, recorder.Body.String())
	}
	session := f.mustLogin(t, "alice@example.com", "secret")
	if session.User.Role != models.RoleUser {
		t.Fatalf("role = %q, want default USER", session.User.Role)
	}
	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatal("token pair missing")
	}

	restored := f.do(t, http.MethodGet, "/api/auth/session", session.AccessToken, nil)
	if restored.Code != http.StatusOK {
		t.Fatalf("session restore: %d", restored.Code)
	}
	payload := decode[map[string]models.User](t, restored)
	if payload["user"].Email != "alice@example.com" {
		t.Fatalf("restored user = %+v", payload["user"])
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t, "")
	f.register(t, "alice", "alice@example.com", "secret")
	recorder := f.register(t, "other", "alice@example.com", "secret")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
	resp := decode[ErrorResponse](t, recorder)
	if resp.Message != store.ErrDuplicateEmail.Error() {
		t.Fatalf("message = %q", resp.Message)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture(t, "")
	f.register(t, "alice", "alice@example.com", "secret")
	if recorder := f.login(t, "alice@example.com", "nope"); recorder.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", recorder.Code)
	}
}

func TestAdminToggleBlocksLogin(t *testing.T) {
	f := newFixture(t, "")
	f.register(t, "alice", "alice@example.com", "secret")
	admin := f.mustLogin(t, "admin@cordforge.com", "admin-pw")
	alice := f.mustLogin(t, "alice@example.com", "secret")

	toggle := f.do(t, http.MethodPost, "/api/admin/users/"+alice.User.ID+"/toggle", admin.AccessToken, nil)
	if toggle.Code != http.StatusNoContent {
		t.Fatalf("toggle: %d %s", toggle.Code, toggle.Body.String())
	}
	recorder := f.login(t, "alice@example.com", "secret")
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("deactivated login status = %d, want 403", recorder.Code)
	}
	resp := decode[ErrorResponse](t, recorder)
	if resp.Message != store.ErrAccountDeactivated.Error() {
		t.Fatalf("message = %q", resp.Message)
	}
	// A still-valid access token no longer restores a session either.
	restored := f.do(t, http.MethodGet, "/api/auth/session", alice.AccessToken, nil)
	if restored.Code != http.StatusForbidden {
		t.Fatalf("deactivated session restore = %d, want 403", restored.Code)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	f := newFixture(t, "")
	f.register(t, "alice", "alice@example.com", "secret")
	alice := f.mustLogin(t, "alice@example.com", "secret")

	if recorder := f.do(t, http.MethodGet, "/api/admin/users", alice.AccessToken, nil); recorder.Code != http.StatusForbidden {
		t.Fatalf("user reached admin route: %d", recorder.Code)
	}
	if recorder := f.do(t, http.MethodGet, "/api/admin/users", "", nil); recorder.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous reached admin route: %d", recorder.Code)
	}
	admin := f.mustLogin(t, "admin@cordforge.com", "admin-pw")
	recorder := f.do(t, http.MethodGet, "/api/admin/users", admin.AccessToken, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("admin list users: %d", recorder.Code)
	}
}

func TestCreateAnalysisThroughCustomModel(t *testing.T) {
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"sentiment":       "Positive",
			"sarcasm":         true,
			"humor":           false,
			"confidenceScore": 0.66,
		})
	}))
	defer model.Close()

	f := newFixture(t, model.URL)
	f.register(t, "alice", "alice@example.com", "secret")
	alice := f.mustLogin(t, "alice@example.com", "secret")

	recorder := f.do(t, http.MethodPost, "/api/analysis/", alice.AccessToken, AnalysisRequest{
		Text:               "මේක හරිම පුදුම වැඩක්",
		RunOCR:             true,
		RunObjectDetection: true,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("analysis: %d %s", recorder.Code, recorder.Body.String())
	}
	result := decode[models.AnalysisResult](t, recorder)
	if result.Sentiment != models.SentimentPositive || !result.Sarcasm {
		t.Fatalf("result = %+v", result)
	}
	// Flags without an image must not produce OCR text or object labels.
	if result.OcrText != "" || len(result.DetectedObjects) != 0 {
		t.Fatalf("text-only analysis returned image fields: %+v", result)
	}

	history := f.do(t, http.MethodGet, "/api/analysis/", alice.AccessToken, nil)
	items := decode[map[string][]models.AnalysisResult](t, history)
	if len(items["items"]) != 1 {
		t.Fatalf("history length = %d", len(items["items"]))
	}
}

func TestCreateAnalysisRequiresInput(t *testing.T) {
	f := newFixture(t, "")
	f.register(t, "alice", "alice@example.com", "secret")
	alice := f.mustLogin(t, "alice@example.com", "secret")
	recorder := f.do(t, http.MethodPost, "/api/analysis/", alice.AccessToken, AnalysisRequest{})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("empty submission status = %d, want 400", recorder.Code)
	}
}

func TestCreateAnalysisNoServiceConfigured(t *testing.T) {
	f := newFixture(t, "")
	f.register(t, "alice", "alice@example.com", "secret")
	alice := f.mustLogin(t, "alice@example.com", "secret")
	recorder := f.do(t, http.MethodPost, "/api/analysis/", alice.AccessToken, AnalysisRequest{Text: "hello"})
	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", recorder.Code)
	}
	resp := decode[ErrorResponse](t, recorder)
	if resp.Message != "No analysis service configured" {
		t.Fatalf("message = %q", resp.Message)
	}
}

func TestDeleteAnalysisOwnership(t *testing.T) {
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"sentiment": "Neutral"})
	}))
	defer model.Close()

	f := newFixture(t, model.URL)
	f.register(t, "alice", "alice@example.com", "secret")
	f.register(t, "bob", "bob@example.com", "secret")
	alice := f.mustLogin(t, "alice@example.com", "secret")
	bob := f.mustLogin(t, "bob@example.com", "secret")

	created := f.do(t, http.MethodPost, "/api/analysis/", alice.AccessToken, AnalysisRequest{Text: "x"})
	result := decode[models.AnalysisResult](t, created)

	if recorder := f.do(t, http.MethodDelete, "/api/analysis/"+result.ID, bob.AccessToken, nil); recorder.Code != http.StatusForbidden {
		t.Fatalf("foreign delete status = %d, want 403", recorder.Code)
	}
	if recorder := f.do(t, http.MethodDelete, "/api/analysis/"+result.ID, alice.AccessToken, nil); recorder.Code != http.StatusNoContent {
		t.Fatalf("owner delete status = %d", recorder.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"sentiment": "Positive", "humor": true})
	}))
	defer model.Close()

	f := newFixture(t, model.URL)
	f.register(t, "alice", "alice@example.com", "secret")
	alice := f.mustLogin(t, "alice@example.com", "secret")
	admin := f.mustLogin(t, "admin@cordforge.com", "admin-pw")
	f.do(t, http.MethodPost, "/api/analysis/", alice.AccessToken, AnalysisRequest{Text: "x"})

	recorder := f.do(t, http.MethodGet, "/api/admin/stats", admin.AccessToken, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("stats: %d", recorder.Code)
	}
	stats := decode[models.SystemStats](t, recorder)
	if stats.TotalUsers != 2 || stats.TotalAnalyses != 1 || stats.PositiveCount != 1 || stats.HumorCount != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.ActiveUsersToday != 1 {
		t.Fatalf("activeUsersToday = %d", stats.ActiveUsersToday)
	}
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t, "http://localhost:9")
	recorder := f.do(t, http.MethodGet, "/api/health", "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("health: %d", recorder.Code)
	}
	health := decode[HealthResponse](t, recorder)
	if health.Database {
		t.Fatal("database reported configured in local mode")
	}
	if !health.CustomModel {
		t.Fatal("custom model not reported configured")
	}
	if !health.DatabaseHealthy {
		t.Fatal("local store probe should succeed")
	}
}
