package httpapi

import (
	"net/http"
	"time"

	"cordforge-backend-go/internal/config"
	"cordforge-backend-go/internal/services"
	"cordforge-backend-go/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

type Server struct {
	Store      store.Store
	Config     config.Config
	Tokens     services.TokenService
	Analysis   *services.AnalysisService
	MetricsHub *services.MetricsHub
}

func NewServer(st store.Store, cfg config.Config, analysis *services.AnalysisService, hub *services.MetricsHub) *Server {
	tokens := services.TokenService{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  time.Duration(cfg.AccessTTLSeconds) * time.Second,
		RefreshTTL: time.Duration(cfg.RefreshTTLSeconds) * time.Second,
	}
	return &Server{
		Store:      st,
		Config:     cfg,
		Tokens:     tokens,
		Analysis:   analysis,
		MetricsHub: hub,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger)
	if len(s.Config.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.Config.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", s.Health)

		api.Post("/auth/register", s.Register)
		api.Post("/auth/login", s.Login)
		api.Post("/auth/refresh", s.Refresh)
		api.Post("/auth/reset-request", s.RequestPasswordReset)
		api.With(WithAuth(s.Tokens)).Post("/auth/logout", s.Logout)
		api.With(WithAuth(s.Tokens)).Get("/auth/session", s.Session)

		api.Route("/analysis", func(analysis chi.Router) {
			analysis.Use(WithAuth(s.Tokens))
			analysis.Post("/", s.CreateAnalysis)
			analysis.Get("/", s.MyAnalyses)
			analysis.Delete("/{analysisId}", s.DeleteAnalysis)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(WithAuth(s.Tokens))
			admin.Use(RequireRole("ADMIN"))
			admin.Get("/users", s.ListUsers)
			admin.Post("/users/{userId}/toggle", s.ToggleUser)
			admin.Delete("/users/{userId}", s.DeleteUser)
			admin.Get("/analyses", s.AllAnalyses)
			admin.Get("/stats", s.Stats)
			admin.Get("/metrics/history", s.MetricsHistory)
		})
	})

	r.Get("/ws/metrics", s.MetricsSocket)
	return r
}
