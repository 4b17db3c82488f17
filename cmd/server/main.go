package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"cordforge-backend-go/internal/config"
	"cordforge-backend-go/internal/db"
	httpapi "cordforge-backend-go/internal/http"
	"cordforge-backend-go/internal/inference"
	"cordforge-backend-go/internal/migrations"
	"cordforge-backend-go/internal/services"
	"cordforge-backend-go/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	cleanupLogs, err := setupLogger()
	if err != nil {
		log.Printf("logger setup failed: %v", err)
	} else {
		defer cleanupLogs()
	}

	hasher := services.TokenService{}
	dataStore, err := openStore(cfg, hasher)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer func() { _ = dataStore.Close() }()

	gateway := inference.NewGateway(cfg.CustomModelURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)
	analysis := &services.AnalysisService{Store: dataStore, Gateway: gateway}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := services.NewMetricsHub(500)
	go hub.Run(ctx)

	server := httpapi.NewServer(dataStore, cfg, analysis, hub)
	go metricsLoop(ctx, server)

	addr := ":8080"
	if value := os.Getenv("PORT"); value != "" {
		addr = ":" + value
	}
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Router(),
	}

	go func() {
		log.Printf("listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	cancel()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(ctxShutdown)
	log.Printf("shutdown complete")
}

// openStore resolves the persistence backend once at startup: the
// centralized database when DATABASE_URL is set, otherwise the local JSON
// store with a seeded administrator.
func openStore(cfg config.Config, hasher store.PasswordHasher) (store.Store, error) {
	if cfg.DatabaseConfigured() {
		database, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := migrations.Apply(database, "migrations"); err != nil {
			return nil, err
		}
		log.Printf("persistence: database")
		return store.NewPostgresStore(database, hasher), nil
	}
	local, err := store.NewLocalStore(cfg.LocalStorePath, cfg.HistoryLimit, hasher)
	if err != nil {
		return nil, err
	}
	if err := local.SeedAdmin(context.Background(), "SystemAdmin", cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return nil, err
	}
	log.Printf("persistence: local store at %s", cfg.LocalStorePath)
	return local, nil
}

func setupLogger() (func(), error) {
	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "storage/logs"
	}
	retentionDays := 7
	if value := os.Getenv("LOG_RETENTION_DAYS"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil && parsed > 0 {
			if parsed > 7 {
				parsed = 7
			}
			retentionDays = parsed
		}
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}

	var mu sync.Mutex
	currentDate := time.Now().Format("2006-01-02")
	file, err := openLogFile(logDir, currentDate)
	if err != nil {
		return nil, err
	}
	log.SetOutput(io.MultiWriter(os.Stdout, file))
	cleanupOldLogs(logDir, retentionDays)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				date := time.Now().Format("2006-01-02")
				mu.Lock()
				if date != currentDate {
					newFile, err := openLogFile(logDir, date)
					if err == nil {
						log.SetOutput(io.MultiWriter(os.Stdout, newFile))
						_ = file.Close()
						file = newFile
						currentDate = date
						cleanupOldLogs(logDir, retentionDays)
					}
				}
				mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		cancel()
		mu.Lock()
		_ = file.Close()
		mu.Unlock()
	}, nil
}

func openLogFile(logDir, date string) (*os.File, error) {
	filename := filepath.Join(logDir, fmt.Sprintf("app-%s.log", date))
	return os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

func cleanupOldLogs(logDir string, retentionDays int) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -(retentionDays - 1))
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() {
			continue
		}
		if !strings.HasPrefix(name, "app-") || !strings.HasSuffix(name, ".log") {
			continue
		}
		datePart := strings.TrimSuffix(strings.TrimPrefix(name, "app-"), ".log")
		logDate, err := time.Parse("2006-01-02", datePart)
		if err != nil {
			continue
		}
		if logDate.Before(cutoff) {
			_ = os.Remove(filepath.Join(logDir, name))
		}
	}
}

func metricsLoop(ctx context.Context, server *httpapi.Server) {
	ticker := time.NewTicker(time.Duration(server.Config.MetricsSampleSeconds) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			server.MetricsHub.Broadcast(services.CaptureMetrics(server.Config.MetricsDiskPath))
		case <-ctx.Done():
			return
		}
	}
}
