package models

import "time"

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

const (
	SentimentPositive = "Positive"
	SentimentNegative = "Negative"
	SentimentNeutral  = "Neutral"
)

// User is the application-level account record. PasswordHash never leaves
// the store layer; every listing strips it before returning.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"isActive"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// AnalysisResult is one analysis run. Immutable after creation except for
// deletion.
type AnalysisResult struct {
	ID               string    `db:"id" json:"id"`
	UserID           string    `db:"user_id" json:"userId"`
	OriginalText     string    `db:"original_text" json:"originalText"`
	ImageURL         string    `db:"image_url" json:"imageUrl,omitempty"`
	OcrText          string    `db:"ocr_text" json:"ocrText,omitempty"`
	DetectedObjects  []string  `db:"-" json:"detectedObjects,omitempty"`
	Sentiment        string    `db:"sentiment" json:"sentiment"`
	Sarcasm          bool      `db:"sarcasm" json:"sarcasm"`
	Humor            bool      `db:"humor" json:"humor"`
	ConfidenceScore  float64   `db:"confidence_score" json:"confidenceScore"`
	Timestamp        time.Time `db:"timestamp" json:"timestamp"`
	ProcessingTimeMs int64     `db:"processing_time_ms" json:"processingTimeMs"`
}

// Session mirrors "who is logged in" into the persistent store so a
// restarted client can restore itself.
type Session struct {
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
}

// SystemStats is derived on demand by aggregating users and analyses.
type SystemStats struct {
	TotalUsers       int `json:"totalUsers"`
	TotalAnalyses    int `json:"totalAnalyses"`
	PositiveCount    int `json:"positiveCount"`
	NegativeCount    int `json:"negativeCount"`
	NeutralCount     int `json:"neutralCount"`
	SarcasmCount     int `json:"sarcasmCount"`
	HumorCount       int `json:"humorCount"`
	ActiveUsersToday int `json:"activeUsersToday"`
}

func ValidSentiment(value string) bool {
	switch value {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}
