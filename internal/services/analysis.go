package services

import (
	"context"
	"log"
	"time"

	"cordforge-backend-go/internal/inference"
	"cordforge-backend-go/internal/models"
	"cordforge-backend-go/internal/store"

	"github.com/google/uuid"
)

// Persisted records carry a placeholder instead of the submitted image
// bytes; the original reference is attached to the returned result only.
// Keeps stored history small and matches the upstream schema, where
// image_url was never a real upload reference.
const imagePlaceholder = "inline-image"

// Analyzer is what the analysis service needs from the inference gateway.
type Analyzer interface {
	Analyze(ctx context.Context, req inference.Request) (*inference.Result, error)
}

type AnalysisService struct {
	Store   store.Store
	Gateway Analyzer
}

// Submit runs one analysis: validate, dispatch to the gateway, persist,
// return. Elapsed time covers the gateway dispatch only. A failed save is
// logged and the computed result still returned, so the user sees their
// answer even when it could not be recorded.
func (s *AnalysisService) Submit(ctx context.Context, userID, text, imageDataURL string, runOCR, runObjectDetection bool) (*models.AnalysisResult, error) {
	if text == "" && imageDataURL == "" {
		return nil, ErrBadRequest("Please provide text or upload an image.")
	}
	if _, err := s.Store.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	started := time.Now()
	outcome, err := s.Gateway.Analyze(ctx, inference.Request{
		UserID:             userID,
		Text:               text,
		ImageDataURL:       imageDataURL,
		RunOCR:             runOCR,
		RunObjectDetection: runObjectDetection,
	})
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(started).Milliseconds()

	result := &models.AnalysisResult{
		ID:               uuid.NewString(),
		UserID:           userID,
		OriginalText:     text,
		OcrText:          outcome.OcrText,
		DetectedObjects:  outcome.DetectedObjects,
		Sentiment:        outcome.Sentiment,
		Sarcasm:          outcome.Sarcasm,
		Humor:            outcome.Humor,
		ConfidenceScore:  outcome.ConfidenceScore,
		Timestamp:        time.Now().UTC(),
		ProcessingTimeMs: elapsed,
	}
	if imageDataURL != "" {
		result.ImageURL = imagePlaceholder
	}
	if err := s.Store.AppendAnalysis(ctx, result); err != nil {
		log.Printf("analysis save failed for user %s: %v", userID, err)
	}
	if imageDataURL != "" {
		result.ImageURL = imageDataURL
	}
	return result, nil
}
