package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"cordforge-backend-go/internal/models"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNoServiceConfigured is returned when neither a custom model endpoint
// nor a generative-AI key is configured. Analysis fails strictly instead of
// returning a neutral stub.
var ErrNoServiceConfigured = errors.New("No analysis service configured")

// CustomModelError carries the status text of a non-2xx reply from the
// user-supplied endpoint.
type CustomModelError struct {
	StatusText string
}

func (e CustomModelError) Error() string {
	return "Custom model error: " + e.StatusText
}

// The fallback model reports no calibrated confidence.
const defaultConfidence = 0.9

// Request is one analysis submission. ImageDataURL, when set, is a
// base64 data URL; the OCR and object-detection flags are only meaningful
// together with an image.
type Request struct {
	UserID             string
	Text               string
	ImageDataURL       string
	RunOCR             bool
	RunObjectDetection bool
}

// Result is the normalized output shape. Sentiment is always one of the
// three labels and confidence is clamped to [0,1] before the result leaves
// this package.
type Result struct {
	Sentiment       string   `json:"sentiment"`
	Sarcasm         bool     `json:"sarcasm"`
	Humor           bool     `json:"humor"`
	OcrText         string   `json:"ocrText,omitempty"`
	DetectedObjects []string `json:"detectedObjects,omitempty"`
	ConfidenceScore float64  `json:"confidenceScore"`
}

// Gateway dispatches analysis to the custom endpoint when one is
// configured, otherwise to the generative-AI fallback. No retries; errors
// surface immediately.
type Gateway struct {
	customURL string
	client    *http.Client
	ai        *openai.Client
	aiModel   string
}

func NewGateway(customURL, openAIKey, openAIModel string) *Gateway {
	g := &Gateway{
		customURL: customURL,
		client:    &http.Client{Timeout: 60 * time.Second},
		aiModel:   openAIModel,
	}
	if openAIKey != "" {
		g.ai = openai.NewClient(openAIKey)
	}
	return g
}

func (g *Gateway) Analyze(ctx context.Context, req Request) (*Result, error) {
	if req.ImageDataURL != "" {
		if _, _, err := ParseDataURL(req.ImageDataURL); err != nil {
			return nil, err
		}
	}
	var (
		result *Result
		err    error
	)
	switch {
	case g.customURL != "":
		result, err = g.analyzeCustom(ctx, req)
	case g.ai != nil:
		result, err = g.analyzeAI(ctx, req)
	default:
		return nil, ErrNoServiceConfigured
	}
	if err != nil {
		return nil, err
	}
	normalize(result, req)
	return result, nil
}

type customRequest struct {
	Text    string        `json:"text"`
	Image   string        `json:"image,omitempty"`
	UserID  string        `json:"userId"`
	Options customOptions `json:"options"`
}

type customOptions struct {
	OCR             bool `json:"ocr"`
	ObjectDetection bool `json:"objectDetection"`
}

// customResponse keeps confidence as a pointer so an absent field (takes the
// default) is distinct from a reported value (clamped like any other).
type customResponse struct {
	Sentiment       string   `json:"sentiment"`
	Sarcasm         bool     `json:"sarcasm"`
	Humor           bool     `json:"humor"`
	OcrText         string   `json:"ocrText"`
	DetectedObjects []string `json:"detectedObjects"`
	ConfidenceScore *float64 `json:"confidenceScore"`
}

func (g *Gateway) analyzeCustom(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(customRequest{
		Text:   req.Text,
		Image:  req.ImageDataURL,
		UserID: req.UserID,
		Options: customOptions{
			OCR:             req.RunOCR,
			ObjectDetection: req.RunObjectDetection,
		},
	})
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.customURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, CustomModelError{StatusText: resp.Status}
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	payload := customResponse{}
	if err := json.Unmarshal(content, &payload); err != nil {
		return nil, CustomModelError{StatusText: "invalid response body"}
	}
	result := Result{
		Sentiment:       payload.Sentiment,
		Sarcasm:         payload.Sarcasm,
		Humor:           payload.Humor,
		OcrText:         payload.OcrText,
		DetectedObjects: payload.DetectedObjects,
		ConfidenceScore: defaultConfidence,
	}
	if payload.ConfidenceScore != nil {
		result.ConfidenceScore = *payload.ConfidenceScore
	}
	return &result, nil
}

func (g *Gateway) analyzeAI(ctx context.Context, req Request) (*Result, error) {
	hasImage := req.ImageDataURL != ""
	prompt := buildPrompt(req, hasImage)

	var parts []openai.ChatMessagePart
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: prompt,
	})
	if hasImage {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: req.ImageDataURL,
			},
		})
	}

	resp, err := g.ai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.aiModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty model response")
	}
	result := Result{ConfidenceScore: defaultConfidence}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		log.Printf("inference: unparseable model output: %v", err)
		return nil, fmt.Errorf("unparseable model output: %w", err)
	}
	return &result, nil
}

func buildPrompt(req Request, hasImage bool) string {
	var b strings.Builder
	b.WriteString("You analyze Sinhala-language social media content. ")
	b.WriteString("Classify the input and respond with a single JSON object shaped exactly like this:\n")
	b.WriteString(`{"sentiment":"Positive"|"Negative"|"Neutral","sarcasm":true|false,"humor":true|false`)
	if hasImage && req.RunOCR {
		b.WriteString(`,"ocrText":"text extracted from the image"`)
	}
	if hasImage && req.RunObjectDetection {
		b.WriteString(`,"detectedObjects":["label", ...]`)
	}
	b.WriteString("}\n")
	b.WriteString("Tasks: sentiment classification, sarcasm detection, humor detection")
	if hasImage && req.RunOCR {
		b.WriteString(", OCR of any Sinhala or English text in the image")
	}
	if hasImage && req.RunObjectDetection {
		b.WriteString(", object detection in the image")
	}
	b.WriteString(".\n")
	if req.Text != "" {
		b.WriteString("Input text: ")
		b.WriteString(req.Text)
	}
	return b.String()
}

// normalize coerces loosely-typed external responses into the fixed result
// shape so callers never handle raw model output.
func normalize(result *Result, req Request) {
	if !models.ValidSentiment(result.Sentiment) {
		result.Sentiment = models.SentimentNeutral
	}
	if result.ConfidenceScore < 0 {
		result.ConfidenceScore = 0
	}
	if result.ConfidenceScore > 1 {
		result.ConfidenceScore = 1
	}
	// OCR and object labels only mean something when an image was sent.
	if req.ImageDataURL == "" || !req.RunOCR {
		result.OcrText = ""
	}
	if req.ImageDataURL == "" || !req.RunObjectDetection {
		result.DetectedObjects = nil
	}
}

// ParseDataURL splits a base64 data URL into its media type and raw bytes.
func ParseDataURL(dataURL string) (string, []byte, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return "", nil, errors.New("invalid image encoding")
	}
	rest := strings.TrimPrefix(dataURL, "data:")
	sep := strings.Index(rest, ",")
	if sep < 0 {
		return "", nil, errors.New("invalid image encoding")
	}
	meta := rest[:sep]
	payload := rest[sep+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return "", nil, errors.New("invalid image encoding")
	}
	mediaType := strings.TrimSuffix(meta, ";base64")
	if !strings.HasPrefix(mediaType, "image/") {
		return "", nil, errors.New("unsupported image type")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, errors.New("invalid image encoding")
	}
	return mediaType, raw, nil
}
