// Package emotion provides an HTTP client for the voice emotion
// classification service.
package emotion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/reverie-app/reverie-api/internal/domain"
)

// Common errors returned by the client
var (
	ErrServiceUnavailable = errors.New("emotion service unavailable")
	ErrInvalidResponse    = errors.New("invalid emotion service response")
)

// Client calls the emotion classification microservice.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an emotion service client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "emotion_client")),
	}
}

// predictResponse mirrors the service's JSON response. Scores map
// label names (angry, happy, neutral, sad) to probabilities.
type predictResponse struct {
	Emotion    string             `json:"emotion"`
	Confidence float64            `json:"confidence"`
	Scores     map[string]float64 `json:"scores"`
	Timeline   []struct {
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		Emotion    string  `json:"emotion"`
		Confidence float64 `json:"confidence"`
	} `json:"timeline"`
}

// Classify uploads the media file and returns the emotion analysis.
func (c *Client) Classify(ctx context.Context, mediaPath string) (domain.EmotionAnalysis, error) {
	file, err := os.Open(mediaPath)
	if err != nil {
		return domain.EmotionAnalysis{}, fmt.Errorf("failed to open media file: %w", err)
	}
	defer func() { _ = file.Close() }()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("audio_file", filepath.Base(mediaPath))
	if err != nil {
		return domain.EmotionAnalysis{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return domain.EmotionAnalysis{}, fmt.Errorf("failed to copy media file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return domain.EmotionAnalysis{}, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", body)
	if err != nil {
		return domain.EmotionAnalysis{}, fmt.Errorf("failed to build predict request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.EmotionAnalysis{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("emotion prediction failed",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(payload)))
		return domain.EmotionAnalysis{}, fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode)
	}

	var decoded predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.EmotionAnalysis{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if decoded.Emotion == "" {
		return domain.EmotionAnalysis{}, fmt.Errorf("%w: missing emotion label", ErrInvalidResponse)
	}

	timeline := make([]domain.EmotionSample, 0, len(decoded.Timeline))
	for _, s := range decoded.Timeline {
		timeline = append(timeline, domain.EmotionSample{
			Start:      s.Start,
			End:        s.End,
			Label:      s.Emotion,
			Confidence: s.Confidence,
		})
	}

	return domain.EmotionAnalysis{
		Dominant: decoded.Emotion,
		Scores:   decoded.Scores,
		Timeline: timeline,
	}, nil
}
