package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/reverie-app/reverie-api/internal/domain"
	"github.com/reverie-app/reverie-api/internal/upload"
)

// Common request/response structures

// BeginUploadRequest defines the payload for opening an upload session.
type BeginUploadRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

// UploadSessionResponse describes an open upload session.
type UploadSessionResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	ExpiresAt string    `json:"expires_at"`
}

func newUploadSessionResponse(s upload.Session) UploadSessionResponse {
	return UploadSessionResponse{
		SessionID: s.ID,
		ExpiresAt: s.ExpiresAt.Format(time.RFC3339),
	}
}

// JournalResponse is the client view of a journal and its pipeline-derived
// fields.
type JournalResponse struct {
	ID              uuid.UUID          `json:"id"`
	Title           string             `json:"title"`
	VideoPath       string             `json:"video_path"`
	DominantEmotion string             `json:"dominant_emotion,omitempty"`
	EmotionScores   map[string]float64 `json:"emotion_scores,omitempty"`
	TranscodePath   string             `json:"transcode_path,omitempty"`
	TranscodeStatus string             `json:"transcode_status"`
	Summary         string             `json:"summary,omitempty"`
	CreatedAt       string             `json:"created_at"`
}

func newJournalResponse(j *domain.Journal) JournalResponse {
	return JournalResponse{
		ID:              j.ID,
		Title:           j.Title,
		VideoPath:       j.VideoPath,
		DominantEmotion: j.DominantEmotion,
		EmotionScores:   j.EmotionScores,
		TranscodePath:   j.TranscodePath,
		TranscodeStatus: string(j.TranscodeStatus),
		Summary:         j.Summary,
		CreatedAt:       j.CreatedAt.Format(time.RFC3339),
	}
}

// TranscriptResponse is the client view of a journal's transcript.
type TranscriptResponse struct {
	JournalID uuid.UUID                  `json:"journal_id"`
	Text      string                     `json:"text"`
	Segments  []domain.TranscriptSegment `json:"segments,omitempty"`
	Language  string                     `json:"language,omitempty"`
}

func newTranscriptResponse(t *domain.Transcript) TranscriptResponse {
	return TranscriptResponse{
		JournalID: t.JournalID,
		Text:      t.Text,
		Segments:  t.Segments,
		Language:  t.Language,
	}
}

// RestoreRequest defines the payload for submitting a restore job. The
// archive path is relative to the backup work directory.
type RestoreRequest struct {
	ArchivePath string `json:"archive_path" validate:"required"`
	Strategy    string `json:"strategy"     validate:"omitempty,oneof=merge replace skip"`
}

// JobAcceptedResponse acknowledges an enqueued background job.
type JobAcceptedResponse struct {
	JobID uuid.UUID `json:"job_id"`
}

// DownloadTokenResponse carries a signed token authorizing one backup
// archive download.
type DownloadTokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}
