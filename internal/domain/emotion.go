package domain

// Emotion labels produced by the voice emotion recognition service.
const (
	EmotionAngry   = "angry"
	EmotionHappy   = "happy"
	EmotionNeutral = "neutral"
	EmotionSad     = "sad"
)

// EmotionSample is one classified window of a journal's audio track.
type EmotionSample struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// EmotionAnalysis is the full result of running the emotion classifier
// over a journal's audio: the dominant label, the per-label scores, and
// the windowed timeline.
type EmotionAnalysis struct {
	Dominant string             `json:"dominant"`
	Scores   map[string]float64 `json:"scores"`
	Timeline []EmotionSample    `json:"timeline"`
}
