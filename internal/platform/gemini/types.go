// Package gemini provides implementations for the generation interface using Google's Gemini API.
package gemini

// promptData represents the data passed to the prompt template
type promptData struct {
	TranscriptText string
}

// ResponseSchema represents the expected structure of an insight from the Gemini API
type ResponseSchema struct {
	// Summary is a short reflective summary of the journal entry
	Summary string `json:"summary"`

	// Themes are optional recurring topics the model noticed in the entry
	Themes []string `json:"themes,omitempty"`
}
