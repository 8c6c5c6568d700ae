package model

import "time"

// Report is the complete result of analysing one text
type Report struct {
	ID        string    `json:"id"`
	Source    string    `json:"source,omitempty"` // File path or URL the text came from
	Language  string    `json:"language"`
	Detected  string    `json:"detected_language,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
	Text      string    `json:"text"`

	Stats      TextStats     `json:"stats"`
	Errors     []ErrorRecord `json:"errors"`
	TypeCounts []TypeCount   `json:"type_counts"`

	Level   Level    `json:"level"`
	Signals []Signal `json:"signals"`

	LLM *LLMFeedback `json:"llm,omitempty"` // Never affects the level
}

// TextStats are the surface measurements the level estimate uses
type TextStats struct {
	Words          int     `json:"words"`
	Sentences      int     `json:"sentences"`
	AvgSentenceLen float64 `json:"avg_sentence_length"`
	Connectors     int     `json:"connectors"`
	Chars          int     `json:"chars"` // Trimmed, in runes
	ErrorCount     int     `json:"error_count"`
	ErrorRatio     float64 `json:"error_ratio"`
}

// HasErrors reports whether the service flagged anything
func (r *Report) HasErrors() bool {
	return len(r.Errors) > 0
}

// LLMFeedback contains optional LLM-generated writing feedback
type LLMFeedback struct {
	Enabled    bool     `json:"enabled"`
	Provider   string   `json:"provider,omitempty"`
	Model      string   `json:"model,omitempty"`
	FeedbackMD string   `json:"feedback_md,omitempty"`
	TokensUsed int      `json:"tokens_used,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}
