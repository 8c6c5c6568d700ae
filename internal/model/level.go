package model

// Level is a heuristic CEFR-like proficiency label
type Level string

const (
	LevelInsufficient Level = "insufficient content"
	LevelA1A2         Level = "A1–A2"
	LevelB1           Level = "B1"
	LevelB2           Level = "B2"
	LevelC1C2         Level = "C1–C2"
)

// Rank orders levels; LevelInsufficient ranks below every real level
func (l Level) Rank() int {
	switch l {
	case LevelA1A2:
		return 1
	case LevelB1:
		return 2
	case LevelB2:
		return 3
	case LevelC1C2:
		return 4
	default:
		return 0
	}
}

// IsAssessed reports whether the label is an actual proficiency estimate
func (l Level) IsAssessed() bool {
	return l.Rank() > 0
}

// Levels lists the labels from insufficient content up to C1–C2
func Levels() []Level {
	return []Level{LevelInsufficient, LevelA1A2, LevelB1, LevelB2, LevelC1C2}
}

// Signal records one threshold rule that contributed to the level
type Signal struct {
	Type        SignalType             `json:"type"`
	Cap         Level                  `json:"cap"`     // Highest level this rule allows
	Binding     bool                   `json:"binding"` // Whether this rule set the final level
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"` // Inputs and thresholds
}

// SignalType classifies a level signal
type SignalType string

const (
	SignalContentGuard   SignalType = "content_guard"
	SignalErrorRatio     SignalType = "error_ratio"
	SignalSentenceLength SignalType = "sentence_length"
	SignalConnectors     SignalType = "connectors"
	SignalVolume         SignalType = "volume"
)
