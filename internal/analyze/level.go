package analyze

import (
	"fmt"

	"github.com/ppiankov/lingoscope/internal/model"
)

// Estimator assigns a heuristic proficiency level from surface statistics
type Estimator struct {
	cfg        model.LevelConfig
	connectors []string
}

// NewEstimator creates an estimator with the given thresholds
func NewEstimator(cfg model.LevelConfig) *Estimator {
	connectors := make([]string, 0, len(DefaultConnectors)+len(cfg.ExtraConnectors))
	connectors = append(connectors, DefaultConnectors...)
	connectors = append(connectors, cfg.ExtraConnectors...)

	return &Estimator{
		cfg:        cfg,
		connectors: connectors,
	}
}

// Estimation is the outcome of a level estimate
type Estimation struct {
	Level   model.Level
	Stats   model.TextStats
	Signals []model.Signal
}

// Estimate returns the level for text with errorCount reported issues.
// The level is the lowest cap among the threshold rules, so a higher error ratio
// can never raise it.
func (e *Estimator) Estimate(text string, errorCount int) Estimation {
	stats := Measure(text, e.connectors)
	stats.ErrorCount = errorCount
	if stats.Words > 0 {
		stats.ErrorRatio = float64(errorCount) / float64(stats.Words)
	}

	// 0. Content guard
	if stats.Words < e.cfg.MinWords || stats.Chars < e.cfg.MinChars {
		return Estimation{
			Level: model.LevelInsufficient,
			Stats: stats,
			Signals: []model.Signal{{
				Type:        model.SignalContentGuard,
				Cap:         model.LevelInsufficient,
				Binding:     true,
				Description: fmt.Sprintf("Too little text to assess (%d words, %d characters)", stats.Words, stats.Chars),
				Data: map[string]interface{}{
					"words":     stats.Words,
					"chars":     stats.Chars,
					"min_words": e.cfg.MinWords,
					"min_chars": e.cfg.MinChars,
					"formula":   "words < min_words || chars < min_chars",
				},
			}},
		}
	}

	signals := []model.Signal{
		e.errorRatioSignal(stats),
		e.sentenceLengthSignal(stats),
		e.connectorSignal(stats),
		e.volumeSignal(stats),
	}

	level := model.LevelC1C2
	for _, s := range signals {
		if s.Cap.Rank() < level.Rank() {
			level = s.Cap
		}
	}
	for i := range signals {
		signals[i].Binding = signals[i].Cap == level
	}

	return Estimation{
		Level:   level,
		Stats:   stats,
		Signals: signals,
	}
}

// errorRatioSignal caps the level by errors per word
func (e *Estimator) errorRatioSignal(stats model.TextStats) model.Signal {
	t := e.cfg.ErrorRatio
	ratio := stats.ErrorRatio

	var level model.Level
	switch {
	case ratio > t[0]:
		level = model.LevelA1A2
	case ratio > t[1]:
		level = model.LevelB1
	case ratio > t[2]:
		level = model.LevelB2
	default:
		level = model.LevelC1C2
	}

	return model.Signal{
		Type:        model.SignalErrorRatio,
		Cap:         level,
		Description: fmt.Sprintf("Error ratio: %.3f (%d errors / %d words)", ratio, stats.ErrorCount, stats.Words),
		Data: map[string]interface{}{
			"errors":     stats.ErrorCount,
			"words":      stats.Words,
			"ratio":      ratio,
			"thresholds": t,
			"formula":    "errors / words",
		},
	}
}

// sentenceLengthSignal caps the level by average words per sentence
func (e *Estimator) sentenceLengthSignal(stats model.TextStats) model.Signal {
	t := e.cfg.SentenceLength
	avg := stats.AvgSentenceLen

	var level model.Level
	switch {
	case avg < t[0]:
		level = model.LevelA1A2
	case avg < t[1]:
		level = model.LevelB1
	case avg < t[2]:
		level = model.LevelB2
	default:
		level = model.LevelC1C2
	}

	return model.Signal{
		Type:        model.SignalSentenceLength,
		Cap:         level,
		Description: fmt.Sprintf("Average sentence length: %.1f words (%d sentences)", avg, stats.Sentences),
		Data: map[string]interface{}{
			"words":      stats.Words,
			"sentences":  stats.Sentences,
			"average":    avg,
			"thresholds": t,
			"formula":    "words / sentences",
		},
	}
}

// connectorSignal caps the level by the number of transition words
func (e *Estimator) connectorSignal(stats model.TextStats) model.Signal {
	t := e.cfg.Connectors

	var level model.Level
	switch {
	case stats.Connectors < t[0]:
		level = model.LevelB1
	case stats.Connectors < t[1]:
		level = model.LevelB2
	default:
		level = model.LevelC1C2
	}

	return model.Signal{
		Type:        model.SignalConnectors,
		Cap:         level,
		Description: fmt.Sprintf("Connector words: %d", stats.Connectors),
		Data: map[string]interface{}{
			"connectors": stats.Connectors,
			"thresholds": t,
		},
	}
}

// volumeSignal caps the level for short texts
func (e *Estimator) volumeSignal(stats model.TextStats) model.Signal {
	t := e.cfg.Volume

	var level model.Level
	switch {
	case stats.Words < t[0]:
		level = model.LevelB1
	case stats.Words < t[1]:
		level = model.LevelB2
	default:
		level = model.LevelC1C2
	}

	return model.Signal{
		Type:        model.SignalVolume,
		Cap:         level,
		Description: fmt.Sprintf("Text length: %d words", stats.Words),
		Data: map[string]interface{}{
			"words":      stats.Words,
			"thresholds": t,
		},
	}
}
