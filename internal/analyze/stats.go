package analyze

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/lingoscope/internal/model"
)

// DefaultConnectors are the transition words counted as a structural-complexity signal
var DefaultConnectors = []string{
	"however", "moreover", "therefore", "furthermore", "nevertheless",
	"consequently", "although", "meanwhile", "whereas", "nonetheless",
	"thus", "hence", "in addition", "on the other hand", "for example",
	"for instance", "in contrast", "as a result", "in conclusion",
}

// Measure computes the surface statistics of text.
// Error fields are left zero; the estimator fills them in.
func Measure(text string, connectors []string) model.TextStats {
	trimmed := strings.TrimSpace(text)
	words := strings.Fields(trimmed)

	stats := model.TextStats{
		Words: len(words),
		Chars: utf8.RuneCountInString(trimmed),
	}
	if stats.Words == 0 {
		return stats
	}

	stats.Sentences = countSentences(trimmed)
	if stats.Sentences == 0 {
		stats.Sentences = 1
	}
	stats.AvgSentenceLen = float64(stats.Words) / float64(stats.Sentences)
	stats.Connectors = countConnectors(tokenize(words), connectors)

	return stats
}

// countSentences counts segments between runs of terminators that contain a letter or digit
func countSentences(text string) int {
	count := 0
	hasContent := false
	for _, r := range text {
		switch {
		case r == '.' || r == '!' || r == '?':
			if hasContent {
				count++
				hasContent = false
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			hasContent = true
		}
	}
	// Trailing sentence without a terminator
	if hasContent {
		count++
	}
	return count
}

// tokenize lowercases words and strips surrounding punctuation
func tokenize(words []string) []string {
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		t := strings.TrimFunc(strings.ToLower(w), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// countConnectors counts whole-word (or whole-phrase) connector occurrences
func countConnectors(tokens []string, connectors []string) int {
	count := 0
	for _, c := range connectors {
		phrase := strings.Fields(strings.ToLower(c))
		if len(phrase) == 0 || len(phrase) > len(tokens) {
			continue
		}
		for i := 0; i+len(phrase) <= len(tokens); i++ {
			if matchAt(tokens, i, phrase) {
				count++
			}
		}
	}
	return count
}

func matchAt(tokens []string, i int, phrase []string) bool {
	for j, p := range phrase {
		if tokens[i+j] != p {
			return false
		}
	}
	return true
}
