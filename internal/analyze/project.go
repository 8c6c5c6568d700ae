package analyze

import (
	"errors"
	"fmt"
	"unicode/utf16"

	"github.com/ppiankov/lingoscope/internal/model"
)

// ErrSpanOutOfRange means a match points outside the text it was reported for
var ErrSpanOutOfRange = errors.New("match span out of range")

// Project maps service matches onto flat error records.
// Spans are UTF-16 offsets, so non-ASCII text is sliced the way the service counted it.
func Project(text string, matches []model.RemoteMatch) ([]model.ErrorRecord, error) {
	records := make([]model.ErrorRecord, 0, len(matches))
	if len(matches) == 0 {
		return records, nil
	}

	units := utf16.Encode([]rune(text))

	for i, m := range matches {
		if m.Offset < 0 || m.Length < 0 || m.Offset+m.Length > len(units) {
			return nil, fmt.Errorf("match %d (offset %d, length %d, text %d units): %w",
				i, m.Offset, m.Length, len(units), ErrSpanOutOfRange)
		}

		suggestion := model.NoSuggestion
		if len(m.Replacements) > 0 {
			suggestion = m.Replacements[0].Value
		}

		records = append(records, model.ErrorRecord{
			Error:       string(utf16.Decode(units[m.Offset : m.Offset+m.Length])),
			Suggestion:  suggestion,
			Explanation: m.Message,
			Type:        typeKey(m.Rule.IssueType),
			Offset:      m.Offset,
			Length:      m.Length,
			RuleID:      m.Rule.ID,
			Category:    m.Rule.Category.Name,
		})
	}

	return records, nil
}
