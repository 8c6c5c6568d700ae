package model

import "sort"

// RemoteMatch is one issue reported by the grammar service.
// Offset and Length are UTF-16 code units into the submitted text, as the service counts them.
type RemoteMatch struct {
	Offset       int           `json:"offset"`
	Length       int           `json:"length"`
	Message      string        `json:"message"`
	ShortMessage string        `json:"shortMessage,omitempty"`
	Replacements []Replacement `json:"replacements"`
	Rule         Rule          `json:"rule"`
	Context      *MatchContext `json:"context,omitempty"`
	Sentence     string        `json:"sentence,omitempty"`
}

// Replacement is a candidate correction
type Replacement struct {
	Value string `json:"value"`
}

// Rule describes the service rule that fired
type Rule struct {
	ID          string       `json:"id,omitempty"`
	Description string       `json:"description,omitempty"`
	IssueType   string       `json:"issueType"`
	Category    RuleCategory `json:"category"`
}

// RuleCategory groups rules (e.g. GRAMMAR, TYPOS)
type RuleCategory struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// MatchContext is the excerpt the service highlights around a match
type MatchContext struct {
	Text   string `json:"text"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
}

// NoSuggestion is used when the service offers no replacement
const NoSuggestion = "none"

// ErrorRecord is the flat, display-oriented projection of a RemoteMatch
type ErrorRecord struct {
	Error       string `json:"error"`       // Text at the reported span
	Suggestion  string `json:"suggestion"`  // First replacement or NoSuggestion
	Explanation string `json:"explanation"` // Service message
	Type        string `json:"type"`        // Issue type tag
	Offset      int    `json:"offset"`
	Length      int    `json:"length"`
	RuleID      string `json:"rule_id,omitempty"`
	Category    string `json:"category,omitempty"`
}

// TypeCount is the number of error records sharing one issue type
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// SortTypeCounts orders counts for display: count descending, then type name
func SortTypeCounts(counts []TypeCount) {
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Type < counts[j].Type
	})
}
