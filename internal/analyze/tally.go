package analyze

import "github.com/ppiankov/lingoscope/internal/model"

// UnknownType labels records the service returned without an issue type
const UnknownType = "uncategorized"

// Tally counts error records per issue type, ordered by count then name
func Tally(records []model.ErrorRecord) []model.TypeCount {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Type]++
	}

	tally := make([]model.TypeCount, 0, len(counts))
	for t, c := range counts {
		tally = append(tally, model.TypeCount{Type: t, Count: c})
	}

	model.SortTypeCounts(tally)
	return tally
}

// typeKey normalises a missing issue type
func typeKey(t string) string {
	if t == "" {
		return UnknownType
	}
	return t
}
