package render

import (
	"fmt"

	"github.com/ppiankov/lingoscope/internal/model"
)

// BannerKind selects a banner's styling
type BannerKind string

const (
	BannerSuccess BannerKind = "success"
	BannerWarning BannerKind = "warning"
	BannerError   BannerKind = "error"
	BannerInfo    BannerKind = "info"
)

// Banner is a one-line status message shown above or below results
type Banner struct {
	Kind    BannerKind
	Message string
}

// ResultBanner summarises the error list
func ResultBanner(report *model.Report) Banner {
	if !report.HasErrors() {
		return Banner{Kind: BannerSuccess, Message: "No obvious errors found."}
	}
	noun := "issues"
	if len(report.Errors) == 1 {
		noun = "issue"
	}
	return Banner{Kind: BannerInfo, Message: fmt.Sprintf("Found %d %s.", len(report.Errors), noun)}
}

// LevelBanner presents the level estimate
func LevelBanner(report *model.Report) Banner {
	if !report.Level.IsAssessed() {
		return Banner{
			Kind: BannerWarning,
			Message: fmt.Sprintf("Level: %s. Write at least %d words so the level can be estimated.",
				model.LevelInsufficient, minWords(report)),
		}
	}
	return Banner{Kind: BannerSuccess, Message: fmt.Sprintf("Estimated level: %s", report.Level)}
}

// minWords reads the content-guard threshold back from the report's signals
func minWords(report *model.Report) int {
	for _, s := range report.Signals {
		if s.Type != model.SignalContentGuard {
			continue
		}
		if v, ok := s.Data["min_words"].(int); ok {
			return v
		}
	}
	return model.DefaultLevelConfig().MinWords
}
