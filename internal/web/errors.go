package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/ppiankov/lingoscope/internal/grammar"
	"github.com/ppiankov/lingoscope/internal/pipeline"
	"github.com/ppiankov/lingoscope/internal/render"
)

// failure is how an analysis error is shown to the user
type failure struct {
	Status  int
	Kind    string
	Message string
	Banner  render.BannerKind
}

// classify maps an analysis error to a status code and user-facing message.
// A request that ran out of time is a timeout even when the grammar client
// reports it as a transport failure.
func classify(err error) failure {
	switch {
	case errors.Is(err, pipeline.ErrEmptyInput):
		return failure{http.StatusBadRequest, "empty_input", "Please enter some English text first.", render.BannerWarning}
	case errors.Is(err, context.DeadlineExceeded):
		return failure{http.StatusGatewayTimeout, "timeout", "The check took too long. Try a shorter text.", render.BannerError}
	case errors.Is(err, grammar.ErrRateLimited):
		return failure{http.StatusTooManyRequests, grammar.KindName(err),
			"The grammar service is receiving too many requests. Please wait a minute and try again.", render.BannerError}
	case errors.Is(err, grammar.ErrUnreachable):
		return failure{http.StatusServiceUnavailable, grammar.KindName(err),
			"The grammar service could not be reached. Please try again later.", render.BannerError}
	case errors.Is(err, grammar.ErrMalformedResponse):
		return failure{http.StatusBadGateway, grammar.KindName(err),
			"The grammar service returned a response that could not be understood.", render.BannerError}
	case errors.Is(err, grammar.ErrUpstreamStatus):
		return failure{http.StatusBadGateway, grammar.KindName(err),
			"The grammar service rejected the request.", render.BannerError}
	default:
		return failure{http.StatusInternalServerError, "internal", "Something went wrong while checking the text.", render.BannerError}
	}
}
