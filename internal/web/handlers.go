package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ppiankov/lingoscope/internal/grammar"
	"github.com/ppiankov/lingoscope/internal/observability"
	"github.com/ppiankov/lingoscope/internal/pipeline"
	"github.com/ppiankov/lingoscope/internal/render"
)

// CheckRequest is the JSON body of POST /api/v1/check
type CheckRequest struct {
	Text     string `json:"text" validate:"required"`
	Language string `json:"language,omitempty" validate:"omitempty,bcp47_language_tag"`
}

// ErrorResponse is the JSON error body
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.renderPage(w, http.StatusOK, s.formPage("", ""))
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		status, message := http.StatusBadRequest, "The form could not be read. Please submit it again."
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status, message = http.StatusRequestEntityTooLarge, "The submitted text is too large."
		}
		data := s.formPage("", "")
		data.Banners = []render.Banner{{Kind: render.BannerError, Message: message}}
		s.renderPage(w, status, data)
		return
	}

	text := r.PostFormValue("text")
	language := r.PostFormValue("language")
	if language != "" && !validLanguage(language) {
		language = ""
	}

	report, err := s.analyzer.Analyze(r.Context(), pipeline.Request{Text: text, Language: language})
	if err != nil {
		f := classify(err)
		s.logFailure(r, err, f)
		data := s.formPage(text, language)
		data.Banners = []render.Banner{{Kind: f.Banner, Message: f.Message}}
		s.renderPage(w, f.Status, data)
		return
	}

	data, err := s.resultPage(text, language, report)
	if err != nil {
		observability.FromContextOr(r.Context(), s.logger).Error("render result", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.renderPage(w, http.StatusOK, data)
}

func (s *Server) handleAPICheck(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large", Kind: "invalid_request"})
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body", Kind: "invalid_request"})
		return
	}

	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: validationMessage(err), Kind: "invalid_request"})
		return
	}

	report, err := s.analyzer.Analyze(r.Context(), pipeline.Request{Text: req.Text, Language: req.Language})
	if err != nil {
		f := classify(err)
		s.logFailure(r, err, f)
		writeJSON(w, f.Status, ErrorResponse{Error: f.Message, Kind: f.Kind})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) renderPage(w http.ResponseWriter, status int, data *pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.page.Execute(w, data); err != nil {
		s.logger.Error("execute template", zap.Error(err))
	}
}

func (s *Server) logFailure(r *http.Request, err error, f failure) {
	logger := observability.FromContextOr(r.Context(), s.logger)
	fields := []zap.Field{zap.Error(err), zap.String("kind", f.Kind), zap.Int("status", f.Status)}
	var svcErr *grammar.ServiceError
	if errors.As(err, &svcErr) && svcErr.StatusCode != 0 {
		fields = append(fields, zap.Int("upstream_status", svcErr.StatusCode))
	}
	if f.Status >= http.StatusInternalServerError {
		logger.Error("check failed", fields...)
		return
	}
	logger.Warn("check rejected", fields...)
}

// validLanguage reports whether lang is one of the offered varieties
func validLanguage(lang string) bool {
	for _, l := range languages {
		if l == lang {
			return true
		}
	}
	return false
}

// validationMessage turns validator errors into one readable line
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "bcp47_language_tag":
			msgs = append(msgs, field+" must be a language code such as en-US")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
