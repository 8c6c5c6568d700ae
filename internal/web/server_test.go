package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/lingoscope/internal/grammar"
	"github.com/ppiankov/lingoscope/internal/model"
	"github.com/ppiankov/lingoscope/internal/pipeline"
)

type fakeAnalyzer struct {
	calls  int
	last   pipeline.Request
	report *model.Report
	err    error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req pipeline.Request) (*model.Report, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, pipeline.ErrEmptyInput
	}
	return f.report, nil
}

func grammarReport() *model.Report {
	return &model.Report{
		ID:       "r-1",
		Language: "en-US",
		Text:     "I has one error in this text.",
		Stats:    model.TextStats{Words: 7, Sentences: 1, AvgSentenceLen: 7, ErrorCount: 1},
		Errors: []model.ErrorRecord{{
			Error:       "has",
			Suggestion:  "have",
			Explanation: "Possible agreement error",
			Type:        "grammar",
			Offset:      2,
			Length:      3,
		}},
		TypeCounts: []model.TypeCount{{Type: "grammar", Count: 1}},
		Level:      model.LevelA1A2,
	}
}

func newTestServer(t *testing.T, a Analyzer) http.Handler {
	t.Helper()
	srv, err := NewServer(a, model.DefaultConfig(), nil)
	require.NoError(t, err)
	return srv.Router()
}

func postForm(h http.Handler, text string) *httptest.ResponseRecorder {
	form := url.Values{"text": {text}, "language": {"en-GB"}}
	req := httptest.NewRequest(http.MethodPost, "/check", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, &fakeAnalyzer{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestIndex_RendersForm(t *testing.T) {
	h := newTestServer(t, &fakeAnalyzer{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<textarea name="text"`)
	assert.Contains(t, body, "Check my writing")
	assert.Contains(t, body, `<option value="en-US" selected>`)
	assert.NotContains(t, body, "Error types")
}

func TestCheck_RendersResults(t *testing.T) {
	a := &fakeAnalyzer{report: grammarReport()}
	h := newTestServer(t, a)

	rec := postForm(h, "I has one error in this text.")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "en-GB", a.last.Language)
	body := rec.Body.String()
	assert.Contains(t, body, "<strong>Error 1</strong>")
	assert.Contains(t, body, "<code>has</code>")
	assert.Contains(t, body, "<code>have</code>")
	assert.Contains(t, body, "Found 1 issue.")
	assert.Contains(t, body, "Estimated level: A1–A2")
	assert.Contains(t, body, "<td>grammar</td>")
	assert.Contains(t, body, "<svg")
	assert.Contains(t, body, `width="320"`)
}

func TestCheck_NoErrorsShowsSuccess(t *testing.T) {
	report := grammarReport()
	report.Errors = []model.ErrorRecord{}
	report.TypeCounts = []model.TypeCount{}
	report.Level = model.LevelB1
	h := newTestServer(t, &fakeAnalyzer{report: report})

	rec := postForm(h, "I have no errors in this text.")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `class="banner success"`)
	assert.Contains(t, body, "No obvious errors found.")
	assert.NotContains(t, body, "<svg")
}

func TestCheck_InsufficientContentWarns(t *testing.T) {
	report := grammarReport()
	report.Level = model.LevelInsufficient
	h := newTestServer(t, &fakeAnalyzer{report: report})

	rec := postForm(h, "I has.")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `class="banner warning"`)
	assert.Contains(t, body, "insufficient content")
}

func TestCheck_SanitisesServiceText(t *testing.T) {
	report := grammarReport()
	report.Errors[0].Explanation = `<script>alert(1)</script> agreement`
	h := newTestServer(t, &fakeAnalyzer{report: report})

	rec := postForm(h, "I has one error in this text.")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<script>alert")
}

func TestCheck_ErrorStates(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		err    error
		status int
		banner string
	}{
		{"empty input", "   ", nil, http.StatusBadRequest, "warning"},
		{"rate limited", "text", &grammar.ServiceError{Kind: grammar.ErrRateLimited, StatusCode: 429}, http.StatusTooManyRequests, "error"},
		{"unreachable", "text", &grammar.ServiceError{Kind: grammar.ErrUnreachable, Err: fmt.Errorf("dial tcp: refused")}, http.StatusServiceUnavailable, "error"},
		{"malformed", "text", fmt.Errorf("grammar check: %w", &grammar.ServiceError{Kind: grammar.ErrMalformedResponse}), http.StatusBadGateway, "error"},
		{"upstream", "text", &grammar.ServiceError{Kind: grammar.ErrUpstreamStatus, StatusCode: 400}, http.StatusBadGateway, "error"},
		{"timeout", "text", context.DeadlineExceeded, http.StatusGatewayTimeout, "error"},
		{"timeout during transport", "text", fmt.Errorf("grammar check: %w", &grammar.ServiceError{
			Kind: grammar.ErrUnreachable, Err: fmt.Errorf("%w: dial tcp: i/o timeout", context.DeadlineExceeded),
		}), http.StatusGatewayTimeout, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &fakeAnalyzer{err: tt.err})
			rec := postForm(h, tt.text)

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `class="banner `+tt.banner+`"`)
			assert.Contains(t, rec.Body.String(), `<textarea name="text"`)
		})
	}
}

func TestAPICheck_ReturnsReport(t *testing.T) {
	a := &fakeAnalyzer{report: grammarReport()}
	h := newTestServer(t, a)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/check",
		strings.NewReader(`{"text":"I has one error in this text.","language":"en-US"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got model.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "has", got.Errors[0].Error)
	assert.Equal(t, []model.TypeCount{{Type: "grammar", Count: 1}}, got.TypeCounts)
	assert.Equal(t, model.LevelA1A2, got.Level)
	assert.Equal(t, "en-US", a.last.Language)
}

func TestAPICheck_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing text", `{"language":"en-US"}`, "text is required"},
		{"bad language", `{"text":"hello there","language":"not a tag"}`, "language must be a language code"},
		{"not json", `text=hello`, "invalid JSON body"},
		{"unknown field", `{"text":"hi","extra":1}`, "invalid JSON body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &fakeAnalyzer{report: grammarReport()}
			h := newTestServer(t, a)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/check", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var got ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, "invalid_request", got.Kind)
			assert.Contains(t, got.Error, tt.want)
			assert.Zero(t, a.calls)
		})
	}
}

func TestAPICheck_ServiceErrorKinds(t *testing.T) {
	a := &fakeAnalyzer{err: &grammar.ServiceError{Kind: grammar.ErrRateLimited, StatusCode: 429}}
	h := newTestServer(t, a)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/check", strings.NewReader(`{"text":"some text here"}`)))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	var got ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "rate_limited", got.Kind)
}

func TestAPICheck_BodyLimit(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Server.MaxFormBytes = 64
	srv, err := NewServer(&fakeAnalyzer{report: grammarReport()}, cfg, nil)
	require.NoError(t, err)

	body := `{"text":"` + strings.Repeat("a", 200) + `"}`
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/check", strings.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCheck_FormErrors(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Server.MaxFormBytes = 64
	analyzer := &fakeAnalyzer{report: grammarReport()}
	srv, err := NewServer(analyzer, cfg, nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		body   string
		status int
		banner string
	}{
		{"too large", "text=" + strings.Repeat("a", 200), http.StatusRequestEntityTooLarge, "too large"},
		{"bad encoding", "text=%zz", http.StatusBadRequest, "could not be read"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/check", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.banner)
		})
	}
	assert.Zero(t, analyzer.calls)
}

func TestCheck_RequestDeadlineIsTimeout(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer upstream.Close()

	cfg := model.DefaultConfig()
	cfg.Grammar.Endpoint = upstream.URL
	cfg.Cache.Enabled = false
	cfg.LLM.Provider = ""
	cfg.Server.RequestTimeout = 200 * time.Millisecond

	srv, err := NewServer(pipeline.NewPipeline(cfg, nil), cfg, nil)
	require.NoError(t, err)

	rec := postForm(srv.Router(), "I has one error in this text.")

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Contains(t, rec.Body.String(), "took too long")
	assert.NotContains(t, rec.Body.String(), "could not be reached")
}

func TestNewChart(t *testing.T) {
	assert.Nil(t, newChart(nil))

	c := newChart([]model.TypeCount{{Type: "grammar", Count: 4}, {Type: "misspelling", Count: 1}})
	require.NotNil(t, c)
	require.Len(t, c.Rows, 2)
	assert.Equal(t, chartBarWidth, c.Rows[0].BarWidth)
	assert.Equal(t, chartBarWidth/4, c.Rows[1].BarWidth)
	assert.Equal(t, 2*chartRowHeight, c.Height)
}
