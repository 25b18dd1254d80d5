package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsletter-agent/model"
	"newsletter-agent/newsletter"
)

type stubGenerator struct {
	got   []string
	calls int
	panic bool
}

func (s *stubGenerator) Generate(ctx context.Context, links []string) model.Newsletter {
	s.calls++
	s.got = links
	if s.panic {
		panic("boom")
	}
	return model.Newsletter{FullNewsletter: "<html>news</html>", Links: links}
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestGenerateNewsletter_Success(t *testing.T) {
	gen := &stubGenerator{}
	srv := New(gen, nil)

	rec := doRequest(t, srv, http.MethodPost, "/generate-newsletter", `{"links":["https://a","https://b"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "<html>news</html>", resp.Newsletter)
	assert.Equal(t, []string{"https://a", "https://b"}, gen.got)
}

func TestGenerateNewsletter_EmptyLinksStillOK(t *testing.T) {
	gen := &stubGenerator{}
	srv := New(gen, nil)

	rec := doRequest(t, srv, http.MethodPost, "/generate-newsletter", `{"links":[]}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, gen.calls)
}

func TestGenerateNewsletter_MalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"links":`},
		{"wrong type", `{"links":"https://a"}`},
		{"wrong element type", `{"links":[1,2]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &stubGenerator{}
			srv := New(gen, nil)

			rec := doRequest(t, srv, http.MethodPost, "/generate-newsletter", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, gen.calls)
		})
	}
}

func TestGenerateNewsletter_MethodNotAllowed(t *testing.T) {
	srv := New(&stubGenerator{}, nil)
	rec := doRequest(t, srv, http.MethodGet, "/generate-newsletter", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGenerateNewsletter_PanicRecovered(t *testing.T) {
	srv := New(&stubGenerator{panic: true}, nil)
	rec := doRequest(t, srv, http.MethodPost, "/generate-newsletter", `{"links":["https://a"]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type pageFetcher struct{}

func (pageFetcher) FetchAll(ctx context.Context, links []string) map[string]string {
	pages := make(map[string]string, len(links))
	for _, l := range links {
		pages[l] = "page text"
	}
	return pages
}

type pageSummarizer struct{ panicMsg string }

func (p pageSummarizer) SummarizeAll(ctx context.Context, pages map[string]string, links []string) []model.PageSummary {
	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	out := make([]model.PageSummary, 0, len(links))
	for _, l := range links {
		out = append(out, model.PageSummary{Link: l, Title: l, ContentSummary: "summary", InterestScore: 5})
	}
	return out
}

type fixedAbstract struct{}

func (fixedAbstract) Generate(ctx context.Context, summaries []model.PageSummary) model.ArticleAbstract {
	return model.ArticleAbstract{Abstract: "intro"}
}

func newPipelineServer(summarizer newsletter.PageSummarizer) *Server {
	p := newsletter.NewPipeline(newsletter.Deps{
		Fetcher:    pageFetcher{},
		Summarizer: summarizer,
		Abstracts:  fixedAbstract{},
	}, newsletter.Config{}, nil)
	return New(p, nil)
}

func decodeNewsletter(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code)
	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Newsletter
}

func TestGenerateNewsletter_PipelineRendersNewsletter(t *testing.T) {
	srv := newPipelineServer(pageSummarizer{})

	rec := doRequest(t, srv, http.MethodPost, "/generate-newsletter", `{"links":["https://a"]}`)

	html := decodeNewsletter(t, rec)
	assert.Contains(t, html, "<h1>Newsletter</h1>")
	assert.Contains(t, html, "intro")
}

func TestGenerateNewsletter_SummarizerPanicReportsComposingError(t *testing.T) {
	srv := newPipelineServer(pageSummarizer{panicMsg: "summarizer exploded"})

	rec := doRequest(t, srv, http.MethodPost, "/generate-newsletter", `{"links":["https://a"]}`)

	html := decodeNewsletter(t, rec)
	assert.Equal(t, "<p>Error composing newsletter: panic: summarizer exploded</p>", html)
}

func TestGenerateNewsletter_CancelledRequestReportsComposingError(t *testing.T) {
	srv := newPipelineServer(pageSummarizer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/generate-newsletter", strings.NewReader(`{"links":["https://a"]}`)).WithContext(ctx)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	html := decodeNewsletter(t, rec)
	assert.Equal(t, "<p>Error composing newsletter: context canceled</p>", html)
}

func TestHealthz(t *testing.T) {
	srv := New(&stubGenerator{}, nil)
	rec := doRequest(t, srv, http.MethodGet, "/healthz", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
