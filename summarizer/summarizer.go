package summarizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"newsletter-agent/llm"
	"newsletter-agent/logger"
	"newsletter-agent/model"
)

// FallbackInterestScore is assigned to pages whose summarization failed.
// It is the historical value; it has no documented derivation.
const FallbackInterestScore = 4

var pageSummarySchema = llm.Schema{
	Name: "page_summary",
	Schema: llm.ObjectSchema(map[string]any{
		"title":           map[string]any{"type": "string"},
		"content_summary": map[string]any{"type": "string"},
		"interest_score":  map[string]any{"type": "number"},
	}),
}

// pageSummaryOutput is the structured reply for one page.
type pageSummaryOutput struct {
	Title          string  `json:"title"`
	ContentSummary string  `json:"content_summary"`
	InterestScore  float64 `json:"interest_score"`
}

func (o pageSummaryOutput) Validate() error {
	if strings.TrimSpace(o.Title) == "" {
		return errors.New("title is empty")
	}
	if strings.TrimSpace(o.ContentSummary) == "" {
		return errors.New("content_summary is empty")
	}
	if math.IsNaN(o.InterestScore) || math.IsInf(o.InterestScore, 0) {
		return fmt.Errorf("interest_score %v is not finite", o.InterestScore)
	}
	return nil
}

// PageSummarizer produces a scored summary for each fetched page.
type PageSummarizer struct {
	client      llm.Client
	concurrency int
	log         *zap.Logger
}

// NewPageSummarizer creates a PageSummarizer. A concurrency of 0 means unbounded.
func NewPageSummarizer(client llm.Client, concurrency int, log *zap.Logger) *PageSummarizer {
	return &PageSummarizer{client: client, concurrency: concurrency, log: logger.OrNop(log)}
}

// Summarize calls the model once for a page. It never fails: errors become a
// sentinel summary carrying the error text and FallbackInterestScore.
func (s *PageSummarizer) Summarize(ctx context.Context, link, content string) model.PageSummary {
	start := time.Now()
	s.log.Info("starting page summarization", zap.String("url", link))

	prompt := strings.NewReplacer("$WEB_PAGE", content, "$LINK", link).Replace(summarizePageUser)

	var out pageSummaryOutput
	err := s.client.CompleteJSON(ctx, []llm.Message{
		llm.System(summarizePageSystem),
		llm.User(prompt),
	}, pageSummarySchema, &out)
	if err != nil {
		s.log.Error("error summarizing page", zap.String("url", link), zap.Error(err))
		return fallbackSummary(link, err)
	}

	s.log.Info("page summarization completed",
		zap.String("url", link),
		zap.Duration("elapsed", time.Since(start)))

	return model.PageSummary{
		Link:           link,
		Title:          strings.TrimSpace(out.Title),
		ContentSummary: strings.TrimSpace(out.ContentSummary),
		InterestScore:  out.InterestScore,
	}
}

// SummarizeAll summarizes every page concurrently. The result follows the
// order of links; links absent from pages are skipped, repeated links are
// summarized once at their first position.
func (s *PageSummarizer) SummarizeAll(ctx context.Context, pages map[string]string, links []string) []model.PageSummary {
	start := time.Now()
	s.log.Info("starting summarization of all pages", zap.Int("pages", len(pages)))

	order := make([]string, 0, len(pages))
	seen := make(map[string]bool, len(pages))
	for _, link := range links {
		if _, ok := pages[link]; !ok || seen[link] {
			continue
		}
		seen[link] = true
		order = append(order, link)
	}

	results := make([]model.PageSummary, len(order))

	g, gctx := errgroup.WithContext(ctx)
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for i, link := range order {
		i, link := i, link
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("page summarization panicked", zap.String("url", link), zap.Any("panic", r))
					results[i] = fallbackSummary(link, fmt.Errorf("panic: %v", r))
				}
			}()

			results[i] = s.Summarize(gctx, link, pages[link])
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info("all pages summarization completed",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("processed", len(results)))
	return results
}

func fallbackSummary(link string, err error) model.PageSummary {
	msg := fmt.Sprintf("Error summarizing page: %s", err)
	return model.PageSummary{
		Link:           link,
		Title:          msg,
		ContentSummary: msg,
		InterestScore:  FallbackInterestScore,
	}
}
