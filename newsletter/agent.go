package newsletter

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"newsletter-agent/logger"
	"newsletter-agent/model"
	"newsletter-agent/ranker"
)

// Fetcher retrieves pages as plain text keyed by link.
type Fetcher interface {
	FetchAll(ctx context.Context, links []string) map[string]string
}

// PageSummarizer scores and summarizes fetched pages in link order.
type PageSummarizer interface {
	SummarizeAll(ctx context.Context, pages map[string]string, links []string) []model.PageSummary
}

// AbstractGenerator writes the newsletter introduction.
type AbstractGenerator interface {
	Generate(ctx context.Context, summaries []model.PageSummary) model.ArticleAbstract
}

// ImageGenerator illustrates one summary.
type ImageGenerator interface {
	Generate(ctx context.Context, summary string) (*model.Image, error)
}

// Deps are the collaborators shared by every run. Images may be nil, in
// which case featured summaries render a placeholder.
type Deps struct {
	Fetcher    Fetcher
	Summarizer PageSummarizer
	Abstracts  AbstractGenerator
	Images     ImageGenerator
}

// Config holds composition settings. Zero ImageConcurrency means unbounded.
type Config struct {
	MaxSummaries     int
	ImageConcurrency int
}

// Agent produces one newsletter for a fixed list of links. An Agent owns its
// summaries and must not be shared between runs.
type Agent struct {
	links []string
	deps  Deps
	cfg   Config
	log   *zap.Logger
	rend  *renderer

	mu         sync.Mutex
	summaries  []model.PageSummary
	summarized bool
}

// New creates an Agent for links.
func New(links []string, deps Deps, cfg Config, log *zap.Logger) *Agent {
	if cfg.MaxSummaries < 1 {
		cfg.MaxSummaries = ranker.DefaultTop
	}
	return &Agent{
		links: append([]string(nil), links...),
		deps:  deps,
		cfg:   cfg,
		log:   logger.OrNop(log),
		rend:  newRenderer(),
	}
}

// Links returns the input links.
func (a *Agent) Links() []string {
	return append([]string(nil), a.links...)
}

// SetSummaries supplies precomputed summaries so Compose skips fetching.
func (a *Agent) SetSummaries(summaries []model.PageSummary) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summaries = append([]model.PageSummary(nil), summaries...)
	a.summarized = true
}

// Summaries returns the current summaries in input order.
func (a *Agent) Summaries() []model.PageSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.PageSummary(nil), a.summaries...)
}

// SummarizeAll fetches every link and summarizes the pages that could be
// retrieved. The result also becomes the Agent's summaries.
func (a *Agent) SummarizeAll(ctx context.Context) []model.PageSummary {
	start := time.Now()
	pages := a.deps.Fetcher.FetchAll(ctx, a.links)
	summaries := a.deps.Summarizer.SummarizeAll(ctx, pages, a.links)

	a.log.Info("pages summarized",
		zap.Int("links", len(a.links)),
		zap.Int("fetched", len(pages)),
		zap.Int("summaries", len(summaries)),
		zap.Duration("elapsed", time.Since(start)))

	a.SetSummaries(summaries)
	return summaries
}

// Compose renders the newsletter. It never fails: any error or panic yields
// an error document listing the input links.
func (a *Agent) Compose(ctx context.Context) (nl model.Newsletter) {
	start := time.Now()
	a.log.Info("starting newsletter composition", zap.Int("links", len(a.links)))

	defer func() {
		if r := recover(); r != nil {
			nl = a.failure("Error composing newsletter", fmt.Errorf("panic: %v", r))
		}
	}()

	nl, err := a.compose(ctx)
	if err != nil {
		return a.failure("Error composing newsletter", err)
	}

	a.log.Info("newsletter composition completed",
		zap.Int("featured", min(a.cfg.MaxSummaries, len(nl.Links))),
		zap.Int("total", len(nl.Links)),
		zap.Duration("elapsed", time.Since(start)))
	return nl
}

// Run summarizes every link, then composes. Failures yield an error document
// listing the input links.
func (a *Agent) Run(ctx context.Context) (nl model.Newsletter) {
	start := time.Now()
	a.log.Info("starting newsletter agent execution")

	defer func() {
		if r := recover(); r != nil {
			nl = a.failure("Error generating newsletter", fmt.Errorf("panic: %v", r))
		}
	}()

	a.SummarizeAll(ctx)
	if err := ctx.Err(); err != nil {
		return a.failure("Error generating newsletter", err)
	}
	nl = a.Compose(ctx)

	a.log.Info("newsletter agent execution completed", zap.Duration("elapsed", time.Since(start)))
	return nl
}

func (a *Agent) compose(ctx context.Context) (model.Newsletter, error) {
	a.mu.Lock()
	summarized := a.summarized
	a.mu.Unlock()
	if !summarized {
		a.SummarizeAll(ctx)
	}
	summaries := a.Summaries()

	abstract := a.deps.Abstracts.Generate(ctx, summaries)

	ranked := ranker.Rank(summaries)
	featured, overflow := ranker.Split(ranked, a.cfg.MaxSummaries)

	a.attachImages(ctx, featured)

	if err := ctx.Err(); err != nil {
		return model.Newsletter{}, err
	}

	var sb strings.Builder
	a.rend.render(&sb, abstract, featured, ranker.Links(overflow))

	return model.Newsletter{
		FullNewsletter: sb.String(),
		Links:          ranker.Links(ranked),
	}, nil
}

// attachImages illustrates each featured summary concurrently. A failed or
// panicking image call is logged and leaves the summary without one.
func (a *Agent) attachImages(ctx context.Context, featured []model.PageSummary) {
	if a.deps.Images == nil || len(featured) == 0 {
		return
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	if a.cfg.ImageConcurrency > 0 {
		g.SetLimit(a.cfg.ImageConcurrency)
	}
	for i := range featured {
		i := i
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					a.log.Error("image generation panicked, using placeholder",
						zap.String("url", featured[i].Link),
						zap.Any("panic", r))
				}
			}()

			img, err := a.deps.Images.Generate(gctx, featured[i].ContentSummary)
			if err != nil {
				a.log.Warn("image generation failed, using placeholder",
					zap.String("url", featured[i].Link),
					zap.Error(err))
				return nil
			}
			featured[i].Image = img
			return nil
		})
	}
	_ = g.Wait()

	a.log.Info("images attached",
		zap.Int("featured", len(featured)),
		zap.Duration("elapsed", time.Since(start)))
}

func (a *Agent) failure(prefix string, err error) model.Newsletter {
	a.log.Error(strings.ToLower(prefix), zap.Error(err))
	return model.Newsletter{
		FullNewsletter: errorDocument(prefix, err),
		Links:          a.Links(),
	}
}
