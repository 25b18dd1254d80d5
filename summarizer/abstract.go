package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"newsletter-agent/llm"
	"newsletter-agent/logger"
	"newsletter-agent/model"
	"newsletter-agent/ranker"
)

var abstractSchema = llm.Schema{
	Name: "article_abstract",
	Schema: llm.ObjectSchema(map[string]any{
		"abstract": map[string]any{"type": "string"},
	}),
}

type abstractOutput struct {
	Abstract string `json:"abstract"`
}

func (o abstractOutput) Validate() error {
	if strings.TrimSpace(o.Abstract) == "" {
		return errors.New("abstract is empty")
	}
	return nil
}

// AbstractGenerator synthesizes the newsletter introduction.
type AbstractGenerator struct {
	client       llm.Client
	maxSummaries int
	log          *zap.Logger
}

// NewAbstractGenerator creates an AbstractGenerator over the top maxSummaries
// summaries; values below 1 fall back to ranker.DefaultTop.
func NewAbstractGenerator(client llm.Client, maxSummaries int, log *zap.Logger) *AbstractGenerator {
	if maxSummaries < 1 {
		maxSummaries = ranker.DefaultTop
	}
	return &AbstractGenerator{client: client, maxSummaries: maxSummaries, log: logger.OrNop(log)}
}

// Generate calls the model once over the highest-scored summaries. It never
// fails: errors become an abstract carrying the error text.
func (g *AbstractGenerator) Generate(ctx context.Context, summaries []model.PageSummary) model.ArticleAbstract {
	start := time.Now()

	top := ranker.Top(summaries, g.maxSummaries)
	prompt := strings.ReplaceAll(abstractUser, "$SUMMARIES", CombineSummaries(top))

	var out abstractOutput
	err := g.client.CompleteJSON(ctx, []llm.Message{
		llm.System(abstractSystem),
		llm.User(prompt),
	}, abstractSchema, &out)
	if err != nil {
		g.log.Error("error generating article abstract", zap.Error(err))
		return model.ArticleAbstract{
			Abstract: fmt.Sprintf("Error generating article abstract: %s", err),
		}
	}

	g.log.Info("article abstract generation completed",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("summaries", len(top)))

	return model.ArticleAbstract{Abstract: strings.TrimSpace(out.Abstract)}
}

// CombineSummaries joins summaries into the abstract prompt context.
func CombineSummaries(summaries []model.PageSummary) string {
	parts := make([]string, len(summaries))
	for i, s := range summaries {
		parts[i] = fmt.Sprintf("Summary from %s:\n%s", s.Link, s.ContentSummary)
	}
	return strings.Join(parts, "\n")
}
