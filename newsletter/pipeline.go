package newsletter

import (
	"context"

	"go.uber.org/zap"

	"newsletter-agent/logger"
	"newsletter-agent/model"
)

// Pipeline creates a fresh Agent for every request over shared collaborators.
type Pipeline struct {
	deps Deps
	cfg  Config
	log  *zap.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(deps Deps, cfg Config, log *zap.Logger) *Pipeline {
	return &Pipeline{deps: deps, cfg: cfg, log: logger.OrNop(log)}
}

// Generate composes a newsletter for links, fetching and summarizing them
// first. Any failure yields the composing error document.
func (p *Pipeline) Generate(ctx context.Context, links []string) model.Newsletter {
	return New(links, p.deps, p.cfg, p.log).Compose(ctx)
}
