package delivery

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"newsletter-agent/logger"
)

// Builder creates a Sink from a config entry.
type Builder func(ctx context.Context, cfg SinkConfig, log *zap.Logger) (Sink, error)

// Registry maps sink types to builders.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns a registry with optional pre-registered builders.
func NewRegistry(builders map[string]Builder) *Registry {
	r := &Registry{builders: make(map[string]Builder)}
	for typ, b := range builders {
		r.Register(typ, b)
	}
	return r
}

// DefaultRegistry wires up the built-in sinks.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string]Builder{
		TypeFile:    newFileSink,
		TypeWebhook: newWebhookSink,
		TypeSNS:     newSNSSink,
		TypePubSub:  newPubSubSink,
	})
}

// Register associates a builder with a sink type.
func (r *Registry) Register(typ string, builder Builder) {
	if typ = strings.ToLower(strings.TrimSpace(typ)); typ == "" || builder == nil {
		return
	}
	r.mu.Lock()
	r.builders[typ] = builder
	r.mu.Unlock()
}

// SinkFor builds the sink described by cfg.
func (r *Registry) SinkFor(ctx context.Context, cfg SinkConfig, log *zap.Logger) (Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	builder := r.builders[strings.ToLower(strings.TrimSpace(cfg.Type))]
	r.mu.RUnlock()

	if builder == nil {
		return nil, fmt.Errorf("no sink registered for type %q", cfg.Type)
	}
	return builder(ctx, cfg, log)
}

// BuildAll instantiates every enabled sink. Sinks built before a failure are
// closed again.
func BuildAll(ctx context.Context, reg *Registry, cfgs []SinkConfig, log *zap.Logger) ([]Sink, error) {
	log = logger.OrNop(log)

	var sinks []Sink
	for _, cfg := range cfgs {
		if !cfg.IsEnabled() {
			log.Info("delivery sink disabled", zap.String("sink", cfg.ID))
			continue
		}
		s, err := reg.SinkFor(ctx, cfg, log)
		if err != nil {
			_ = NewDeliverer(sinks, log).Close()
			return nil, fmt.Errorf("building sink %q: %w", cfg.ID, err)
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}
