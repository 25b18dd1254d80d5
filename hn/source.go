package hn

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"newsletter-agent/logger"
)

const itemConcurrency = 8

// LinkSource turns the current top stories into newsletter links.
type LinkSource struct {
	client Client
	limit  int
	log    *zap.Logger
}

// NewLinkSource creates a LinkSource reading at most limit stories.
func NewLinkSource(client Client, limit int, log *zap.Logger) *LinkSource {
	return &LinkSource{client: client, limit: limit, log: logger.OrNop(log)}
}

// Links returns story links in ranking order. Items that fail to load, or
// that are dead, deleted or not stories, are skipped.
func (s *LinkSource) Links(ctx context.Context) ([]string, error) {
	start := time.Now()

	ids, err := s.client.TopStories(ctx, s.limit)
	if err != nil {
		return nil, fmt.Errorf("loading top stories: %w", err)
	}

	slots := make([]string, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(itemConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			item, err := s.client.GetItem(gctx, id)
			if err != nil {
				s.log.Warn("failed to fetch item", zap.Int("id", id), zap.Error(err))
				return nil
			}
			if item.Dead || item.Deleted || (item.Type != "" && item.Type != "story") {
				return nil
			}
			slots[i] = item.Link()
			return nil
		})
	}
	_ = g.Wait()

	links := make([]string, 0, len(slots))
	for _, l := range slots {
		if l != "" {
			links = append(links, l)
		}
	}

	s.log.Info("hacker news links loaded",
		zap.Int("stories", len(ids)),
		zap.Int("links", len(links)),
		zap.Duration("elapsed", time.Since(start)))
	return links, nil
}
