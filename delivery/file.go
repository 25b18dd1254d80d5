package delivery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

type fileSink struct {
	id  string
	dir string
}

func newFileSink(_ context.Context, cfg SinkConfig, _ *zap.Logger) (Sink, error) {
	if err := os.MkdirAll(cfg.File.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &fileSink{id: cfg.ID, dir: cfg.File.Dir}, nil
}

func (s *fileSink) ID() string { return s.id }

// Send writes newsletter_<timestamp>_<id>.html.
func (s *fileSink) Send(ctx context.Context, evt Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := fmt.Sprintf("newsletter_%s_%s.html", evt.GeneratedAt.Format("20060102_150405"), evt.ID)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, []byte(evt.HTML), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
