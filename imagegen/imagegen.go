package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"newsletter-agent/httpclient"
	"newsletter-agent/logger"
	"newsletter-agent/model"
)

// ErrNoImage is returned when the API answers without an image URL.
var ErrNoImage = errors.New("image response has no url")

const timestampLayout = "20060102_150405"

// Config configures image generation.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	Size      string
	Quality   string
	OutputDir string
	Timeout   time.Duration
}

type generationRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Size    string `json:"size"`
	Quality string `json:"quality"`
	N       int    `json:"n"`
}

type generationResponse struct {
	Data []struct {
		URL           string `json:"url"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generator illustrates summaries through an OpenAI-compatible images API
// and keeps a local PNG copy of every image.
type Generator struct {
	client *resty.Client
	cfg    Config
	now    func() time.Time
	log    *zap.Logger
}

// New creates a Generator with its own HTTP client.
func New(cfg Config, log *zap.Logger) *Generator {
	return NewWithClient(httpclient.New(httpclient.Options{
		Timeout: cfg.Timeout,
		BaseURL: cfg.BaseURL,
	}), cfg, log)
}

// NewWithClient creates a Generator using a custom resty client (for testing).
func NewWithClient(client *resty.Client, cfg Config, log *zap.Logger) *Generator {
	if cfg.Model == "" {
		cfg.Model = "dall-e-3"
	}
	if cfg.Size == "" {
		cfg.Size = "1024x1024"
	}
	if cfg.Quality == "" {
		cfg.Quality = "standard"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "generated_images"
	}
	return &Generator{client: client, cfg: cfg, now: time.Now, log: logger.OrNop(log)}
}

// Generate creates one image for summary, downloads it into the output
// directory and returns its URL, local path and base64 encoding.
func (g *Generator) Generate(ctx context.Context, summary string) (*model.Image, error) {
	start := time.Now()
	g.log.Info("generating image", zap.Int("summary_len", len(summary)))

	imageURL, err := g.requestImage(ctx, summary)
	if err != nil {
		return nil, err
	}

	g.log.Debug("downloading image", zap.String("url", imageURL))
	resp, err := g.client.R().SetContext(ctx).Get(imageURL)
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("downloading image returned status %d", resp.StatusCode())
	}
	content := resp.Body()

	ts := g.now()
	path, err := g.save(ts, content)
	if err != nil {
		return nil, err
	}

	g.log.Info("image generated",
		zap.String("path", path),
		zap.Duration("elapsed", time.Since(start)))

	return &model.Image{
		URL:       imageURL,
		LocalPath: path,
		Timestamp: ts.Format(timestampLayout),
		Base64PNG: base64.StdEncoding.EncodeToString(content),
	}, nil
}

func (g *Generator) requestImage(ctx context.Context, summary string) (string, error) {
	resp, err := g.client.R().
		SetContext(ctx).
		SetAuthToken(g.cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetBody(generationRequest{
			Model:   g.cfg.Model,
			Prompt:  strings.ReplaceAll(imagePrompt, "$SUMMARY", summary),
			Size:    g.cfg.Size,
			Quality: g.cfg.Quality,
			N:       1,
		}).
		Post("/images/generations")
	if err != nil {
		return "", fmt.Errorf("calling image generation: %w", err)
	}
	if resp.IsError() {
		msg := httpclient.Snippet(resp.Body())
		var apiErr apiError
		if json.Unmarshal(resp.Body(), &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return "", fmt.Errorf("image generation returned status %d: %s", resp.StatusCode(), msg)
	}

	var out generationResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("parsing image generation response: %w", err)
	}
	if len(out.Data) == 0 || out.Data[0].URL == "" {
		return "", ErrNoImage
	}
	return out.Data[0].URL, nil
}

// save writes content under a timestamped name. Images generated within the
// same second get a numeric suffix instead of overwriting each other.
func (g *Generator) save(ts time.Time, content []byte) (string, error) {
	if err := os.MkdirAll(g.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating image directory: %w", err)
	}

	base := "generated_image_" + ts.Format(timestampLayout)
	for n := 0; ; n++ {
		name := base + ".png"
		if n > 0 {
			name = fmt.Sprintf("%s_%d.png", base, n)
		}
		path := filepath.Join(g.cfg.OutputDir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating image file: %w", err)
		}
		if _, err := f.Write(content); err != nil {
			f.Close()
			return "", fmt.Errorf("writing image file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("closing image file: %w", err)
		}
		return path, nil
	}
}
