package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"newsletter-agent/httpclient"
	"newsletter-agent/logger"
)

// ErrEmptyText is returned when a page yields no readable text.
var ErrEmptyText = errors.New("page has no readable text")

// Config tunes page retrieval. Zero values mean unbounded. MaxBodyBytes caps
// how much of each response is read; longer pages are cut at that size.
type Config struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
	MaxBodyBytes       int64
	Concurrency        int
	UserAgent          string
}

// Fetcher retrieves web pages and converts them to plain text.
type Fetcher struct {
	client *resty.Client
	cfg    Config
	log    *zap.Logger
}

// New creates a Fetcher with its own HTTP client built from cfg.
func New(cfg Config, log *zap.Logger) *Fetcher {
	client := httpclient.New(httpclient.Options{
		Timeout:            cfg.Timeout,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		UserAgent:          cfg.UserAgent,
	})
	return NewWithClient(client, cfg, log)
}

// NewWithClient creates a Fetcher using a custom resty client (for testing).
func NewWithClient(client *resty.Client, cfg Config, log *zap.Logger) *Fetcher {
	if client == nil {
		client = httpclient.New(httpclient.Options{})
	}
	return &Fetcher{client: client, cfg: cfg, log: logger.OrNop(log)}
}

// Fetch retrieves one page and returns its plain text.
func (f *Fetcher) Fetch(ctx context.Context, link string) (string, error) {
	pageURL, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parsing url %s: %w", link, err)
	}

	resp, err := f.client.R().SetContext(ctx).SetDoNotParseResponse(true).Get(link)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", link, err)
	}
	raw := resp.RawBody()
	defer raw.Close()

	body, truncated, err := readBody(raw, f.cfg.MaxBodyBytes)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", link, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("fetching %s returned status %d: %s", link, resp.StatusCode(), httpclient.Snippet(body))
	}
	if truncated {
		f.log.Info("html body truncated",
			zap.String("url", link),
			zap.Int64("kept", f.cfg.MaxBodyBytes))
	}

	text, err := HTMLToText(body, pageURL)
	if err != nil {
		return "", fmt.Errorf("extracting text from %s: %w", link, err)
	}
	if text == "" {
		return "", fmt.Errorf("%s: %w", link, ErrEmptyText)
	}
	return text, nil
}

// FetchAll retrieves every link concurrently and returns the text of each page
// that succeeded, keyed by link. Failed links are logged and omitted.
func (f *Fetcher) FetchAll(ctx context.Context, links []string) map[string]string {
	start := time.Now()
	f.log.Info("starting web page fetching", zap.Int("links", len(links)))

	texts := make([]string, len(links))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit(f.cfg.Concurrency))
	for i, link := range links {
		i, link := i, link
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					f.log.Error("page fetch panicked", zap.String("url", link), zap.Any("panic", r))
				}
			}()

			text, err := f.Fetch(gctx, link)
			if err != nil {
				f.log.Warn("page fetch failed", zap.String("url", link), zap.Error(err))
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	_ = g.Wait()

	pages := make(map[string]string, len(links))
	for i, link := range links {
		if texts[i] != "" {
			pages[link] = texts[i]
		}
	}

	f.log.Info("web page fetching completed",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("pages", len(pages)))
	return pages
}

// readBody reads at most n bytes from r, or everything when n <= 0. A
// truncated body never ends in a partial UTF-8 sequence.
func readBody(r io.Reader, n int64) ([]byte, bool, error) {
	if n <= 0 {
		b, err := io.ReadAll(r)
		return b, false, err
	}
	b, err := io.ReadAll(io.LimitReader(r, n+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(b)) <= n {
		return b, false, nil
	}
	return trimPartialRune(b[:n]), true, nil
}

func trimPartialRune(b []byte) []byte {
	for i := 1; i <= utf8.UTFMax && i <= len(b); i++ {
		if utf8.RuneStart(b[len(b)-i]) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			return b
		}
	}
	return b
}

func limit(n int) int {
	if n <= 0 {
		return -1
	}
	return n
}
