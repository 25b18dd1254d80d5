package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"newsletter-agent/config"
	"newsletter-agent/delivery"
	"newsletter-agent/fetcher"
	"newsletter-agent/hn"
	"newsletter-agent/httpclient"
	"newsletter-agent/imagegen"
	"newsletter-agent/llm"
	"newsletter-agent/newsletter"
	"newsletter-agent/summarizer"
)

// buildPipeline wires the newsletter collaborators from cfg.
func buildPipeline(cfg config.Config, log *zap.Logger) *newsletter.Pipeline {
	if cfg.Fetch.InsecureSkipVerify {
		log.Warn("TLS certificate verification is disabled for page fetches",
			zap.String("setting", "fetch.insecure_skip_verify"))
	}

	pages := fetcher.New(fetcher.Config{
		Timeout:            cfg.Fetch.Timeout,
		InsecureSkipVerify: cfg.Fetch.InsecureSkipVerify,
		MaxBodyBytes:       cfg.Fetch.MaxBodyBytes,
		Concurrency:        cfg.Fetch.Concurrency,
		UserAgent:          cfg.Fetch.UserAgent,
	}, log.Named("fetcher"))

	client := llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
		Timeout: cfg.OpenAI.Timeout,
	}, log.Named("llm"))

	deps := newsletter.Deps{
		Fetcher:    pages,
		Summarizer: summarizer.NewPageSummarizer(client, cfg.Newsletter.SummarizeConcurrency, log.Named("summarizer")),
		Abstracts:  summarizer.NewAbstractGenerator(client, cfg.Newsletter.MaxSummaries, log.Named("abstract")),
	}
	if cfg.Images.Enabled {
		deps.Images = imagegen.New(imagegen.Config{
			APIKey:    cfg.OpenAI.APIKey,
			BaseURL:   cfg.OpenAI.BaseURL,
			Model:     cfg.OpenAI.ImageModel,
			Size:      cfg.Images.Size,
			Quality:   cfg.Images.Quality,
			OutputDir: cfg.Images.OutputDir,
			Timeout:   cfg.OpenAI.Timeout,
		}, log.Named("imagegen"))
	}

	return newsletter.NewPipeline(deps, newsletter.Config{
		MaxSummaries:     cfg.Newsletter.MaxSummaries,
		ImageConcurrency: cfg.Images.Concurrency,
	}, log.Named("newsletter"))
}

// buildDeliverer instantiates the configured delivery sinks.
func buildDeliverer(ctx context.Context, cfg config.Config, log *zap.Logger) (*delivery.Deliverer, error) {
	sinks, err := delivery.BuildAll(ctx, delivery.DefaultRegistry(), cfg.Delivery, log.Named("delivery"))
	if err != nil {
		return nil, err
	}
	return delivery.NewDeliverer(sinks, log.Named("delivery")), nil
}

// linkSource yields the links for one scheduled run.
type linkSource interface {
	Links(ctx context.Context) ([]string, error)
}

type staticLinks []string

func (s staticLinks) Links(context.Context) ([]string, error) {
	return s, nil
}

// fileLinks rereads its file on every run so edits apply without a restart.
type fileLinks string

func (f fileLinks) Links(context.Context) ([]string, error) {
	return loadLinksFile(string(f))
}

func buildLinkSource(cfg config.ScheduleConfig, log *zap.Logger) (linkSource, error) {
	switch cfg.Source {
	case config.SourceHackerNews:
		client := hn.NewClient(httpclient.New(httpclient.Options{}))
		return hn.NewLinkSource(client, cfg.HNLimit, log.Named("hn")), nil
	case config.SourceStatic:
		if cfg.LinksFile != "" {
			if _, err := loadLinksFile(cfg.LinksFile); err != nil {
				return nil, err
			}
			return fileLinks(cfg.LinksFile), nil
		}
		if len(cfg.Links) == 0 {
			return nil, errors.New("schedule.links or schedule.links_file is required for the static source")
		}
		return staticLinks(cleanLinks(cfg.Links)), nil
	default:
		return nil, fmt.Errorf("unknown link source %q", cfg.Source)
	}
}

// loadLinksFile reads links from YAML: either a plain list or a mapping with
// a "links" key.
func loadLinksFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading links file: %w", err)
	}
	links, err := parseLinks(data)
	if err != nil {
		return nil, fmt.Errorf("parsing links file %s: %w", path, err)
	}
	return links, nil
}

func parseLinks(data []byte) ([]string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	var links []string
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&links); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		var wrapped struct {
			Links []string `yaml:"links"`
		}
		if err := root.Decode(&wrapped); err != nil {
			return nil, err
		}
		links = wrapped.Links
	default:
		return nil, errors.New("expected a list of links or a mapping with a links key")
	}
	return cleanLinks(links), nil
}

// cleanLinks trims entries and drops blanks.
func cleanLinks(links []string) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
