package hn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"newsletter-agent/httpclient"
)

const (
	BaseURL       = "https://hacker-news.firebaseio.com"
	DiscussionURL = "https://news.ycombinator.com/item?id=%d"
)

// Item is a Hacker News item.
type Item struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Type        string `json:"type"`
	Dead        bool   `json:"dead"`
	Deleted     bool   `json:"deleted"`
}

// Link returns the article URL, or the discussion page for text posts.
func (i *Item) Link() string {
	if i.URL != "" {
		return i.URL
	}
	return fmt.Sprintf(DiscussionURL, i.ID)
}

// Client reads the Hacker News API.
type Client interface {
	TopStories(ctx context.Context, limit int) ([]int, error)
	GetItem(ctx context.Context, id int) (*Item, error)
}

type restClient struct {
	client *resty.Client
}

// NewClient creates a Client against the public API. The resty client is
// dedicated to Hacker News: its base URL is overwritten. A nil client gets a
// default one.
func NewClient(client *resty.Client) Client {
	return NewClientWithBaseURL(client, BaseURL)
}

// NewClientWithBaseURL creates a Client with a custom base URL (for testing).
func NewClientWithBaseURL(client *resty.Client, baseURL string) Client {
	if client == nil {
		client = httpclient.New(httpclient.Options{})
	}
	return &restClient{client: client.SetBaseURL(baseURL)}
}

// TopStories returns up to limit top story IDs; limit <= 0 returns all.
func (c *restClient) TopStories(ctx context.Context, limit int) ([]int, error) {
	resp, err := c.client.R().SetContext(ctx).Get("/v0/topstories.json")
	if err != nil {
		return nil, fmt.Errorf("fetching top stories: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("top stories returned status %d", resp.StatusCode())
	}

	var ids []int
	if err := json.Unmarshal(resp.Body(), &ids); err != nil {
		return nil, fmt.Errorf("decoding top stories response: %w", err)
	}

	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	return ids, nil
}

// GetItem fetches a single item by ID.
func (c *restClient) GetItem(ctx context.Context, id int) (*Item, error) {
	resp, err := c.client.R().SetContext(ctx).Get(fmt.Sprintf("/v0/item/%d.json", id))
	if err != nil {
		return nil, fmt.Errorf("fetching item %d: %w", id, err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("item %d not found", id)
	default:
		return nil, fmt.Errorf("item %d returned status %d", id, resp.StatusCode())
	}

	// Unknown IDs come back as a literal null.
	var item *Item
	if err := json.Unmarshal(resp.Body(), &item); err != nil {
		return nil, fmt.Errorf("decoding item %d: %w", id, err)
	}
	if item == nil {
		return nil, fmt.Errorf("item %d not found", id)
	}
	return item, nil
}
