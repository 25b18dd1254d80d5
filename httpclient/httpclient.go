package httpclient

import (
	"crypto/tls"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Options tunes a resty client. Zero Timeout means no client-side timeout.
type Options struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
	UserAgent          string
	BaseURL            string
}

// New returns a resty client without retries.
func New(opts Options) *resty.Client {
	c := resty.New().
		SetRetryCount(0).
		SetTimeout(opts.Timeout)

	if opts.InsecureSkipVerify {
		c.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec // pages are fetched with verification disabled on purpose
	}
	if ua := strings.TrimSpace(opts.UserAgent); ua != "" {
		c.SetHeader("User-Agent", ua)
	}
	if opts.BaseURL != "" {
		c.SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))
	}
	return c
}

// Snippet returns a truncated, trimmed copy of body for error messages.
func Snippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
