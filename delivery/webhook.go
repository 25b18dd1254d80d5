package delivery

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"newsletter-agent/httpclient"
)

const defaultWebhookTimeout = 30 * time.Second

type webhookSink struct {
	id     string
	url    string
	method string
	client *resty.Client
}

func newWebhookSink(_ context.Context, cfg SinkConfig, _ *zap.Logger) (Sink, error) {
	wc := cfg.Webhook
	method := strings.ToUpper(strings.TrimSpace(wc.Method))
	if method == "" {
		method = http.MethodPost
	}
	timeout := wc.Timeout
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}

	client := httpclient.New(httpclient.Options{Timeout: timeout})
	for k, v := range wc.Headers {
		if k = strings.TrimSpace(k); k != "" {
			client.SetHeader(k, strings.TrimSpace(v))
		}
	}

	return &webhookSink{
		id:     cfg.ID,
		url:    strings.TrimSpace(wc.URL),
		method: method,
		client: client,
	}, nil
}

func (s *webhookSink) ID() string { return s.id }

// Send posts the event as JSON and expects a 2xx answer.
func (s *webhookSink) Send(ctx context.Context, evt Event) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(evt).
		Execute(s.method, s.url)
	if err != nil {
		return fmt.Errorf("calling webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), httpclient.Snippet(resp.Body()))
	}
	return nil
}
