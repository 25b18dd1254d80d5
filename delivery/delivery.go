package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"newsletter-agent/logger"
	"newsletter-agent/model"
)

// Event is the payload handed to every sink for one finished newsletter.
type Event struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Links       []string  `json:"links"`
	HTML        string    `json:"html,omitempty"`
}

// NewEvent wraps a newsletter for delivery.
func NewEvent(nl model.Newsletter) Event {
	return Event{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Links:       nl.Links,
		HTML:        nl.FullNewsletter,
	}
}

// Sink receives finished newsletters.
type Sink interface {
	ID() string
	Send(ctx context.Context, evt Event) error
}

// Deliverer fans a newsletter out to every configured sink.
type Deliverer struct {
	sinks []Sink
	log   *zap.Logger
}

// NewDeliverer creates a Deliverer over sinks.
func NewDeliverer(sinks []Sink, log *zap.Logger) *Deliverer {
	return &Deliverer{sinks: sinks, log: logger.OrNop(log)}
}

// Len returns the number of sinks.
func (d *Deliverer) Len() int { return len(d.sinks) }

// Deliver sends nl to every sink. A failing sink does not stop the others;
// all failures are returned joined.
func (d *Deliverer) Deliver(ctx context.Context, nl model.Newsletter) error {
	if len(d.sinks) == 0 {
		return nil
	}

	evt := NewEvent(nl)
	var errs []error
	for _, s := range d.sinks {
		start := time.Now()
		if err := s.Send(ctx, evt); err != nil {
			d.log.Error("newsletter delivery failed",
				zap.String("sink", s.ID()),
				zap.String("event_id", evt.ID),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("sink %s: %w", s.ID(), err))
			continue
		}
		d.log.Info("newsletter delivered",
			zap.String("sink", s.ID()),
			zap.String("event_id", evt.ID),
			zap.Duration("elapsed", time.Since(start)))
	}
	return errors.Join(errs...)
}

// Close releases sinks that hold connections.
func (d *Deliverer) Close() error {
	var errs []error
	for _, s := range d.sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing sink %s: %w", s.ID(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// Supported sink types.
const (
	TypeFile    = "file"
	TypeWebhook = "webhook"
	TypeSNS     = "sns"
	TypePubSub  = "pubsub"
)

// SinkConfig is one delivery entry from the config file.
type SinkConfig struct {
	ID      string         `mapstructure:"id" yaml:"id"`
	Type    string         `mapstructure:"type" yaml:"type"`
	Enabled *bool          `mapstructure:"enabled" yaml:"enabled"`
	File    *FileConfig    `mapstructure:"file" yaml:"file"`
	Webhook *WebhookConfig `mapstructure:"webhook" yaml:"webhook"`
	SNS     *SNSConfig     `mapstructure:"sns" yaml:"sns"`
	PubSub  *PubSubConfig  `mapstructure:"pubsub" yaml:"pubsub"`
}

// FileConfig writes each newsletter as an HTML file in Dir.
type FileConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// WebhookConfig posts each newsletter event as JSON.
type WebhookConfig struct {
	URL     string            `mapstructure:"url" yaml:"url"`
	Method  string            `mapstructure:"method" yaml:"method"`
	Headers map[string]string `mapstructure:"headers" yaml:"headers"`
	Timeout time.Duration     `mapstructure:"timeout" yaml:"timeout"`
}

// SNSConfig publishes to an AWS SNS topic. Without static keys the default
// AWS credential chain is used.
type SNSConfig struct {
	TopicARN        string `mapstructure:"topic_arn" yaml:"topic_arn"`
	Region          string `mapstructure:"region" yaml:"region"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
}

// PubSubConfig publishes to a Google Cloud Pub/Sub topic.
type PubSubConfig struct {
	ProjectID       string `mapstructure:"project_id" yaml:"project_id"`
	Topic           string `mapstructure:"topic" yaml:"topic"`
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
}

// IsEnabled reports the enabled flag, defaulting to true.
func (c SinkConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Validate checks that the entry names a known type with its settings.
func (c SinkConfig) Validate() error {
	id := strings.TrimSpace(c.ID)
	if id == "" {
		return errors.New("id is required")
	}

	switch strings.ToLower(strings.TrimSpace(c.Type)) {
	case TypeFile:
		if c.File == nil || strings.TrimSpace(c.File.Dir) == "" {
			return fmt.Errorf("file.dir is required for sink %q", id)
		}
	case TypeWebhook:
		if c.Webhook == nil || strings.TrimSpace(c.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required for sink %q", id)
		}
	case TypeSNS:
		if c.SNS == nil {
			return fmt.Errorf("sns config required for sink %q", id)
		}
		if c.SNS.TopicARN == "" {
			return fmt.Errorf("sns.topic_arn is required for sink %q", id)
		}
		if c.SNS.Region == "" {
			return fmt.Errorf("sns.region is required for sink %q", id)
		}
		if (c.SNS.AccessKeyID == "") != (c.SNS.SecretAccessKey == "") {
			return fmt.Errorf("sns.access_key_id and sns.secret_access_key must be set together for sink %q", id)
		}
	case TypePubSub:
		if c.PubSub == nil {
			return fmt.Errorf("pubsub config required for sink %q", id)
		}
		if c.PubSub.ProjectID == "" {
			return fmt.Errorf("pubsub.project_id is required for sink %q", id)
		}
		if c.PubSub.Topic == "" {
			return fmt.Errorf("pubsub.topic is required for sink %q", id)
		}
	case "":
		return fmt.Errorf("type is required for sink %q", id)
	default:
		return fmt.Errorf("type %q not supported for sink %q", c.Type, id)
	}
	return nil
}
