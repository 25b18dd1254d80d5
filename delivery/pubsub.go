package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"newsletter-agent/logger"
)

// pubsubMaxMessageBytes is the Pub/Sub message size limit.
const pubsubMaxMessageBytes = 10 * 1000 * 1000

// topicPublisher is the subset of a Pub/Sub topic used by the sink.
type topicPublisher interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error)
	Close() error
}

type gcpTopic struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

func (t *gcpTopic) Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error) {
	return t.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
}

func (t *gcpTopic) Close() error {
	t.topic.Stop()
	return t.client.Close()
}

type pubsubSink struct {
	id    string
	topic topicPublisher
	log   *zap.Logger
}

func newPubSubSink(ctx context.Context, cfg SinkConfig, log *zap.Logger) (Sink, error) {
	pc := cfg.PubSub

	var opts []option.ClientOption
	if pc.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(pc.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, pc.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	return &pubsubSink{
		id:    cfg.ID,
		topic: &gcpTopic{client: client, topic: client.Topic(pc.Topic)},
		log:   logger.OrNop(log),
	}, nil
}

func (s *pubsubSink) ID() string { return s.id }

func (s *pubsubSink) Send(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	truncated := false
	if len(payload) > pubsubMaxMessageBytes {
		evt.HTML = ""
		truncated = true
		if payload, err = json.Marshal(evt); err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		s.log.Warn("newsletter html too large for pubsub, publishing metadata only",
			zap.String("sink", s.id),
			zap.String("event_id", evt.ID))
	}

	msgID, err := s.topic.Publish(ctx, payload, map[string]string{
		"event_id":      evt.ID,
		"html_included": strconv.FormatBool(!truncated),
	})
	if err != nil {
		return fmt.Errorf("send message to pubsub: %w", err)
	}

	s.log.Debug("pubsub delivered newsletter", zap.String("message_id", msgID))
	return nil
}

func (s *pubsubSink) Close() error {
	return s.topic.Close()
}
