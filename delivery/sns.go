package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"go.uber.org/zap"

	"newsletter-agent/logger"
)

// snsMaxMessageBytes is the SNS payload limit.
const snsMaxMessageBytes = 256 * 1024

// snsClient is the subset of the SNS client used by the sink.
type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type snsSink struct {
	id       string
	topicARN string
	client   snsClient
	log      *zap.Logger
}

func newSNSSink(ctx context.Context, cfg SinkConfig, log *zap.Logger) (Sink, error) {
	sc := cfg.SNS
	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(sc.Region)}
	if sc.AccessKeyID != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(sc.AccessKeyID, sc.SecretAccessKey, "")))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &snsSink{
		id:       cfg.ID,
		topicARN: sc.TopicARN,
		client:   sns.NewFromConfig(awsCfg),
		log:      logger.OrNop(log),
	}, nil
}

func (s *snsSink) ID() string { return s.id }

// Send publishes the event. When the HTML would exceed the SNS size limit it
// is dropped and only the metadata is published.
func (s *snsSink) Send(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	truncated := false
	if len(payload) > snsMaxMessageBytes {
		evt.HTML = ""
		truncated = true
		if payload, err = json.Marshal(evt); err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		s.log.Warn("newsletter html too large for sns, publishing metadata only",
			zap.String("sink", s.id),
			zap.String("event_id", evt.ID))
	}

	resp, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Message:  aws.String(string(payload)),
		Subject:  aws.String("Newsletter"),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_id": {
				DataType:    aws.String("String"),
				StringValue: aws.String(evt.ID),
			},
			"html_included": {
				DataType:    aws.String("String"),
				StringValue: aws.String(strconv.FormatBool(!truncated)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send message to sns: %w", err)
	}

	s.log.Debug("sns delivered newsletter", zap.String("message_id", aws.ToString(resp.MessageId)))
	return nil
}
