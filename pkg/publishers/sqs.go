package publishers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// sqsClient is the subset of the SQS API the publisher needs.
type sqsClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// sqsPublisher delivers events to an AWS SQS queue.
type sqsPublisher struct {
	id       string
	queueURL string
	client   sqsClient
	log      Logger
}

func newSQSPublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.SQS == nil {
		return nil, fmt.Errorf("sqs config missing for publisher %q", cfg.ID)
	}

	awsConfig, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(cfg.SQS.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config for publisher %q: %w", cfg.ID, err)
	}

	return &sqsPublisher{
		id:       cfg.ID,
		queueURL: cfg.SQS.QueueURL,
		client:   sqs.NewFromConfig(awsConfig),
		log:      ensureLogger(log),
	}, nil
}

func (p *sqsPublisher) ID() string   { return p.id }
func (p *sqsPublisher) Type() string { return TypeSQS }

// Publish serializes the event and sends it as one SQS message.
func (p *sqsPublisher) Publish(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("sqs publisher %q: marshal event: %w", p.id, err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"topic_id": {
				DataType:    aws.String("String"),
				StringValue: aws.String(evt.TopicID),
			},
		},
	}

	out, err := p.client.SendMessage(ctx, input)
	if err != nil {
		return fmt.Errorf("sqs publisher %q: send message: %w", p.id, err)
	}

	p.log.DebugObj("event published", "publisher", map[string]any{
		"id":         p.id,
		"message_id": aws.ToString(out.MessageId),
		"url":        evt.Item.URL,
	})
	return nil
}
