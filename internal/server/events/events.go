// Package events publishes tenant events (e.g. FILE_CREATED) to the
// tenant's SQS queue.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/dmitrijs2005/docbox/internal/server/models"
)

// Event types.
const (
	FileCreated = "FILE_CREATED"
)

// Event is the message body sent to the tenant queue.
type Event struct {
	Type        string `json:"event"`
	DocumentBox string `json:"document_box"`
	Data        any    `json:"data"`
}

// Publisher sends tenant events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type sqsAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Factory builds tenant publishers from the shared SQS client.
type Factory struct {
	client sqsAPI
}

func NewFactory(client sqsAPI) *Factory {
	return &Factory{client: client}
}

// ForTenant returns the publisher for t. Tenants without a queue get a
// publisher that drops events.
func (f *Factory) ForTenant(t *models.Tenant) Publisher {
	if t.EventQueueURL == nil || *t.EventQueueURL == "" {
		return NoopPublisher{}
	}
	return &SQSPublisher{queueURL: *t.EventQueueURL, client: f.client}
}

// SQSPublisher sends JSON events to one queue.
type SQSPublisher struct {
	queueURL string
	client   sqsAPI
}

func (p *SQSPublisher) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("send %s event: %w", e.Type, err)
	}
	return nil
}

// NoopPublisher discards events.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
