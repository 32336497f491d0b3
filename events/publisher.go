package events

import (
	"context"
	"encoding/json"
	"fmt"

	aws_pkg "github.com/kylerivers/47-industries-admin/pkg/aws"
)

// Publisher emits domain events. Callers treat publishing as best effort.
type Publisher interface {
	// Publish sends payload under eventType. key groups events of the same
	// entity so consumers see them in order where the transport allows it.
	Publish(ctx context.Context, eventType, key string, payload interface{}) error
	Close() error
}

// SNSPublisher fans events out through an SNS topic. The event type is
// attached as the event_type message attribute for subscription filters.
type SNSPublisher struct {
	client   aws_pkg.SNSPublisher
	topicArn string
}

func NewSNSPublisher(client aws_pkg.SNSPublisher, topicArn string) *SNSPublisher {
	return &SNSPublisher{client: client, topicArn: topicArn}
}

func (p *SNSPublisher) Publish(ctx context.Context, eventType, key string, payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return p.client.Publish(ctx, p.topicArn, b, map[string]string{
		"event_type": eventType,
		"entity_id":  key,
	})
}

func (p *SNSPublisher) Close() error { return nil }

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, interface{}) error { return nil }
func (NopPublisher) Close() error                                               { return nil }
