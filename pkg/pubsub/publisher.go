package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gpubsub "cloud.google.com/go/pubsub"
	"github.com/google/uuid"

	"github.com/focusnest/webhook-service/pkg/events"
)

// Publisher delivers an event to a topic.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data any) error
}

// NoopPublisher drops every event. Used when publishing is disabled.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(context.Context, string, any) error { return nil }

// GooglePublisher publishes JSON envelopes to a Cloud Pub/Sub topic.
type GooglePublisher struct {
	topic  *gpubsub.Topic
	source string
	now    func() time.Time
	newID  func() string
}

// NewGooglePublisher wraps the topic with the given id. Call Stop before closing the client.
func NewGooglePublisher(client *gpubsub.Client, topicID, source string) *GooglePublisher {
	return &GooglePublisher{
		topic:  client.Topic(topicID),
		source: source,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Publish implements Publisher and blocks until the server acknowledges the message.
func (p *GooglePublisher) Publish(ctx context.Context, eventType string, data any) error {
	msg, err := p.message(eventType, data)
	if err != nil {
		return err
	}
	if _, err := p.topic.Publish(ctx, msg).Get(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

func (p *GooglePublisher) message(eventType string, data any) (*gpubsub.Message, error) {
	envelope := events.Envelope{
		ID:         p.newID(),
		Type:       eventType,
		Source:     p.source,
		OccurredAt: p.now(),
		Data:       data,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", eventType, err)
	}
	return &gpubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"type":   eventType,
			"source": p.source,
		},
	}, nil
}

// Stop flushes pending messages.
func (p *GooglePublisher) Stop() {
	p.topic.Stop()
}
