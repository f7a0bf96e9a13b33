// Package pubsub implements a Notifier that publishes terminal scan
// events to a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
)

// Event is the wire payload published for every terminal scan.
type Event struct {
	ScanID    string    `json:"scan_id"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	Composite float64   `json:"overall_score,omitempty"`
	Grade     string    `json:"letter_grade,omitempty"`
	At        time.Time `json:"at"`
}

// Notifier publishes scan outcomes to a topic.
type Notifier struct {
	topic *pubsub.Topic
}

// New creates a Notifier for the provided topic.
func New(topic *pubsub.Topic) *Notifier {
	return &Notifier{topic: topic}
}

// NotifyFailure publishes a failure event.
func (n *Notifier) NotifyFailure(ctx context.Context, scanID, errText string) error {
	return n.publish(ctx, Event{
		ScanID:  scanID,
		Outcome: "failed",
		Error:   errText,
		At:      time.Now().UTC(),
	})
}

// NotifyCompleted publishes a completion event.
func (n *Notifier) NotifyCompleted(ctx context.Context, scanID string, composite float64, grade string) error {
	return n.publish(ctx, Event{
		ScanID:    scanID,
		Outcome:   "completed",
		Composite: composite,
		Grade:     grade,
		At:        time.Now().UTC(),
	})
}

func (n *Notifier) publish(ctx context.Context, event Event) error {
	if n.topic == nil {
		return fmt.Errorf("pubsub topic is not configured")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	result := n.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"outcome": event.Outcome},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
