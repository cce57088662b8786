package notify

import (
	"context"
	"fmt"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"github.com/mithun789/campus-Me/internal/models"
)

// ArtifactGeneratedType is the CloudEvents type of published events.
const ArtifactGeneratedType = "me.campus.artifact.generated"

// CloudEvents posts structured CloudEvents to an HTTP sink.
type CloudEvents struct {
	client cloudevents.Client
	target string
	source string
}

// NewCloudEvents creates an HTTP CloudEvents client targeting sinkURL.
func NewCloudEvents(sinkURL, source string) (*CloudEvents, error) {
	if sinkURL == "" {
		return nil, fmt.Errorf("EVENT_SINK_URL must be set for the cloudevents notifier")
	}
	client, err := cloudevents.NewClientHTTP()
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudevents client: %w", err)
	}
	if source == "" {
		source = "/campus-me/document-generator"
	}
	return &CloudEvents{client: client, target: sinkURL, source: source}, nil
}

// NewEvent builds the CloudEvent for ev.
func NewEvent(source string, ev models.ArtifactEvent) (cloudevents.Event, error) {
	e := cloudevents.NewEvent()
	e.SetID(uuid.NewString())
	e.SetSource(source)
	e.SetType(ArtifactGeneratedType)
	e.SetSubject(ev.ArtifactID)
	e.SetTime(ev.CreatedAt)
	if err := e.SetData(cloudevents.ApplicationJSON, ev); err != nil {
		return cloudevents.Event{}, fmt.Errorf("failed to encode event data: %w", err)
	}
	return e, nil
}

func (c *CloudEvents) Notify(ctx context.Context, ev models.ArtifactEvent) error {
	e, err := NewEvent(c.source, ev)
	if err != nil {
		return err
	}
	result := c.client.Send(cloudevents.ContextWithTarget(ctx, c.target), e)
	if !cloudevents.IsACK(result) {
		return fmt.Errorf("failed to deliver artifact event %s: %w", ev.ArtifactID, result)
	}
	return nil
}
