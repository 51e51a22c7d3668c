// Package nats publishes post lifecycle events.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nasermirzaei89/snapfeed/contents"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	SubjectPostCreated = "post.created"
	SubjectPostDeleted = "post.deleted"
)

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	PublishMsg(msg *nats.Msg) error
}

type Publisher struct {
	conn       Conn
	propagator propagation.TextMapPropagator
}

var _ contents.EventPublisher = (*Publisher)(nil)

func NewPublisher(conn Conn) *Publisher {
	return &Publisher{conn: conn}
}

// WithPropagator replaces the global otel propagator for this publisher.
func (p *Publisher) WithPropagator(propagator propagation.TextMapPropagator) *Publisher {
	p.propagator = propagator

	return p
}

type PostCreatedEvent struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	ImageURL   string    `json:"imageUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}

type PostDeletedEvent struct {
	ID string `json:"id"`
}

func (p *Publisher) PublishPostCreated(ctx context.Context, post *contents.Post) error {
	return p.publish(ctx, SubjectPostCreated, PostCreatedEvent{
		ID:         post.ID,
		AuthorID:   post.AuthorID,
		AuthorName: post.AuthorName,
		ImageURL:   post.ImageURL,
		CreatedAt:  post.CreatedAt,
	})
}

func (p *Publisher) PublishPostDeleted(ctx context.Context, postID string) error {
	return p.publish(ctx, SubjectPostDeleted, PostDeletedEvent{ID: postID})
}

func (p *Publisher) publish(ctx context.Context, subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{},
	}

	// Carry the trace of the request that caused the event.
	propagator := p.propagator
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}

	propagator.Inject(ctx, propagation.HeaderCarrier(msg.Header))

	err = p.conn.PublishMsg(msg)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}

	slog.DebugContext(ctx, "event published", "subject", subject)

	return nil
}

func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("snapfeed"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	return nc, nil
}
