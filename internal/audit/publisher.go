package audit

import (
	"context"
	"time"
)

// Sink persists or forwards audit events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher stamps events and hands them to a sink. It is append-only so tests
// can swap sinks easily.
type Publisher struct {
	sink Sink
	now  func() time.Time
}

func NewPublisher(sink Sink) *Publisher {
	return &Publisher{sink: sink, now: time.Now}
}

func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = p.now()
	}
	return p.sink.Append(ctx, base)
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Append(context.Context, Event) error { return nil }
