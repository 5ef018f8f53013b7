package audit

import (
	"context"
	"errors"
	"log/slog"
)

// ErrQueueFull is returned when the async queue cannot take another event.
var ErrQueueFull = errors.New("audit queue full")

// QueueSink enqueues events for a Worker without blocking the caller.
type QueueSink struct {
	outbox chan<- Event
}

func NewQueueSink(outbox chan<- Event) *QueueSink {
	return &QueueSink{outbox: outbox}
}

func (q *QueueSink) Append(_ context.Context, event Event) error {
	select {
	case q.outbox <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Worker drains queued events into a sink so slow brokers stay off the
// request path. Delivery failures are logged and the event is dropped.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run blocks until ctx is cancelled or the inbox is closed. On cancellation it
// delivers whatever is already buffered before returning ctx.Err().
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain(context.WithoutCancel(ctx))
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			w.deliver(ctx, event)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.inbox:
			if !ok {
				return
			}
			w.deliver(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) deliver(ctx context.Context, event Event) {
	if err := w.sink.Append(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "failed to deliver audit event",
			"action", event.Action,
			"donor_id", event.DonorID,
			"error", err,
		)
	}
}
