package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherStampsTimestamp(t *testing.T) {
	sink := NewMemorySink()
	p := NewPublisher(sink)
	fixed := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	ctx := context.Background()
	require.NoError(t, p.Emit(ctx, Event{Action: ActionDonationRecorded, DonorID: "donor-1"}))
	preset := fixed.Add(-time.Hour)
	require.NoError(t, p.Emit(ctx, Event{Action: ActionDonationDeleted, DonorID: "donor-1", Timestamp: preset}))
	require.NoError(t, p.Emit(ctx, Event{Action: ActionDonationRecorded, DonorID: "donor-2"}))

	events, err := sink.ListByDonor(ctx, "donor-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, fixed, events[0].Timestamp)
	assert.Equal(t, preset, events[1].Timestamp)
}

func TestQueueSinkRejectsWhenFull(t *testing.T) {
	queue := make(chan Event, 1)
	sink := NewQueueSink(queue)

	require.NoError(t, sink.Append(context.Background(), Event{Action: ActionDonationRecorded}))
	assert.ErrorIs(t, sink.Append(context.Background(), Event{Action: ActionDonationRecorded}), ErrQueueFull)
}

type failingSink struct{ calls int }

func (f *failingSink) Append(context.Context, Event) error {
	f.calls++
	return errors.New("broker unavailable")
}

func TestWorkerDrainsQueue(t *testing.T) {
	t.Run("delivers until the inbox closes", func(t *testing.T) {
		inbox := make(chan Event, 3)
		sink := NewMemorySink()
		inbox <- Event{Action: ActionDonationRecorded, DonorID: "d"}
		inbox <- Event{Action: ActionDonationUpdated, DonorID: "d"}
		close(inbox)

		require.NoError(t, NewWorker(sink, inbox, nil).Run(context.Background()))
		events, _ := sink.ListByDonor(context.Background(), "d")
		assert.Len(t, events, 2)
	})

	t.Run("logs delivery failures and keeps going", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inbox := make(chan Event, 2)
		inbox <- Event{Action: ActionDonationRecorded, DonorID: "d"}
		inbox <- Event{Action: ActionDonationDeleted, DonorID: "d"}
		close(inbox)

		sink := &failingSink{}
		require.NoError(t, NewWorker(sink, inbox, logger).Run(context.Background()))
		assert.Equal(t, 2, sink.calls)
		assert.Contains(t, buf.String(), "failed to deliver audit event")
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := NewWorker(NopSink{}, make(chan Event), nil).Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("flushes buffered events on cancellation", func(t *testing.T) {
		inbox := make(chan Event, 2)
		inbox <- Event{Action: ActionDonationRecorded, DonorID: "d1"}
		inbox <- Event{Action: ActionDonationDeleted, DonorID: "d1"}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		sink := NewMemorySink()
		err := NewWorker(sink, inbox, nil).Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		events, _ := sink.ListByDonor(context.Background(), "d1")
		assert.Len(t, events, 2)
	})
}
