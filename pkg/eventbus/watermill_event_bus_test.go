package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/atelierhq/flowbuilder/pkg/channels/gochannel"
	"github.com/atelierhq/flowbuilder/pkg/events"
	"github.com/atelierhq/flowbuilder/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)

	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestPublishAndHandleRunRequested(t *testing.T) {
	bus := newTestBus(t)
	received := make(chan *events.WorkflowRunRequested, 1)

	err := bus.Handle(events.WorkflowRunRequestedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.WorkflowRunRequested)

		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	err = bus.Publish(ctx, "wf-1", events.WorkflowRunRequested{
		BaseEvent: events.BaseEvent{
			ID:         bus.GenerateID(),
			Type:       events.WorkflowRunRequestedEvent,
			Timestamp:  time.Now().UTC(),
			WorkflowID: "wf-1",
		},
		ExecutionID: "exec-1",
		Entity:      models.Entity{"name": "Ana"},
	})
	require.NoError(t, err)

	select {
	case event := <-received:
		assert.Equal(t, "wf-1", event.WorkflowID)
		assert.Equal(t, "exec-1", event.ExecutionID)
		assert.Equal(t, "Ana", event.Entity["name"])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestUnhandledEventTypeIsAcked(t *testing.T) {
	bus := newTestBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	// No handler registered for completion events; publish must still
	// succeed and the message gets acked without dispatch.
	err := bus.Publish(ctx, "wf-1", events.WorkflowExecutionCompleted{
		BaseEvent:   events.BaseEvent{WorkflowID: "wf-1"},
		ExecutionID: "exec-1",
	})
	assert.NoError(t, err)
}
