// Package events defines the event types exchanged between the API and
// the workers.
package events

import (
	"time"

	"github.com/atelierhq/flowbuilder/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries all workflow events.
const Topic = "flowbuilder.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowRunRequestedEvent       EventType = "workflow.run.requested"
	WorkflowExecutionCompletedEvent EventType = "workflow.execution.completed"
	WorkflowExecutionFailedEvent    EventType = "workflow.execution.failed"
)

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	WorkflowID string    `json:"workflow_id"`
	WorkerID   string    `json:"worker_id,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

// WorkflowRunRequested asks a worker to execute a workflow against the
// given entity snapshot.
type WorkflowRunRequested struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	Entity      models.Entity `json:"entity,omitempty"`
}

func (w WorkflowRunRequested) GetType() EventType {
	return WorkflowRunRequestedEvent
}

// WorkflowExecutionCompleted reports a successful run.
type WorkflowExecutionCompleted struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	Duration    time.Duration `json:"duration"`
}

func (w WorkflowExecutionCompleted) GetType() EventType {
	return WorkflowExecutionCompletedEvent
}

// WorkflowExecutionFailed reports a run that finished with errors.
type WorkflowExecutionFailed struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	Error       string        `json:"error"`
	Duration    time.Duration `json:"duration"`
}

func (w WorkflowExecutionFailed) GetType() EventType {
	return WorkflowExecutionFailedEvent
}
