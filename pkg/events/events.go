// Package events defines the wire event types flowing through the engine:
// normalized lead events in, instance lifecycle notifications out.
package events

import (
	"time"

	"github.com/esly-abro/JKhomes-sub000/pkg/models"
)

type EventType string

// Topics on the event bus.
const (
	LeadEventsTopic = "leadflow.lead.events"
	LifecycleTopic  = "leadflow.instance.lifecycle"
)

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

// Normalized lead-domain event types produced by ingestion.
const (
	LeadCreated          EventType = "lead.created"
	LeadUpdated          EventType = "lead.updated"
	AppointmentScheduled EventType = "appointment.scheduled"
	WhatsAppReply        EventType = "whatsapp.reply"
	CallCompleted        EventType = "call.completed"
)

// Instance lifecycle event types emitted by the engine.
const (
	InstanceStartedEvent   EventType = "instance.started"
	InstanceCompletedEvent EventType = "instance.completed"
	InstanceFailedEvent    EventType = "instance.failed"
	InstanceCancelledEvent EventType = "instance.cancelled"
	ActionDispatchedEvent  EventType = "action.dispatched"
	TimerRecoveredEvent    EventType = "timer.recovered"
)

// LeadEvent is the engine's inbound shape: one normalized lead-domain event,
// already deduplicated by ingestion.
type LeadEvent struct {
	ID             string         `json:"id"`
	TenantID       string         `json:"tenant_id"`
	LeadID         string         `json:"lead_id"`
	EventType      EventType      `json:"event_type"`
	Payload        map[string]any `json:"payload,omitempty"`
	IdempotencyKey string         `json:"idempotency_key"`
	OccurredAt     time.Time      `json:"occurred_at"`
}

func (e LeadEvent) GetType() EventType {
	return e.EventType
}

// TriggerType maps the event to the workflow trigger type it can start, if
// any. WhatsApp replies and call completions never start workflows; they only
// wake instances waiting on a condition.
func (e LeadEvent) TriggerType() (models.TriggerType, bool) {
	switch e.EventType {
	case LeadCreated:
		return models.TriggerNewLead, true
	case LeadUpdated:
		return models.TriggerLeadUpdated, true
	case AppointmentScheduled:
		return models.TriggerAppointmentScheduled, true
	default:
		return "", false
	}
}

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	TenantID   string    `json:"tenant_id"`
	WorkflowID string    `json:"workflow_id"`
	InstanceID string    `json:"instance_id"`
	LeadID     string    `json:"lead_id"`
}

type InstanceStarted struct {
	BaseEvent

	TriggerType models.TriggerType `json:"trigger_type"`
}

func (e InstanceStarted) GetType() EventType {
	return InstanceStartedEvent
}

type InstanceCompleted struct {
	BaseEvent

	Transitions int `json:"transitions"`
}

func (e InstanceCompleted) GetType() EventType {
	return InstanceCompletedEvent
}

type InstanceFailed struct {
	BaseEvent

	NodeID string `json:"node_id"`
	Error  string `json:"error"`
}

func (e InstanceFailed) GetType() EventType {
	return InstanceFailedEvent
}

type InstanceCancelled struct {
	BaseEvent
}

func (e InstanceCancelled) GetType() EventType {
	return InstanceCancelledEvent
}

type ActionDispatched struct {
	BaseEvent

	NodeID        string            `json:"node_id"`
	ActionKind    models.ActionKind `json:"action_kind"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Attempts      int               `json:"attempts"`
}

func (e ActionDispatched) GetType() EventType {
	return ActionDispatchedEvent
}

// TimerRecovered is logged on the bus when the sweep fires a timer whose
// in-memory registration was lost, typically after a process restart.
type TimerRecovered struct {
	BaseEvent

	Kind   models.TimerKind `json:"kind"`
	FireAt time.Time        `json:"fire_at"`
}

func (e TimerRecovered) GetType() EventType {
	return TimerRecoveredEvent
}
