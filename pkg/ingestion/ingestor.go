// Package ingestion normalizes external events into engine inputs and drops
// webhook replays via idempotency-key dedup.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/esly-abro/JKhomes-sub000/pkg/eventbus"
	"github.com/esly-abro/JKhomes-sub000/pkg/events"
)

var (
	ErrMissingTenant         = errors.New("tenant id is required")
	ErrMissingLead           = errors.New("lead id is required")
	ErrMissingIdempotencyKey = errors.New("idempotency key is required")
	ErrUnknownEventType      = errors.New("unknown event type")
)

// IsInvalid reports whether err describes a malformed inbound event. Callers
// use it to separate rejects, which must not be retried, from infrastructure
// failures, which should be.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrMissingTenant) ||
		errors.Is(err, ErrMissingLead) ||
		errors.Is(err, ErrMissingIdempotencyKey) ||
		errors.Is(err, ErrUnknownEventType)
}

// InboundEvent is the raw, provider-agnostic shape handed to Ingest.
type InboundEvent struct {
	TenantID       string           `json:"tenant_id"`
	LeadID         string           `json:"lead_id"`
	EventType      events.EventType `json:"event_type"`
	Payload        map[string]any   `json:"payload,omitempty"`
	IdempotencyKey string           `json:"idempotency_key"`
	OccurredAt     time.Time        `json:"occurred_at"`
}

// Sink receives normalized, deduplicated lead events. The engine satisfies it
// directly for in-process wiring; BusSink publishes for a separate worker.
type Sink interface {
	OnEvent(ctx context.Context, event events.LeadEvent) error
}

// BusSink forwards events onto the event bus instead of handling them
// in-process.
type BusSink struct {
	bus eventbus.EventPublisher
}

func NewBusSink(bus eventbus.EventPublisher) *BusSink {
	return &BusSink{bus: bus}
}

func (s *BusSink) OnEvent(ctx context.Context, event events.LeadEvent) error {
	return s.bus.Publish(ctx, event.LeadID, event)
}

type Ingestor struct {
	dedup  DedupStore
	sink   Sink
	logger *slog.Logger
	clock  func() time.Time
}

func NewIngestor(dedup DedupStore, sink Sink, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		dedup:  dedup,
		sink:   sink,
		logger: logger.With("module", "ingestion"),
		clock:  time.Now,
	}
}

// Ingest validates, deduplicates and forwards one inbound event. It returns
// false without error when the event is a replay.
func (i *Ingestor) Ingest(ctx context.Context, inbound InboundEvent) (bool, error) {
	err := i.validate(inbound)
	if err != nil {
		return false, err
	}

	fresh, err := i.dedup.MarkSeen(ctx, inbound.TenantID, inbound.IdempotencyKey)
	if err != nil {
		return false, err
	}

	if !fresh {
		i.logger.Debug("Dropping replayed event",
			"tenant_id", inbound.TenantID,
			"idempotency_key", inbound.IdempotencyKey)

		return false, nil
	}

	occurredAt := inbound.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = i.clock()
	}

	event := events.LeadEvent{
		ID:             uuid.Must(uuid.NewV7()).String(),
		TenantID:       inbound.TenantID,
		LeadID:         inbound.LeadID,
		EventType:      inbound.EventType,
		Payload:        inbound.Payload,
		IdempotencyKey: inbound.IdempotencyKey,
		OccurredAt:     occurredAt,
	}

	i.logger.Info("Accepted lead event",
		"event_id", event.ID,
		"event_type", event.EventType,
		"tenant_id", event.TenantID,
		"lead_id", event.LeadID)

	return true, i.sink.OnEvent(ctx, event)
}

func (i *Ingestor) validate(inbound InboundEvent) error {
	if inbound.TenantID == "" {
		return ErrMissingTenant
	}

	if inbound.LeadID == "" {
		return ErrMissingLead
	}

	if inbound.IdempotencyKey == "" {
		return ErrMissingIdempotencyKey
	}

	switch inbound.EventType {
	case events.LeadCreated, events.LeadUpdated, events.AppointmentScheduled,
		events.WhatsAppReply, events.CallCompleted:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEventType, inbound.EventType)
	}
}
