package ingestion

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esly-abro/JKhomes-sub000/pkg/events"
)

type captureSink struct {
	received []events.LeadEvent
}

func (s *captureSink) OnEvent(_ context.Context, event events.LeadEvent) error {
	s.received = append(s.received, event)

	return nil
}

func newTestIngestor() (*Ingestor, *captureSink) {
	sink := &captureSink{}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	return NewIngestor(NewMemoryDedupStore(), sink, logger), sink
}

func validEvent() InboundEvent {
	return InboundEvent{
		TenantID:       "t1",
		LeadID:         "lead-1",
		EventType:      events.LeadCreated,
		IdempotencyKey: "crm:lead-1:created",
	}
}

func TestIngestor_AcceptsAndForwards(t *testing.T) {
	ingestor, sink := newTestIngestor()

	accepted, err := ingestor.Ingest(context.Background(), validEvent())
	require.NoError(t, err)
	assert.True(t, accepted)
	require.Len(t, sink.received, 1)
	assert.Equal(t, events.LeadCreated, sink.received[0].EventType)
	assert.NotEmpty(t, sink.received[0].ID)
	assert.False(t, sink.received[0].OccurredAt.IsZero())
}

func TestIngestor_DropsReplays(t *testing.T) {
	ingestor, sink := newTestIngestor()

	accepted, err := ingestor.Ingest(context.Background(), validEvent())
	require.NoError(t, err)
	assert.True(t, accepted)

	accepted, err = ingestor.Ingest(context.Background(), validEvent())
	require.NoError(t, err)
	assert.False(t, accepted)

	assert.Len(t, sink.received, 1)
}

func TestIngestor_Validation(t *testing.T) {
	ingestor, _ := newTestIngestor()

	tests := []struct {
		name    string
		mutate  func(*InboundEvent)
		wantErr error
	}{
		{"missing tenant", func(e *InboundEvent) { e.TenantID = "" }, ErrMissingTenant},
		{"missing lead", func(e *InboundEvent) { e.LeadID = "" }, ErrMissingLead},
		{"missing idempotency key", func(e *InboundEvent) { e.IdempotencyKey = "" }, ErrMissingIdempotencyKey},
		{"unknown event type", func(e *InboundEvent) { e.EventType = "lead.deleted" }, ErrUnknownEventType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := validEvent()
			tt.mutate(&event)

			_, err := ingestor.Ingest(context.Background(), event)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNormalizeWhatsAppWebhook(t *testing.T) {
	payload := map[string]any{
		"lead_id":    "lead-1",
		"message_id": "wamid-9",
		"button_reply": map[string]any{
			"id":    "btn-yes",
			"title": "Yes, interested",
		},
		"timestamp": "2025-06-01T10:00:00Z",
	}

	inbound, err := NormalizeWhatsAppWebhook("t1", payload)
	require.NoError(t, err)
	assert.Equal(t, events.WhatsAppReply, inbound.EventType)
	assert.Equal(t, "wa:wamid-9", inbound.IdempotencyKey)
	assert.Equal(t, "btn-yes", inbound.Payload["button_id"])
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), inbound.OccurredAt)

	_, err = NormalizeWhatsAppWebhook("t1", map[string]any{"lead_id": "lead-1"})
	require.Error(t, err)
}

func TestNormalizeCallWebhook(t *testing.T) {
	payload := map[string]any{
		"lead_id":          "lead-1",
		"call_id":          "CA123",
		"status":           "completed",
		"duration_seconds": float64(42),
	}

	inbound, err := NormalizeCallWebhook("t1", payload)
	require.NoError(t, err)
	assert.Equal(t, events.CallCompleted, inbound.EventType)
	assert.Equal(t, "call:CA123", inbound.IdempotencyKey)
	assert.Equal(t, "completed", inbound.Payload["status"])

	_, err = NormalizeCallWebhook("t1", map[string]any{"call_id": "CA123"})
	require.Error(t, err)
}

func TestMemoryDedupStore(t *testing.T) {
	store := NewMemoryDedupStore()

	fresh, err := store.MarkSeen(context.Background(), "t1", "k1")
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = store.MarkSeen(context.Background(), "t1", "k1")
	require.NoError(t, err)
	assert.False(t, fresh)

	// Same key under another tenant is independent.
	fresh, err = store.MarkSeen(context.Background(), "t2", "k1")
	require.NoError(t, err)
	assert.True(t, fresh)
}
