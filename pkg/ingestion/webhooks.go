package ingestion

import (
	"errors"
	"fmt"
	"time"

	"github.com/esly-abro/JKhomes-sub000/pkg/events"
)

var errMalformedWebhook = errors.New("malformed webhook payload")

// NormalizeWhatsAppWebhook maps a messaging provider's inbound-reply webhook
// into an InboundEvent. The provider message ID doubles as the idempotency
// key, so redelivered webhooks dedup naturally.
func NormalizeWhatsAppWebhook(tenantID string, payload map[string]any) (InboundEvent, error) {
	leadID, _ := payload["lead_id"].(string)
	messageID, _ := payload["message_id"].(string)

	if leadID == "" || messageID == "" {
		return InboundEvent{}, fmt.Errorf("%w: lead_id and message_id are required", errMalformedWebhook)
	}

	normalized := map[string]any{
		"message_id": messageID,
	}

	if button, ok := payload["button_reply"].(map[string]any); ok {
		normalized["button_id"], _ = button["id"].(string)
		normalized["button_title"], _ = button["title"].(string)
	}

	if body, ok := payload["body"].(string); ok {
		normalized["body"] = body
	}

	return InboundEvent{
		TenantID:       tenantID,
		LeadID:         leadID,
		EventType:      events.WhatsAppReply,
		Payload:        normalized,
		IdempotencyKey: "wa:" + messageID,
		OccurredAt:     parseTimestamp(payload["timestamp"]),
	}, nil
}

// NormalizeCallWebhook maps a telephony provider's call-completion webhook
// into an InboundEvent keyed by the call ID.
func NormalizeCallWebhook(tenantID string, payload map[string]any) (InboundEvent, error) {
	leadID, _ := payload["lead_id"].(string)
	callID, _ := payload["call_id"].(string)

	if leadID == "" || callID == "" {
		return InboundEvent{}, fmt.Errorf("%w: lead_id and call_id are required", errMalformedWebhook)
	}

	normalized := map[string]any{
		"call_id": callID,
	}

	if status, ok := payload["status"].(string); ok {
		normalized["status"] = status
	}

	if duration, ok := payload["duration_seconds"].(float64); ok {
		normalized["duration_seconds"] = duration
	}

	return InboundEvent{
		TenantID:       tenantID,
		LeadID:         leadID,
		EventType:      events.CallCompleted,
		Payload:        normalized,
		IdempotencyKey: "call:" + callID,
		OccurredAt:     parseTimestamp(payload["timestamp"]),
	}, nil
}

func parseTimestamp(value any) time.Time {
	raw, ok := value.(string)
	if !ok {
		return time.Time{}
	}

	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return ts
}
