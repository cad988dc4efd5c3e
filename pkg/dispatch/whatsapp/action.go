// Package whatsapp implements the sendMessage action over a WhatsApp
// messaging provider.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/esly-abro/JKhomes-sub000/pkg/models"
	"github.com/esly-abro/JKhomes-sub000/pkg/protocol"
	"github.com/esly-abro/JKhomes-sub000/pkg/template"
)

var errMissingPhone = errors.New("lead has no phone field")

// Client is the narrow surface of the messaging provider. Production wires a
// real provider SDK behind it; tests use a fake.
type Client interface {
	// SendTemplate sends a pre-approved message template and returns the
	// provider's message ID.
	SendTemplate(ctx context.Context, to, templateRef string) (string, error)

	// SendText sends a free-form text message and returns the provider's
	// message ID.
	SendText(ctx context.Context, to, body string) (string, error)
}

// Action sends one WhatsApp message to the lead, either from a template
// reference or a rendered custom body.
type Action struct {
	client Client
}

func NewAction(client Client) *Action {
	return &Action{client: client}
}

func (a *Action) Execute(ctx context.Context, params map[string]any, lead models.LeadSnapshot, logger *slog.Logger) (protocol.ActionOutcome, error) {
	phone, ok := leadPhone(lead)
	if !ok {
		return protocol.ActionOutcome{}, protocol.Permanent(fmt.Errorf("lead %s: %w", lead.LeadID, errMissingPhone))
	}

	if templateRef, ok := params["templateRef"].(string); ok && templateRef != "" {
		logger.InfoContext(ctx, "Sending WhatsApp template message", "template_ref", templateRef)

		messageID, err := a.client.SendTemplate(ctx, phone, templateRef)
		if err != nil {
			return protocol.ActionOutcome{}, err
		}

		return protocol.ActionOutcome{
			CorrelationID: messageID,
			Detail:        "WhatsApp template '" + templateRef + "' sent",
		}, nil
	}

	body, _ := params["customBody"].(string)

	rendered, err := template.RenderWithLead(body, lead)
	if err != nil {
		return protocol.ActionOutcome{}, protocol.Permanent(err)
	}

	logger.InfoContext(ctx, "Sending WhatsApp text message")

	messageID, err := a.client.SendText(ctx, phone, rendered)
	if err != nil {
		return protocol.ActionOutcome{}, err
	}

	return protocol.ActionOutcome{
		CorrelationID: messageID,
		Detail:        "WhatsApp message sent",
	}, nil
}

func leadPhone(lead models.LeadSnapshot) (string, bool) {
	raw, ok := lead.Field("phone")
	if !ok {
		return "", false
	}

	phone, ok := raw.(string)
	if !ok || phone == "" {
		return "", false
	}

	return phone, true
}
