// Package email implements the sendEmail action over an email provider.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/esly-abro/JKhomes-sub000/pkg/models"
	"github.com/esly-abro/JKhomes-sub000/pkg/protocol"
	"github.com/esly-abro/JKhomes-sub000/pkg/template"
)

var errMissingEmail = errors.New("lead has no email field")

// Sender is the narrow surface of the email provider.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) (string, error)
}

// Action sends one email to the lead with subject and body rendered against
// the lead's fields.
type Action struct {
	sender Sender
}

func NewAction(sender Sender) *Action {
	return &Action{sender: sender}
}

func (a *Action) Execute(ctx context.Context, params map[string]any, lead models.LeadSnapshot, logger *slog.Logger) (protocol.ActionOutcome, error) {
	raw, ok := lead.Field("email")
	address, _ := raw.(string)

	if !ok || address == "" {
		return protocol.ActionOutcome{}, protocol.Permanent(fmt.Errorf("lead %s: %w", lead.LeadID, errMissingEmail))
	}

	subjectTmpl, _ := params["subject"].(string)
	bodyTmpl, _ := params["body"].(string)

	subject, err := template.RenderWithLead(subjectTmpl, lead)
	if err != nil {
		return protocol.ActionOutcome{}, protocol.Permanent(err)
	}

	body, err := template.RenderWithLead(bodyTmpl, lead)
	if err != nil {
		return protocol.ActionOutcome{}, protocol.Permanent(err)
	}

	logger.InfoContext(ctx, "Sending email", "subject", subject)

	messageID, err := a.sender.Send(ctx, address, subject, body)
	if err != nil {
		return protocol.ActionOutcome{}, err
	}

	return protocol.ActionOutcome{
		CorrelationID: messageID,
		Detail:        "Email sent: " + subject,
	}, nil
}
