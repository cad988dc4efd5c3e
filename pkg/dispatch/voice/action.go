// Package voice implements the placeCall action over a telephony provider.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/esly-abro/JKhomes-sub000/pkg/models"
	"github.com/esly-abro/JKhomes-sub000/pkg/protocol"
)

var errMissingPhone = errors.New("lead has no phone field")

// Dialer is the narrow surface of the telephony provider.
type Dialer interface {
	// PlaceCall starts an outbound call and returns the provider's call ID.
	// The call itself runs asynchronously; completion arrives later as a
	// call.completed event through ingestion.
	PlaceCall(ctx context.Context, to, script string) (string, error)
}

// Action places one outbound call to the lead.
type Action struct {
	dialer Dialer
}

func NewAction(dialer Dialer) *Action {
	return &Action{dialer: dialer}
}

func (a *Action) Execute(ctx context.Context, params map[string]any, lead models.LeadSnapshot, logger *slog.Logger) (protocol.ActionOutcome, error) {
	raw, ok := lead.Field("phone")
	phone, _ := raw.(string)

	if !ok || phone == "" {
		return protocol.ActionOutcome{}, protocol.Permanent(fmt.Errorf("lead %s: %w", lead.LeadID, errMissingPhone))
	}

	script, _ := params["script"].(string)

	logger.InfoContext(ctx, "Placing outbound call")

	callID, err := a.dialer.PlaceCall(ctx, phone, script)
	if err != nil {
		return protocol.ActionOutcome{}, err
	}

	return protocol.ActionOutcome{
		CorrelationID: callID,
		Detail:        "Outbound call placed",
	}, nil
}
