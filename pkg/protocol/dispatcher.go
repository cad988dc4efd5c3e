// Package protocol defines the interfaces and contracts for pluggable action
// handlers and external service clients.
package protocol

import (
	"context"
	"log/slog"

	"github.com/esly-abro/JKhomes-sub000/pkg/models"
)

// ActionOutcome is what a handler reports after a successful dispatch.
type ActionOutcome struct {
	// CorrelationID ties the dispatched side effect back to the channel that
	// performed it (message SID, call SID, task ID).
	CorrelationID string
	Detail        string
}

// ActionHandler performs one kind of outbound side effect. Handlers classify
// their failures: a TransientError is retryable, anything else is permanent.
type ActionHandler interface {
	// Execute performs the side effect described by params against the lead.
	Execute(ctx context.Context, params map[string]any, lead models.LeadSnapshot, logger *slog.Logger) (ActionOutcome, error)
}

// ActionHandlerFactory creates handler instances and provides the metadata
// the registry needs to validate node configuration.
type ActionHandlerFactory interface {
	Create(config map[string]any) (ActionHandler, error)

	// Kind returns the action kind this factory builds handlers for.
	Kind() models.ActionKind

	// Schema returns the JSON schema for this action's parameters.
	Schema() map[string]any
}

// ActionDispatcher routes a dispatch request to the handler registered for
// its kind.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, kind models.ActionKind, params map[string]any, lead models.LeadSnapshot) (ActionOutcome, error)
}
