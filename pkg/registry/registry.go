// Package registry maps action kinds to their handler factories and validates
// node parameters against each handler's JSON schema.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/esly-abro/JKhomes-sub000/pkg/models"
	"github.com/esly-abro/JKhomes-sub000/pkg/protocol"
)

type Registry struct {
	logger    *slog.Logger
	factories map[models.ActionKind]protocol.ActionHandlerFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:    log,
		factories: make(map[models.ActionKind]protocol.ActionHandlerFactory),
	}
}

func (r *Registry) Register(factory protocol.ActionHandlerFactory) {
	r.factories[factory.Kind()] = factory
}

func (r *Registry) CreateHandler(kind models.ActionKind, config map[string]any) (protocol.ActionHandler, error) {
	factory, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("action kind '%s' not registered", kind)
	}

	return factory.Create(config)
}

// ValidateParams checks action node parameters against the registered
// handler's JSON schema. Publishing a workflow with parameters no handler
// accepts should fail here, not at dispatch time.
func (r *Registry) ValidateParams(kind models.ActionKind, params map[string]any) error {
	factory, ok := r.factories[kind]
	if !ok {
		return fmt.Errorf("action kind '%s' not registered", kind)
	}

	schemaLoader := gojsonschema.NewGoLoader(factory.Schema())
	dataLoader := gojsonschema.NewGoLoader(params)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		var errs []string
		for _, resultErr := range result.Errors() {
			errs = append(errs, resultErr.String())
		}

		return fmt.Errorf("params for '%s' failed schema validation: %s", kind, strings.Join(errs, "; "))
	}

	return nil
}

// Dispatch routes one action to its handler. It satisfies
// protocol.ActionDispatcher.
func (r *Registry) Dispatch(ctx context.Context, kind models.ActionKind, params map[string]any, lead models.LeadSnapshot) (protocol.ActionOutcome, error) {
	handler, err := r.CreateHandler(kind, params)
	if err != nil {
		return protocol.ActionOutcome{}, err
	}

	logger := r.logger.With(
		slog.String("action_kind", string(kind)),
		slog.String("tenant_id", lead.TenantID),
		slog.String("lead_id", lead.LeadID),
	)

	return handler.Execute(ctx, params, lead, logger)
}

func (r *Registry) Kinds() []models.ActionKind {
	kinds := make([]models.ActionKind, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}

	return kinds
}
