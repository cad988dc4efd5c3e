package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/esly-abro/JKhomes-sub000/pkg/models"
	"github.com/esly-abro/JKhomes-sub000/pkg/persistence"
	"github.com/esly-abro/JKhomes-sub000/pkg/registry"
	"github.com/esly-abro/JKhomes-sub000/pkg/workflow"
)

// Workflow owns definition lifecycle: draft creation, publishing with full
// graph validation, versioning and archival.
type Workflow struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	validator   *validator.Validate
	logger      *slog.Logger
	clock       func() time.Time
}

func NewWorkflow(p persistence.Persistence, reg *registry.Registry, v *validator.Validate, logger *slog.Logger) *Workflow {
	return &Workflow{
		persistence: p,
		registry:    reg,
		validator:   v,
		logger:      logger.With("module", "workflow_service"),
		clock:       time.Now,
	}
}

// Create stores a new draft definition. Drafts are not matched against
// events; structural validation happens at publish time.
func (s *Workflow) Create(ctx context.Context, def *models.WorkflowDefinition) (*models.WorkflowDefinition, error) {
	if def == nil {
		return nil, &ServiceError{Op: "create_workflow", Err: ErrWorkflowNil}
	}

	now := s.clock()

	def.ID = uuid.Must(uuid.NewV7()).String()
	def.Status = models.WorkflowStatusDraft
	def.Version = 1
	def.CreatedAt = now
	def.UpdatedAt = now

	if def.WorkflowGroupID == "" {
		def.WorkflowGroupID = uuid.Must(uuid.NewV7()).String()
	}

	err := s.validator.Struct(def)
	if err != nil {
		return nil, &ServiceError{Op: "create_workflow", Err: fmt.Errorf("%w: %w", ErrInvalidRequest, err)}
	}

	err = s.persistence.WorkflowRepository().Save(ctx, def)
	if err != nil {
		return nil, &ServiceError{Op: "create_workflow", Err: err}
	}

	s.logger.Info("Created draft workflow", "workflow_id", def.ID, "tenant_id", def.TenantID)

	return def, nil
}

func (s *Workflow) FetchByID(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	return s.persistence.WorkflowRepository().GetByID(ctx, id)
}

func (s *Workflow) List(ctx context.Context, tenantID string) ([]*models.WorkflowDefinition, error) {
	return s.persistence.WorkflowRepository().List(ctx, tenantID)
}

// Publish compiles a draft and activates it. Structural problems and invalid
// action parameters are all collected; the caller gets the full list, never
// just the first.
func (s *Workflow) Publish(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	def, err := s.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if def.Status != models.WorkflowStatusDraft {
		return nil, &ServiceError{Op: "publish_workflow", Err: ErrNotDraft}
	}

	if len(def.Nodes) == 0 {
		return nil, &ServiceError{Op: "publish_workflow", Err: ErrNodesRequired}
	}

	compiled, err := workflow.Compile(def)
	if err != nil {
		return nil, err
	}

	errs := s.validateActionParams(compiled)
	if len(errs) > 0 {
		return nil, errs
	}

	now := s.clock()
	def.Status = models.WorkflowStatusActive
	def.PublishedAt = &now
	def.UpdatedAt = now

	err = s.persistence.WorkflowRepository().Save(ctx, def)
	if err != nil {
		return nil, &ServiceError{Op: "publish_workflow", Err: err}
	}

	s.logger.Info("Published workflow",
		"workflow_id", def.ID, "tenant_id", def.TenantID, "version", def.Version,
		"trigger_count", len(def.TriggerNodes()))

	return def, nil
}

// validateActionParams checks every action node's parameters against the
// registered handler schemas.
func (s *Workflow) validateActionParams(compiled *workflow.CompiledWorkflow) workflow.ValidationErrors {
	var errs workflow.ValidationErrors

	for _, node := range compiled.Definition.Nodes {
		if node.Kind != models.NodeKindAction {
			continue
		}

		config, err := node.ActionConfig()
		if err != nil {
			continue
		}

		err = s.registry.ValidateParams(config.ActionKind, config.Params)
		if err != nil {
			errs = append(errs, workflow.ValidationError{NodeID: node.ID, Message: err.Error()})
		}
	}

	return errs
}

// Archive retires an active definition. Running instances are untouched;
// cancelling them is a separate, explicit operation.
func (s *Workflow) Archive(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	def, err := s.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if def.Status != models.WorkflowStatusActive {
		return nil, &ServiceError{Op: "archive_workflow", Err: ErrNotActive}
	}

	now := s.clock()
	def.Status = models.WorkflowStatusArchived
	def.ArchivedAt = &now
	def.UpdatedAt = now

	err = s.persistence.WorkflowRepository().Save(ctx, def)
	if err != nil {
		return nil, &ServiceError{Op: "archive_workflow", Err: err}
	}

	s.logger.Info("Archived workflow", "workflow_id", def.ID, "tenant_id", def.TenantID)

	return def, nil
}

// NewVersion clones an active definition into an editable draft with the
// next version number, sharing the same workflow group.
func (s *Workflow) NewVersion(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	def, err := s.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if def.Status != models.WorkflowStatusActive {
		return nil, &ServiceError{Op: "new_workflow_version", Err: ErrNotActive}
	}

	now := s.clock()

	draft := &models.WorkflowDefinition{
		ID:              uuid.Must(uuid.NewV7()).String(),
		TenantID:        def.TenantID,
		Name:            def.Name,
		Version:         def.Version + 1,
		WorkflowGroupID: def.WorkflowGroupID,
		Status:          models.WorkflowStatusDraft,
		Nodes:           def.Nodes,
		Edges:           def.Edges,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.persistence.WorkflowRepository().Save(ctx, draft)
	if err != nil {
		return nil, &ServiceError{Op: "new_workflow_version", Err: err}
	}

	s.logger.Info("Created new draft version",
		"workflow_id", draft.ID, "group_id", draft.WorkflowGroupID, "version", draft.Version)

	return draft, nil
}

// IsDefinitionInvalid reports whether err carries compile-time validation
// errors.
func IsDefinitionInvalid(err error) (workflow.ValidationErrors, bool) {
	var verrs workflow.ValidationErrors
	ok := errors.As(err, &verrs)

	return verrs, ok
}

func (s *Workflow) HealthCheck(ctx context.Context) error {
	return s.persistence.HealthCheck(ctx)
}
