// Package persistence provides the data storage abstraction for workflow
// definitions, instances and activity records.
package persistence

import (
	"context"
	"time"

	"github.com/esly-abro/JKhomes-sub000/pkg/models"
)

// Persistence bundles the repositories one storage backend provides.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	InstanceRepository() InstanceRepository
	ActivityRepository() ActivityRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions.
type WorkflowRepository interface {
	Save(ctx context.Context, def *models.WorkflowDefinition) error
	GetByID(ctx context.Context, id string) (*models.WorkflowDefinition, error)
	List(ctx context.Context, tenantID string) ([]*models.WorkflowDefinition, error)
	ListActive(ctx context.Context) ([]*models.WorkflowDefinition, error)
}

// InstanceRepository stores workflow instances. Save is the only mutation
// path for an existing instance: status, current node, pending timer and the
// appended history land atomically, or not at all.
type InstanceRepository interface {
	// Create persists a new instance, enforcing at most one non-terminal
	// instance per (workflow, lead). Returns ErrInstanceAlreadyExists when
	// one is already active.
	Create(ctx context.Context, instance *models.WorkflowInstance) error

	GetByID(ctx context.Context, id string) (*models.WorkflowInstance, error)

	Save(ctx context.Context, instance *models.WorkflowInstance) error

	// ListWaiting returns waiting instances whose pending timer of the given
	// kind is due before the cutoff. The recovery sweep uses it to replay
	// firings lost to a process restart.
	ListWaiting(ctx context.Context, kind models.TimerKind, before time.Time) ([]*models.WorkflowInstance, error)

	// ListByLead returns a lead's instances in any of the given statuses.
	ListByLead(ctx context.Context, tenantID, leadID string, statuses []models.InstanceStatus) ([]*models.WorkflowInstance, error)

	// ListActiveByWorkflow returns every non-terminal instance spawned from
	// the given definition version.
	ListActiveByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowInstance, error)
}

// ActivityRepository stores the user-visible lead timeline entries.
type ActivityRepository interface {
	Append(ctx context.Context, activity *models.Activity) error
	ListByLead(ctx context.Context, tenantID, leadID string) ([]*models.Activity, error)
}
