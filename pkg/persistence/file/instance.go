package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/esly-abro/JKhomes-sub000/pkg/models"
	"github.com/esly-abro/JKhomes-sub000/pkg/persistence"
	"github.com/google/uuid"
)

// InstanceRepository stores one JSON document per workflow instance. A lock
// file per (workflow, lead), created with O_EXCL, enforces the single active
// instance rule; it is removed when the instance reaches a terminal status.
type InstanceRepository struct {
	dir     string
	lockDir string
	mu      sync.Mutex
}

func NewInstanceRepository(root string) *InstanceRepository {
	return &InstanceRepository{
		dir:     filepath.Join(root, "instances"),
		lockDir: filepath.Join(root, "instances", "active"),
	}
}

func (r *InstanceRepository) path(id string) string {
	return filepath.Join(r.dir, id+".json")
}

func (r *InstanceRepository) lockPath(workflowID, leadID string) string {
	return filepath.Join(r.lockDir, workflowID+"__"+leadID)
}

func (r *InstanceRepository) Create(_ context.Context, instance *models.WorkflowInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if instance.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate instance ID: %w", err)
		}

		instance.ID = id.String()
	}

	now := time.Now().UTC()
	instance.CreatedAt = now
	instance.UpdatedAt = now

	if err := os.MkdirAll(r.lockDir, 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	lock, err := os.OpenFile(r.lockPath(instance.WorkflowID, instance.LeadID), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if os.IsExist(err) {
		return persistence.NewInstanceError("Create", instance.ID, persistence.ErrInstanceAlreadyExists)
	}

	if err != nil {
		return fmt.Errorf("failed to create instance lock: %w", err)
	}

	if _, err := lock.WriteString(instance.ID); err != nil {
		_ = lock.Close()

		return fmt.Errorf("failed to write instance lock: %w", err)
	}

	if err := lock.Close(); err != nil {
		return fmt.Errorf("failed to close instance lock: %w", err)
	}

	if err := writeJSONAtomic(r.path(instance.ID), instance); err != nil {
		_ = os.Remove(r.lockPath(instance.WorkflowID, instance.LeadID))

		return err
	}

	return nil
}

func (r *InstanceRepository) GetByID(_ context.Context, id string) (*models.WorkflowInstance, error) {
	var instance models.WorkflowInstance

	err := readJSON(r.path(id), &instance)
	if os.IsNotExist(err) {
		return nil, persistence.NewInstanceError("GetByID", id, persistence.ErrInstanceNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read instance %s: %w", id, err)
	}

	return &instance, nil
}

func (r *InstanceRepository) Save(ctx context.Context, instance *models.WorkflowInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, err := r.GetByID(ctx, instance.ID)
	if err != nil {
		return err
	}

	if previous.Status.Terminal() {
		return persistence.NewInstanceError("Save", instance.ID, persistence.ErrInstanceTerminal)
	}

	instance.UpdatedAt = time.Now().UTC()

	if err := writeJSONAtomic(r.path(instance.ID), instance); err != nil {
		return err
	}

	// Release the active-instance lock once the instance is terminal so a
	// later trigger can start a fresh run for the same lead.
	if instance.Status.Terminal() {
		if err := os.Remove(r.lockPath(instance.WorkflowID, instance.LeadID)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to release instance lock: %w", err)
		}
	}

	return nil
}

func (r *InstanceRepository) ListWaiting(ctx context.Context, kind models.TimerKind, before time.Time) ([]*models.WorkflowInstance, error) {
	return r.list(ctx, func(instance *models.WorkflowInstance) bool {
		return instance.Status.Waiting() &&
			instance.PendingTimer != nil &&
			instance.PendingTimer.Kind == kind &&
			!instance.PendingTimer.FireAt.After(before)
	})
}

func (r *InstanceRepository) ListByLead(ctx context.Context, tenantID, leadID string, statuses []models.InstanceStatus) ([]*models.WorkflowInstance, error) {
	return r.list(ctx, func(instance *models.WorkflowInstance) bool {
		return instance.TenantID == tenantID &&
			instance.LeadID == leadID &&
			(len(statuses) == 0 || slices.Contains(statuses, instance.Status))
	})
}

func (r *InstanceRepository) ListActiveByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowInstance, error) {
	return r.list(ctx, func(instance *models.WorkflowInstance) bool {
		return instance.WorkflowID == workflowID && !instance.Status.Terminal()
	})
}

func (r *InstanceRepository) list(_ context.Context, keep func(*models.WorkflowInstance) bool) ([]*models.WorkflowInstance, error) {
	entries, err := os.ReadDir(r.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read instances directory: %w", err)
	}

	instances := make([]*models.WorkflowInstance, 0)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		var instance models.WorkflowInstance

		if err := readJSON(filepath.Join(r.dir, entry.Name()), &instance); err != nil {
			return nil, fmt.Errorf("failed to read instance file %s: %w", entry.Name(), err)
		}

		if keep(&instance) {
			instances = append(instances, &instance)
		}
	}

	sort.Slice(instances, func(i, j int) bool { return instances[i].CreatedAt.Before(instances[j].CreatedAt) })

	return instances, nil
}
