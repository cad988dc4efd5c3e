package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/esly-abro/JKhomes-sub000/pkg/models"
	"github.com/esly-abro/JKhomes-sub000/pkg/persistence"
	"github.com/google/uuid"
)

// WorkflowRepository stores one JSON document per workflow definition.
type WorkflowRepository struct {
	dir string
	mu  sync.RWMutex
}

func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{dir: filepath.Join(root, "workflows")}
}

func (r *WorkflowRepository) path(id string) string {
	return filepath.Join(r.dir, id+".json")
}

func (r *WorkflowRepository) Save(_ context.Context, def *models.WorkflowDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()

	if def.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		def.ID = id.String()
	}

	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}

	def.UpdatedAt = now

	return writeJSONAtomic(r.path(def.ID), def)
}

func (r *WorkflowRepository) GetByID(_ context.Context, id string) (*models.WorkflowDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var def models.WorkflowDefinition

	err := readJSON(r.path(id), &def)
	if os.IsNotExist(err) {
		return nil, persistence.ErrWorkflowNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read workflow %s: %w", id, err)
	}

	return &def, nil
}

func (r *WorkflowRepository) List(ctx context.Context, tenantID string) ([]*models.WorkflowDefinition, error) {
	return r.list(ctx, func(def *models.WorkflowDefinition) bool {
		return def.TenantID == tenantID
	})
}

func (r *WorkflowRepository) ListActive(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	return r.list(ctx, func(def *models.WorkflowDefinition) bool {
		return def.Status == models.WorkflowStatusActive
	})
}

func (r *WorkflowRepository) list(_ context.Context, keep func(*models.WorkflowDefinition) bool) ([]*models.WorkflowDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read workflows directory: %w", err)
	}

	defs := make([]*models.WorkflowDefinition, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		var def models.WorkflowDefinition

		if err := readJSON(filepath.Join(r.dir, entry.Name()), &def); err != nil {
			return nil, fmt.Errorf("failed to read workflow file %s: %w", entry.Name(), err)
		}

		if keep(&def) {
			defs = append(defs, &def)
		}
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].CreatedAt.Before(defs[j].CreatedAt) })

	return defs, nil
}
