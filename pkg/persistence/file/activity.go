package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/esly-abro/JKhomes-sub000/pkg/models"
	"github.com/google/uuid"
)

// ActivityRepository appends lead timeline entries to one JSON document per
// (tenant, lead).
type ActivityRepository struct {
	dir string
	mu  sync.Mutex
}

func NewActivityRepository(root string) *ActivityRepository {
	return &ActivityRepository{dir: filepath.Join(root, "activities")}
}

func (r *ActivityRepository) path(tenantID, leadID string) string {
	return filepath.Join(r.dir, tenantID+"__"+leadID+".json")
}

func (r *ActivityRepository) Append(_ context.Context, activity *models.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if activity.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate activity ID: %w", err)
		}

		activity.ID = id.String()
	}

	if activity.OccurredAt.IsZero() {
		activity.OccurredAt = time.Now().UTC()
	}

	path := r.path(activity.TenantID, activity.LeadID)

	var activities []*models.Activity

	err := readJSON(path, &activities)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read activities: %w", err)
	}

	activities = append(activities, activity)

	return writeJSONAtomic(path, activities)
}

func (r *ActivityRepository) ListByLead(_ context.Context, tenantID, leadID string) ([]*models.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var activities []*models.Activity

	err := readJSON(r.path(tenantID, leadID), &activities)
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read activities: %w", err)
	}

	return activities, nil
}
