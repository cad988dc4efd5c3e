package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/esly-abro/JKhomes-sub000/pkg/models"
	"github.com/google/uuid"
)

// ActivityRepository handles lead activity timeline database operations.
type ActivityRepository struct {
	db *sql.DB
}

// NewActivityRepository creates a new activity repository.
func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Append(ctx context.Context, activity *models.Activity) error {
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

	query := `
		INSERT INTO lead_activities (id, tenant_id, lead_id, activity_type, description, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		activity.ID,
		activity.TenantID,
		activity.LeadID,
		activity.Type,
		activity.Description,
		activity.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}

	return nil
}

func (r *ActivityRepository) ListByLead(ctx context.Context, tenantID, leadID string) ([]*models.Activity, error) {
	query := `
		SELECT id, tenant_id, lead_id, activity_type, description, occurred_at
		FROM lead_activities
		WHERE tenant_id = $1 AND lead_id = $2
		ORDER BY occurred_at
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	activities := make([]*models.Activity, 0)

	for rows.Next() {
		var activity models.Activity

		err := rows.Scan(
			&activity.ID,
			&activity.TenantID,
			&activity.LeadID,
			&activity.Type,
			&activity.Description,
			&activity.OccurredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}

		activities = append(activities, &activity)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating activities: %w", err)
	}

	return activities, nil
}
