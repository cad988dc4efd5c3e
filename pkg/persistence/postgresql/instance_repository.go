package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/esly-abro/JKhomes-sub000/pkg/models"
	"github.com/esly-abro/JKhomes-sub000/pkg/persistence"
	"github.com/google/uuid"
)

const uniqueViolation = "23505"

// InstanceRepository handles workflow instance database operations. Save is
// a single UPDATE carrying status, current node, timer columns and the full
// history document, so a transition is atomic by construction.
type InstanceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewInstanceRepository creates a new instance repository.
func NewInstanceRepository(db *sql.DB, logger *slog.Logger) *InstanceRepository {
	return &InstanceRepository{db: db, logger: logger}
}

const instanceColumns = `
	id
  , workflow_id
  , tenant_id
  , lead_id
  , current_node_id
  , status
  , sub_status
  , entered_node_at
  , timer_fire_at
  , timer_kind
  , attempts
  , last_error
  , history
  , created_at
  , updated_at
`

func (r *InstanceRepository) Create(ctx context.Context, instance *models.WorkflowInstance) error {
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

	historyJSON, err := json.Marshal(historyOrEmpty(instance.History))
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	fireAt, timerKind := timerColumns(instance)

	query := `
		INSERT INTO workflow_instances (id, workflow_id, tenant_id, lead_id,
			current_node_id, status, sub_status, entered_node_at,
			timer_fire_at, timer_kind, attempts, last_error, history,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = r.db.ExecContext(ctx, query,
		instance.ID,
		instance.WorkflowID,
		instance.TenantID,
		instance.LeadID,
		instance.CurrentNodeID,
		instance.Status,
		nullString(string(instance.SubStatus)),
		instance.EnteredNodeAt,
		fireAt,
		timerKind,
		instance.Attempts,
		nullString(instance.LastError),
		historyJSON,
		instance.CreatedAt,
		instance.UpdatedAt,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return persistence.NewInstanceError("Create", instance.ID, persistence.ErrInstanceAlreadyExists)
	}

	if err != nil {
		return fmt.Errorf("failed to create instance: %w", err)
	}

	return nil
}

func (r *InstanceRepository) GetByID(ctx context.Context, id string) (*models.WorkflowInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM workflow_instances WHERE id = $1`

	instance, err := scanInstance(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewInstanceError("GetByID", id, persistence.ErrInstanceNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan instance: %w", err)
	}

	return instance, nil
}

func (r *InstanceRepository) Save(ctx context.Context, instance *models.WorkflowInstance) error {
	instance.UpdatedAt = time.Now().UTC()

	historyJSON, err := json.Marshal(historyOrEmpty(instance.History))
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	fireAt, timerKind := timerColumns(instance)

	// Refusing to touch terminal rows keeps completed/failed/cancelled
	// instances immutable even under racing callers.
	query := `
		UPDATE workflow_instances SET
			current_node_id = $2,
			status = $3,
			sub_status = $4,
			entered_node_at = $5,
			timer_fire_at = $6,
			timer_kind = $7,
			attempts = $8,
			last_error = $9,
			history = $10,
			updated_at = $11
		WHERE id = $1
		  AND status IN ('running', 'waitingOnDelay', 'waitingOnCondition')
	`

	result, err := r.db.ExecContext(ctx, query,
		instance.ID,
		instance.CurrentNodeID,
		instance.Status,
		nullString(string(instance.SubStatus)),
		instance.EnteredNodeAt,
		fireAt,
		timerKind,
		instance.Attempts,
		nullString(instance.LastError),
		historyJSON,
		instance.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save instance: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check saved rows: %w", err)
	}

	if affected == 0 {
		current, err := r.GetByID(ctx, instance.ID)
		if err != nil {
			return err
		}

		if current.Status.Terminal() {
			return persistence.NewInstanceError("Save", instance.ID, persistence.ErrInstanceTerminal)
		}

		return persistence.NewInstanceError("Save", instance.ID, persistence.ErrInstanceNotFound)
	}

	return nil
}

func (r *InstanceRepository) ListWaiting(ctx context.Context, kind models.TimerKind, before time.Time) ([]*models.WorkflowInstance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM workflow_instances
		WHERE status IN ('waitingOnDelay', 'waitingOnCondition')
		  AND timer_kind = $1
		  AND timer_fire_at <= $2
		ORDER BY timer_fire_at
	`

	return r.queryInstances(ctx, query, string(kind), before)
}

func (r *InstanceRepository) ListByLead(ctx context.Context, tenantID, leadID string, statuses []models.InstanceStatus) ([]*models.WorkflowInstance, error) {
	if len(statuses) == 0 {
		query := `
			SELECT ` + instanceColumns + `
			FROM workflow_instances
			WHERE tenant_id = $1 AND lead_id = $2
			ORDER BY created_at
		`

		return r.queryInstances(ctx, query, tenantID, leadID)
	}

	names := make([]string, len(statuses))
	for i, status := range statuses {
		names[i] = string(status)
	}

	query := `
		SELECT ` + instanceColumns + `
		FROM workflow_instances
		WHERE tenant_id = $1 AND lead_id = $2 AND status = ANY($3)
		ORDER BY created_at
	`

	return r.queryInstances(ctx, query, tenantID, leadID, pq.Array(names))
}

func (r *InstanceRepository) ListActiveByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowInstance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM workflow_instances
		WHERE workflow_id = $1
		  AND status IN ('running', 'waitingOnDelay', 'waitingOnCondition')
		ORDER BY created_at
	`

	return r.queryInstances(ctx, query, workflowID)
}

func (r *InstanceRepository) queryInstances(ctx context.Context, query string, args ...any) ([]*models.WorkflowInstance, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query instances: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	instances := make([]*models.WorkflowInstance, 0)

	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}

		instances = append(instances, instance)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating instances: %w", err)
	}

	return instances, nil
}

func scanInstance(row rowScanner) (*models.WorkflowInstance, error) {
	var (
		instance    models.WorkflowInstance
		subStatus   sql.NullString
		fireAt      sql.NullTime
		timerKind   sql.NullString
		lastError   sql.NullString
		historyJSON []byte
	)

	err := row.Scan(
		&instance.ID,
		&instance.WorkflowID,
		&instance.TenantID,
		&instance.LeadID,
		&instance.CurrentNodeID,
		&instance.Status,
		&subStatus,
		&instance.EnteredNodeAt,
		&fireAt,
		&timerKind,
		&instance.Attempts,
		&lastError,
		&historyJSON,
		&instance.CreatedAt,
		&instance.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	instance.SubStatus = models.InstanceSubStatus(subStatus.String)
	instance.LastError = lastError.String

	if fireAt.Valid && timerKind.Valid {
		instance.PendingTimer = &models.TimerRegistration{
			InstanceID: instance.ID,
			FireAt:     fireAt.Time,
			Kind:       models.TimerKind(timerKind.String),
		}
	}

	if err := json.Unmarshal(historyJSON, &instance.History); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}

	return &instance, nil
}

func timerColumns(instance *models.WorkflowInstance) (any, any) {
	if instance.PendingTimer == nil {
		return nil, nil
	}

	return instance.PendingTimer.FireAt, string(instance.PendingTimer.Kind)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}

	return s
}

func historyOrEmpty(history []models.TransitionRecord) []models.TransitionRecord {
	if history == nil {
		return []models.TransitionRecord{}
	}

	return history
}
