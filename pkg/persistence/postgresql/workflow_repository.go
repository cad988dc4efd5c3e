package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/esly-abro/JKhomes-sub000/pkg/models"
	"github.com/esly-abro/JKhomes-sub000/pkg/persistence"
	"github.com/google/uuid"
)

// WorkflowRepository handles workflow definition database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

const workflowColumns = `
	id
  , tenant_id
  , name
  , version
  , workflow_group_id
  , status
  , nodes
  , edges
  , created_at
  , updated_at
  , published_at
  , archived_at
`

func (r *WorkflowRepository) Save(ctx context.Context, def *models.WorkflowDefinition) error {
	now := time.Now().UTC()

	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}

	def.UpdatedAt = now

	if def.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		def.ID = id.String()
	}

	nodesJSON, err := json.Marshal(def.Nodes)
	if err != nil {
		return fmt.Errorf("failed to marshal nodes: %w", err)
	}

	edgesJSON, err := json.Marshal(def.Edges)
	if err != nil {
		return fmt.Errorf("failed to marshal edges: %w", err)
	}

	var groupID any
	if def.WorkflowGroupID != "" {
		groupID = def.WorkflowGroupID
	}

	query := `
		INSERT INTO workflows (id, tenant_id, name, version, workflow_group_id,
			status, nodes, edges, created_at, updated_at, published_at, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			version = EXCLUDED.version,
			status = EXCLUDED.status,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			updated_at = EXCLUDED.updated_at,
			published_at = EXCLUDED.published_at,
			archived_at = EXCLUDED.archived_at
	`

	_, err = r.db.ExecContext(ctx, query,
		def.ID,
		def.TenantID,
		def.Name,
		def.Version,
		groupID,
		def.Status,
		nodesJSON,
		edgesJSON,
		def.CreatedAt,
		def.UpdatedAt,
		def.PublishedAt,
		def.ArchivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}

	return nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`

	def, err := scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrWorkflowNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return def, nil
}

func (r *WorkflowRepository) List(ctx context.Context, tenantID string) ([]*models.WorkflowDefinition, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE tenant_id = $1 ORDER BY created_at`

	return r.queryWorkflows(ctx, query, tenantID)
}

func (r *WorkflowRepository) ListActive(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE status = 'active' ORDER BY created_at`

	return r.queryWorkflows(ctx, query)
}

func (r *WorkflowRepository) queryWorkflows(ctx context.Context, query string, args ...any) ([]*models.WorkflowDefinition, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	defs := make([]*models.WorkflowDefinition, 0)

	for rows.Next() {
		def, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		defs = append(defs, def)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return defs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.WorkflowDefinition, error) {
	var (
		def       models.WorkflowDefinition
		groupID   sql.NullString
		nodesJSON []byte
		edgesJSON []byte
	)

	err := row.Scan(
		&def.ID,
		&def.TenantID,
		&def.Name,
		&def.Version,
		&groupID,
		&def.Status,
		&nodesJSON,
		&edgesJSON,
		&def.CreatedAt,
		&def.UpdatedAt,
		&def.PublishedAt,
		&def.ArchivedAt,
	)
	if err != nil {
		return nil, err
	}

	def.WorkflowGroupID = groupID.String

	if err := json.Unmarshal(nodesJSON, &def.Nodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
	}

	if err := json.Unmarshal(edgesJSON, &def.Edges); err != nil {
		return nil, fmt.Errorf("failed to unmarshal edges: %w", err)
	}

	return &def, nil
}
