// Package models defines the core domain models for lead automation workflows.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusDraft    WorkflowStatus = "draft"    // Editable, not executable
	WorkflowStatusActive   WorkflowStatus = "active"   // Published, matched against lead events
	WorkflowStatusArchived WorkflowStatus = "archived" // Historical, never matched again
)

// WorkflowDefinition is a tenant-owned automation graph. Once active it is
// immutable; edits copy the graph into a new draft version sharing the same
// WorkflowGroupID.
type WorkflowDefinition struct {
	ID              string         `json:"id"`
	TenantID        string         `json:"tenant_id"         validate:"required"`
	Name            string         `json:"name"              validate:"required,min=3"`
	Version         int            `json:"version"`
	WorkflowGroupID string         `json:"workflow_group_id"` // Stable ID linking all versions
	Status          WorkflowStatus `json:"status"            validate:"required"`
	Nodes           []*Node        `json:"nodes"`
	Edges           []*Edge        `json:"edges"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	PublishedAt     *time.Time     `json:"published_at,omitempty"`
	ArchivedAt      *time.Time     `json:"archived_at,omitempty"`
}

// NodeByID returns the node with the given ID, or nil.
func (w *WorkflowDefinition) NodeByID(id string) *Node {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// TriggerNodes returns every trigger node in the definition.
func (w *WorkflowDefinition) TriggerNodes() []*Node {
	nodes := make([]*Node, 0, 1)

	for _, node := range w.Nodes {
		if node.Kind == NodeKindTrigger {
			nodes = append(nodes, node)
		}
	}

	return nodes
}
