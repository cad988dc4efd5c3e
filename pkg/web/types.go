// Package web provides the REST API and webhook ingress for lead automation
// workflows.
package web

import (
	"time"

	"github.com/esly-abro/JKhomes-sub000/pkg/models"
)

// CreateWorkflowRequest is the body for creating a new draft workflow.
type CreateWorkflowRequest struct {
	TenantID string         `json:"tenant_id" validate:"required"`
	Name     string         `json:"name"      validate:"required,min=3"`
	Nodes    []*models.Node `json:"nodes"`
	Edges    []*models.Edge `json:"edges"`
}

// EventRequest is the body for the generic inbound event endpoint.
type EventRequest struct {
	TenantID       string         `json:"tenant_id"       validate:"required"`
	LeadID         string         `json:"lead_id"         validate:"required"`
	EventType      string         `json:"event_type"      validate:"required"`
	Payload        map[string]any `json:"payload,omitempty"`
	IdempotencyKey string         `json:"idempotency_key" validate:"required"`
	OccurredAt     time.Time      `json:"occurred_at,omitempty"`
}

// WebhookRequest is the body for provider webhook endpoints. The tenant comes
// from the URL, everything else from the provider payload.
type WebhookRequest struct {
	TenantID string         `json:"tenant_id" validate:"required"`
	Payload  map[string]any `json:"payload"   validate:"required"`
}

// InstanceResponse is the API view of a workflow instance, history included.
type InstanceResponse struct {
	ID              string                    `json:"id"`
	WorkflowID      string                    `json:"workflow_id"`
	TenantID        string                    `json:"tenant_id"`
	LeadID          string                    `json:"lead_id"`
	CurrentNodeID   string                    `json:"current_node_id"`
	CurrentNodeName string                    `json:"current_node_name,omitempty"`
	CurrentNodeKind models.NodeKind           `json:"current_node_kind,omitempty"`
	Status          models.InstanceStatus     `json:"status"`
	SubStatus       models.InstanceSubStatus  `json:"sub_status,omitempty"`
	LastError       string                    `json:"last_error,omitempty"`
	PendingTimer    *models.TimerRegistration `json:"pending_timer,omitempty"`
	History         []models.TransitionRecord `json:"history"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
}

func toInstanceResponse(instance *models.WorkflowInstance) InstanceResponse {
	return InstanceResponse{
		ID:            instance.ID,
		WorkflowID:    instance.WorkflowID,
		TenantID:      instance.TenantID,
		LeadID:        instance.LeadID,
		CurrentNodeID: instance.CurrentNodeID,
		Status:        instance.Status,
		SubStatus:     instance.SubStatus,
		LastError:     instance.LastError,
		PendingTimer:  instance.PendingTimer,
		History:       instance.History,
		CreatedAt:     instance.CreatedAt,
		UpdatedAt:     instance.UpdatedAt,
	}
}
