package models

import "time"

// InstanceStatus represents the lifecycle state of a workflow instance.
type InstanceStatus string

const (
	InstanceStatusRunning            InstanceStatus = "running"
	InstanceStatusWaitingOnDelay     InstanceStatus = "waitingOnDelay"
	InstanceStatusWaitingOnCondition InstanceStatus = "waitingOnCondition"
	InstanceStatusCompleted          InstanceStatus = "completed"
	InstanceStatusFailed             InstanceStatus = "failed"
	InstanceStatusCancelled          InstanceStatus = "cancelled"
)

// Terminal reports whether no further transitions are permitted.
func (s InstanceStatus) Terminal() bool {
	switch s {
	case InstanceStatusCompleted, InstanceStatusFailed, InstanceStatusCancelled:
		return true
	default:
		return false
	}
}

// Waiting reports whether the instance is dormant on a pending timer.
func (s InstanceStatus) Waiting() bool {
	return s == InstanceStatusWaitingOnDelay || s == InstanceStatusWaitingOnCondition
}

// InstanceSubStatus is an operator-visible refinement of a running instance.
type InstanceSubStatus string

// SubStatusActionRetrying marks an instance whose current action node is
// being retried after transient dispatch failures.
const SubStatusActionRetrying InstanceSubStatus = "actionRetrying"

// TimerKind distinguishes delay timers from condition timeouts.
type TimerKind string

const (
	TimerKindDelay   TimerKind = "delay"
	TimerKindTimeout TimerKind = "timeout"
)

// TimerRegistration is the durable record of an instance's single pending
// timer. A waiting instance has exactly one; every other status has none.
type TimerRegistration struct {
	InstanceID string    `json:"instance_id"`
	FireAt     time.Time `json:"fire_at"`
	Kind       TimerKind `json:"kind"`
}

// TransitionRecord is one append-only audit entry for a node-to-node hop.
// Replaying History reconstructs the full path an instance took.
type TransitionRecord struct {
	FromNodeID string    `json:"from_node_id"`
	ToNodeID   string    `json:"to_node_id"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WorkflowInstance is one execution of a WorkflowDefinition bound to one
// lead. It is mutated exclusively by the execution engine, through the
// instance repository's Save.
type WorkflowInstance struct {
	ID            string             `json:"id"`
	WorkflowID    string             `json:"workflow_id" validate:"required"`
	TenantID      string             `json:"tenant_id"   validate:"required"`
	LeadID        string             `json:"lead_id"     validate:"required"`
	CurrentNodeID string             `json:"current_node_id"`
	Status        InstanceStatus     `json:"status"`
	SubStatus     InstanceSubStatus  `json:"sub_status,omitempty"`
	EnteredNodeAt time.Time          `json:"entered_node_at"`
	PendingTimer  *TimerRegistration `json:"pending_timer,omitempty"`
	Attempts      int                `json:"attempts,omitempty"`
	LastError     string             `json:"last_error,omitempty"`
	History       []TransitionRecord `json:"history"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// RecordTransition appends one history entry for a node hop.
func (i *WorkflowInstance) RecordTransition(fromNodeID, toNodeID, reason string, at time.Time) {
	i.History = append(i.History, TransitionRecord{
		FromNodeID: fromNodeID,
		ToNodeID:   toNodeID,
		Reason:     reason,
		OccurredAt: at,
	})
}

// EnterNode moves the instance to a node, resetting per-node retry state.
func (i *WorkflowInstance) EnterNode(nodeID string, at time.Time) {
	i.CurrentNodeID = nodeID
	i.EnteredNodeAt = at
	i.Attempts = 0
	i.SubStatus = ""
}

// RegisterTimer sets the single pending timer for a waiting instance.
func (i *WorkflowInstance) RegisterTimer(kind TimerKind, fireAt time.Time) {
	i.PendingTimer = &TimerRegistration{
		InstanceID: i.ID,
		FireAt:     fireAt,
		Kind:       kind,
	}
}

// ClearTimer revokes the pending timer, if any.
func (i *WorkflowInstance) ClearTimer() {
	i.PendingTimer = nil
}
