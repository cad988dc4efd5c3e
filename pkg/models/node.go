package models

import (
	"errors"
	"fmt"
	"time"
)

// NodeKind is the tagged variant discriminator for workflow nodes.
type NodeKind string

const (
	NodeKindTrigger          NodeKind = "trigger"
	NodeKindAction           NodeKind = "action"
	NodeKindDelay            NodeKind = "delay"
	NodeKindCondition        NodeKind = "condition"
	NodeKindConditionTimeout NodeKind = "conditionTimeout"
)

// TriggerType identifies which lead-domain event starts a workflow.
type TriggerType string

const (
	TriggerNewLead              TriggerType = "newLead"
	TriggerLeadUpdated          TriggerType = "leadUpdated"
	TriggerAppointmentScheduled TriggerType = "appointmentScheduled"
)

// ActionKind identifies the external side effect an action node causes.
type ActionKind string

const (
	ActionSendMessage     ActionKind = "sendMessage"
	ActionPlaceCall       ActionKind = "placeCall"
	ActionAssignHumanTask ActionKind = "assignHumanTask"
	ActionSendEmail       ActionKind = "sendEmail"
)

// DurationUnit is the unit of a delay or timeout duration.
type DurationUnit string

const (
	UnitSeconds DurationUnit = "seconds"
	UnitMinutes DurationUnit = "minutes"
	UnitHours   DurationUnit = "hours"
	UnitDays    DurationUnit = "days"
)

// Edge labels for condition branches. Action/delay edges are unlabeled.
const (
	EdgeLabelYes = "yes"
	EdgeLabelNo  = "no"
)

// Node is a single vertex in a workflow graph. Config is a closed,
// kind-tagged map validated at compile time; the typed accessors below are
// the only way runtime code reads it.
type Node struct {
	ID     string         `json:"id"     validate:"required"`
	Kind   NodeKind       `json:"kind"   validate:"required"`
	Name   string         `json:"name"`
	Config map[string]any `json:"config"`
}

// Edge connects two nodes. Label is empty for action/delay successors and
// "yes"/"no" for condition branches.
type Edge struct {
	ID           string `json:"id"`
	SourceNodeID string `json:"source_node_id" validate:"required"`
	TargetNodeID string `json:"target_node_id" validate:"required"`
	Label        string `json:"label,omitempty"`
}

// DelaySpec is a duration plus unit as authored in the graph editor.
type DelaySpec struct {
	Duration int          `json:"duration"`
	Unit     DurationUnit `json:"unit"`
}

// ToDuration converts the spec into a time.Duration. Days are fixed 24h
// spans; there is no calendar arithmetic.
func (d DelaySpec) ToDuration() time.Duration {
	switch d.Unit {
	case UnitSeconds:
		return time.Duration(d.Duration) * time.Second
	case UnitMinutes:
		return time.Duration(d.Duration) * time.Minute
	case UnitHours:
		return time.Duration(d.Duration) * time.Hour
	case UnitDays:
		return time.Duration(d.Duration) * 24 * time.Hour
	default:
		return 0
	}
}

// TriggerConfig is the decoded config of a trigger node.
type TriggerConfig struct {
	TriggerType TriggerType `json:"trigger_type"`
}

// ActionConfig is the decoded config of an action node. Params is passed
// through to the channel handler and validated against the kind's schema.
type ActionConfig struct {
	ActionKind ActionKind     `json:"action_kind"`
	Params     map[string]any `json:"params"`
}

// ConditionConfig is the decoded config of a condition node.
type ConditionConfig struct {
	Field    string            `json:"field"`
	Operator ConditionOperator `json:"operator"`
	Value    any               `json:"value"`
}

// ConditionTimeoutConfig is a condition racing against a timeout. The "no"
// branch also fires when the timeout elapses first.
type ConditionTimeoutConfig struct {
	ConditionConfig

	Timeout DelaySpec `json:"timeout"`
}

var errWrongNodeKind = errors.New("config accessor called on wrong node kind")

// TriggerConfig decodes the node config as a trigger.
func (n *Node) TriggerConfig() (TriggerConfig, error) {
	if n.Kind != NodeKindTrigger {
		return TriggerConfig{}, fmt.Errorf("node %s: %w", n.ID, errWrongNodeKind)
	}

	triggerType, _ := n.Config["trigger_type"].(string)

	return TriggerConfig{TriggerType: TriggerType(triggerType)}, nil
}

// ActionConfig decodes the node config as an action.
func (n *Node) ActionConfig() (ActionConfig, error) {
	if n.Kind != NodeKindAction {
		return ActionConfig{}, fmt.Errorf("node %s: %w", n.ID, errWrongNodeKind)
	}

	kind, _ := n.Config["action_kind"].(string)
	params, _ := n.Config["params"].(map[string]any)

	if params == nil {
		params = make(map[string]any)
	}

	return ActionConfig{ActionKind: ActionKind(kind), Params: params}, nil
}

// DelayConfig decodes the node config as a delay.
func (n *Node) DelayConfig() (DelaySpec, error) {
	if n.Kind != NodeKindDelay {
		return DelaySpec{}, fmt.Errorf("node %s: %w", n.ID, errWrongNodeKind)
	}

	return decodeDelaySpec(n.Config), nil
}

// ConditionConfig decodes the node config as a condition.
func (n *Node) ConditionConfig() (ConditionConfig, error) {
	if n.Kind != NodeKindCondition && n.Kind != NodeKindConditionTimeout {
		return ConditionConfig{}, fmt.Errorf("node %s: %w", n.ID, errWrongNodeKind)
	}

	return decodeConditionConfig(n.Config), nil
}

// ConditionTimeoutConfig decodes the node config as a condition with timeout.
func (n *Node) ConditionTimeoutConfig() (ConditionTimeoutConfig, error) {
	if n.Kind != NodeKindConditionTimeout {
		return ConditionTimeoutConfig{}, fmt.Errorf("node %s: %w", n.ID, errWrongNodeKind)
	}

	timeoutRaw, _ := n.Config["timeout"].(map[string]any)

	return ConditionTimeoutConfig{
		ConditionConfig: decodeConditionConfig(n.Config),
		Timeout:         decodeDelaySpec(timeoutRaw),
	}, nil
}

func decodeConditionConfig(config map[string]any) ConditionConfig {
	field, _ := config["field"].(string)
	operator, _ := config["operator"].(string)

	return ConditionConfig{
		Field:    field,
		Operator: ConditionOperator(operator),
		Value:    config["value"],
	}
}

func decodeDelaySpec(config map[string]any) DelaySpec {
	if config == nil {
		return DelaySpec{}
	}

	unit, _ := config["unit"].(string)

	return DelaySpec{
		Duration: toInt(config["duration"]),
		Unit:     DurationUnit(unit),
	}
}

// toInt normalizes the numeric types JSON decoding can produce.
func toInt(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// KnownTriggerType reports whether t is one of the supported trigger types.
func KnownTriggerType(t TriggerType) bool {
	switch t {
	case TriggerNewLead, TriggerLeadUpdated, TriggerAppointmentScheduled:
		return true
	default:
		return false
	}
}

// KnownActionKind reports whether k is one of the supported action kinds.
func KnownActionKind(k ActionKind) bool {
	switch k {
	case ActionSendMessage, ActionPlaceCall, ActionAssignHumanTask, ActionSendEmail:
		return true
	default:
		return false
	}
}

// KnownDurationUnit reports whether u is one of the supported units.
func KnownDurationUnit(u DurationUnit) bool {
	switch u {
	case UnitSeconds, UnitMinutes, UnitHours, UnitDays:
		return true
	default:
		return false
	}
}
