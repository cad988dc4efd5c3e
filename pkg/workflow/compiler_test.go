package workflow

import (
	"testing"

	"github.com/esly-abro/JKhomes-sub000/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triggerNode(id string, triggerType models.TriggerType) *models.Node {
	return &models.Node{
		ID:     id,
		Kind:   models.NodeKindTrigger,
		Config: map[string]any{"trigger_type": string(triggerType)},
	}
}

func actionNode(id string, kind models.ActionKind, params map[string]any) *models.Node {
	if params == nil {
		params = map[string]any{}
	}

	return &models.Node{
		ID:     id,
		Kind:   models.NodeKindAction,
		Config: map[string]any{"action_kind": string(kind), "params": params},
	}
}

func delayNode(id string, duration int, unit models.DurationUnit) *models.Node {
	return &models.Node{
		ID:     id,
		Kind:   models.NodeKindDelay,
		Config: map[string]any{"duration": duration, "unit": string(unit)},
	}
}

func conditionNode(id, field string, op models.ConditionOperator, value any) *models.Node {
	return &models.Node{
		ID:     id,
		Kind:   models.NodeKindCondition,
		Config: map[string]any{"field": field, "operator": string(op), "value": value},
	}
}

func edge(source, target, label string) *models.Edge {
	return &models.Edge{
		ID:           source + "->" + target + ":" + label,
		SourceNodeID: source,
		TargetNodeID: target,
		Label:        label,
	}
}

func definition(nodes []*models.Node, edges []*models.Edge) *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID:       "wf-1",
		TenantID: "tenant-1",
		Name:     "Welcome flow",
		Status:   models.WorkflowStatusActive,
		Nodes:    nodes,
		Edges:    edges,
	}
}

func TestCompile_ValidLinearWorkflow(t *testing.T) {
	def := definition(
		[]*models.Node{
			triggerNode("t1", models.TriggerNewLead),
			actionNode("a1", models.ActionSendMessage, map[string]any{"templateRef": "welcome"}),
			delayNode("d1", 1, models.UnitDays),
			conditionNode("c1", "status", models.OperatorEquals, "replied"),
			actionNode("a2", models.ActionAssignHumanTask, nil),
			actionNode("a3", models.ActionSendEmail, nil),
		},
		[]*models.Edge{
			edge("t1", "a1", ""),
			edge("a1", "d1", ""),
			edge("d1", "c1", ""),
			edge("c1", "a3", "yes"),
			edge("c1", "a2", "no"),
		},
	)

	compiled, err := Compile(def)
	require.NoError(t, err)

	successor, ok := compiled.Successor("t1")
	require.True(t, ok)
	assert.Equal(t, "a1", successor)

	yes, ok := compiled.Branch("c1", models.EdgeLabelYes)
	require.True(t, ok)
	assert.Equal(t, "a3", yes)

	no, ok := compiled.Branch("c1", models.EdgeLabelNo)
	require.True(t, ok)
	assert.Equal(t, "a2", no)

	// a2 and a3 are terminal.
	_, ok = compiled.Successor("a2")
	assert.False(t, ok)

	require.Len(t, compiled.TriggersFor(models.TriggerNewLead), 1)
	assert.Empty(t, compiled.TriggersFor(models.TriggerLeadUpdated))
}

func TestCompile_CollectsAllErrors(t *testing.T) {
	def := definition(
		[]*models.Node{
			triggerNode("t1", "somethingElse"),
			actionNode("a1", models.ActionSendMessage, nil),    // missing templateRef/customBody
			conditionNode("c1", "", "matches", "x"),            // empty field, bad operator
			{ID: "x1", Kind: "loop", Config: map[string]any{}}, // unknown kind
			delayNode("d1", 0, "weeks"),                        // bad duration and unit
		},
		[]*models.Edge{
			edge("t1", "a1", ""),
			edge("a1", "c1", ""),
			edge("c1", "missing", "yes"), // dangling target, missing no branch
			edge("c1", "d1", "maybe"),    // invalid label
		},
	)

	_, err := Compile(def)
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)

	messages := err.Error()
	assert.Contains(t, messages, "unknown trigger type")
	assert.Contains(t, messages, "sendMessage requires either templateRef or customBody")
	assert.Contains(t, messages, "condition field is required")
	assert.Contains(t, messages, "unknown operator")
	assert.Contains(t, messages, "unknown node kind")
	assert.Contains(t, messages, "unknown duration unit")
	assert.Contains(t, messages, "duration must be positive")
	assert.Contains(t, messages, "does not exist")
	assert.Contains(t, messages, "missing its no branch")
	assert.GreaterOrEqual(t, len(verrs), 9)
}

func TestCompile_TriggerEdgeRules(t *testing.T) {
	def := definition(
		[]*models.Node{
			triggerNode("t1", models.TriggerNewLead),
			actionNode("a1", models.ActionPlaceCall, nil),
		},
		[]*models.Edge{
			edge("t1", "a1", ""),
			edge("a1", "t1", ""), // inbound edge into a trigger
		},
	)

	_, err := Compile(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trigger node must not have inbound edges")
}

func TestCompile_NonTriggerNeedsInboundEdge(t *testing.T) {
	def := definition(
		[]*models.Node{
			triggerNode("t1", models.TriggerNewLead),
			actionNode("a1", models.ActionPlaceCall, nil),
			actionNode("orphan", models.ActionSendEmail, nil),
		},
		[]*models.Edge{
			edge("t1", "a1", ""),
		},
	)

	_, err := Compile(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node orphan: node has no inbound edge")
}

func TestCompile_RequiresTrigger(t *testing.T) {
	def := definition(
		[]*models.Node{actionNode("a1", models.ActionSendEmail, nil)},
		nil,
	)

	_, err := Compile(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow has no trigger node")
}

func TestCompile_RejectsTightLoop(t *testing.T) {
	// t1 -> a1 -> c1 -yes-> a1 is a cycle with no delay or timeout in it.
	def := definition(
		[]*models.Node{
			triggerNode("t1", models.TriggerNewLead),
			actionNode("a1", models.ActionPlaceCall, nil),
			conditionNode("c1", "status", models.OperatorEquals, "busy"),
			actionNode("a2", models.ActionAssignHumanTask, nil),
		},
		[]*models.Edge{
			edge("t1", "a1", ""),
			edge("a1", "c1", ""),
			edge("c1", "a1", "yes"),
			edge("c1", "a2", "no"),
		},
	)

	_, err := Compile(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle without an intervening delay or timeout node")
}

func TestCompile_AllowsLoopThroughDelay(t *testing.T) {
	// The same loop is legal once a delay sits on the back edge: the
	// instance parks between iterations.
	def := definition(
		[]*models.Node{
			triggerNode("t1", models.TriggerNewLead),
			actionNode("a1", models.ActionPlaceCall, nil),
			conditionNode("c1", "callStatus", models.OperatorNotEquals, "answered"),
			delayNode("d1", 4, models.UnitHours),
			actionNode("a2", models.ActionAssignHumanTask, nil),
		},
		[]*models.Edge{
			edge("t1", "a1", ""),
			edge("a1", "c1", ""),
			edge("c1", "d1", "yes"),
			edge("d1", "a1", ""),
			edge("c1", "a2", "no"),
		},
	)

	_, err := Compile(def)
	assert.NoError(t, err)
}

func TestCompile_DuplicateBranchLabel(t *testing.T) {
	def := definition(
		[]*models.Node{
			triggerNode("t1", models.TriggerNewLead),
			conditionNode("c1", "status", models.OperatorEquals, "x"),
			actionNode("a1", models.ActionSendEmail, nil),
			actionNode("a2", models.ActionSendEmail, nil),
		},
		[]*models.Edge{
			edge("t1", "c1", ""),
			edge("c1", "a1", "yes"),
			edge("c1", "a2", "yes"),
		},
	)

	_, err := Compile(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate "yes" branch`)
	assert.Contains(t, err.Error(), "missing its no branch")
}

func TestCompile_IsDeterministic(t *testing.T) {
	def := definition(
		[]*models.Node{
			triggerNode("t1", models.TriggerNewLead),
			conditionNode("c1", "", "bogus", nil),
		},
		[]*models.Edge{edge("t1", "c1", "")},
	)

	_, err1 := Compile(def)
	_, err2 := Compile(def)

	require.Error(t, err1)
	require.Error(t, err2)
	assert.Equal(t, err1.Error(), err2.Error())
}
