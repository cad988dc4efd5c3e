// Package workflow compiles author-supplied automation graphs into immutable,
// indexed definitions and matches lead events against their triggers.
package workflow

import (
	"fmt"
	"strings"

	"github.com/esly-abro/JKhomes-sub000/pkg/models"
)

// ValidationError describes one structural problem in a workflow graph.
type ValidationError struct {
	NodeID  string `json:"node_id,omitempty"`
	EdgeID  string `json:"edge_id,omitempty"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	switch {
	case e.NodeID != "":
		return fmt.Sprintf("node %s: %s", e.NodeID, e.Message)
	case e.EdgeID != "":
		return fmt.Sprintf("edge %s: %s", e.EdgeID, e.Message)
	default:
		return e.Message
	}
}

// ValidationErrors collects every structural error found in a graph. Compile
// never stops at the first problem; authors get the full list at publish time.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	messages := make([]string, len(e))
	for i, err := range e {
		messages[i] = err.Error()
	}

	return "invalid workflow: " + strings.Join(messages, "; ")
}

// CompiledWorkflow is an immutable, indexed view of a validated definition.
// Instances are bound to the compiled snapshot of the version they were
// created from.
type CompiledWorkflow struct {
	Definition *models.WorkflowDefinition

	nodes      map[string]*models.Node
	successors map[string]string
	branches   map[string]map[string]string
	triggers   map[models.TriggerType][]*models.Node
}

// Node returns the node with the given ID, or nil.
func (c *CompiledWorkflow) Node(id string) *models.Node {
	return c.nodes[id]
}

// Successor returns the single unlabeled successor of an action/delay/trigger
// node. ok is false for terminal nodes.
func (c *CompiledWorkflow) Successor(nodeID string) (string, bool) {
	target, ok := c.successors[nodeID]

	return target, ok
}

// Branch returns the target of a condition node's labeled edge.
func (c *CompiledWorkflow) Branch(nodeID, label string) (string, bool) {
	branches, ok := c.branches[nodeID]
	if !ok {
		return "", false
	}

	target, ok := branches[label]

	return target, ok
}

// TriggersFor returns the trigger nodes matching a trigger type.
func (c *CompiledWorkflow) TriggersFor(triggerType models.TriggerType) []*models.Node {
	return c.triggers[triggerType]
}

// Compile validates the structural invariants of a definition and produces
// the indexed form the engine executes. It performs no I/O and is
// deterministic given the same input.
func Compile(def *models.WorkflowDefinition) (*CompiledWorkflow, error) {
	compiler := &compiler{def: def}

	compiled := compiler.run()
	if len(compiler.errs) > 0 {
		return nil, compiler.errs
	}

	return compiled, nil
}

type compiler struct {
	def  *models.WorkflowDefinition
	errs ValidationErrors
}

func (c *compiler) nodeErr(nodeID, format string, args ...any) {
	c.errs = append(c.errs, ValidationError{NodeID: nodeID, Message: fmt.Sprintf(format, args...)})
}

func (c *compiler) edgeErr(edgeID, format string, args ...any) {
	c.errs = append(c.errs, ValidationError{EdgeID: edgeID, Message: fmt.Sprintf(format, args...)})
}

func (c *compiler) run() *CompiledWorkflow {
	compiled := &CompiledWorkflow{
		Definition: c.def,
		nodes:      make(map[string]*models.Node, len(c.def.Nodes)),
		successors: make(map[string]string),
		branches:   make(map[string]map[string]string),
		triggers:   make(map[models.TriggerType][]*models.Node),
	}

	for _, node := range c.def.Nodes {
		if _, dup := compiled.nodes[node.ID]; dup {
			c.nodeErr(node.ID, "duplicate node id")

			continue
		}

		compiled.nodes[node.ID] = node
		c.checkNodeConfig(node)
	}

	inbound := make(map[string]int, len(compiled.nodes))
	outbound := make(map[string][]*models.Edge, len(compiled.nodes))
	edgeIDs := make(map[string]bool, len(c.def.Edges))

	for _, edge := range c.def.Edges {
		if edge.ID != "" && edgeIDs[edge.ID] {
			c.edgeErr(edge.ID, "duplicate edge id")

			continue
		}

		edgeIDs[edge.ID] = true

		dangling := false

		if _, ok := compiled.nodes[edge.SourceNodeID]; !ok {
			c.edgeErr(edge.ID, "source node %s does not exist", edge.SourceNodeID)

			dangling = true
		}

		if _, ok := compiled.nodes[edge.TargetNodeID]; !ok {
			c.edgeErr(edge.ID, "target node %s does not exist", edge.TargetNodeID)

			dangling = true
		}

		if dangling {
			continue
		}

		inbound[edge.TargetNodeID]++
		outbound[edge.SourceNodeID] = append(outbound[edge.SourceNodeID], edge)
	}

	hasTrigger := false

	for _, node := range c.def.Nodes {
		if compiled.nodes[node.ID] != node {
			continue // duplicate id, already reported
		}

		c.checkNodeEdges(compiled, node, inbound[node.ID], outbound[node.ID])

		if node.Kind == models.NodeKindTrigger {
			hasTrigger = true

			config, err := node.TriggerConfig()
			if err == nil && models.KnownTriggerType(config.TriggerType) {
				compiled.triggers[config.TriggerType] = append(compiled.triggers[config.TriggerType], node)
			}
		}
	}

	if !hasTrigger {
		c.errs = append(c.errs, ValidationError{Message: "workflow has no trigger node"})
	}

	c.checkTightLoops(compiled)

	return compiled
}

func (c *compiler) checkNodeConfig(node *models.Node) {
	switch node.Kind {
	case models.NodeKindTrigger:
		config, _ := node.TriggerConfig()
		if !models.KnownTriggerType(config.TriggerType) {
			c.nodeErr(node.ID, "unknown trigger type %q", config.TriggerType)
		}
	case models.NodeKindAction:
		c.checkActionConfig(node)
	case models.NodeKindDelay:
		config, _ := node.DelayConfig()
		c.checkDelaySpec(node.ID, config)
	case models.NodeKindCondition:
		config, _ := node.ConditionConfig()
		c.checkConditionConfig(node.ID, config)
	case models.NodeKindConditionTimeout:
		config, _ := node.ConditionTimeoutConfig()
		c.checkConditionConfig(node.ID, config.ConditionConfig)
		c.checkDelaySpec(node.ID, config.Timeout)
	default:
		c.nodeErr(node.ID, "unknown node kind %q", node.Kind)
	}
}

func (c *compiler) checkActionConfig(node *models.Node) {
	config, _ := node.ActionConfig()

	if !models.KnownActionKind(config.ActionKind) {
		c.nodeErr(node.ID, "unknown action kind %q", config.ActionKind)

		return
	}

	if config.ActionKind == models.ActionSendMessage {
		_, hasTemplate := config.Params["templateRef"]
		_, hasBody := config.Params["customBody"]

		if !hasTemplate && !hasBody {
			c.nodeErr(node.ID, "sendMessage requires either templateRef or customBody")
		}
	}
}

func (c *compiler) checkDelaySpec(nodeID string, spec models.DelaySpec) {
	if !models.KnownDurationUnit(spec.Unit) {
		c.nodeErr(nodeID, "unknown duration unit %q", spec.Unit)
	}

	if spec.Duration <= 0 {
		c.nodeErr(nodeID, "duration must be positive, got %d", spec.Duration)
	}
}

func (c *compiler) checkConditionConfig(nodeID string, config models.ConditionConfig) {
	if config.Field == "" {
		c.nodeErr(nodeID, "condition field is required")
	}

	if !models.KnownOperator(config.Operator) {
		c.nodeErr(nodeID, "unknown operator %q", config.Operator)
	}
}

func (c *compiler) checkNodeEdges(compiled *CompiledWorkflow, node *models.Node, inbound int, outbound []*models.Edge) {
	switch node.Kind {
	case models.NodeKindTrigger:
		if inbound > 0 {
			c.nodeErr(node.ID, "trigger node must not have inbound edges")
		}

		if len(outbound) != 1 || outbound[0].Label != "" {
			c.nodeErr(node.ID, "trigger node requires exactly one unlabeled outgoing edge")

			return
		}

		compiled.successors[node.ID] = outbound[0].TargetNodeID
	case models.NodeKindAction, models.NodeKindDelay:
		if inbound == 0 {
			c.nodeErr(node.ID, "node has no inbound edge")
		}

		switch {
		case len(outbound) == 0: // terminal node, instance completes here
		case len(outbound) == 1 && outbound[0].Label == "":
			compiled.successors[node.ID] = outbound[0].TargetNodeID
		default:
			c.nodeErr(node.ID, "%s node requires at most one unlabeled outgoing edge", node.Kind)
		}
	case models.NodeKindCondition, models.NodeKindConditionTimeout:
		if inbound == 0 {
			c.nodeErr(node.ID, "node has no inbound edge")
		}

		branches := make(map[string]string, 2)

		for _, edge := range outbound {
			if edge.Label != models.EdgeLabelYes && edge.Label != models.EdgeLabelNo {
				c.edgeErr(edge.ID, "condition edge label must be yes or no, got %q", edge.Label)

				continue
			}

			if _, dup := branches[edge.Label]; dup {
				c.nodeErr(node.ID, "duplicate %q branch", edge.Label)

				continue
			}

			branches[edge.Label] = edge.TargetNodeID
		}

		if _, ok := branches[models.EdgeLabelYes]; !ok {
			c.nodeErr(node.ID, "condition node is missing its yes branch")
		}

		if _, ok := branches[models.EdgeLabelNo]; !ok {
			c.nodeErr(node.ID, "condition node is missing its no branch")
		}

		compiled.branches[node.ID] = branches
	}
}

// checkTightLoops rejects cycles reachable from a trigger that never pass
// through a delay or conditionTimeout node. Such cycles would spin the engine
// without ever going dormant.
func (c *compiler) checkTightLoops(compiled *CompiledWorkflow) {
	// Walk only the edges of nodes that resolve synchronously; delay and
	// conditionTimeout nodes break the walk because they always park the
	// instance before continuing.
	next := func(nodeID string) []string {
		node := compiled.nodes[nodeID]
		if node == nil || node.Kind == models.NodeKindDelay || node.Kind == models.NodeKindConditionTimeout {
			return nil
		}

		if branches, ok := compiled.branches[nodeID]; ok {
			targets := make([]string, 0, len(branches))
			for _, target := range branches {
				targets = append(targets, target)
			}

			return targets
		}

		if target, ok := compiled.successors[nodeID]; ok {
			return []string{target}
		}

		return nil
	}

	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)

	state := make(map[string]int, len(compiled.nodes))
	reported := make(map[string]bool)

	var visit func(nodeID string)

	visit = func(nodeID string) {
		state[nodeID] = inStack

		for _, target := range next(nodeID) {
			switch state[target] {
			case unvisited:
				visit(target)
			case inStack:
				if !reported[target] {
					reported[target] = true
					c.nodeErr(target, "cycle without an intervening delay or timeout node")
				}
			}
		}

		state[nodeID] = done
	}

	for _, triggers := range compiled.triggers {
		for _, trigger := range triggers {
			if state[trigger.ID] == unvisited {
				visit(trigger.ID)
			}
		}
	}
}
