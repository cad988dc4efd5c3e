package workflow

import (
	"log/slog"

	"github.com/esly-abro/JKhomes-sub000/pkg/events"
	"github.com/esly-abro/JKhomes-sub000/pkg/models"
)

// TriggerMatcher finds the trigger nodes a lead event should start.
type TriggerMatcher struct {
	logger *slog.Logger
}

// TriggerMatch pairs a compiled workflow with the trigger node that matched.
type TriggerMatch struct {
	Workflow    *CompiledWorkflow
	TriggerNode *models.Node
}

func NewTriggerMatcher(logger *slog.Logger) *TriggerMatcher {
	return &TriggerMatcher{
		logger: logger.With("module", "trigger_matcher"),
	}
}

// Match returns one match per trigger node of the event's trigger type across
// the tenant's active workflows. Events with no trigger semantics (inbound
// replies, call completions) match nothing.
func (tm *TriggerMatcher) Match(event events.LeadEvent, workflows []*CompiledWorkflow) []TriggerMatch {
	triggerType, ok := event.TriggerType()
	if !ok {
		return nil
	}

	var matches []TriggerMatch

	for _, compiled := range workflows {
		if compiled.Definition.Status != models.WorkflowStatusActive {
			continue
		}

		if compiled.Definition.TenantID != event.TenantID {
			continue
		}

		for _, trigger := range compiled.TriggersFor(triggerType) {
			matches = append(matches, TriggerMatch{Workflow: compiled, TriggerNode: trigger})

			tm.logger.Debug("Found matching workflow",
				"workflow_id", compiled.Definition.ID,
				"trigger_node_id", trigger.ID,
				"trigger_type", triggerType)
		}
	}

	tm.logger.Debug("Completed trigger matching",
		"event_type", event.EventType,
		"tenant_id", event.TenantID,
		"matches_found", len(matches))

	return matches
}
