package engine

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/esly-abro/JKhomes-sub000/pkg/events"
	"github.com/esly-abro/JKhomes-sub000/pkg/models"
	"github.com/esly-abro/JKhomes-sub000/pkg/otelhelper"
	"github.com/esly-abro/JKhomes-sub000/pkg/protocol"
	"github.com/esly-abro/JKhomes-sub000/pkg/workflow"
)

// run wraps one advancement of an instance in a span and walks the graph.
func (e *Engine) run(ctx context.Context, compiled *workflow.CompiledWorkflow, instance *models.WorkflowInstance) error {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.advance",
		attribute.String(otelhelper.TenantIDKey, instance.TenantID),
		attribute.String(otelhelper.WorkflowIDKey, instance.WorkflowID),
		attribute.String(otelhelper.InstanceIDKey, instance.ID),
		attribute.String(otelhelper.LeadIDKey, instance.LeadID),
	)
	defer span.End()

	err := e.advance(ctx, compiled, instance)
	if err != nil {
		otelhelper.SetError(span, err,
			attribute.String(otelhelper.NodeIDKey, instance.CurrentNodeID))
	}

	return err
}

// advance walks the graph from the instance's current node until the instance
// parks on a timer or terminates. Caller holds the instance lock. Every hop
// appends exactly one transition record and is persisted before the next node
// executes.
func (e *Engine) advance(ctx context.Context, compiled *workflow.CompiledWorkflow, instance *models.WorkflowInstance) error {
	for {
		node := compiled.Node(instance.CurrentNodeID)
		if node == nil {
			return e.failInstance(ctx, instance, fmt.Errorf("node %s missing from definition", instance.CurrentNodeID))
		}

		switch node.Kind {
		case models.NodeKindAction:
			err := e.runAction(ctx, instance, node)
			if err != nil {
				// Shutdown mid-retry is not an action failure; leave the
				// instance on its node instead of terminating it.
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}

				return e.failInstance(ctx, instance, err)
			}

			next, ok := compiled.Successor(node.ID)
			if !ok {
				return e.completeInstance(ctx, instance)
			}

			now := e.clock()
			instance.RecordTransition(node.ID, next, "action succeeded", now)
			instance.EnterNode(next, now)

			err = e.save(ctx, instance)
			if err != nil {
				return err
			}
		case models.NodeKindDelay:
			spec, err := node.DelayConfig()
			if err != nil {
				return e.failInstance(ctx, instance, err)
			}

			return e.park(ctx, instance, models.InstanceStatusWaitingOnDelay, models.TimerKindDelay, spec)
		case models.NodeKindCondition:
			err := e.runCondition(ctx, compiled, instance, node)
			if err != nil {
				return err
			}

			if instance.Status.Terminal() {
				return nil
			}
		case models.NodeKindConditionTimeout:
			parked, err := e.runConditionTimeout(ctx, compiled, instance, node)
			if err != nil || parked || instance.Status.Terminal() {
				return err
			}
		default:
			return e.failInstance(ctx, instance, fmt.Errorf("cannot execute node kind %s", node.Kind))
		}
	}
}

// runAction dispatches the node's side effect, retrying transient failures
// with backoff. The instance stays on the node through retries; history gains
// nothing until the action finally succeeds.
func (e *Engine) runAction(ctx context.Context, instance *models.WorkflowInstance, node *models.Node) error {
	config, err := node.ActionConfig()
	if err != nil {
		return err
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.dispatch_action",
		attribute.String(otelhelper.InstanceIDKey, instance.ID),
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.ActionKindKey, string(config.ActionKind)),
	)
	defer span.End()

	err = e.dispatchAction(ctx, instance, node, config)
	if err != nil {
		otelhelper.SetError(span, err)
	}

	return err
}

func (e *Engine) dispatchAction(ctx context.Context, instance *models.WorkflowInstance, node *models.Node, config models.ActionConfig) error {
	lead, err := e.leads.GetLead(ctx, instance.TenantID, instance.LeadID)
	if err != nil {
		return fmt.Errorf("failed to fetch lead snapshot: %w", err)
	}

	logger := e.logger.With(
		"instance_id", instance.ID,
		"node_id", node.ID,
		"action_kind", config.ActionKind,
	)

	var outcome protocol.ActionOutcome

	for attempt := 1; ; attempt++ {
		err := e.sleep(ctx, e.backoff.DelayBefore(attempt))
		if err != nil {
			return err
		}

		instance.Attempts = attempt

		outcome, err = e.dispatcher.Dispatch(ctx, config.ActionKind, config.Params, lead)
		if err == nil {
			break
		}

		retryable := protocol.IsTransient(err) && !protocol.IsPermanent(err)
		if !retryable || attempt >= e.backoff.MaxAttempts {
			return fmt.Errorf("action %s failed after %d attempt(s): %w", config.ActionKind, attempt, err)
		}

		logger.Warn("Transient action failure, will retry",
			"attempt", attempt, "max_attempts", e.backoff.MaxAttempts, "error", err)

		instance.SubStatus = models.SubStatusActionRetrying
		instance.LastError = err.Error()

		saveErr := e.save(ctx, instance)
		if saveErr != nil {
			return saveErr
		}
	}

	instance.SubStatus = ""
	instance.LastError = ""

	logger.Info("Action dispatched", "correlation_id", outcome.CorrelationID, "attempts", instance.Attempts)

	e.publish(ctx, instance.LeadID, events.ActionDispatched{
		BaseEvent:     e.baseEvent(events.ActionDispatchedEvent, instance),
		NodeID:        node.ID,
		ActionKind:    config.ActionKind,
		CorrelationID: outcome.CorrelationID,
		Attempts:      instance.Attempts,
	})

	description := outcome.Detail
	if description == "" {
		description = fmt.Sprintf("Action %s dispatched", config.ActionKind)
	}

	e.appendActivity(ctx, instance, "action_dispatched", description)

	return nil
}

// runCondition evaluates the predicate against a fresh lead snapshot and
// follows the yes or no edge immediately.
func (e *Engine) runCondition(ctx context.Context, compiled *workflow.CompiledWorkflow, instance *models.WorkflowInstance, node *models.Node) error {
	config, err := node.ConditionConfig()
	if err != nil {
		return e.failInstance(ctx, instance, err)
	}

	lead, err := e.leads.GetLead(ctx, instance.TenantID, instance.LeadID)
	if err != nil {
		return e.failInstance(ctx, instance, fmt.Errorf("failed to fetch lead snapshot: %w", err))
	}

	label := models.EdgeLabelNo
	if models.Evaluate(config, lead) {
		label = models.EdgeLabelYes
	}

	next, ok := compiled.Branch(node.ID, label)
	if !ok {
		return e.failInstance(ctx, instance, fmt.Errorf("node %s has no %q branch", node.ID, label))
	}

	now := e.clock()
	instance.RecordTransition(node.ID, next, fmt.Sprintf("condition evaluated, took %s branch", label), now)
	instance.EnterNode(next, now)
	e.appendActivity(ctx, instance, "condition_branch",
		fmt.Sprintf("Condition %q took %s branch", nodeLabel(node), label))

	return e.save(ctx, instance)
}

// runConditionTimeout evaluates the predicate once; when already true it
// takes yes synchronously, otherwise it parks the instance on a timeout
// timer. Returns parked=true when the instance went dormant.
func (e *Engine) runConditionTimeout(ctx context.Context, compiled *workflow.CompiledWorkflow, instance *models.WorkflowInstance, node *models.Node) (bool, error) {
	config, err := node.ConditionTimeoutConfig()
	if err != nil {
		return false, e.failInstance(ctx, instance, err)
	}

	lead, err := e.leads.GetLead(ctx, instance.TenantID, instance.LeadID)
	if err != nil {
		return false, e.failInstance(ctx, instance, fmt.Errorf("failed to fetch lead snapshot: %w", err))
	}

	if models.Evaluate(config.ConditionConfig, lead) {
		next, ok := compiled.Branch(node.ID, models.EdgeLabelYes)
		if !ok {
			return false, e.failInstance(ctx, instance, fmt.Errorf("node %s has no 'yes' branch", node.ID))
		}

		now := e.clock()
		instance.RecordTransition(node.ID, next, "condition already satisfied, took yes branch", now)
		instance.EnterNode(next, now)
		e.appendActivity(ctx, instance, "condition_branch",
			fmt.Sprintf("Condition %q already satisfied, took yes branch", nodeLabel(node)))

		return false, e.save(ctx, instance)
	}

	return true, e.park(ctx, instance, models.InstanceStatusWaitingOnCondition, models.TimerKindTimeout, config.Timeout)
}

// park registers the durable timer, persists the dormant state and arms the
// in-memory timer. Persist first: a crash after the save is recovered by the
// sweep, a crash before it loses nothing.
func (e *Engine) park(ctx context.Context, instance *models.WorkflowInstance, status models.InstanceStatus, kind models.TimerKind, spec models.DelaySpec) error {
	fireAt := e.clock().Add(spec.ToDuration())

	instance.Status = status
	instance.RegisterTimer(kind, fireAt)

	err := e.save(ctx, instance)
	if err != nil {
		return err
	}

	instanceID := instance.ID

	e.timers.Schedule(instanceID, spec.ToDuration(), func() {
		err := e.OnTimerFired(context.Background(), instanceID)
		if err != nil {
			e.logger.Error("Timer callback failed", "instance_id", instanceID, "error", err)
		}
	})

	e.logger.Debug("Instance parked on timer",
		"instance_id", instance.ID, "kind", kind, "fire_at", fireAt)

	return nil
}

func (e *Engine) completeInstance(ctx context.Context, instance *models.WorkflowInstance) error {
	instance.Status = models.InstanceStatusCompleted
	instance.SubStatus = ""
	instance.ClearTimer()

	err := e.save(ctx, instance)
	if err != nil {
		return err
	}

	e.logger.Info("Instance completed",
		"instance_id", instance.ID, "transitions", len(instance.History))

	e.publish(ctx, instance.LeadID, events.InstanceCompleted{
		BaseEvent:   e.baseEvent(events.InstanceCompletedEvent, instance),
		Transitions: len(instance.History),
	})

	return nil
}

// failInstance records the failing node and last error, then terminates the
// instance. The failure surfaces on the lead timeline so an operator can fix
// configuration and re-trigger.
func (e *Engine) failInstance(ctx context.Context, instance *models.WorkflowInstance, cause error) error {
	e.timers.Cancel(instance.ID)

	failedNode := instance.CurrentNodeID

	instance.Status = models.InstanceStatusFailed
	instance.SubStatus = ""
	instance.LastError = cause.Error()
	instance.ClearTimer()

	err := e.save(ctx, instance)
	if err != nil {
		return err
	}

	e.logger.Error("Instance failed",
		"instance_id", instance.ID, "node_id", failedNode, "error", cause)

	e.publish(ctx, instance.LeadID, events.InstanceFailed{
		BaseEvent: e.baseEvent(events.InstanceFailedEvent, instance),
		NodeID:    failedNode,
		Error:     cause.Error(),
	})

	e.appendActivity(ctx, instance, "workflow_failed",
		fmt.Sprintf("Workflow failed at node %s: %s", failedNode, cause.Error()))

	return nil
}
