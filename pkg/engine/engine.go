// Package engine advances workflow instances on lead events and timer
// firings. All mutation of an instance happens under its per-instance lock,
// so advances for one instance are strictly serialized.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/esly-abro/JKhomes-sub000/pkg/eventbus"
	"github.com/esly-abro/JKhomes-sub000/pkg/events"
	"github.com/esly-abro/JKhomes-sub000/pkg/models"
	"github.com/esly-abro/JKhomes-sub000/pkg/persistence"
	"github.com/esly-abro/JKhomes-sub000/pkg/protocol"
	"github.com/esly-abro/JKhomes-sub000/pkg/workflow"
)

type Engine struct {
	persistence persistence.Persistence
	bus         eventbus.EventPublisher
	dispatcher  protocol.ActionDispatcher
	leads       protocol.LeadService
	matcher     *workflow.TriggerMatcher
	logger      *slog.Logger
	tracer      trace.Tracer

	clock   func() time.Time
	sleep   SleepFunc
	backoff BackoffPolicy

	locks    *keyedMutex
	timers   *timerTable
	compiled *compiledCache
}

type Option func(*Engine)

// WithClock replaces the engine's time source, for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithSleep replaces the wait between retry attempts.
func WithSleep(sleep SleepFunc) Option {
	return func(e *Engine) {
		e.sleep = sleep
	}
}

func WithBackoff(policy BackoffPolicy) Option {
	return func(e *Engine) {
		e.backoff = policy
	}
}

// WithTracer records spans around instance advancement and action dispatch.
// Without it the engine traces into a no-op tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

func New(
	p persistence.Persistence,
	bus eventbus.EventPublisher,
	dispatcher protocol.ActionDispatcher,
	leads protocol.LeadService,
	logger *slog.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		persistence: p,
		bus:         bus,
		dispatcher:  dispatcher,
		leads:       leads,
		matcher:     workflow.NewTriggerMatcher(logger),
		logger:      logger.With("module", "engine"),
		tracer:      noop.NewTracerProvider().Tracer("engine"),
		clock:       time.Now,
		sleep:       defaultSleep,
		backoff:     DefaultBackoff(),
		locks:       newKeyedMutex(),
		timers:      newTimerTable(),
		compiled:    newCompiledCache(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Stop cancels every in-memory timer. Durable registrations survive; the
// sweep replays them on the next start.
func (e *Engine) Stop() {
	e.timers.StopAll()
}

// OnEvent processes one deduplicated lead event: it starts instances for
// matching triggers and wakes instances waiting on a condition for this lead.
func (e *Engine) OnEvent(ctx context.Context, event events.LeadEvent) error {
	logger := e.logger.With(
		"event_type", event.EventType,
		"tenant_id", event.TenantID,
		"lead_id", event.LeadID,
	)

	var errs []error

	active, err := e.activeWorkflows(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active workflows: %w", err)
	}

	for _, match := range e.matcher.Match(event, active) {
		err := e.startInstance(ctx, match, event)
		if err != nil {
			logger.Error("Failed to start instance",
				"workflow_id", match.Workflow.Definition.ID, "error", err)
			errs = append(errs, err)
		}
	}

	waiting, err := e.persistence.InstanceRepository().ListByLead(
		ctx, event.TenantID, event.LeadID,
		[]models.InstanceStatus{models.InstanceStatusWaitingOnCondition})
	if err != nil {
		return errors.Join(append(errs, fmt.Errorf("failed to list waiting instances: %w", err))...)
	}

	for _, instance := range waiting {
		err := e.wakeInstance(ctx, instance.ID)
		if err != nil {
			logger.Error("Failed to wake instance", "instance_id", instance.ID, "error", err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// OnTimerFired resumes a waiting instance whose timer became due. Stale
// firings, for instances that already advanced or terminated, are ignored.
func (e *Engine) OnTimerFired(ctx context.Context, instanceID string) error {
	unlock := e.locks.Lock(instanceID)
	defer unlock()

	repo := e.persistence.InstanceRepository()

	instance, err := repo.GetByID(ctx, instanceID)
	if err != nil {
		if persistence.IsInstanceNotFound(err) {
			e.timers.Cancel(instanceID)

			return nil
		}

		return err
	}

	if !instance.Status.Waiting() || instance.PendingTimer == nil {
		return nil
	}

	if instance.PendingTimer.FireAt.After(e.clock()) {
		// Replaced or not yet due; the real timer will fire later.
		return nil
	}

	compiled, err := e.compiledFor(ctx, instance.WorkflowID)
	if err != nil {
		return err
	}

	node := compiled.Node(instance.CurrentNodeID)
	if node == nil {
		return e.failInstance(ctx, instance, fmt.Errorf("node %s missing from definition", instance.CurrentNodeID))
	}

	now := e.clock()
	instance.ClearTimer()
	instance.Status = models.InstanceStatusRunning

	switch node.Kind {
	case models.NodeKindDelay:
		next, ok := compiled.Successor(node.ID)
		if !ok {
			return e.completeInstance(ctx, instance)
		}

		instance.RecordTransition(node.ID, next, "delay elapsed", now)
		instance.EnterNode(next, now)
	case models.NodeKindConditionTimeout:
		next, ok := compiled.Branch(node.ID, models.EdgeLabelNo)
		if !ok {
			return e.failInstance(ctx, instance, fmt.Errorf("node %s has no 'no' branch", node.ID))
		}

		instance.RecordTransition(node.ID, next, "timeout elapsed, took no branch", now)
		instance.EnterNode(next, now)
		e.appendActivity(ctx, instance, "condition_timeout",
			fmt.Sprintf("Condition timed out at %q, took no branch", nodeLabel(node)))
	default:
		return e.failInstance(ctx, instance, fmt.Errorf("timer fired on non-waiting node kind %s", node.Kind))
	}

	err = e.save(ctx, instance)
	if err != nil {
		return err
	}

	return e.run(ctx, compiled, instance)
}

// CancelInstances transitions every non-terminal instance of a definition to
// cancelled and revokes their timers. Archiving alone never does this.
func (e *Engine) CancelInstances(ctx context.Context, workflowID string) (int, error) {
	repo := e.persistence.InstanceRepository()

	instances, err := repo.ListActiveByWorkflow(ctx, workflowID)
	if err != nil {
		return 0, err
	}

	cancelled := 0

	for _, stale := range instances {
		err := func() error {
			unlock := e.locks.Lock(stale.ID)
			defer unlock()

			instance, err := repo.GetByID(ctx, stale.ID)
			if err != nil {
				if persistence.IsInstanceNotFound(err) {
					return nil
				}

				return err
			}

			if instance.Status.Terminal() {
				return nil
			}

			e.timers.Cancel(instance.ID)
			instance.ClearTimer()
			instance.Status = models.InstanceStatusCancelled
			instance.SubStatus = ""

			err = e.save(ctx, instance)
			if err != nil {
				return err
			}

			cancelled++

			e.publish(ctx, instance.LeadID, events.InstanceCancelled{
				BaseEvent: e.baseEvent(events.InstanceCancelledEvent, instance),
			})

			return nil
		}()
		if err != nil {
			return cancelled, err
		}
	}

	e.logger.Info("Cancelled workflow instances", "workflow_id", workflowID, "count", cancelled)

	return cancelled, nil
}

func (e *Engine) startInstance(ctx context.Context, match workflow.TriggerMatch, event events.LeadEvent) error {
	def := match.Workflow.Definition

	creationKey := def.ID + "|" + event.LeadID

	unlock := e.locks.Lock(creationKey)
	defer unlock()

	now := e.clock()

	instance := &models.WorkflowInstance{
		ID:            uuid.Must(uuid.NewV7()).String(),
		WorkflowID:    def.ID,
		TenantID:      event.TenantID,
		LeadID:        event.LeadID,
		CurrentNodeID: match.TriggerNode.ID,
		Status:        models.InstanceStatusRunning,
		EnteredNodeAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := e.persistence.InstanceRepository().Create(ctx, instance)
	if err != nil {
		if persistence.IsInstanceAlreadyExists(err) {
			e.logger.Debug("Instance already active for lead, skipping",
				"workflow_id", def.ID, "lead_id", event.LeadID)

			return nil
		}

		return err
	}

	triggerType, _ := event.TriggerType()

	e.publish(ctx, instance.LeadID, events.InstanceStarted{
		BaseEvent:   e.baseEvent(events.InstanceStartedEvent, instance),
		TriggerType: triggerType,
	})

	unlockInstance := e.locks.Lock(instance.ID)
	defer unlockInstance()

	next, ok := match.Workflow.Successor(match.TriggerNode.ID)
	if !ok {
		return e.completeInstance(ctx, instance)
	}

	instance.RecordTransition(match.TriggerNode.ID, next,
		fmt.Sprintf("trigger %s matched", triggerType), now)
	instance.EnterNode(next, now)

	err = e.save(ctx, instance)
	if err != nil {
		return err
	}

	return e.run(ctx, match.Workflow, instance)
}

// wakeInstance re-evaluates the condition a waiting instance is parked on
// against a fresh lead snapshot. Whoever acquires the instance lock first,
// event or timeout, decides the branch; the loser sees the advanced state and
// no-ops.
func (e *Engine) wakeInstance(ctx context.Context, instanceID string) error {
	unlock := e.locks.Lock(instanceID)
	defer unlock()

	repo := e.persistence.InstanceRepository()

	instance, err := repo.GetByID(ctx, instanceID)
	if err != nil {
		if persistence.IsInstanceNotFound(err) {
			return nil
		}

		return err
	}

	if instance.Status != models.InstanceStatusWaitingOnCondition {
		return nil
	}

	compiled, err := e.compiledFor(ctx, instance.WorkflowID)
	if err != nil {
		return err
	}

	node := compiled.Node(instance.CurrentNodeID)
	if node == nil || node.Kind != models.NodeKindConditionTimeout {
		return nil
	}

	config, err := node.ConditionTimeoutConfig()
	if err != nil {
		return err
	}

	lead, err := e.leads.GetLead(ctx, instance.TenantID, instance.LeadID)
	if err != nil {
		return fmt.Errorf("failed to fetch lead snapshot: %w", err)
	}

	if !models.Evaluate(config.ConditionConfig, lead) {
		return nil
	}

	next, ok := compiled.Branch(node.ID, models.EdgeLabelYes)
	if !ok {
		return e.failInstance(ctx, instance, fmt.Errorf("node %s has no 'yes' branch", node.ID))
	}

	now := e.clock()

	e.timers.Cancel(instance.ID)
	instance.ClearTimer()
	instance.Status = models.InstanceStatusRunning
	instance.RecordTransition(node.ID, next, "condition satisfied, took yes branch", now)
	instance.EnterNode(next, now)
	e.appendActivity(ctx, instance, "condition_branch",
		fmt.Sprintf("Condition %q satisfied, took yes branch", nodeLabel(node)))

	err = e.save(ctx, instance)
	if err != nil {
		return err
	}

	return e.run(ctx, compiled, instance)
}

func (e *Engine) activeWorkflows(ctx context.Context) ([]*workflow.CompiledWorkflow, error) {
	defs, err := e.persistence.WorkflowRepository().ListActive(ctx)
	if err != nil {
		return nil, err
	}

	compiled := make([]*workflow.CompiledWorkflow, 0, len(defs))

	for _, def := range defs {
		cw, err := e.compiled.Get(def)
		if err != nil {
			e.logger.Error("Skipping workflow that no longer compiles",
				"workflow_id", def.ID, "error", err)

			continue
		}

		compiled = append(compiled, cw)
	}

	return compiled, nil
}

func (e *Engine) compiledFor(ctx context.Context, workflowID string) (*workflow.CompiledWorkflow, error) {
	def, err := e.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return e.compiled.Get(def)
}

func (e *Engine) save(ctx context.Context, instance *models.WorkflowInstance) error {
	instance.UpdatedAt = e.clock()

	return e.persistence.InstanceRepository().Save(ctx, instance)
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.bus == nil {
		return
	}

	err := e.bus.Publish(ctx, key, event)
	if err != nil {
		e.logger.Error("Failed to publish lifecycle event",
			"event_type", event.GetType(), "error", err)
	}
}

func (e *Engine) baseEvent(eventType events.EventType, instance *models.WorkflowInstance) events.BaseEvent {
	return events.BaseEvent{
		ID:         uuid.Must(uuid.NewV7()).String(),
		Type:       eventType,
		Timestamp:  e.clock(),
		TenantID:   instance.TenantID,
		WorkflowID: instance.WorkflowID,
		InstanceID: instance.ID,
		LeadID:     instance.LeadID,
	}
}

func (e *Engine) appendActivity(ctx context.Context, instance *models.WorkflowInstance, activityType, description string) {
	activity := &models.Activity{
		ID:          uuid.Must(uuid.NewV7()).String(),
		TenantID:    instance.TenantID,
		LeadID:      instance.LeadID,
		Type:        activityType,
		Description: description,
		OccurredAt:  e.clock(),
	}

	err := e.persistence.ActivityRepository().Append(ctx, activity)
	if err != nil {
		e.logger.Error("Failed to append lead activity",
			"lead_id", instance.LeadID, "activity_type", activityType, "error", err)
	}
}

func nodeLabel(node *models.Node) string {
	if node.Name != "" {
		return node.Name
	}

	return node.ID
}
