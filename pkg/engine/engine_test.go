package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esly-abro/JKhomes-sub000/pkg/events"
	"github.com/esly-abro/JKhomes-sub000/pkg/models"
	"github.com/esly-abro/JKhomes-sub000/pkg/persistence/file"
	"github.com/esly-abro/JKhomes-sub000/pkg/protocol"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// fakeDispatcher scripts per-call outcomes.
type fakeDispatcher struct {
	mu       sync.Mutex
	calls    []models.ActionKind
	failures int
	failWith error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, kind models.ActionKind, _ map[string]any, _ models.LeadSnapshot) (protocol.ActionOutcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, kind)

	if d.failures > 0 {
		d.failures--

		return protocol.ActionOutcome{}, d.failWith
	}

	if d.failWith != nil && d.failures == 0 && protocol.IsPermanent(d.failWith) {
		return protocol.ActionOutcome{}, d.failWith
	}

	return protocol.ActionOutcome{CorrelationID: "corr-1", Detail: "dispatched"}, nil
}

func (d *fakeDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.calls)
}

// fakeLeadService serves mutable lead fields.
type fakeLeadService struct {
	mu     sync.Mutex
	fields map[string]any
}

func newFakeLeadService() *fakeLeadService {
	return &fakeLeadService{fields: map[string]any{
		"phone":  "+15550001111",
		"status": "new",
	}}
}

func (s *fakeLeadService) GetLead(_ context.Context, tenantID, leadID string) (models.LeadSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields := make(map[string]any, len(s.fields))
	for k, v := range s.fields {
		fields[k] = v
	}

	return models.LeadSnapshot{TenantID: tenantID, LeadID: leadID, Fields: fields}, nil
}

func (s *fakeLeadService) Set(field string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fields[field] = value
}

type testHarness struct {
	engine     *Engine
	store      *file.Persistence
	clock      *fakeClock
	dispatcher *fakeDispatcher
	leads      *fakeLeadService
}

func newHarness(t *testing.T, opts ...Option) *testHarness {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	clock := newFakeClock()
	dispatcher := &fakeDispatcher{}
	leads := newFakeLeadService()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	opts = append([]Option{
		WithClock(clock.Now),
		WithSleep(func(context.Context, time.Duration) error { return nil }),
	}, opts...)

	eng := New(store, nil, dispatcher, leads, logger, opts...)
	t.Cleanup(eng.Stop)

	return &testHarness{engine: eng, store: store, clock: clock, dispatcher: dispatcher, leads: leads}
}

func (h *testHarness) saveActive(t *testing.T, def *models.WorkflowDefinition) {
	t.Helper()

	def.Status = models.WorkflowStatusActive
	def.Version = 1
	require.NoError(t, h.store.WorkflowRepository().Save(context.Background(), def))
}

func (h *testHarness) soleInstance(t *testing.T, leadID string) *models.WorkflowInstance {
	t.Helper()

	statuses := []models.InstanceStatus{
		models.InstanceStatusRunning,
		models.InstanceStatusWaitingOnDelay,
		models.InstanceStatusWaitingOnCondition,
		models.InstanceStatusCompleted,
		models.InstanceStatusFailed,
		models.InstanceStatusCancelled,
	}

	instances, err := h.store.InstanceRepository().ListByLead(context.Background(), "t1", leadID, statuses)
	require.NoError(t, err)
	require.Len(t, instances, 1)

	return instances[0]
}

func newLeadEvent(leadID string) events.LeadEvent {
	return events.LeadEvent{
		ID:             "evt-1",
		TenantID:       "t1",
		LeadID:         leadID,
		EventType:      events.LeadCreated,
		IdempotencyKey: "idem-1",
		OccurredAt:     time.Now(),
	}
}

func node(id string, kind models.NodeKind, config map[string]any) *models.Node {
	return &models.Node{ID: id, Kind: kind, Name: id, Config: config}
}

func edge(source, target, label string) *models.Edge {
	return &models.Edge{ID: source + "->" + target + label, SourceNodeID: source, TargetNodeID: target, Label: label}
}

// welcomeFollowupWorkflow: newLead -> sendMessage -> delay 1 day ->
// status == "replied" ? (yes: end via sendEmail) (no: assignHumanTask).
func welcomeFollowupWorkflow() *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID:       "wf-welcome",
		TenantID: "t1",
		Name:     "welcome followup",
		Nodes: []*models.Node{
			node("t", models.NodeKindTrigger, map[string]any{"trigger_type": "newLead"}),
			node("welcome", models.NodeKindAction, map[string]any{
				"action_kind": "sendMessage",
				"params":      map[string]any{"templateRef": "welcome"},
			}),
			node("wait", models.NodeKindDelay, map[string]any{"duration": 1, "unit": "days"}),
			node("replied", models.NodeKindCondition, map[string]any{
				"field": "status", "operator": "equals", "value": "replied",
			}),
			node("notify", models.NodeKindAction, map[string]any{
				"action_kind": "sendEmail",
				"params":      map[string]any{"subject": "s", "body": "b"},
			}),
			node("escalate", models.NodeKindAction, map[string]any{
				"action_kind": "assignHumanTask",
				"params":      map[string]any{"title": "call lead"},
			}),
		},
		Edges: []*models.Edge{
			edge("t", "welcome", ""),
			edge("welcome", "wait", ""),
			edge("wait", "replied", ""),
			edge("replied", "notify", models.EdgeLabelYes),
			edge("replied", "escalate", models.EdgeLabelNo),
		},
	}
}

func timeoutWorkflow() *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID:       "wf-timeout",
		TenantID: "t1",
		Name:     "reply or escalate",
		Nodes: []*models.Node{
			node("t", models.NodeKindTrigger, map[string]any{"trigger_type": "newLead"}),
			node("race", models.NodeKindConditionTimeout, map[string]any{
				"field": "whatsappStatus", "operator": "equals", "value": "replied",
				"timeout": map[string]any{"duration": 24, "unit": "hours"},
			}),
			node("thanks", models.NodeKindAction, map[string]any{
				"action_kind": "sendMessage",
				"params":      map[string]any{"templateRef": "thanks"},
			}),
			node("escalate", models.NodeKindAction, map[string]any{
				"action_kind": "assignHumanTask",
				"params":      map[string]any{"title": "no reply"},
			}),
		},
		Edges: []*models.Edge{
			edge("t", "race", ""),
			edge("race", "thanks", models.EdgeLabelYes),
			edge("race", "escalate", models.EdgeLabelNo),
		},
	}
}

func TestEngine_WelcomeFollowupToCompletion(t *testing.T) {
	h := newHarness(t)
	h.saveActive(t, welcomeFollowupWorkflow())

	require.NoError(t, h.engine.OnEvent(context.Background(), newLeadEvent("lead-1")))

	instance := h.soleInstance(t, "lead-1")
	assert.Equal(t, models.InstanceStatusWaitingOnDelay, instance.Status)
	require.NotNil(t, instance.PendingTimer)
	assert.Equal(t, models.TimerKindDelay, instance.PendingTimer.Kind)
	assert.Equal(t, h.clock.Now().Add(24*time.Hour), instance.PendingTimer.FireAt)

	h.clock.Advance(24*time.Hour + time.Minute)
	require.NoError(t, h.engine.OnTimerFired(context.Background(), instance.ID))

	instance = h.soleInstance(t, "lead-1")
	assert.Equal(t, models.InstanceStatusCompleted, instance.Status)
	assert.Nil(t, instance.PendingTimer)

	// trigger->welcome, welcome->wait, wait->replied, replied->escalate
	require.Len(t, instance.History, 4)
	assert.Equal(t, "escalate", instance.History[3].ToNodeID)
	assert.Equal(t, []models.ActionKind{models.ActionSendMessage, models.ActionAssignHumanTask}, h.dispatcher.calls)
}

func TestEngine_ConditionYesBranchAfterDelay(t *testing.T) {
	h := newHarness(t)
	h.saveActive(t, welcomeFollowupWorkflow())

	require.NoError(t, h.engine.OnEvent(context.Background(), newLeadEvent("lead-1")))

	h.leads.Set("status", "replied")
	h.clock.Advance(25 * time.Hour)

	instance := h.soleInstance(t, "lead-1")
	require.NoError(t, h.engine.OnTimerFired(context.Background(), instance.ID))

	instance = h.soleInstance(t, "lead-1")
	assert.Equal(t, models.InstanceStatusCompleted, instance.Status)
	assert.Equal(t, "notify", instance.History[3].ToNodeID)
}

func TestEngine_DuplicateTriggerCreatesOneInstance(t *testing.T) {
	h := newHarness(t)
	h.saveActive(t, welcomeFollowupWorkflow())

	require.NoError(t, h.engine.OnEvent(context.Background(), newLeadEvent("lead-1")))
	require.NoError(t, h.engine.OnEvent(context.Background(), newLeadEvent("lead-1")))

	h.soleInstance(t, "lead-1")
	assert.Equal(t, 1, h.dispatcher.callCount())
}

func TestEngine_ConditionTimeoutReplyTakesYes(t *testing.T) {
	h := newHarness(t)
	h.saveActive(t, timeoutWorkflow())

	require.NoError(t, h.engine.OnEvent(context.Background(), newLeadEvent("lead-1")))

	instance := h.soleInstance(t, "lead-1")
	require.Equal(t, models.InstanceStatusWaitingOnCondition, instance.Status)
	require.NotNil(t, instance.PendingTimer)
	assert.Equal(t, models.TimerKindTimeout, instance.PendingTimer.Kind)

	// Reply arrives at hour 2.
	h.clock.Advance(2 * time.Hour)
	h.leads.Set("whatsappStatus", "replied")

	reply := newLeadEvent("lead-1")
	reply.EventType = events.WhatsAppReply
	reply.IdempotencyKey = "idem-2"
	require.NoError(t, h.engine.OnEvent(context.Background(), reply))

	instance = h.soleInstance(t, "lead-1")
	assert.Equal(t, models.InstanceStatusCompleted, instance.Status)
	assert.Nil(t, instance.PendingTimer)

	for _, record := range instance.History {
		assert.NotEqual(t, "escalate", record.ToNodeID)
	}

	assert.Equal(t, []models.ActionKind{models.ActionSendMessage}, h.dispatcher.calls)
}

func TestEngine_ConditionTimeoutElapsesTakesNo(t *testing.T) {
	h := newHarness(t)
	h.saveActive(t, timeoutWorkflow())

	require.NoError(t, h.engine.OnEvent(context.Background(), newLeadEvent("lead-1")))

	instance := h.soleInstance(t, "lead-1")
	h.clock.Advance(25 * time.Hour)
	require.NoError(t, h.engine.OnTimerFired(context.Background(), instance.ID))

	instance = h.soleInstance(t, "lead-1")
	assert.Equal(t, models.InstanceStatusCompleted, instance.Status)
	assert.Equal(t, []models.ActionKind{models.ActionAssignHumanTask}, h.dispatcher.calls)
}

func TestEngine_ConditionTimeoutAlreadyTrueSkipsWait(t *testing.T) {
	h := newHarness(t)
	h.saveActive(t, timeoutWorkflow())
	h.leads.Set("whatsappStatus", "replied")

	require.NoError(t, h.engine.OnEvent(context.Background(), newLeadEvent("lead-1")))

	instance := h.soleInstance(t, "lead-1")
	assert.Equal(t, models.InstanceStatusCompleted, instance.Status)
	assert.Equal(t, []models.ActionKind{models.ActionSendMessage}, h.dispatcher.calls)
}

func TestEngine_StaleTimerFiringIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.saveActive(t, timeoutWorkflow())

	require.NoError(t, h.engine.OnEvent(context.Background(), newLeadEvent("lead-1")))
	instance := h.soleInstance(t, "lead-1")

	// Event wins the race first.
	h.leads.Set("whatsappStatus", "replied")
	reply := newLeadEvent("lead-1")
	reply.EventType = events.WhatsAppReply
	require.NoError(t, h.engine.OnEvent(context.Background(), reply))

	before := h.soleInstance(t, "lead-1")

	// The late timeout firing must be a no-op.
	h.clock.Advance(48 * time.Hour)
	require.NoError(t, h.engine.OnTimerFired(context.Background(), instance.ID))

	after := h.soleInstance(t, "lead-1")
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, len(before.History), len(after.History))
}

func TestEngine_TransientFailuresRetryThenSucceed(t *testing.T) {
	h := newHarness(t)
	h.saveActive(t, welcomeFollowupWorkflow())
	h.dispatcher.failures = 3
	h.dispatcher.failWith = protocol.Transient(errors.New("rate limited"))

	require.NoError(t, h.engine.OnEvent(context.Background(), newLeadEvent("lead-1")))

	instance := h.soleInstance(t, "lead-1")
	assert.Equal(t, models.InstanceStatusWaitingOnDelay, instance.Status)
	assert.Equal(t, 4, h.dispatcher.callCount())

	// One transition for the action, not one per attempt.
	succeeded := 0

	for _, record := range instance.History {
		if record.FromNodeID == "welcome" {
			succeeded++
		}
	}

	assert.Equal(t, 1, succeeded)
}

func TestEngine_TransientFailuresExhaustAttempts(t *testing.T) {
	h := newHarness(t)
	h.saveActive(t, welcomeFollowupWorkflow())
	h.dispatcher.failures = 10
	h.dispatcher.failWith = protocol.Transient(errors.New("still down"))

	err := h.engine.OnEvent(context.Background(), newLeadEvent("lead-1"))
	require.NoError(t, err)

	instance := h.soleInstance(t, "lead-1")
	assert.Equal(t, models.InstanceStatusFailed, instance.Status)
	assert.Contains(t, instance.LastError, "still down")
	assert.Equal(t, 5, h.dispatcher.callCount())
}

func TestEngine_PermanentFailureFailsImmediately(t *testing.T) {
	h := newHarness(t)
	h.saveActive(t, welcomeFollowupWorkflow())
	h.dispatcher.failWith = protocol.Permanent(errors.New("recipient rejected"))

	require.NoError(t, h.engine.OnEvent(context.Background(), newLeadEvent("lead-1")))

	instance := h.soleInstance(t, "lead-1")
	assert.Equal(t, models.InstanceStatusFailed, instance.Status)
	assert.Nil(t, instance.PendingTimer)
	assert.Equal(t, 1, h.dispatcher.callCount())

	// The unreached delay node never got a transition record.
	for _, record := range instance.History {
		assert.NotEqual(t, "wait", record.ToNodeID)
	}
}

func TestEngine_WaitingInstanceHasExactlyOneTimer(t *testing.T) {
	h := newHarness(t)
	h.saveActive(t, welcomeFollowupWorkflow())

	require.NoError(t, h.engine.OnEvent(context.Background(), newLeadEvent("lead-1")))

	instance := h.soleInstance(t, "lead-1")
	if instance.Status.Waiting() {
		assert.NotNil(t, instance.PendingTimer)
	} else {
		assert.Nil(t, instance.PendingTimer)
	}
}

func TestEngine_DeterministicHistory(t *testing.T) {
	runOnce := func(t *testing.T) []models.TransitionRecord {
		t.Helper()

		h := newHarness(t)
		h.saveActive(t, welcomeFollowupWorkflow())

		require.NoError(t, h.engine.OnEvent(context.Background(), newLeadEvent("lead-1")))

		instance := h.soleInstance(t, "lead-1")
		h.clock.Advance(25 * time.Hour)
		require.NoError(t, h.engine.OnTimerFired(context.Background(), instance.ID))

		return h.soleInstance(t, "lead-1").History
	}

	first := runOnce(t)
	second := runOnce(t)

	require.Len(t, second, len(first))

	for i := range first {
		assert.Equal(t, first[i].FromNodeID, second[i].FromNodeID)
		assert.Equal(t, first[i].ToNodeID, second[i].ToNodeID)
		assert.Equal(t, first[i].Reason, second[i].Reason)
	}
}

func TestEngine_CancelInstances(t *testing.T) {
	h := newHarness(t)
	h.saveActive(t, welcomeFollowupWorkflow())

	require.NoError(t, h.engine.OnEvent(context.Background(), newLeadEvent("lead-1")))

	cancelled, err := h.engine.CancelInstances(context.Background(), "wf-welcome")
	require.NoError(t, err)
	assert.Equal(t, 1, cancelled)

	instance := h.soleInstance(t, "lead-1")
	assert.Equal(t, models.InstanceStatusCancelled, instance.Status)
	assert.Nil(t, instance.PendingTimer)

	// A late firing on the cancelled instance is a no-op.
	h.clock.Advance(48 * time.Hour)
	require.NoError(t, h.engine.OnTimerFired(context.Background(), instance.ID))
	assert.Equal(t, models.InstanceStatusCancelled, h.soleInstance(t, "lead-1").Status)
}

func TestEngine_ArchivedWorkflowNeverMatches(t *testing.T) {
	h := newHarness(t)

	def := welcomeFollowupWorkflow()
	def.Status = models.WorkflowStatusArchived
	def.Version = 1
	require.NoError(t, h.store.WorkflowRepository().Save(context.Background(), def))

	require.NoError(t, h.engine.OnEvent(context.Background(), newLeadEvent("lead-1")))

	instances, err := h.store.InstanceRepository().ListByLead(context.Background(), "t1", "lead-1",
		[]models.InstanceStatus{models.InstanceStatusRunning, models.InstanceStatusWaitingOnDelay})
	require.NoError(t, err)
	assert.Empty(t, instances)
}

func TestEngine_SweepRecoversLostTimer(t *testing.T) {
	h := newHarness(t)
	h.saveActive(t, welcomeFollowupWorkflow())

	require.NoError(t, h.engine.OnEvent(context.Background(), newLeadEvent("lead-1")))

	// Simulate a restart: the in-memory timer is gone, the durable
	// registration is not.
	h.engine.Stop()
	h.clock.Advance(25 * time.Hour)

	sweeper := NewSweeper(h.engine, h.engine.logger, time.Second)
	sweeper.Sweep()

	instance := h.soleInstance(t, "lead-1")
	assert.Equal(t, models.InstanceStatusCompleted, instance.Status)
}

func TestEngine_ConditionTimeoutRaceTakesExactlyOneBranch(t *testing.T) {
	h := newHarness(t)
	h.saveActive(t, timeoutWorkflow())

	require.NoError(t, h.engine.OnEvent(context.Background(), newLeadEvent("lead-1")))
	instance := h.soleInstance(t, "lead-1")

	h.clock.Advance(24*time.Hour + time.Second)
	h.leads.Set("whatsappStatus", "replied")

	reply := newLeadEvent("lead-1")
	reply.EventType = events.WhatsAppReply

	var wg sync.WaitGroup

	wg.Add(2)

	go func() {
		defer wg.Done()

		_ = h.engine.OnEvent(context.Background(), reply)
	}()

	go func() {
		defer wg.Done()

		_ = h.engine.OnTimerFired(context.Background(), instance.ID)
	}()

	wg.Wait()

	final := h.soleInstance(t, "lead-1")
	require.Equal(t, models.InstanceStatusCompleted, final.Status)

	branches := 0

	for _, record := range final.History {
		if record.FromNodeID == "race" {
			branches++
		}
	}

	assert.Equal(t, 1, branches)
	assert.Equal(t, 1, h.dispatcher.callCount())
}
