package file

import (
	"context"
	"testing"
	"time"

	"github.com/esly-abro/JKhomes-sub000/pkg/models"
	"github.com/esly-abro/JKhomes-sub000/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()

	return NewPersistence(t.TempDir())
}

func TestWorkflowRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	def := &models.WorkflowDefinition{
		TenantID: "tenant-1",
		Name:     "Welcome flow",
		Status:   models.WorkflowStatusDraft,
	}

	require.NoError(t, p.WorkflowRepository().Save(ctx, def))
	require.NotEmpty(t, def.ID)

	loaded, err := p.WorkflowRepository().GetByID(ctx, def.ID)
	require.NoError(t, err)
	assert.Equal(t, "Welcome flow", loaded.Name)
	assert.Equal(t, models.WorkflowStatusDraft, loaded.Status)
}

func TestWorkflowRepository_GetByID_NotFound(t *testing.T) {
	p := newTestPersistence(t)

	_, err := p.WorkflowRepository().GetByID(context.Background(), "nope")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepository_ListActive(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	for _, status := range []models.WorkflowStatus{
		models.WorkflowStatusDraft,
		models.WorkflowStatusActive,
		models.WorkflowStatusArchived,
	} {
		def := &models.WorkflowDefinition{TenantID: "tenant-1", Name: "wf " + string(status), Status: status}
		require.NoError(t, p.WorkflowRepository().Save(ctx, def))
	}

	active, err := p.WorkflowRepository().ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, models.WorkflowStatusActive, active[0].Status)
}

func newInstance(workflowID, leadID string) *models.WorkflowInstance {
	return &models.WorkflowInstance{
		WorkflowID:    workflowID,
		TenantID:      "tenant-1",
		LeadID:        leadID,
		CurrentNodeID: "t1",
		Status:        models.InstanceStatusRunning,
		EnteredNodeAt: time.Now().UTC(),
	}
}

func TestInstanceRepository_CreateEnforcesSingleActive(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)
	repo := p.InstanceRepository()

	first := newInstance("wf-1", "lead-1")
	require.NoError(t, repo.Create(ctx, first))

	duplicate := newInstance("wf-1", "lead-1")
	err := repo.Create(ctx, duplicate)
	assert.True(t, persistence.IsInstanceAlreadyExists(err))

	// A different lead or workflow is fine.
	require.NoError(t, repo.Create(ctx, newInstance("wf-1", "lead-2")))
	require.NoError(t, repo.Create(ctx, newInstance("wf-2", "lead-1")))
}

func TestInstanceRepository_TerminalSaveReleasesLock(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)
	repo := p.InstanceRepository()

	instance := newInstance("wf-1", "lead-1")
	require.NoError(t, repo.Create(ctx, instance))

	instance.Status = models.InstanceStatusCompleted
	require.NoError(t, repo.Save(ctx, instance))

	// The pair is free again.
	require.NoError(t, repo.Create(ctx, newInstance("wf-1", "lead-1")))

	// And the completed instance rejects further mutation.
	instance.Status = models.InstanceStatusRunning
	err := repo.Save(ctx, instance)
	assert.ErrorIs(t, err, persistence.ErrInstanceTerminal)
}

func TestInstanceRepository_SavePersistsTimerAndHistoryTogether(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)
	repo := p.InstanceRepository()

	instance := newInstance("wf-1", "lead-1")
	require.NoError(t, repo.Create(ctx, instance))

	now := time.Now().UTC()
	instance.RecordTransition("t1", "d1", "trigger matched", now)
	instance.EnterNode("d1", now)
	instance.Status = models.InstanceStatusWaitingOnDelay
	instance.RegisterTimer(models.TimerKindDelay, now.Add(24*time.Hour))
	require.NoError(t, repo.Save(ctx, instance))

	loaded, err := repo.GetByID(ctx, instance.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusWaitingOnDelay, loaded.Status)
	require.NotNil(t, loaded.PendingTimer)
	assert.Equal(t, models.TimerKindDelay, loaded.PendingTimer.Kind)
	require.Len(t, loaded.History, 1)
	assert.Equal(t, "trigger matched", loaded.History[0].Reason)
}

func TestInstanceRepository_ListWaiting(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)
	repo := p.InstanceRepository()

	now := time.Now().UTC()

	due := newInstance("wf-1", "lead-1")
	require.NoError(t, repo.Create(ctx, due))
	due.Status = models.InstanceStatusWaitingOnDelay
	due.RegisterTimer(models.TimerKindDelay, now.Add(-time.Minute))
	require.NoError(t, repo.Save(ctx, due))

	notDue := newInstance("wf-1", "lead-2")
	require.NoError(t, repo.Create(ctx, notDue))
	notDue.Status = models.InstanceStatusWaitingOnDelay
	notDue.RegisterTimer(models.TimerKindDelay, now.Add(time.Hour))
	require.NoError(t, repo.Save(ctx, notDue))

	timeout := newInstance("wf-1", "lead-3")
	require.NoError(t, repo.Create(ctx, timeout))
	timeout.Status = models.InstanceStatusWaitingOnCondition
	timeout.RegisterTimer(models.TimerKindTimeout, now.Add(-time.Minute))
	require.NoError(t, repo.Save(ctx, timeout))

	delays, err := repo.ListWaiting(ctx, models.TimerKindDelay, now)
	require.NoError(t, err)
	require.Len(t, delays, 1)
	assert.Equal(t, due.ID, delays[0].ID)

	timeouts, err := repo.ListWaiting(ctx, models.TimerKindTimeout, now)
	require.NoError(t, err)
	require.Len(t, timeouts, 1)
	assert.Equal(t, timeout.ID, timeouts[0].ID)
}

func TestInstanceRepository_ListByLeadAndWorkflow(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)
	repo := p.InstanceRepository()

	a := newInstance("wf-1", "lead-1")
	require.NoError(t, repo.Create(ctx, a))

	b := newInstance("wf-2", "lead-1")
	require.NoError(t, repo.Create(ctx, b))
	b.Status = models.InstanceStatusWaitingOnCondition
	b.RegisterTimer(models.TimerKindTimeout, time.Now().UTC().Add(time.Hour))
	require.NoError(t, repo.Save(ctx, b))

	waiting, err := repo.ListByLead(ctx, "tenant-1", "lead-1", []models.InstanceStatus{models.InstanceStatusWaitingOnCondition})
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	assert.Equal(t, b.ID, waiting[0].ID)

	all, err := repo.ListByLead(ctx, "tenant-1", "lead-1", nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := repo.ListActiveByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, a.ID, active[0].ID)
}

func TestActivityRepository_AppendAndList(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)
	repo := p.ActivityRepository()

	require.NoError(t, repo.Append(ctx, &models.Activity{
		TenantID:    "tenant-1",
		LeadID:      "lead-1",
		Type:        "message_sent",
		Description: "WhatsApp template welcome sent",
	}))
	require.NoError(t, repo.Append(ctx, &models.Activity{
		TenantID:    "tenant-1",
		LeadID:      "lead-1",
		Type:        "automation_failed",
		Description: "sendMessage failed at node a1: channel not configured",
	}))

	activities, err := repo.ListByLead(ctx, "tenant-1", "lead-1")
	require.NoError(t, err)
	require.Len(t, activities, 2)
	assert.Equal(t, "message_sent", activities[0].Type)
	assert.NotEmpty(t, activities[0].ID)

	other, err := repo.ListByLead(ctx, "tenant-1", "lead-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}
