// Package task implements the assignHumanTask action, pushing follow-up work
// to a human agent queue.
package task

import (
	"context"
	"log/slog"

	"github.com/esly-abro/JKhomes-sub000/pkg/models"
	"github.com/esly-abro/JKhomes-sub000/pkg/protocol"
	"github.com/esly-abro/JKhomes-sub000/pkg/template"
)

// HumanTask is one unit of follow-up work for an agent.
type HumanTask struct {
	TenantID     string
	LeadID       string
	Title        string
	Description  string
	AssigneeRole string
}

// Sink is where created tasks go. Production backs it with the CRM's task
// queue; tests use an in-memory fake.
type Sink interface {
	CreateTask(ctx context.Context, t HumanTask) (string, error)
}

type Action struct {
	sink Sink
}

func NewAction(sink Sink) *Action {
	return &Action{sink: sink}
}

func (a *Action) Execute(ctx context.Context, params map[string]any, lead models.LeadSnapshot, logger *slog.Logger) (protocol.ActionOutcome, error) {
	titleTmpl, _ := params["title"].(string)
	descriptionTmpl, _ := params["description"].(string)
	assigneeRole, _ := params["assigneeRole"].(string)

	title, err := template.RenderWithLead(titleTmpl, lead)
	if err != nil {
		return protocol.ActionOutcome{}, protocol.Permanent(err)
	}

	description, err := template.RenderWithLead(descriptionTmpl, lead)
	if err != nil {
		return protocol.ActionOutcome{}, protocol.Permanent(err)
	}

	logger.InfoContext(ctx, "Creating human task", "title", title, "assignee_role", assigneeRole)

	taskID, err := a.sink.CreateTask(ctx, HumanTask{
		TenantID:     lead.TenantID,
		LeadID:       lead.LeadID,
		Title:        title,
		Description:  description,
		AssigneeRole: assigneeRole,
	})
	if err != nil {
		return protocol.ActionOutcome{}, err
	}

	return protocol.ActionOutcome{
		CorrelationID: taskID,
		Detail:        "Human task created: " + title,
	}, nil
}
