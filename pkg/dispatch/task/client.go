package task

import (
	"context"

	"github.com/esly-abro/JKhomes-sub000/pkg/dispatch/httpapi"
)

// HTTPSink creates tasks through the CRM's task API.
type HTTPSink struct {
	api *httpapi.Client
}

func NewHTTPSink(baseURL, apiKey string) *HTTPSink {
	return &HTTPSink{api: httpapi.NewClient(baseURL, apiKey)}
}

func (s *HTTPSink) CreateTask(ctx context.Context, t HumanTask) (string, error) {
	var resp struct {
		TaskID string `json:"task_id"`
	}

	err := s.api.Post(ctx, "/v1/tasks", map[string]string{
		"tenant_id":     t.TenantID,
		"lead_id":       t.LeadID,
		"title":         t.Title,
		"description":   t.Description,
		"assignee_role": t.AssigneeRole,
	}, &resp)
	if err != nil {
		return "", err
	}

	return resp.TaskID, nil
}
