package task

import (
	"github.com/esly-abro/JKhomes-sub000/pkg/models"
	"github.com/esly-abro/JKhomes-sub000/pkg/protocol"
)

type ActionFactory struct {
	sink Sink
}

func NewActionFactory(sink Sink) *ActionFactory {
	return &ActionFactory{sink: sink}
}

func (f *ActionFactory) Create(_ map[string]any) (protocol.ActionHandler, error) {
	return NewAction(f.sink), nil
}

func (f *ActionFactory) Kind() models.ActionKind {
	return models.ActionAssignHumanTask
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
			"description": map[string]any{
				"type": "string",
			},
			"assigneeRole": map[string]any{
				"type":        "string",
				"description": "Agent role the task is routed to, for example 'sales'",
			},
		},
		"required":             []string{"title"},
		"additionalProperties": false,
	}
}
