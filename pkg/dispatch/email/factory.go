package email

import (
	"github.com/esly-abro/JKhomes-sub000/pkg/models"
	"github.com/esly-abro/JKhomes-sub000/pkg/protocol"
)

type ActionFactory struct {
	sender Sender
}

func NewActionFactory(sender Sender) *ActionFactory {
	return &ActionFactory{sender: sender}
}

func (f *ActionFactory) Create(_ map[string]any) (protocol.ActionHandler, error) {
	return NewAction(f.sender), nil
}

func (f *ActionFactory) Kind() models.ActionKind {
	return models.ActionSendEmail
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"subject": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
			"body": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
		},
		"required":             []string{"subject", "body"},
		"additionalProperties": false,
	}
}
