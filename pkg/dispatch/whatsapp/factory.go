package whatsapp

import (
	"github.com/esly-abro/JKhomes-sub000/pkg/models"
	"github.com/esly-abro/JKhomes-sub000/pkg/protocol"
)

// ActionFactory creates Action instances bound to one provider client.
type ActionFactory struct {
	client Client
}

func NewActionFactory(client Client) *ActionFactory {
	return &ActionFactory{client: client}
}

func (f *ActionFactory) Create(_ map[string]any) (protocol.ActionHandler, error) {
	return NewAction(f.client), nil
}

func (f *ActionFactory) Kind() models.ActionKind {
	return models.ActionSendMessage
}

// Schema returns the JSON schema for sendMessage parameters. Exactly one of
// templateRef or customBody must be present.
func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"templateRef": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Reference to a pre-approved message template",
			},
			"customBody": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Free-form message body, rendered with lead fields",
			},
		},
		"oneOf": []map[string]any{
			{"required": []string{"templateRef"}},
			{"required": []string{"customBody"}},
		},
		"additionalProperties": false,
	}
}
