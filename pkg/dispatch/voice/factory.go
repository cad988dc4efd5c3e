package voice

import (
	"github.com/esly-abro/JKhomes-sub000/pkg/models"
	"github.com/esly-abro/JKhomes-sub000/pkg/protocol"
)

type ActionFactory struct {
	dialer Dialer
}

func NewActionFactory(dialer Dialer) *ActionFactory {
	return &ActionFactory{dialer: dialer}
}

func (f *ActionFactory) Create(_ map[string]any) (protocol.ActionHandler, error) {
	return NewAction(f.dialer), nil
}

func (f *ActionFactory) Kind() models.ActionKind {
	return models.ActionPlaceCall
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"script": map[string]any{
				"type":        "string",
				"description": "Call script or IVR flow reference for the dialer",
			},
		},
		"additionalProperties": false,
	}
}
