package voice

import (
	"context"

	"github.com/esly-abro/JKhomes-sub000/pkg/dispatch/httpapi"
)

// HTTPDialer talks to the telephony provider's REST API.
type HTTPDialer struct {
	api *httpapi.Client
}

func NewHTTPDialer(baseURL, apiKey string) *HTTPDialer {
	return &HTTPDialer{api: httpapi.NewClient(baseURL, apiKey)}
}

func (d *HTTPDialer) PlaceCall(ctx context.Context, to, script string) (string, error) {
	var resp struct {
		CallID string `json:"call_id"`
	}

	err := d.api.Post(ctx, "/v1/calls", map[string]string{
		"to":     to,
		"script": script,
	}, &resp)
	if err != nil {
		return "", err
	}

	return resp.CallID, nil
}
