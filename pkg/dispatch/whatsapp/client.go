package whatsapp

import (
	"context"

	"github.com/esly-abro/JKhomes-sub000/pkg/dispatch/httpapi"
)

// HTTPClient talks to the messaging provider's REST API.
type HTTPClient struct {
	api *httpapi.Client
}

func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{api: httpapi.NewClient(baseURL, apiKey)}
}

type sendResponse struct {
	MessageID string `json:"message_id"`
}

func (c *HTTPClient) SendTemplate(ctx context.Context, to, templateRef string) (string, error) {
	var resp sendResponse

	err := c.api.Post(ctx, "/v1/messages", map[string]string{
		"to":       to,
		"type":     "template",
		"template": templateRef,
	}, &resp)
	if err != nil {
		return "", err
	}

	return resp.MessageID, nil
}

func (c *HTTPClient) SendText(ctx context.Context, to, body string) (string, error) {
	var resp sendResponse

	err := c.api.Post(ctx, "/v1/messages", map[string]string{
		"to":   to,
		"type": "text",
		"body": body,
	}, &resp)
	if err != nil {
		return "", err
	}

	return resp.MessageID, nil
}
