package email

import (
	"context"

	"github.com/esly-abro/JKhomes-sub000/pkg/dispatch/httpapi"
)

// HTTPSender talks to the transactional email provider's REST API.
type HTTPSender struct {
	api  *httpapi.Client
	from string
}

func NewHTTPSender(baseURL, apiKey, from string) *HTTPSender {
	return &HTTPSender{api: httpapi.NewClient(baseURL, apiKey), from: from}
}

func (s *HTTPSender) Send(ctx context.Context, to, subject, body string) (string, error) {
	var resp struct {
		MessageID string `json:"message_id"`
	}

	err := s.api.Post(ctx, "/v1/send", map[string]string{
		"from":    s.from,
		"to":      to,
		"subject": subject,
		"body":    body,
	}, &resp)
	if err != nil {
		return "", err
	}

	return resp.MessageID, nil
}
