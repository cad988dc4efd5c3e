// Package leads fetches lead snapshots from the CRM. Snapshots are read
// fresh at every evaluation point; nothing here caches.
package leads

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/esly-abro/JKhomes-sub000/pkg/dispatch/httpapi"
	"github.com/esly-abro/JKhomes-sub000/pkg/models"
)

// Client reads lead state from the CRM's REST API. It satisfies
// protocol.LeadService.
type Client struct {
	api *httpapi.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{api: httpapi.NewClient(baseURL, apiKey)}
}

func (c *Client) GetLead(ctx context.Context, tenantID, leadID string) (models.LeadSnapshot, error) {
	path := fmt.Sprintf("/v1/tenants/%s/leads/%s",
		url.PathEscape(tenantID), url.PathEscape(leadID))

	var fields map[string]any

	if err := c.api.Get(ctx, path, &fields); err != nil {
		return models.LeadSnapshot{}, fmt.Errorf("fetching lead %s: %w", leadID, err)
	}

	return models.LeadSnapshot{
		TenantID:  tenantID,
		LeadID:    leadID,
		Fields:    fields,
		FetchedAt: time.Now().UTC(),
	}, nil
}
