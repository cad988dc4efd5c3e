package protocol

import (
	"context"

	"github.com/esly-abro/JKhomes-sub000/pkg/models"
)

// LeadService fetches the current state of a lead from the CRM. Condition
// nodes always evaluate against a fresh snapshot, never a cached one.
type LeadService interface {
	GetLead(ctx context.Context, tenantID, leadID string) (models.LeadSnapshot, error)
}
