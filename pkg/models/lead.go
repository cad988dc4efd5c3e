package models

import "time"

// LeadSnapshot is the point-in-time view of a lead the CRM data layer
// returns. Conditions are always evaluated against a fresh snapshot, never a
// cached one. Unknown fields evaluate as empty.
type LeadSnapshot struct {
	TenantID  string         `json:"tenant_id"`
	LeadID    string         `json:"lead_id"`
	Fields    map[string]any `json:"fields"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Field returns the named field value and whether it is present.
func (l LeadSnapshot) Field(name string) (any, bool) {
	if l.Fields == nil {
		return nil, false
	}

	value, ok := l.Fields[name]

	return value, ok
}

// Activity is a user-visible timeline entry the CRM UI consumes. The engine
// appends one per transition that corresponds to a visible action.
type Activity struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	LeadID      string    `json:"lead_id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
}
