// Package template renders message bodies with lead data merged in.
package template

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/esly-abro/JKhomes-sub000/pkg/models"
)

// RenderWithLead renders a message template against the lead's current
// fields. Templates reference fields as {{.lead.name}}, {{.lead.source}} and
// so on.
func RenderWithLead(input string, lead models.LeadSnapshot) (string, error) {
	data := map[string]any{
		"lead":      lead.Fields,
		"tenant_id": lead.TenantID,
		"lead_id":   lead.LeadID,
	}

	return Render(input, data)
}

func Render(templateStr string, data any) (string, error) {
	tmpl, err := template.
		New("message").
		Option("missingkey=zero").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"upper": strings.ToUpper,
			"lower": strings.ToLower,
			"title": titleCase,
		}).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}

	// missingkey=zero prints "<no value>" for absent map keys.
	return strings.ReplaceAll(buf.String(), "<no value>", ""), nil
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}

	return strings.Join(words, " ")
}
