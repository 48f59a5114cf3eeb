package incidentio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bissquit/scorecard-report/internal/domain"
)

const (
	unknownIncidentID   = "unknown"
	unknownIncidentName = "Unknown Incident"
	unknownServiceName  = "Unknown Service"
)

type rawIncident struct {
	ID                 *string               `json:"id"`
	Name               *string               `json:"name"`
	Summary            *string               `json:"summary"`
	Description        *string               `json:"description"`
	CreatedAt          *string               `json:"created_at"`
	UpdatedAt          *string               `json:"updated_at"`
	ResolvedAt         *string               `json:"resolved_at"`
	Severity           json.RawMessage       `json:"severity"`
	IncidentStatus     json.RawMessage       `json:"incident_status"`
	Status             json.RawMessage       `json:"status"`
	Visibility         *string               `json:"visibility"`
	CustomFieldEntries []rawCustomFieldEntry `json:"custom_field_entries"`
}

type rawCustomFieldEntry struct {
	CustomField struct {
		ID string `json:"id"`
	} `json:"custom_field"`
	Values []rawCustomFieldValue `json:"values"`
}

type rawCustomFieldValue struct {
	ValueCatalogEntry *rawCatalogEntry `json:"value_catalog_entry"`
}

type rawCatalogEntry struct {
	ID          string  `json:"id"`
	ExternalID  string  `json:"external_id"`
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	Summary     *string `json:"summary"`
	Description *string `json:"description"`
}

type rawSeverity struct {
	ID   *string  `json:"id"`
	Name *string  `json:"name"`
	Rank *float64 `json:"rank"`
}

type rawStatus struct {
	ID       *string `json:"id"`
	Name     *string `json:"name"`
	Category *string `json:"category"`
}

// parseIncident converts one element of the incidents array.
// Sub-structures that are malformed degrade to defaults; an error is returned only
// when the element itself cannot be decoded.
func parseIncident(raw json.RawMessage, serviceFieldID string, now func() time.Time) (domain.Incident, error) {
	var in rawIncident
	if err := json.Unmarshal(raw, &in); err != nil {
		return domain.Incident{}, fmt.Errorf("decode incident: %w", err)
	}

	createdAt, ok := parseTimestamp(in.CreatedAt)
	if !ok {
		createdAt = now()
	}

	updatedAt, ok := parseTimestamp(in.UpdatedAt)
	if !ok || updatedAt.Before(createdAt) {
		updatedAt = createdAt
	}

	var resolvedAt *time.Time
	if t, ok := parseTimestamp(in.ResolvedAt); ok && !t.Before(createdAt) {
		resolvedAt = &t
	}

	statusRaw := in.Status
	if in.IncidentStatus != nil {
		statusRaw = in.IncidentStatus
	}

	visibility := domain.VisibilityPrivate
	if in.Visibility != nil {
		visibility = domain.Visibility(*in.Visibility)
	}

	return domain.Incident{
		ID:          stringOr(in.ID, unknownIncidentID),
		Name:        stringOr(in.Name, unknownIncidentName),
		Summary:     stringOr(in.Summary, ""),
		Description: stringOr(in.Description, ""),
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		ResolvedAt:  resolvedAt,
		Severity:    parseSeverity(in.Severity),
		Status:      parseStatus(statusRaw),
		Services:    parseServices(in.CustomFieldEntries, serviceFieldID),
		Visibility:  visibility,
	}, nil
}

// parseServices extracts affected services from the custom field identified by fieldID.
// Values without any catalog identifier are ignored.
func parseServices(entries []rawCustomFieldEntry, fieldID string) []domain.AffectedService {
	var services []domain.AffectedService

	for _, entry := range entries {
		if entry.CustomField.ID != fieldID {
			continue
		}
		for _, value := range entry.Values {
			ce := value.ValueCatalogEntry
			if ce == nil {
				continue
			}

			id := firstNonEmpty(ce.ExternalID, ce.ID)
			if id == "" {
				continue
			}

			summary := ce.Summary
			if summary == nil {
				summary = ce.Description
			}

			services = append(services, domain.AffectedService{
				ID:      id,
				Name:    firstNonEmpty(ce.Name, ce.Title, id, unknownServiceName),
				Summary: stringOr(summary, ""),
			})
		}
	}

	return services
}

// parseSeverity accepts a severity object or a bare scalar ID.
func parseSeverity(raw json.RawMessage) domain.Severity {
	unknown := domain.UnknownSeverity()

	switch kindOf(raw) {
	case '{':
		var s rawSeverity
		if err := json.Unmarshal(raw, &s); err != nil {
			return unknown
		}
		severity := domain.Severity{
			ID:   stringOr(s.ID, unknown.ID),
			Name: stringOr(s.Name, unknown.Name),
		}
		if s.Rank != nil {
			severity.Rank = int(*s.Rank)
		}
		return severity
	default:
		if id, ok := scalarID(raw); ok {
			unknown.ID = id
		}
		return unknown
	}
}

// parseStatus accepts a status object or a bare scalar ID.
func parseStatus(raw json.RawMessage) domain.Status {
	unknown := domain.UnknownStatus()

	switch kindOf(raw) {
	case '{':
		var s rawStatus
		if err := json.Unmarshal(raw, &s); err != nil {
			return unknown
		}
		return domain.Status{
			ID:       stringOr(s.ID, unknown.ID),
			Name:     stringOr(s.Name, unknown.Name),
			Category: stringOr(s.Category, unknown.Category),
		}
	default:
		if id, ok := scalarID(raw); ok {
			unknown.ID = id
		}
		return unknown
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp parses ISO 8601 timestamps, including the Z suffix.
// Timestamps without an offset are taken as UTC.
func parseTimestamp(s *string) (time.Time, bool) {
	if s == nil {
		return time.Time{}, false
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// incidentIDOf best-effort extracts the id of an incident payload for logging.
func incidentIDOf(raw json.RawMessage) string {
	var v struct {
		ID any `json:"id"`
	}
	if err := json.Unmarshal(raw, &v); err != nil || v.ID == nil {
		return unknownIncidentID
	}
	return fmt.Sprint(v.ID)
}

// kindOf returns the first significant byte of a JSON value, or 0 when absent or null.
func kindOf(raw json.RawMessage) byte {
	v := bytes.TrimSpace(raw)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return 0
	}
	return v[0]
}

// scalarID converts a JSON string or number into an identifier.
func scalarID(raw json.RawMessage) (string, bool) {
	switch k := kindOf(raw); {
	case k == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			return "", false
		}
		return s, true
	case k == '-' || (k >= '0' && k <= '9'):
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", false
		}
		if n.String() == "0" {
			return "", false
		}
		return n.String(), true
	}
	return "", false
}

func stringOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
