// Package testutil provides fake upstream APIs for tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// ServiceFieldID is the custom field used by fake incidents to list affected services.
const ServiceFieldID = "01FIELDAFFECTEDSERVICES"

// IncidentAPI is a fake incident.io v2 API.
type IncidentAPI struct {
	Server *httptest.Server

	mu        sync.Mutex
	incidents []any
	status    int
	queries   []url.Values
	tokens    []string
}

// NewIncidentAPI starts a fake incident.io API serving incidents.
// Elements may be maps, structs or json.RawMessage.
func NewIncidentAPI(t *testing.T, incidents ...any) *IncidentAPI {
	t.Helper()

	api := &IncidentAPI{incidents: incidents}

	r := chi.NewRouter()
	r.Get("/incidents", api.listIncidents)

	api.Server = httptest.NewServer(r)
	t.Cleanup(api.Server.Close)

	return api
}

// URL returns the base URL of the fake API.
func (a *IncidentAPI) URL() string {
	return a.Server.URL
}

// FailWith makes every subsequent request fail with status.
func (a *IncidentAPI) FailWith(status int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = status
}

// Queries returns the query strings of all received requests.
func (a *IncidentAPI) Queries() []url.Values {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]url.Values(nil), a.queries...)
}

// Tokens returns the Authorization headers of all received requests.
func (a *IncidentAPI) Tokens() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.tokens...)
}

func (a *IncidentAPI) listIncidents(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.queries = append(a.queries, r.URL.Query())
	a.tokens = append(a.tokens, r.Header.Get("Authorization"))
	status := a.status
	incidents := a.incidents
	a.mu.Unlock()

	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}

	if incidents == nil {
		incidents = []any{}
	}
	writeJSON(w, map[string]any{"incidents": incidents})
}

// Incident builds an incident.io incident payload affecting the given services.
// Service names double as catalog entry IDs.
func Incident(id, visibility string, services ...string) map[string]any {
	values := make([]any, 0, len(services))
	for _, name := range services {
		values = append(values, map[string]any{
			"value_catalog_entry": map[string]any{
				"id":   "entry-" + name,
				"name": name,
			},
		})
	}

	return map[string]any{
		"id":          id,
		"name":        "Incident " + id,
		"visibility":  visibility,
		"created_at":  "2025-03-01T10:00:00Z",
		"updated_at":  "2025-03-01T12:00:00Z",
		"resolved_at": "2025-03-03T10:00:00Z",
		"severity": map[string]any{
			"id":   "sev-2",
			"name": "Major",
			"rank": 2,
		},
		"incident_status": map[string]any{
			"id":       "closed",
			"name":     "Closed",
			"category": "closed",
		},
		"custom_field_entries": []any{
			map[string]any{
				"custom_field": map[string]any{"id": ServiceFieldID, "name": "Affected services"},
				"values":       values,
			},
		},
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
