package incidentio

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/bissquit/scorecard-report/internal/domain"
	"github.com/bissquit/scorecard-report/internal/pkg/httputil"
	"github.com/bissquit/scorecard-report/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 31, 9, 30, 0, 0, time.UTC)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL:        baseURL,
		Token:          "incident-token",
		ServiceFieldID: testutil.ServiceFieldID,
	})
	require.NoError(t, err)
	client.now = func() time.Time { return fixedNow }
	return client
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "missing token",
			config:  Config{ServiceFieldID: "field"},
			wantErr: ErrMissingToken,
		},
		{
			name:    "missing service field",
			config:  Config{Token: "token"},
			wantErr: ErrMissingServiceField,
		},
		{
			name:   "valid config",
			config: Config{Token: "token", ServiceFieldID: "field"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.config)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, client)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient(Config{Token: "token", ServiceFieldID: "field"})
	require.NoError(t, err)

	assert.Equal(t, defaultBaseURL, client.config.BaseURL)
	assert.Equal(t, defaultPageSize, client.config.PageSize)
	assert.Equal(t, defaultTimeout, client.config.Timeout)
	assert.NotNil(t, client.httpClient)
}

func TestListIncidents_DateFilters(t *testing.T) {
	since := time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC)
	until := time.Date(2025, 3, 31, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		opts     ListOptions
		key      string
		value    string
		absent   []string
		pageSize string
	}{
		{
			name:     "date range",
			opts:     ListOptions{Since: &since, Until: &until},
			key:      "created_at[date_range]",
			value:    "2025-03-01~2025-03-31",
			absent:   []string{"created_at[gte]", "created_at[lte]"},
			pageSize: "250",
		},
		{
			name:     "since only",
			opts:     ListOptions{Since: &since},
			key:      "created_at[gte]",
			value:    "2025-03-01",
			absent:   []string{"created_at[date_range]", "created_at[lte]"},
			pageSize: "250",
		},
		{
			name:     "until only",
			opts:     ListOptions{Until: &until, PageSize: 10},
			key:      "created_at[lte]",
			value:    "2025-03-31",
			absent:   []string{"created_at[date_range]", "created_at[gte]"},
			pageSize: "10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := testutil.NewIncidentAPI(t)
			client := newTestClient(t, api.URL())

			_, err := client.ListIncidents(context.Background(), tt.opts)
			require.NoError(t, err)

			queries := api.Queries()
			require.Len(t, queries, 1, "only the first page is fetched")
			q := queries[0]
			assert.Equal(t, tt.value, q.Get(tt.key))
			assert.Equal(t, tt.pageSize, q.Get("page_size"))
			for _, key := range tt.absent {
				assert.False(t, q.Has(key), "unexpected %s", key)
			}
		})
	}
}

func TestListIncidents_StatusAndAuth(t *testing.T) {
	api := testutil.NewIncidentAPI(t)
	client := newTestClient(t, api.URL())

	_, err := client.ListIncidents(context.Background(), ListOptions{Status: "closed"})
	require.NoError(t, err)

	assert.Equal(t, "closed", api.Queries()[0].Get("status"))
	assert.Equal(t, []string{"Bearer incident-token"}, api.Tokens())
}

func TestListIncidents_SkipsMalformed(t *testing.T) {
	api := testutil.NewIncidentAPI(t,
		testutil.Incident("inc-1", "public", "payments"),
		map[string]any{"id": "inc-bad", "name": 42},
		"not an object",
		testutil.Incident("inc-2", "private", "search"),
	)
	client := newTestClient(t, api.URL())

	incidents, err := client.ListIncidents(context.Background(), ListOptions{})
	require.NoError(t, err)

	require.Len(t, incidents, 2)
	assert.Equal(t, "inc-1", incidents[0].ID)
	assert.Equal(t, "inc-2", incidents[1].ID)
}

func TestListIncidents_HTTPError(t *testing.T) {
	api := testutil.NewIncidentAPI(t)
	api.FailWith(http.StatusUnauthorized)
	client := newTestClient(t, api.URL())

	incidents, err := client.ListIncidents(context.Background(), ListOptions{})

	require.Error(t, err)
	assert.Nil(t, incidents)
	assert.True(t, httputil.HasStatusCode(err, http.StatusUnauthorized))
}

func TestListIncidents_TransportError(t *testing.T) {
	api := testutil.NewIncidentAPI(t)
	client := newTestClient(t, api.URL())
	api.Server.Close()

	_, err := client.ListIncidents(context.Background(), ListOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list incidents")
}

func TestPublicIncidents_FiltersVisibility(t *testing.T) {
	noVisibility := testutil.Incident("inc-4", "", "payments")
	delete(noVisibility, "visibility")

	api := testutil.NewIncidentAPI(t,
		testutil.Incident("inc-1", "public", "payments"),
		testutil.Incident("inc-2", "private", "payments"),
		testutil.Incident("inc-3", "internal", "payments"),
		noVisibility,
		testutil.Incident("inc-5", "public"),
	)
	client := newTestClient(t, api.URL())

	incidents, err := client.FetchPublicIncidents(context.Background(), 30)
	require.NoError(t, err)

	ids := make([]string, 0, len(incidents))
	for _, inc := range incidents {
		assert.Equal(t, domain.VisibilityPublic, inc.Visibility)
		ids = append(ids, inc.ID)
	}
	assert.Equal(t, []string{"inc-1", "inc-5"}, ids)

	q := api.Queries()[0]
	assert.Equal(t, "2025-03-01~2025-03-31", q.Get("created_at[date_range]"))
}

func TestFetchPublicIncidents_InvalidLookback(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:0")

	_, err := client.FetchPublicIncidents(context.Background(), 0)
	require.Error(t, err)
}

func TestPublicIncidents_ResolvedNeverBeforeCreated(t *testing.T) {
	backwards := testutil.Incident("inc-1", "public", "payments")
	backwards["resolved_at"] = "2025-02-01T00:00:00Z"
	backwards["updated_at"] = "2025-02-01T00:00:00Z"

	garbage := testutil.Incident("inc-2", "public", "payments")
	garbage["resolved_at"] = "yesterday"

	api := testutil.NewIncidentAPI(t, backwards, garbage, testutil.Incident("inc-3", "public", "payments"))
	client := newTestClient(t, api.URL())

	incidents, err := client.PublicIncidents(context.Background(), domain.LookbackWindow(fixedNow, 30))
	require.NoError(t, err)
	require.Len(t, incidents, 3)

	for _, inc := range incidents {
		if inc.ResolvedAt != nil {
			assert.False(t, inc.ResolvedAt.Before(inc.CreatedAt), "incident %s", inc.ID)
		}
		assert.False(t, inc.UpdatedAt.Before(inc.CreatedAt), "incident %s", inc.ID)
	}
	assert.Nil(t, incidents[0].ResolvedAt)
	assert.Nil(t, incidents[1].ResolvedAt)
	require.NotNil(t, incidents[2].ResolvedAt)
}

func TestIncidentIDOf(t *testing.T) {
	assert.Equal(t, "inc-9", incidentIDOf(json.RawMessage(`{"id":"inc-9","name":1}`)))
	assert.Equal(t, "12", incidentIDOf(json.RawMessage(`{"id":12}`)))
	assert.Equal(t, "unknown", incidentIDOf(json.RawMessage(`"scalar"`)))
	assert.Equal(t, "unknown", incidentIDOf(json.RawMessage(`{}`)))
}
