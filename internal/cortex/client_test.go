package cortex

import (
	"context"
	"net/http"
	"testing"

	"github.com/bissquit/scorecard-report/internal/domain"
	"github.com/bissquit/scorecard-report/internal/pkg/httputil"
	"github.com/bissquit/scorecard-report/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	opsTag      = "operational-readiness-1234"
	securityTag = "security-3456"
)

func catalogFixture() []testutil.CortexScorecard {
	return []testutil.CortexScorecard{
		{
			Tag:  opsTag,
			Name: "Operational Readiness",
			Rules: []testutil.CortexRule{
				{Identifier: "has-oncall", Title: "Has on-call rotation", Description: "PagerDuty linked", Weight: testutil.Int(2)},
				{Identifier: "has-runbook", Title: "Has runbook"},
			},
			Scores: []testutil.CortexServiceScore{
				{
					ServiceTag:  "payments-svc",
					ServiceName: "Payments Service",
					Total:       testutil.Float(0.5),
					Level:       "Bronze",
					Rules: []testutil.CortexRuleScore{
						{Identifier: "has-oncall", Expression: "oncall != null", Score: 1},
						{Identifier: "has-runbook", Expression: "links.runbook != null", Score: 0},
						{Identifier: "has-slo", Expression: "slos.length > 0", Score: 0.5},
					},
				},
				{ServiceTag: "search", ServiceName: ""},
				{ServiceTag: "payments-svc", ServiceName: "Duplicate"},
				{ServiceTag: "", ServiceName: "No tag"},
			},
		},
		{
			Tag:  securityTag,
			Name: "Security",
			Scores: []testutil.CortexServiceScore{
				{ServiceTag: "payments-svc", ServiceName: "Payments Service", Total: testutil.Float(0.9)},
			},
		},
		{Tag: "cost", Name: "Cost Efficiency"},
	}
}

func newTestClient(t *testing.T, baseURL string, opts ...func(*Config)) *Client {
	t.Helper()
	cfg := Config{BaseURL: baseURL, Token: "cortex-token"}
	for _, opt := range opts {
		opt(&cfg)
	}
	client, err := NewClient(cfg)
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(Config{})
	require.ErrorIs(t, err, ErrMissingToken)

	client, err := NewClient(Config{Token: "token"})
	require.NoError(t, err)
	assert.Equal(t, defaultBaseURL, client.config.BaseURL)
	assert.Equal(t, defaultServicesPageSize, client.config.ServicesPageSize)
	assert.Equal(t, defaultTimeout, client.config.Timeout)
	assert.Equal(t, DefaultTargetScorecards, client.config.TargetScorecards)
	assert.Nil(t, client.limiter)
	assert.Nil(t, client.definitions)

	client, err = NewClient(Config{Token: "token", RateLimit: 5, DefinitionCacheSize: 4})
	require.NoError(t, err)
	assert.NotNil(t, client.limiter)
	assert.NotNil(t, client.definitions)
}

func TestListScorecards(t *testing.T) {
	api := testutil.NewCortexAPI(t, catalogFixture()...)
	client := newTestClient(t, api.URL())

	scorecards, err := client.ListScorecards(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []domain.Scorecard{
		{Tag: opsTag, Name: "Operational Readiness"},
		{Tag: securityTag, Name: "Security"},
		{Tag: "cost", Name: "Cost Efficiency"},
	}, scorecards)
}

func TestListServices(t *testing.T) {
	api := testutil.NewCortexAPI(t, catalogFixture()...)
	client := newTestClient(t, api.URL())

	services, err := client.ListServices(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []domain.CatalogService{
		{Tag: "payments-svc", Title: "Payments Service"},
		{Tag: "search", Title: "search"},
	}, services)
	assert.Equal(t, []string{"1000"}, api.PageSizes())
	assert.Equal(t, 0, api.Hits("/scorecards/"+securityTag+"/scores"))
}

func TestListServices_NoScorecards(t *testing.T) {
	api := testutil.NewCortexAPI(t)
	client := newTestClient(t, api.URL())

	services, err := client.ListServices(context.Background())
	require.NoError(t, err)
	assert.Empty(t, services)
	assert.NotNil(t, services)
}

func TestListServices_Error(t *testing.T) {
	api := testutil.NewCortexAPI(t, catalogFixture()...)
	api.FailWith("/scorecards", http.StatusForbidden)
	client := newTestClient(t, api.URL())

	_, err := client.ListServices(context.Background())
	require.Error(t, err)
	assert.True(t, httputil.HasStatusCode(err, http.StatusForbidden))
}

func TestGetServiceScorecard(t *testing.T) {
	api := testutil.NewCortexAPI(t, catalogFixture()...)
	client := newTestClient(t, api.URL())

	sc, err := client.GetServiceScorecard(context.Background(), "payments-svc", opsTag)
	require.NoError(t, err)
	require.NotNil(t, sc)

	assert.Equal(t, "payments-svc", sc.ServiceTag)
	assert.Equal(t, opsTag, sc.ScorecardTag)
	require.NotNil(t, sc.TotalScore)
	assert.InDelta(t, 0.5, *sc.TotalScore, 1e-9)
	assert.Equal(t, "Bronze", sc.CurrentLevel)

	require.Len(t, sc.Scores, 3)
	assert.Equal(t, domain.ScorecardRule{
		Identifier:  "has-oncall",
		Expression:  "oncall != null",
		Title:       "Has on-call rotation",
		Description: "PagerDuty linked",
		Weight:      testutil.Int(2),
	}, sc.Scores[0].Rule)
	assert.Equal(t, "Has runbook", sc.Scores[1].Rule.Title)
	assert.Equal(t, "has-slo", sc.Scores[2].Rule.Title, "title falls back to identifier")

	failing := sc.FailingScores()
	require.Len(t, failing, 2)
	assert.Equal(t, "has-runbook", failing[0].Rule.Identifier)
	assert.Equal(t, "has-slo", failing[1].Rule.Identifier)
}

func TestGetServiceScorecard_NoData(t *testing.T) {
	tests := []struct {
		name      string
		service   string
		scorecard string
		fail      string
	}{
		{name: "unknown scorecard", service: "payments-svc", scorecard: "missing"},
		{name: "scores not found", service: "payments-svc", scorecard: opsTag, fail: "/scorecards/" + opsTag + "/scores"},
		{name: "service not evaluated", service: "billing", scorecard: opsTag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := testutil.NewCortexAPI(t, catalogFixture()...)
			if tt.fail != "" {
				api.FailWith(tt.fail, http.StatusNotFound)
			}
			client := newTestClient(t, api.URL())

			sc, err := client.GetServiceScorecard(context.Background(), tt.service, tt.scorecard)
			require.NoError(t, err)
			assert.Nil(t, sc)
		})
	}
}

func TestGetServiceScorecard_ServerError(t *testing.T) {
	api := testutil.NewCortexAPI(t, catalogFixture()...)
	api.FailWith("/scorecards/"+opsTag, http.StatusInternalServerError)
	client := newTestClient(t, api.URL())

	sc, err := client.GetServiceScorecard(context.Background(), "payments-svc", opsTag)
	require.Error(t, err)
	assert.Nil(t, sc)
	assert.True(t, httputil.HasStatusCode(err, http.StatusInternalServerError))
}

func TestGetServiceScorecard_DefinitionCache(t *testing.T) {
	tests := []struct {
		name      string
		cacheSize int
		wantHits  int
	}{
		{name: "disabled", cacheSize: 0, wantHits: 2},
		{name: "enabled", cacheSize: 4, wantHits: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := testutil.NewCortexAPI(t, catalogFixture()...)
			client := newTestClient(t, api.URL(), func(c *Config) { c.DefinitionCacheSize = tt.cacheSize })

			for range 2 {
				_, err := client.GetServiceScorecard(context.Background(), "payments-svc", opsTag)
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantHits, api.Hits("/scorecards/"+opsTag))
		})
	}
}

func TestRateLimit_CanceledContext(t *testing.T) {
	api := testutil.NewCortexAPI(t, catalogFixture()...)
	client := newTestClient(t, api.URL(), func(c *Config) { c.RateLimit = 1 })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ListScorecards(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, api.TotalHits())
}
