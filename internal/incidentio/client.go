// Package incidentio fetches incidents from the incident.io v2 API and
// normalizes them into domain incidents.
package incidentio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bissquit/scorecard-report/internal/domain"
	"github.com/bissquit/scorecard-report/internal/pkg/ctxlog"
	"github.com/bissquit/scorecard-report/internal/pkg/httputil"
	"github.com/bissquit/scorecard-report/internal/pkg/metrics"
)

const (
	defaultBaseURL  = "https://api.incident.io/v2"
	defaultPageSize = 250
	defaultTimeout  = 30 * time.Second

	dateLayout = "2006-01-02"
)

// Config holds incident.io client configuration.
type Config struct {
	BaseURL string
	Token   string
	// PageSize is the number of incidents requested. Only the first page is read.
	PageSize int
	// ServiceFieldID identifies the custom field that lists affected services.
	ServiceFieldID string
	Timeout        time.Duration
}

// Client is an incident.io API client.
type Client struct {
	config     Config
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a new incident.io client.
// Returns error if the token or the service field ID is missing.
func NewClient(config Config) (*Client, error) {
	if config.Token == "" {
		return nil, ErrMissingToken
	}
	if config.ServiceFieldID == "" {
		return nil, ErrMissingServiceField
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	if config.PageSize <= 0 {
		config.PageSize = defaultPageSize
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	return &Client{
		config:     config,
		httpClient: httputil.NewClient("incidentio", config.Timeout),
		now:        time.Now,
	}, nil
}

// ListOptions filters the incident listing.
type ListOptions struct {
	Status   string
	Since    *time.Time
	Until    *time.Time
	PageSize int
}

type listResponse struct {
	Incidents []json.RawMessage `json:"incidents"`
}

// ListIncidents fetches a single page of incidents matching opts.
// Incidents that cannot be parsed are logged and skipped.
func (c *Client) ListIncidents(ctx context.Context, opts ListOptions) ([]domain.Incident, error) {
	logger := ctxlog.FromContext(ctx)

	var resp listResponse
	err := httputil.GetJSON(ctx, c.httpClient, httputil.Request{
		Operation: "list incidents",
		URL:       c.config.BaseURL + "/incidents",
		Token:     c.config.Token,
		Query:     c.listQuery(opts),
	}, &resp)
	if err != nil {
		logger.Error("failed to fetch incidents", "error", err)
		return nil, err
	}

	incidents := make([]domain.Incident, 0, len(resp.Incidents))
	for _, raw := range resp.Incidents {
		incident, err := parseIncident(raw, c.config.ServiceFieldID, c.now)
		if err != nil {
			logger.Warn("failed to parse incident, skipping",
				"incident_id", incidentIDOf(raw),
				"error", err,
			)
			metrics.IncidentsSkipped.Inc()
			continue
		}
		incidents = append(incidents, incident)
	}

	return incidents, nil
}

func (c *Client) listQuery(opts ListOptions) url.Values {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = c.config.PageSize
	}

	q := url.Values{}
	q.Set("page_size", strconv.Itoa(pageSize))

	if opts.Status != "" {
		q.Set("status", opts.Status)
	}

	switch {
	case opts.Since != nil && opts.Until != nil:
		q.Set("created_at[date_range]", opts.Since.Format(dateLayout)+"~"+opts.Until.Format(dateLayout))
	case opts.Since != nil:
		q.Set("created_at[gte]", opts.Since.Format(dateLayout))
	case opts.Until != nil:
		q.Set("created_at[lte]", opts.Until.Format(dateLayout))
	}

	return q
}

// FetchPublicIncidents returns the public incidents created in the last lookbackDays days.
func (c *Client) FetchPublicIncidents(ctx context.Context, lookbackDays int) ([]domain.Incident, error) {
	if lookbackDays <= 0 {
		return nil, fmt.Errorf("lookback days must be positive, got %d", lookbackDays)
	}
	return c.PublicIncidents(ctx, domain.LookbackWindow(c.now(), lookbackDays))
}

// PublicIncidents returns the public incidents created within window.
func (c *Client) PublicIncidents(ctx context.Context, window domain.Window) ([]domain.Incident, error) {
	logger := ctxlog.FromContext(ctx)

	logger.Info("fetching incidents",
		"from", window.Start.Format(dateLayout),
		"to", window.End.Format(dateLayout),
	)

	all, err := c.ListIncidents(ctx, ListOptions{
		Since: &window.Start,
		Until: &window.End,
	})
	if err != nil {
		return nil, err
	}

	public := make([]domain.Incident, 0, len(all))
	for i := range all {
		if all[i].IsPublic() {
			public = append(public, all[i])
		}
	}

	logger.Info("fetched incidents",
		"total", len(all),
		"public", len(public),
	)

	return public, nil
}
