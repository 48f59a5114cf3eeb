// Package cortex reads services, scorecard definitions and scorecard
// evaluations from the Cortex v1 catalog API.
package cortex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/bissquit/scorecard-report/internal/pkg/httputil"
)

const (
	defaultBaseURL          = "https://api.getcortexapp.com/api/v1"
	defaultTimeout          = 30 * time.Second
	defaultServicesPageSize = 1000
)

// DefaultTargetScorecards maps target scorecard IDs to their names.
var DefaultTargetScorecards = map[string]string{
	"1234": "Operational Readiness",
	"3456": "Security",
}

// Config holds Cortex client configuration.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// ServicesPageSize bounds the score listing used to discover services.
	ServicesPageSize int
	// TargetScorecards maps a scorecard ID fragment to a scorecard name fragment.
	TargetScorecards map[string]string
	// RateLimit is the maximum number of requests per second. Zero disables pacing.
	RateLimit float64
	// DefinitionCacheSize is the number of scorecard rule definitions kept in memory.
	// Zero disables the cache.
	DefinitionCacheSize int
}

// Client is a Cortex API client.
type Client struct {
	config      Config
	httpClient  *http.Client
	limiter     *rate.Limiter
	definitions *lru.Cache[string, map[string]ruleInfo]
}

// NewClient creates a new Cortex client.
// Returns error if the token is missing.
func NewClient(config Config) (*Client, error) {
	if config.Token == "" {
		return nil, ErrMissingToken
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.ServicesPageSize <= 0 {
		config.ServicesPageSize = defaultServicesPageSize
	}
	if config.TargetScorecards == nil {
		config.TargetScorecards = DefaultTargetScorecards
	}

	c := &Client{
		config:     config,
		httpClient: httputil.NewClient("cortex", config.Timeout),
	}

	if config.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}

	if config.DefinitionCacheSize > 0 {
		cache, err := lru.New[string, map[string]ruleInfo](config.DefinitionCacheSize)
		if err != nil {
			return nil, fmt.Errorf("create definition cache: %w", err)
		}
		c.definitions = cache
	}

	return c, nil
}

// get performs a paced GET against path relative to the base URL.
func (c *Client) get(ctx context.Context, operation, path string, query url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: wait for rate limiter: %w", operation, err)
		}
	}

	return httputil.GetJSON(ctx, c.httpClient, httputil.Request{
		Operation: operation,
		URL:       c.config.BaseURL + path,
		Token:     c.config.Token,
		Query:     query,
	}, out)
}

func scorecardPath(tag string) string {
	return "/scorecards/" + url.PathEscape(tag)
}

func pageSizeQuery(n int) url.Values {
	return url.Values{"pageSize": []string{strconv.Itoa(n)}}
}
