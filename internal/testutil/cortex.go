package testutil

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// CortexScorecard is a scorecard served by the fake Cortex API.
type CortexScorecard struct {
	Tag    string
	Name   string
	Rules  []CortexRule
	Scores []CortexServiceScore
}

// CortexRule is a rule definition of a scorecard.
type CortexRule struct {
	Identifier  string
	Title       string
	Description string
	Weight      *int
}

// CortexServiceScore is the evaluation of a scorecard for one service.
type CortexServiceScore struct {
	ServiceTag  string
	ServiceName string
	Total       *float64
	Level       string
	Rules       []CortexRuleScore
}

// CortexRuleScore is the evaluation of one rule.
type CortexRuleScore struct {
	Identifier string
	Expression string
	Score      float64
}

// CortexAPI is a fake Cortex v1 API.
type CortexAPI struct {
	Server *httptest.Server

	mu         sync.Mutex
	scorecards []CortexScorecard
	failures   map[string]int
	hits       map[string]int
	pageSizes  []string
}

// NewCortexAPI starts a fake Cortex API serving scorecards.
func NewCortexAPI(t *testing.T, scorecards ...CortexScorecard) *CortexAPI {
	t.Helper()

	api := &CortexAPI{
		scorecards: scorecards,
		failures:   make(map[string]int),
		hits:       make(map[string]int),
	}

	r := chi.NewRouter()
	r.Use(api.track)
	r.Get("/scorecards", api.listScorecards)
	r.Get("/scorecards/{tag}", api.getScorecard)
	r.Get("/scorecards/{tag}/scores", api.listScores)

	api.Server = httptest.NewServer(r)
	t.Cleanup(api.Server.Close)

	return api
}

// URL returns the base URL of the fake API.
func (a *CortexAPI) URL() string {
	return a.Server.URL
}

// FailWith makes requests to path fail with status.
func (a *CortexAPI) FailWith(path string, status int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[path] = status
}

// Hits returns how many requests were made to path.
func (a *CortexAPI) Hits(path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hits[path]
}

// TotalHits returns the number of requests received.
func (a *CortexAPI) TotalHits() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	total := 0
	for _, n := range a.hits {
		total += n
	}
	return total
}

// PageSizes returns the pageSize parameters received by score listings.
func (a *CortexAPI) PageSizes() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.pageSizes...)
}

func (a *CortexAPI) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		a.hits[r.URL.Path]++
		status := a.failures[r.URL.Path]
		a.mu.Unlock()

		if status != 0 {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *CortexAPI) find(tag string) (CortexScorecard, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, sc := range a.scorecards {
		if sc.Tag == tag {
			return sc, true
		}
	}
	return CortexScorecard{}, false
}

func (a *CortexAPI) listScorecards(w http.ResponseWriter, _ *http.Request) {
	a.mu.Lock()
	items := make([]any, 0, len(a.scorecards))
	for _, sc := range a.scorecards {
		items = append(items, map[string]any{"tag": sc.Tag, "name": sc.Name})
	}
	a.mu.Unlock()

	writeJSON(w, map[string]any{"scorecards": items})
}

func (a *CortexAPI) getScorecard(w http.ResponseWriter, r *http.Request) {
	sc, ok := a.find(chi.URLParam(r, "tag"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	rules := make([]any, 0, len(sc.Rules))
	for _, rule := range sc.Rules {
		item := map[string]any{
			"identifier":  rule.Identifier,
			"title":       rule.Title,
			"description": rule.Description,
		}
		if rule.Weight != nil {
			item["weight"] = *rule.Weight
		}
		rules = append(rules, item)
	}

	writeJSON(w, map[string]any{
		"scorecard": map[string]any{
			"tag":   sc.Tag,
			"name":  sc.Name,
			"rules": rules,
		},
	})
}

func (a *CortexAPI) listScores(w http.ResponseWriter, r *http.Request) {
	sc, ok := a.find(chi.URLParam(r, "tag"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	if ps := r.URL.Query().Get("pageSize"); ps != "" {
		a.mu.Lock()
		a.pageSizes = append(a.pageSizes, ps)
		a.mu.Unlock()
	}

	entityTag := r.URL.Query().Get("entityTag")
	limit := len(sc.Scores)
	if n, err := strconv.Atoi(r.URL.Query().Get("pageSize")); err == nil && n < limit {
		limit = n
	}

	items := make([]any, 0, len(sc.Scores))
	for _, s := range sc.Scores {
		if entityTag != "" && s.ServiceTag != entityTag {
			continue
		}
		if len(items) == limit {
			break
		}
		items = append(items, serviceScoreJSON(s))
	}

	writeJSON(w, map[string]any{"serviceScores": items})
}

func serviceScoreJSON(s CortexServiceScore) map[string]any {
	rules := make([]any, 0, len(s.Rules))
	for _, rs := range s.Rules {
		rules = append(rules, map[string]any{
			"identifier": rs.Identifier,
			"expression": rs.Expression,
			"score":      rs.Score,
		})
	}

	summary := map[string]any{}
	if s.Total != nil {
		summary["score"] = *s.Total
	}

	var ladder []any
	if s.Level != "" {
		ladder = append(ladder, map[string]any{"level": map[string]any{"name": s.Level}})
	}

	return map[string]any{
		"service": map[string]any{
			"tag":  s.ServiceTag,
			"name": s.ServiceName,
		},
		"score": map[string]any{
			"rules":        rules,
			"summary":      summary,
			"ladderLevels": ladder,
		},
	}
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}
