// Package report correlates incidents with catalog scorecards and renders
// the resulting impact report.
package report

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/bissquit/scorecard-report/internal/domain"
	"github.com/bissquit/scorecard-report/internal/pkg/ctxlog"
	"github.com/bissquit/scorecard-report/internal/pkg/metrics"
	"github.com/bissquit/scorecard-report/internal/pkg/textmatch"
)

// IncidentSource provides public incidents created within a time window.
type IncidentSource interface {
	PublicIncidents(ctx context.Context, window domain.Window) ([]domain.Incident, error)
}

// ScorecardResolver resolves incident service names to catalog scorecards.
type ScorecardResolver interface {
	ResolveScorecardsForServices(ctx context.Context, names []string, scorecardTags ...string) (*domain.ScorecardIndex, error)
}

// Service builds incident reports.
type Service struct {
	incidents  IncidentSource
	scorecards ScorecardResolver
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used for the report window and generation time.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new report service.
func NewService(incidents IncidentSource, scorecards ScorecardResolver, opts ...Option) *Service {
	s := &Service{
		incidents:  incidents,
		scorecards: scorecards,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateReport builds the impact report for public incidents created in the
// last lookbackDays days. Services are ordered by incident count, descending;
// ties keep first-seen order. Adapter errors are returned as is.
func (s *Service) GenerateReport(ctx context.Context, lookbackDays int) (*domain.IncidentReport, error) {
	if lookbackDays <= 0 {
		return nil, fmt.Errorf("lookback days must be positive, got %d", lookbackDays)
	}

	logger := ctxlog.FromContext(ctx)
	window := domain.LookbackWindow(s.now(), lookbackDays)

	incidents, err := s.incidents.PublicIncidents(ctx, window)
	if err != nil {
		return nil, err
	}

	names := ImpactedServiceNames(incidents)
	groups := GroupIncidentsByService(incidents)

	index := domain.NewScorecardIndex()
	if len(names) > 0 {
		index, err = s.scorecards.ResolveScorecardsForServices(ctx, names)
		if err != nil {
			return nil, err
		}
	}

	impacted := make([]domain.ServiceImpactReport, 0, len(names))
	for _, name := range names {
		ids := groups[name]
		tag, scorecards := MatchScorecards(name, index)
		if tag == "" {
			tag = name
			scorecards = []domain.ServiceScorecard{}
		}
		impacted = append(impacted, domain.ServiceImpactReport{
			ServiceName:   name,
			ServiceTag:    tag,
			IncidentCount: len(ids),
			IncidentIDs:   ids,
			Scorecards:    scorecards,
		})
	}

	slices.SortStableFunc(impacted, func(a, b domain.ServiceImpactReport) int {
		return b.IncidentCount - a.IncidentCount
	})

	report := &domain.IncidentReport{
		GeneratedAt:      s.now(),
		PeriodStart:      window.Start,
		PeriodEnd:        window.End,
		TotalIncidents:   len(incidents),
		ImpactedServices: impacted,
	}

	unmatched := report.UnmatchedServices()
	metrics.RecordReport(report.TotalIncidents, len(impacted), unmatched)

	logger.Info("report generated",
		"incidents", report.TotalIncidents,
		"impacted_services", len(impacted),
		"unmatched_services", unmatched,
	)

	return report, nil
}

// ImpactedServiceNames returns the distinct service names across incidents in first-seen order.
func ImpactedServiceNames(incidents []domain.Incident) []string {
	var names []string
	seen := make(map[string]struct{})
	for i := range incidents {
		for _, svc := range incidents[i].Services {
			if _, ok := seen[svc.Name]; ok {
				continue
			}
			seen[svc.Name] = struct{}{}
			names = append(names, svc.Name)
		}
	}
	return names
}

// GroupIncidentsByService maps each service name to the IDs of the incidents
// that list it, in incident order. Incidents without services appear nowhere.
func GroupIncidentsByService(incidents []domain.Incident) map[string][]string {
	groups := make(map[string][]string)
	for i := range incidents {
		for _, svc := range incidents[i].Services {
			groups[svc.Name] = append(groups[svc.Name], incidents[i].ID)
		}
	}
	return groups
}

// MatchScorecards finds the scorecards of a service name in index.
// An exact case-insensitive tag match wins; otherwise the first tag in index
// order that contains or is contained in the name is used.
// Returns an empty tag when nothing matches.
func MatchScorecards(name string, index *domain.ScorecardIndex) (string, []domain.ServiceScorecard) {
	tags := index.Tags()

	for _, tag := range tags {
		if textmatch.EqualFold(tag, name) {
			return tag, index.Get(tag)
		}
	}

	for _, tag := range tags {
		if textmatch.ContainsEither(name, tag) {
			return tag, index.Get(tag)
		}
	}

	return "", nil
}
