package cortex

import (
	"context"
	"fmt"
	"strings"

	"github.com/bissquit/scorecard-report/internal/domain"
	"github.com/bissquit/scorecard-report/internal/pkg/ctxlog"
	"github.com/bissquit/scorecard-report/internal/pkg/textmatch"
)

// SelectTargetScorecards returns the tags of scorecards matching a configured target,
// either by tag containing the target ID or by name containing the target name.
// Both comparisons ignore case.
func (c *Client) SelectTargetScorecards(scorecards []domain.Scorecard) []string {
	var tags []string
	for _, sc := range scorecards {
		tag := strings.ToLower(sc.Tag)
		name := strings.ToLower(sc.Name)
		for id, targetName := range c.config.TargetScorecards {
			if strings.Contains(tag, strings.ToLower(id)) || strings.Contains(name, strings.ToLower(targetName)) {
				tags = append(tags, sc.Tag)
				break
			}
		}
	}
	return tags
}

// ResolveScorecardsForServices resolves incident service names to catalog tags
// and fetches their evaluations for every target scorecard.
// When scorecardTags is empty, the configured targets are selected from the catalog.
// Names that resolve to no catalog service are skipped.
func (c *Client) ResolveScorecardsForServices(ctx context.Context, names []string, scorecardTags ...string) (*domain.ScorecardIndex, error) {
	logger := ctxlog.FromContext(ctx)
	index := domain.NewScorecardIndex()

	services, err := c.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve scorecards: %w", err)
	}

	if len(scorecardTags) == 0 {
		scorecards, err := c.ListScorecards(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve scorecards: %w", err)
		}
		scorecardTags = c.SelectTargetScorecards(scorecards)
		if len(scorecardTags) == 0 {
			logger.Warn("no target scorecards found in catalog")
			return index, nil
		}
	}

	lookup := newServiceLookup(services)

	var resolved []string
	seen := make(map[string]struct{})
	for _, name := range names {
		tag, ok := lookup.resolve(name)
		if !ok {
			logger.Debug("service not found in catalog", "service", name)
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		resolved = append(resolved, tag)
	}

	for _, tag := range resolved {
		for _, scorecardTag := range scorecardTags {
			sc, err := c.GetServiceScorecard(ctx, tag, scorecardTag)
			if err != nil {
				return nil, fmt.Errorf("resolve scorecards: %w", err)
			}
			if sc != nil {
				index.Add(*sc)
			}
		}
	}

	logger.Info("resolved scorecards",
		"services", len(names),
		"matched", len(resolved),
		"scorecards", index.Len(),
	)

	return index, nil
}

// serviceLookup maps lower-cased titles and tags to catalog tags.
// Keys keep their first insertion position; a later insert of the same key
// replaces the value only.
type serviceLookup struct {
	keys  []string
	value map[string]string
}

func newServiceLookup(services []domain.CatalogService) *serviceLookup {
	l := &serviceLookup{value: make(map[string]string, 2*len(services))}
	for _, s := range services {
		l.set(strings.ToLower(s.Title), s.Tag)
	}
	for _, s := range services {
		l.set(strings.ToLower(s.Tag), s.Tag)
	}
	return l
}

func (l *serviceLookup) set(key, tag string) {
	if _, ok := l.value[key]; !ok {
		l.keys = append(l.keys, key)
	}
	l.value[key] = tag
}

// resolve returns the tag of the first key in either containment relation with name.
func (l *serviceLookup) resolve(name string) (string, bool) {
	for _, key := range l.keys {
		if textmatch.ContainsEither(name, key) {
			return l.value[key], true
		}
	}
	return "", false
}
