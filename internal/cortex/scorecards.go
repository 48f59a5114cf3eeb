package cortex

import (
	"context"
	"fmt"
	"net/url"

	"github.com/bissquit/scorecard-report/internal/domain"
	"github.com/bissquit/scorecard-report/internal/pkg/ctxlog"
	"github.com/bissquit/scorecard-report/internal/pkg/httputil"
)

type scorecardsResponse struct {
	Scorecards []struct {
		Tag         string `json:"tag"`
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"scorecards"`
}

type scorecardResponse struct {
	Scorecard struct {
		Tag   string    `json:"tag"`
		Name  string    `json:"name"`
		Rules []rawRule `json:"rules"`
	} `json:"scorecard"`
}

type rawRule struct {
	Identifier  string `json:"identifier"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Weight      *int   `json:"weight"`
}

type scoresResponse struct {
	ServiceScores []rawServiceScore `json:"serviceScores"`
}

type rawServiceScore struct {
	Service struct {
		Tag         string `json:"tag"`
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"service"`
	Score struct {
		Rules []struct {
			Identifier string   `json:"identifier"`
			Expression string   `json:"expression"`
			Score      *float64 `json:"score"`
		} `json:"rules"`
		Summary struct {
			Score *float64 `json:"score"`
		} `json:"summary"`
		LadderLevels []struct {
			Level *struct {
				Name string `json:"name"`
			} `json:"level"`
		} `json:"ladderLevels"`
	} `json:"score"`
}

// ruleInfo is the display metadata of a rule, keyed by rule identifier.
type ruleInfo struct {
	Title       string
	Description string
	Weight      *int
}

// ListScorecards returns all scorecards defined in the catalog.
func (c *Client) ListScorecards(ctx context.Context) ([]domain.Scorecard, error) {
	var resp scorecardsResponse
	if err := c.get(ctx, "list scorecards", "/scorecards", nil, &resp); err != nil {
		return nil, err
	}

	scorecards := make([]domain.Scorecard, 0, len(resp.Scorecards))
	for _, sc := range resp.Scorecards {
		scorecards = append(scorecards, domain.Scorecard{
			Tag:         sc.Tag,
			Name:        sc.Name,
			Description: sc.Description,
		})
	}
	return scorecards, nil
}

// ListServices returns the catalog services evaluated by the first scorecard.
// Services are unique by tag; the first occurrence wins.
func (c *Client) ListServices(ctx context.Context) ([]domain.CatalogService, error) {
	scorecards, err := c.ListScorecards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	if len(scorecards) == 0 {
		return []domain.CatalogService{}, nil
	}

	var resp scoresResponse
	err = c.get(ctx, "list scorecard scores",
		scorecardPath(scorecards[0].Tag)+"/scores",
		pageSizeQuery(c.config.ServicesPageSize),
		&resp,
	)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	seen := make(map[string]struct{}, len(resp.ServiceScores))
	services := make([]domain.CatalogService, 0, len(resp.ServiceScores))
	for _, ss := range resp.ServiceScores {
		tag := ss.Service.Tag
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}

		title := ss.Service.Name
		if title == "" {
			title = tag
		}
		services = append(services, domain.CatalogService{
			Tag:     tag,
			Title:   title,
			Summary: ss.Service.Description,
		})
	}

	ctxlog.FromContext(ctx).Debug("listed catalog services", "count", len(services))

	return services, nil
}

// GetServiceScorecard returns the evaluation of scorecardTag for serviceTag.
// Returns nil without error when either the scorecard or the service evaluation does not exist.
func (c *Client) GetServiceScorecard(ctx context.Context, serviceTag, scorecardTag string) (*domain.ServiceScorecard, error) {
	logger := ctxlog.FromContext(ctx)

	rules, err := c.ruleDefinitions(ctx, scorecardTag)
	if err != nil {
		if httputil.IsNotFound(err) {
			logger.Debug("scorecard not found", "scorecard", scorecardTag)
			return nil, nil
		}
		return nil, err
	}

	var resp scoresResponse
	err = c.get(ctx, "get service scorecard",
		scorecardPath(scorecardTag)+"/scores",
		url.Values{"entityTag": []string{serviceTag}},
		&resp,
	)
	if err != nil {
		if httputil.IsNotFound(err) {
			logger.Debug("service scorecard not found", "service", serviceTag, "scorecard", scorecardTag)
			return nil, nil
		}
		return nil, err
	}

	for i := range resp.ServiceScores {
		if resp.ServiceScores[i].Service.Tag == serviceTag {
			sc := parseServiceScore(serviceTag, scorecardTag, &resp.ServiceScores[i], rules)
			return &sc, nil
		}
	}

	return nil, nil
}

// ruleDefinitions returns rule metadata of a scorecard keyed by identifier.
func (c *Client) ruleDefinitions(ctx context.Context, scorecardTag string) (map[string]ruleInfo, error) {
	if c.definitions != nil {
		if rules, ok := c.definitions.Get(scorecardTag); ok {
			return rules, nil
		}
	}

	var resp scorecardResponse
	if err := c.get(ctx, "get scorecard", scorecardPath(scorecardTag), nil, &resp); err != nil {
		return nil, err
	}

	rules := make(map[string]ruleInfo, len(resp.Scorecard.Rules))
	for _, r := range resp.Scorecard.Rules {
		if r.Identifier == "" {
			continue
		}
		rules[r.Identifier] = ruleInfo{
			Title:       r.Title,
			Description: r.Description,
			Weight:      r.Weight,
		}
	}

	if c.definitions != nil {
		c.definitions.Add(scorecardTag, rules)
	}

	return rules, nil
}

func parseServiceScore(serviceTag, scorecardTag string, ss *rawServiceScore, rules map[string]ruleInfo) domain.ServiceScorecard {
	scores := make([]domain.ScorecardScore, 0, len(ss.Score.Rules))
	for _, rs := range ss.Score.Rules {
		info := rules[rs.Identifier]
		title := info.Title
		if title == "" {
			title = rs.Identifier
		}

		scores = append(scores, domain.ScorecardScore{
			Rule: domain.ScorecardRule{
				Identifier:  rs.Identifier,
				Expression:  rs.Expression,
				Title:       title,
				Description: info.Description,
				Weight:      info.Weight,
			},
			Score: rs.Score,
		})
	}

	var level string
	for _, l := range ss.Score.LadderLevels {
		if l.Level != nil {
			level = l.Level.Name
			break
		}
	}

	return domain.ServiceScorecard{
		ServiceTag:   serviceTag,
		ScorecardTag: scorecardTag,
		Scores:       scores,
		TotalScore:   ss.Score.Summary.Score,
		CurrentLevel: level,
	}
}
