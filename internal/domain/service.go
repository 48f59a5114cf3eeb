package domain

// CatalogService is a service registered in the service catalog.
type CatalogService struct {
	Tag     string `json:"tag"`
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
}

// Scorecard describes a scorecard defined in the catalog.
type Scorecard struct {
	Tag         string `json:"tag"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ScorecardRule is a single rule of a scorecard.
type ScorecardRule struct {
	Identifier  string `json:"identifier,omitempty"`
	Expression  string `json:"expression"`
	Level       string `json:"level"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Weight      *int   `json:"weight,omitempty"`
}

// ScorecardScore is the evaluation of one rule for one service.
type ScorecardScore struct {
	Rule  ScorecardRule `json:"rule"`
	Score *float64      `json:"score,omitempty"`
	Level string        `json:"level,omitempty"`
}

// IsFailing returns true if the rule was evaluated and did not fully pass.
func (s ScorecardScore) IsFailing() bool {
	return s.Score != nil && *s.Score < 1.0
}

// ServiceScorecard is the evaluation of a scorecard for a single service.
type ServiceScorecard struct {
	ServiceTag   string           `json:"service_tag"`
	ScorecardTag string           `json:"scorecard_tag"`
	Scores       []ScorecardScore `json:"scores"`
	TotalScore   *float64         `json:"total_score,omitempty"`
	CurrentLevel string           `json:"current_level,omitempty"`
}

// FailingScores returns the failing rule scores in their original order.
func (s *ServiceScorecard) FailingScores() []ScorecardScore {
	var failing []ScorecardScore
	for _, score := range s.Scores {
		if score.IsFailing() {
			failing = append(failing, score)
		}
	}
	return failing
}

// ScorecardIndex maps service tags to their scorecards.
// Tags are kept in insertion order because matching takes the first hit.
type ScorecardIndex struct {
	tags  []string
	byTag map[string][]ServiceScorecard
}

// NewScorecardIndex creates an empty index.
func NewScorecardIndex() *ScorecardIndex {
	return &ScorecardIndex{byTag: make(map[string][]ServiceScorecard)}
}

// Add appends a scorecard under its service tag.
func (x *ScorecardIndex) Add(sc ServiceScorecard) {
	if _, ok := x.byTag[sc.ServiceTag]; !ok {
		x.tags = append(x.tags, sc.ServiceTag)
	}
	x.byTag[sc.ServiceTag] = append(x.byTag[sc.ServiceTag], sc)
}

// Get returns the scorecards stored for tag.
func (x *ScorecardIndex) Get(tag string) []ServiceScorecard {
	if x == nil {
		return nil
	}
	return x.byTag[tag]
}

// Tags returns the service tags in insertion order.
func (x *ScorecardIndex) Tags() []string {
	if x == nil {
		return nil
	}
	tags := make([]string, len(x.tags))
	copy(tags, x.tags)
	return tags
}

// Len returns the number of service tags in the index.
func (x *ScorecardIndex) Len() int {
	if x == nil {
		return 0
	}
	return len(x.tags)
}
