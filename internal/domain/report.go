package domain

import "time"

// ServiceImpactReport summarizes the incidents that hit one service.
type ServiceImpactReport struct {
	ServiceName   string             `json:"service_name"`
	ServiceTag    string             `json:"service_tag"`
	IncidentCount int                `json:"incident_count"`
	IncidentIDs   []string           `json:"incidents"`
	Scorecards    []ServiceScorecard `json:"scorecards"`
	// TotalScore is reserved for a cross-scorecard aggregate; each scorecard carries its own score.
	TotalScore *float64 `json:"total_score,omitempty"`
}

// HasScorecards returns true if at least one scorecard was matched.
func (r *ServiceImpactReport) HasScorecards() bool {
	return len(r.Scorecards) > 0
}

// IncidentReport is the full correlation report for one lookback window.
type IncidentReport struct {
	GeneratedAt      time.Time             `json:"report_generated_at"`
	PeriodStart      time.Time             `json:"period_start"`
	PeriodEnd        time.Time             `json:"period_end"`
	TotalIncidents   int                   `json:"total_incidents"`
	ImpactedServices []ServiceImpactReport `json:"impacted_services"`
}

// UnmatchedServices returns the number of impacted services without any scorecard.
func (r *IncidentReport) UnmatchedServices() int {
	n := 0
	for i := range r.ImpactedServices {
		if !r.ImpactedServices[i].HasScorecards() {
			n++
		}
	}
	return n
}
