package report

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bissquit/scorecard-report/internal/domain"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Default display limits.
const (
	DefaultMaxServices     = 15
	DefaultMaxFailingRules = 5
)

// DefaultDisplayNames maps scorecard tags to their display names.
var DefaultDisplayNames = map[string]string{
	"operational-readiness": "Operational Readiness",
	"security":              "Security",
}

// RendererConfig controls how much of a report is printed.
type RendererConfig struct {
	MaxServices     int
	MaxFailingRules int
	// DisplayNames maps scorecard tags to display names. Unmapped tags are title-cased.
	DisplayNames map[string]string
}

// Renderer formats reports as human-readable text.
type Renderer struct {
	config RendererConfig
	tmpl   *template.Template
}

// NewRenderer creates a renderer and parses the summary template.
func NewRenderer(config RendererConfig) (*Renderer, error) {
	if config.MaxServices <= 0 {
		config.MaxServices = DefaultMaxServices
	}
	if config.MaxFailingRules <= 0 {
		config.MaxFailingRules = DefaultMaxFailingRules
	}
	if config.DisplayNames == nil {
		config.DisplayNames = DefaultDisplayNames
	}

	funcMap := template.FuncMap{
		"date":   formatDate,
		"score":  formatScore,
		"rank":   formatRank,
		"repeat": strings.Repeat,
	}

	tmpl, err := template.New("summary.tmpl").Funcs(funcMap).ParseFS(templatesFS, "templates/summary.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse summary template: %w", err)
	}

	return &Renderer{config: config, tmpl: tmpl}, nil
}

// Render returns the report as text.
func (r *Renderer) Render(report *domain.IncidentReport) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderTo(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderTo writes the report as text to w.
func (r *Renderer) RenderTo(w io.Writer, report *domain.IncidentReport) error {
	if err := r.tmpl.Execute(w, r.view(report)); err != nil {
		return fmt.Errorf("execute summary template: %w", err)
	}
	return nil
}

type reportView struct {
	PeriodStart      time.Time
	PeriodEnd        time.Time
	TotalIncidents   int
	ImpactedServices int
	Services         []serviceView
	Remaining        int
}

type serviceView struct {
	Rank          int
	Name          string
	IncidentCount int
	Scorecards    []scorecardView
}

type scorecardView struct {
	Name         string
	Summary      string
	FailingRules []failingRuleView
}

type failingRuleView struct {
	Title string
	Score float64
}

func (r *Renderer) view(report *domain.IncidentReport) reportView {
	v := reportView{
		PeriodStart:      report.PeriodStart,
		PeriodEnd:        report.PeriodEnd,
		TotalIncidents:   report.TotalIncidents,
		ImpactedServices: len(report.ImpactedServices),
	}

	shown := report.ImpactedServices
	if len(shown) > r.config.MaxServices {
		v.Remaining = len(shown) - r.config.MaxServices
		shown = shown[:r.config.MaxServices]
	}

	for i := range shown {
		svc := serviceView{
			Rank:          i + 1,
			Name:          shown[i].ServiceName,
			IncidentCount: shown[i].IncidentCount,
		}
		for j := range shown[i].Scorecards {
			svc.Scorecards = append(svc.Scorecards, r.scorecardView(&shown[i].Scorecards[j]))
		}
		v.Services = append(v.Services, svc)
	}

	return v
}

func (r *Renderer) scorecardView(sc *domain.ServiceScorecard) scorecardView {
	var parts []string
	if sc.TotalScore != nil {
		parts = append(parts, "Score: "+formatScore(*sc.TotalScore))
	}
	if sc.CurrentLevel != "" {
		parts = append(parts, "Level: "+sc.CurrentLevel)
	}
	summary := strings.Join(parts, " | ")
	if summary == "" {
		summary = "No score/level data"
	}

	view := scorecardView{
		Name:    r.displayName(sc.ScorecardTag),
		Summary: summary,
	}

	failing := sc.FailingScores()
	if len(failing) > r.config.MaxFailingRules {
		failing = failing[:r.config.MaxFailingRules]
	}
	for _, s := range failing {
		view.FailingRules = append(view.FailingRules, failingRuleView{
			Title: s.Rule.Title,
			Score: *s.Score,
		})
	}

	return view
}

var titleCaser = cases.Title(language.English)

func (r *Renderer) displayName(tag string) string {
	if name, ok := r.config.DisplayNames[tag]; ok {
		return name
	}
	return titleCaser.String(strings.ReplaceAll(tag, "-", " "))
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func formatRank(n int) string {
	return fmt.Sprintf("%2d", n)
}
