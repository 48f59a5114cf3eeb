package domain

import "time"

// Visibility controls who can see an incident.
type Visibility string

// Incident visibilities.
const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Severity is the severity level assigned to an incident.
type Severity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

// UnknownSeverity is used when the source payload carries no usable severity.
func UnknownSeverity() Severity {
	return Severity{ID: "unknown", Name: "Unknown", Rank: 0}
}

// Status is the lifecycle status of an incident.
type Status struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// UnknownStatus is used when the source payload carries no usable status.
func UnknownStatus() Status {
	return Status{ID: "unknown", Name: "Unknown", Category: "unknown"}
}

// AffectedService is a service listed on an incident.
type AffectedService struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Summary string `json:"summary,omitempty"`
}

// Incident is an incident normalized from the incident management API.
// ResolvedAt, when set, is never before CreatedAt, and UpdatedAt is never before CreatedAt.
type Incident struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Summary     string            `json:"summary,omitempty"`
	Description string            `json:"description,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	ResolvedAt  *time.Time        `json:"resolved_at,omitempty"`
	Severity    Severity          `json:"severity"`
	Status      Status            `json:"status"`
	Services    []AffectedService `json:"services"`
	Visibility  Visibility        `json:"visibility"`
}

// IsPublic returns true if the incident is visible on the public status page.
func (i *Incident) IsPublic() bool {
	return i.Visibility == VisibilityPublic
}

// IsResolved returns true if the incident has a resolution timestamp.
func (i *Incident) IsResolved() bool {
	return i.ResolvedAt != nil
}

// Window is a closed time interval used to query incidents.
type Window struct {
	Start time.Time
	End   time.Time
}

// LookbackWindow returns the window [now - days, now].
func LookbackWindow(now time.Time, days int) Window {
	return Window{
		Start: now.AddDate(0, 0, -days),
		End:   now,
	}
}
