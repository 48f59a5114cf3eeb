package incidentio

import "errors"

// Configuration errors.
var (
	ErrMissingToken        = errors.New("incident.io: API token is required")
	ErrMissingServiceField = errors.New("incident.io: service custom field ID is required")
)
