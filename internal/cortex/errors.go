package cortex

import "errors"

// ErrMissingToken is returned when no API token is configured.
var ErrMissingToken = errors.New("cortex: API token is required")
