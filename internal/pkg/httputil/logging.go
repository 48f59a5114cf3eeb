package httputil

import (
	"net/http"
	"time"

	"github.com/bissquit/scorecard-report/internal/pkg/ctxlog"
)

// LogRequests wraps next and logs every outbound request at debug level
// with the logger carried by the request context.
func LogRequests(api string, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		start := time.Now()
		logger := ctxlog.FromContext(req.Context())

		resp, err := next.RoundTrip(req)
		if err != nil {
			logger.Debug("api request failed",
				"api", api,
				"method", req.Method,
				"path", req.URL.Path,
				"duration_ms", time.Since(start).Milliseconds(),
				"error", err,
			)
			return nil, err
		}

		logger.Debug("api request",
			"api", api,
			"method", req.Method,
			"path", req.URL.Path,
			"status", resp.StatusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return resp, nil
	})
}
