package httputil

import (
	"net/http"
	"strconv"
	"time"

	"github.com/bissquit/scorecard-report/internal/pkg/metrics"
)

// Instrument wraps next and records request latency labelled by API, method and status.
// Transport errors are recorded with status_code "error".
func Instrument(api string, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		start := time.Now()

		resp, err := next.RoundTrip(req)

		status := "error"
		if err == nil {
			status = strconv.Itoa(resp.StatusCode)
		}

		metrics.APIRequestDuration.WithLabelValues(
			api,
			req.Method,
			status,
		).Observe(time.Since(start).Seconds())

		return resp, err
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
