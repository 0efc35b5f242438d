package metrics

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// numeric path segments are collapsed so label cardinality stays bounded
	idSegmentPattern = regexp.MustCompile(`/[0-9]+(/|$)`)
)

// RecordExternalAPICall records external API call metrics
func (m *Metrics) RecordExternalAPICall(endpoint, method string, statusCode int, duration time.Duration, err error) {
	m.safeExecute("RecordExternalAPICall", func() {
		endpoint = normalizeEndpoint(endpoint)
		status := strconv.Itoa(statusCode)

		m.ExternalAPIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
		m.ExternalAPIRequestDuration.WithLabelValues(endpoint, status).Observe(duration.Seconds())

		if err != nil || statusCode >= 400 {
			m.ExternalAPIErrors.WithLabelValues(endpoint, getErrorType(statusCode, err)).Inc()
		}
	})
}

// normalizeEndpoint converts numeric ids to a template
// Example: /api/users/42/notifications -> /api/users/{id}/notifications
func normalizeEndpoint(endpoint string) string {
	for idSegmentPattern.MatchString(endpoint) {
		endpoint = idSegmentPattern.ReplaceAllString(endpoint, "/{id}$1")
	}
	return endpoint
}

var statusErrorTypes = map[int]string{
	400: "bad_request",
	401: "unauthorized",
	403: "forbidden",
	404: "not_found",
	408: "request_timeout",
	429: "too_many_requests",
	502: "bad_gateway",
	503: "service_unavailable",
	504: "gateway_timeout",
}

var transportErrorTypes = []struct {
	needles []string
	label   string
}{
	{[]string{"connection refused"}, "connection_refused"},
	{[]string{"no such host"}, "dns_error"},
	{[]string{"timeout", "deadline exceeded"}, "timeout"},
	{[]string{"EOF", "connection reset"}, "connection_reset"},
	{[]string{"TLS", "certificate"}, "tls_error"},
}

// getErrorType labels a failed call by status code, or by transport error when no response arrived
func getErrorType(statusCode int, err error) string {
	if label, ok := statusErrorTypes[statusCode]; ok {
		return label
	}
	switch {
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500 && statusCode < 600:
		return "server_error"
	}

	if err == nil {
		return "unknown"
	}
	msg := err.Error()
	for _, t := range transportErrorTypes {
		for _, needle := range t.needles {
			if strings.Contains(msg, needle) {
				return t.label
			}
		}
	}
	return "network_error"
}
