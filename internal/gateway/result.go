package gateway

import (
	"net/http"
	"strconv"
	"time"
)

// Outcome classifies an upstream response so call sites never branch on raw
// status codes.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeNotFound
	OutcomeThrottled
	OutcomeTransient
	OutcomePermanent
)

// UpstreamResult is the tagged classification of one upstream response.
type UpstreamResult struct {
	Outcome    Outcome
	Status     int
	Payload    []byte        // Set for OutcomeSuccess
	RetryAfter time.Duration // Set for OutcomeThrottled when the header was present
}

// classify maps an HTTP response to an UpstreamResult.
// 404 is classified separately: "does not exist" is data, not a failure.
func classify(status int, header http.Header, payload []byte) UpstreamResult {
	switch {
	case status >= 200 && status < 300:
		return UpstreamResult{Outcome: OutcomeSuccess, Status: status, Payload: payload}
	case status == http.StatusNotFound:
		return UpstreamResult{Outcome: OutcomeNotFound, Status: status}
	case status == http.StatusTooManyRequests:
		return UpstreamResult{
			Outcome:    OutcomeThrottled,
			Status:     status,
			RetryAfter: parseRetryAfter(header),
		}
	case status >= 500:
		return UpstreamResult{Outcome: OutcomeTransient, Status: status}
	default:
		return UpstreamResult{Outcome: OutcomePermanent, Status: status}
	}
}

// parseRetryAfter reads a Retry-After header expressed in seconds.
// HTTP-date values are rare from quota systems and are ignored.
func parseRetryAfter(header http.Header) time.Duration {
	value := header.Get("Retry-After")
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
