package health

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPChecker probes a node agent's status endpoint. It is stricter
// than the TCP checker: the agent must not only accept the connection
// but answer the request with an acceptable status code.
type HTTPChecker struct {
	// URL of the agent's status endpoint, e.g.
	// "http://10.0.0.5:62051/status".
	URL string

	// APIKey, when set, is sent as a bearer token. Node agents reject
	// unauthenticated status requests once enrolled.
	APIKey string

	// OKFrom and OKTo bound the status codes counted as healthy,
	// inclusive on both ends.
	OKFrom, OKTo int

	// Client performs the request. Replace it to tune timeouts or
	// TLS settings.
	Client *http.Client
}

// NewHTTPChecker returns a checker for the given status endpoint,
// accepting any 2xx or 3xx response.
func NewHTTPChecker(url string) *HTTPChecker {
	return &HTTPChecker{
		URL:    url,
		OKFrom: http.StatusOK,
		OKTo:   399,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithAPIKey sets the bearer token sent with each probe.
func (h *HTTPChecker) WithAPIKey(key string) *HTTPChecker {
	h.APIKey = key
	return h
}

// WithStatusRange narrows the status codes counted as healthy.
func (h *HTTPChecker) WithStatusRange(from, to int) *HTTPChecker {
	h.OKFrom, h.OKTo = from, to
	return h
}

// WithTimeout sets the request timeout.
func (h *HTTPChecker) WithTimeout(timeout time.Duration) *HTTPChecker {
	h.Client.Timeout = timeout
	return h
}

// Check issues one GET against the status endpoint.
func (h *HTTPChecker) Check(ctx context.Context) Result {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return h.failed(start, fmt.Sprintf("bad status URL: %v", err))
	}
	if h.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.APIKey)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return h.failed(start, fmt.Sprintf("status request failed: %v", err))
	}
	resp.Body.Close()

	if resp.StatusCode < h.OKFrom || resp.StatusCode > h.OKTo {
		return h.failed(start, fmt.Sprintf("agent returned HTTP %d, want %d-%d",
			resp.StatusCode, h.OKFrom, h.OKTo))
	}

	return Result{
		Healthy:   true,
		Message:   fmt.Sprintf("agent returned HTTP %d", resp.StatusCode),
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

func (h *HTTPChecker) failed(start time.Time, message string) Result {
	return Result{
		Healthy:   false,
		Message:   message,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

func (h *HTTPChecker) Type() CheckType {
	return CheckTypeHTTP
}
