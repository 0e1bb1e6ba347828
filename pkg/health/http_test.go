package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusEndpoint(t *testing.T, code int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHTTPChecker_HealthyAgent(t *testing.T) {
	server := statusEndpoint(t, http.StatusOK)

	result := NewHTTPChecker(server.URL).Check(context.Background())
	assert.True(t, result.Healthy)
	assert.Contains(t, result.Message, "HTTP 200")
	assert.False(t, result.CheckedAt.IsZero())
	assert.Greater(t, result.Duration, time.Duration(0))
}

func TestHTTPChecker_AgentError(t *testing.T) {
	server := statusEndpoint(t, http.StatusInternalServerError)

	result := NewHTTPChecker(server.URL).Check(context.Background())
	assert.False(t, result.Healthy)
	assert.Contains(t, result.Message, "HTTP 500")
}

func TestHTTPChecker_StatusRange(t *testing.T) {
	server := statusEndpoint(t, http.StatusFound)

	// Redirects pass by default but not under a narrowed range.
	result := NewHTTPChecker(server.URL).Check(context.Background())
	assert.True(t, result.Healthy)

	result = NewHTTPChecker(server.URL).WithStatusRange(200, 299).Check(context.Background())
	assert.False(t, result.Healthy)
	assert.Contains(t, result.Message, "want 200-299")
}

func TestHTTPChecker_SendsAPIKey(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		if got == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	result := NewHTTPChecker(server.URL).WithAPIKey("node-key-123").Check(context.Background())
	require.True(t, result.Healthy, result.Message)
	assert.Equal(t, "Bearer node-key-123", got)

	// An enrolled agent rejects probes without the key.
	result = NewHTTPChecker(server.URL).Check(context.Background())
	assert.False(t, result.Healthy)
}

func TestHTTPChecker_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	result := NewHTTPChecker(server.URL).WithTimeout(20 * time.Millisecond).Check(context.Background())
	assert.False(t, result.Healthy)
}

func TestHTTPChecker_ContextCancelled(t *testing.T) {
	server := statusEndpoint(t, http.StatusOK)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewHTTPChecker(server.URL).Check(ctx)
	assert.False(t, result.Healthy)
}

func TestHTTPChecker_Type(t *testing.T) {
	assert.Equal(t, CheckTypeHTTP, NewHTTPChecker("http://10.0.0.5:62051/status").Type())
}
