package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// The panel serves three probe endpoints beside /metrics: /health
// reports every registered component, /ready gates on the critical
// set, and /live only proves the process is up.

// criticalComponents must all be registered and healthy before the
// panel reports ready. Everything else degrades /health without
// blocking /ready.
var criticalComponents = []string{"store", "monitor", "scheduler"}

type componentState struct {
	healthy bool
	message string
	updated time.Time
}

type healthRegistry struct {
	mu         sync.RWMutex
	components map[string]componentState
	started    time.Time
	version    string
}

var panelHealth = &healthRegistry{
	components: make(map[string]componentState),
	started:    time.Now(),
}

// HealthStatus is the JSON body of /health and /ready.
type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
	Message    string            `json:"message,omitempty"`
	Version    string            `json:"version,omitempty"`
	Uptime     string            `json:"uptime,omitempty"`
}

// SetVersion records the panel version reported by the probe
// endpoints.
func SetVersion(version string) {
	panelHealth.mu.Lock()
	defer panelHealth.mu.Unlock()
	panelHealth.version = version
}

// RegisterComponent records a component's health. Calling it again
// for the same name overwrites the previous report, so components
// keep their entry current by re-registering.
func RegisterComponent(name string, healthy bool, message string) {
	panelHealth.mu.Lock()
	defer panelHealth.mu.Unlock()
	panelHealth.components[name] = componentState{
		healthy: healthy,
		message: message,
		updated: time.Now(),
	}
}

func (r *healthRegistry) snapshot(status string) HealthStatus {
	return HealthStatus{
		Status:    status,
		Timestamp: time.Now(),
		Version:   r.version,
		Uptime:    time.Since(r.started).String(),
	}
}

// GetHealth reports every registered component. One unhealthy
// component makes the whole panel unhealthy.
func GetHealth() HealthStatus {
	panelHealth.mu.RLock()
	defer panelHealth.mu.RUnlock()

	out := panelHealth.snapshot("healthy")
	out.Components = make(map[string]string, len(panelHealth.components))
	for name, comp := range panelHealth.components {
		if comp.healthy {
			out.Components[name] = "healthy"
			continue
		}
		out.Status = "unhealthy"
		out.Components[name] = "unhealthy: " + comp.message
	}
	return out
}

// GetReadiness checks the critical components only. A component that
// has not registered yet counts as not ready, so the panel stays out
// of rotation until the store, monitor and scheduler are all up.
func GetReadiness() HealthStatus {
	panelHealth.mu.RLock()
	defer panelHealth.mu.RUnlock()

	out := panelHealth.snapshot("ready")
	out.Components = make(map[string]string, len(criticalComponents))
	for _, name := range criticalComponents {
		comp, ok := panelHealth.components[name]
		switch {
		case !ok:
			out.Components[name] = "not registered"
			out.Status = "not_ready"
			out.Message = "waiting for " + name + " initialization"
		case !comp.healthy:
			out.Components[name] = "not ready: " + comp.message
			out.Status = "not_ready"
			out.Message = "waiting for " + name
		default:
			out.Components[name] = "ready"
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// HealthHandler serves /health.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := GetHealth()
		code := http.StatusOK
		if health.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, health)
	}
}

// ReadyHandler serves /ready.
func ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		readiness := GetReadiness()
		code := http.StatusOK
		if readiness.Status != "ready" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, readiness)
	}
}

// LivenessHandler serves /live. It answers 200 whenever the process
// can still serve HTTP.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		panelHealth.mu.RLock()
		uptime := time.Since(panelHealth.started).String()
		panelHealth.mu.RUnlock()
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "alive",
			"uptime": uptime,
		})
	}
}
