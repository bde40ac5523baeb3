package panel

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jmcleod/visaexpress/apiclient"
	"github.com/jmcleod/visaexpress/gate"
)

// AlertType identifies the kind of anomaly detected.
type AlertType string

const (
	AlertLoginFailureSpike AlertType = "login_failure_spike"
	AlertBackendErrorSpike AlertType = "backend_error_spike"
)

// AlertEvent describes an anomaly that triggered an alert.
type AlertEvent struct {
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	Threshold int       `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertFunc is the callback invoked when an anomaly is detected.
type AlertFunc func(AlertEvent)

const (
	defaultLoginFailureWindow    = 1 * time.Minute
	defaultLoginFailureThreshold = 50
	defaultBackendErrorWindow    = 1 * time.Minute
	defaultBackendErrorThreshold = 20
)

// metricsCollector exports Prometheus counters for navigation decisions,
// backend calls and audit events, and tracks sliding windows for anomaly
// alerts.
type metricsCollector struct {
	decisions *prometheus.CounterVec
	backend   *prometheus.CounterVec
	events    *prometheus.CounterVec

	mu sync.Mutex

	loginFailures  []time.Time
	loginWindow    time.Duration
	loginThreshold int

	backendErrors    []time.Time
	backendWindow    time.Duration
	backendThreshold int

	alertFn AlertFunc
	now     func() time.Time
}

func newMetricsCollector(reg prometheus.Registerer, alertFn AlertFunc) *metricsCollector {
	m := &metricsCollector{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visaexpress",
			Name:      "gate_decisions_total",
			Help:      "Navigation gate decisions by outcome.",
		}, []string{"outcome"}),
		backend: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visaexpress",
			Name:      "backend_requests_total",
			Help:      "Backend API requests by method, path and status code.",
		}, []string{"method", "path", "status"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visaexpress",
			Name:      "audit_events_total",
			Help:      "Audit events by type.",
		}, []string{"event"}),
		loginWindow:      defaultLoginFailureWindow,
		loginThreshold:   defaultLoginFailureThreshold,
		backendWindow:    defaultBackendErrorWindow,
		backendThreshold: defaultBackendErrorThreshold,
		alertFn:          alertFn,
		now:              time.Now,
	}
	if reg != nil {
		reg.MustRegister(m.decisions, m.backend, m.events)
	}
	return m
}

func (m *metricsCollector) observeDecision(_ gate.Intent, d gate.Decision) {
	m.decisions.WithLabelValues(d.Outcome.String()).Inc()
}

func (m *metricsCollector) observeBackend(method, path string, status int, err error) {
	m.backend.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	if err == nil {
		return
	}
	var se *apiclient.StatusError
	if errors.As(err, &se) && se.StatusCode < 500 {
		return
	}
	m.recordWindow(&m.backendErrors, m.backendWindow, m.backendThreshold,
		AlertBackendErrorSpike, "backend error rate exceeds threshold")
}

// recordEvent counts an audit event and updates the relevant window.
func (m *metricsCollector) recordEvent(event AuditEvent) {
	m.events.WithLabelValues(string(event)).Inc()
	if event == AuditLoginFailure {
		m.recordWindow(&m.loginFailures, m.loginWindow, m.loginThreshold,
			AlertLoginFailureSpike, "login failure rate exceeds threshold")
	}
}

func (m *metricsCollector) recordWindow(times *[]time.Time, window time.Duration, threshold int, typ AlertType, msg string) {
	if m.alertFn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	*times = trimWindow(append(*times, now), now, window)

	if len(*times) >= threshold {
		m.alertFn(AlertEvent{
			Type:      typ,
			Message:   msg,
			Count:     len(*times),
			Threshold: threshold,
			Timestamp: now,
		})
		// Reset to avoid repeated alerts within the same spike.
		*times = (*times)[:0]
	}
}

// trimWindow removes entries older than (now - window) from the sorted slice.
func trimWindow(times []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	start := 0
	for start < len(times) && times[start].Before(cutoff) {
		start++
	}
	return times[start:]
}
