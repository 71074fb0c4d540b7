package devserver

import (
	"sync"
	"time"
)

// AlertType identifies the kind of anomaly detected.
type AlertType string

const (
	AlertLoginFailureSpike AlertType = "login_failure_spike"
	// AlertRefreshStorm fires when refresh calls cluster in a short window,
	// the signature of a client that refreshes once per failed request
	// instead of once per session.
	AlertRefreshStorm AlertType = "refresh_storm"
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

// slidingWindow counts events newer than window and reports when the count
// reaches threshold.
type slidingWindow struct {
	events    []time.Time
	window    time.Duration
	threshold int
}

// add records an event at now. It returns the count and true when the
// threshold is reached, resetting the window so one spike alerts once.
func (w *slidingWindow) add(now time.Time) (int, bool) {
	w.events = append(w.events, now)
	w.events = trimWindow(w.events, now, w.window)
	if len(w.events) < w.threshold {
		return 0, false
	}
	n := len(w.events)
	w.events = w.events[:0]
	return n, true
}

// metricsCollector turns audit events into anomaly alerts.
type metricsCollector struct {
	mu sync.Mutex

	loginFailures slidingWindow
	refreshes     slidingWindow

	alertFn AlertFunc
}

const (
	defaultLoginFailureWindow    = 1 * time.Minute
	defaultLoginFailureThreshold = 50
	defaultRefreshWindow         = 1 * time.Second
	defaultRefreshThreshold      = 5
)

func newMetricsCollector(alertFn AlertFunc) *metricsCollector {
	return &metricsCollector{
		loginFailures: slidingWindow{window: defaultLoginFailureWindow, threshold: defaultLoginFailureThreshold},
		refreshes:     slidingWindow{window: defaultRefreshWindow, threshold: defaultRefreshThreshold},
		alertFn:       alertFn,
	}
}

// recordEvent inspects an audit event and updates the relevant counters.
func (m *metricsCollector) recordEvent(event AuditEvent) {
	if m == nil || m.alertFn == nil {
		return
	}
	switch event {
	case AuditLoginFailure:
		m.record(&m.loginFailures, AlertLoginFailureSpike, "login failure rate exceeds threshold")
	case AuditRefresh, AuditRefreshFailure:
		m.record(&m.refreshes, AlertRefreshStorm, "refresh rate exceeds threshold")
	}
}

func (m *metricsCollector) record(w *slidingWindow, typ AlertType, msg string) {
	m.mu.Lock()
	now := time.Now()
	n, fire := w.add(now)
	threshold := w.threshold
	m.mu.Unlock()

	if fire {
		m.alertFn(AlertEvent{
			Type:      typ,
			Message:   msg,
			Count:     n,
			Threshold: threshold,
			Timestamp: now,
		})
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
