package devserver

import (
	"log/slog"
	"net/http"
	"time"
)

// AuditEvent identifies the type of auth action being logged.
type AuditEvent string

const (
	AuditLoginSuccess     AuditEvent = "login_success"
	AuditLoginFailure     AuditEvent = "login_failure"
	AuditLoginRateLimited AuditEvent = "login_rate_limited"
	AuditRegister         AuditEvent = "register"
	AuditRefresh          AuditEvent = "refresh"
	AuditRefreshFailure   AuditEvent = "refresh_failure"
	AuditLogout           AuditEvent = "logout"
	AuditLogoutAll        AuditEvent = "logout_all"
)

// auditLogger wraps slog.Logger for structured auth audit logging. Tokens
// and passwords are never passed to it.
type auditLogger struct {
	logger  *slog.Logger
	metrics *metricsCollector
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	base := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("request_id", r.Header.Get("X-Request-ID")),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", append(base, attrs...)...)
	al.metrics.recordEvent(event)
}

func (al *auditLogger) logEvent(event AuditEvent, r *http.Request, userID string, extra ...slog.Attr) {
	al.log(event, r, append([]slog.Attr{slog.String("user_id", userID)}, extra...)...)
}

func (al *auditLogger) logFailure(event AuditEvent, r *http.Request, reason string, extra ...slog.Attr) {
	al.log(event, r, append([]slog.Attr{slog.String("reason", reason)}, extra...)...)
}
