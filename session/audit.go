package session

import (
	"context"
	"log/slog"
	"time"
)

// Event identifies a session lifecycle transition in the audit log.
type Event string

const (
	EventLogin          Event = "login"
	EventLoginFailure   Event = "login_failure"
	EventRegister       Event = "register"
	EventLogout         Event = "logout"
	EventLogoutAll      Event = "logout_all"
	EventRestore        Event = "restore"
	EventRestoreCorrupt Event = "restore_corrupt"
	EventExpired        Event = "session_expired"
)

// auditLogger writes one structured line per lifecycle event. Tokens and
// passwords are never passed to it.
type auditLogger struct {
	logger  *slog.Logger
	profile string
}

func newAuditLogger(logger *slog.Logger, profile string) *auditLogger {
	return &auditLogger{logger: logger.With("component", "session"), profile: profile}
}

func (al *auditLogger) log(ctx context.Context, level slog.Level, event Event, attrs ...slog.Attr) {
	base := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("profile", al.profile),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	al.logger.LogAttrs(ctx, level, "audit", append(base, attrs...)...)
}

func (al *auditLogger) event(ctx context.Context, event Event, userID string, extra ...slog.Attr) {
	al.log(ctx, slog.LevelInfo, event, append([]slog.Attr{slog.String("user_id", userID)}, extra...)...)
}

func (al *auditLogger) failure(ctx context.Context, event Event, err error, extra ...slog.Attr) {
	al.log(ctx, slog.LevelWarn, event, append([]slog.Attr{slog.String("reason", err.Error())}, extra...)...)
}
