package api

import (
	"log/slog"
	"net/http"
	"time"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditLoginSuccess       AuditEvent = "login_success"
	AuditLoginFailure       AuditEvent = "login_failure"
	AuditLoginRateLimited   AuditEvent = "login_rate_limited"
	AuditAccessDenied       AuditEvent = "access_denied"
	AuditPumpAuthorized     AuditEvent = "pump_authorized"
	AuditPumpRejected       AuditEvent = "pump_rejected"
	AuditPumpRateLimited    AuditEvent = "pump_rate_limited"
	AuditPumpDeauthorized   AuditEvent = "pump_deauthorized"
	AuditFuelIntake         AuditEvent = "fuel_intake"
	AuditRefuel             AuditEvent = "refuel"
	AuditStationChanged     AuditEvent = "station_changed"
	AuditTankChanged        AuditEvent = "tank_changed"
	AuditPumpChanged        AuditEvent = "pump_changed"
	AuditAdministratorCheck AuditEvent = "administrator_required"
)

// auditLogger wraps slog.Logger for structured security audit logging.
type auditLogger struct {
	logger  *slog.Logger
	metrics *metricsCollector
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

// log writes a structured audit log entry. Tokens never appear in audit
// records; callers identify subjects by user or pump id.
func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	baseAttrs = append(baseAttrs, attrs...)
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)
	if al.metrics != nil {
		al.metrics.recordEvent(event)
	}
}

// logEvent is a convenience for events attributed to a user.
func (al *auditLogger) logEvent(event AuditEvent, r *http.Request, userID int64, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.Int64("user_id", userID),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}

// logFailure logs a rejected request.
func (al *auditLogger) logFailure(event AuditEvent, r *http.Request, reason string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("reason", reason),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}
