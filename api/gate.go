package api

import (
	"log/slog"
	"net/http"
)

// AuthMode is the kind of caller an endpoint admits.
type AuthMode int

const (
	// ModeUser admits callers holding a valid user token.
	ModeUser AuthMode = iota + 1
	// ModeDevice admits callers holding a live device session.
	ModeDevice
)

func (m AuthMode) String() string {
	switch m {
	case ModeUser:
		return "user"
	case ModeDevice:
		return "device"
	default:
		return "unknown"
	}
}

// Policy is the access rule of one endpoint.
type Policy struct {
	Mode      AuthMode
	Anonymous bool
}

// PolicyOption adjusts a Policy.
type PolicyOption func(*Policy)

// AllowAnonymous lets every caller through, resolved or not.
func AllowAnonymous() PolicyOption {
	return func(p *Policy) {
		p.Anonymous = true
	}
}

// Check reports whether id satisfies p. The modes are exclusive: a user
// identity never passes a device endpoint and vice versa.
func Check(p Policy, id Identity) bool {
	if p.Anonymous {
		return true
	}
	switch p.Mode {
	case ModeUser:
		return id.Type == TokenUser
	case ModeDevice:
		return id.Type == TokenDevice && id.UserUID != ""
	default:
		return false
	}
}

// Require returns middleware enforcing the policy built from mode and opts.
// Rejected requests get 401 with a localized message and are logged.
func (a *API) Require(mode AuthMode, opts ...PolicyOption) func(http.Handler) http.Handler {
	p := Policy{Mode: mode}
	for _, opt := range opts {
		opt(&p)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFromContext(r.Context())
			if !Check(p, id) {
				a.logger.WarnContext(r.Context(), "unauthorized request",
					"path", r.URL.Path,
					"mode", p.Mode.String(),
					"token_type", id.Type.String(),
				)
				a.audit.logFailure(AuditAccessDenied, r, "authentication required",
					slog.String("mode", p.Mode.String()))
				writeError(w, r, http.StatusUnauthorized, msgLoginRequired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
