package api

import (
	"context"
	"net/http"
	"strings"
)

type contextKey int

const identityKey contextKey = iota

// TokenType says which validator accepted the request's bearer token.
type TokenType int

const (
	// TokenUnresolved means there was no token or neither validator accepted it.
	TokenUnresolved TokenType = iota
	TokenUser
	TokenDevice
)

func (t TokenType) String() string {
	switch t {
	case TokenUser:
		return "user"
	case TokenDevice:
		return "device"
	default:
		return "unresolved"
	}
}

// Identity is the caller as resolved from the bearer token. At most one of
// the user and device halves is populated, selected by Type.
type Identity struct {
	// Token is the raw bearer token, kept even when it did not resolve.
	Token string
	Type  TokenType

	// UserID is set when Type is TokenUser.
	UserID int64

	// PumpUID and UserUID are set when Type is TokenDevice.
	PumpUID string
	UserUID string
}

// IdentityFromContext returns the identity stored by ResolveIdentity. A
// request that never passed through the resolver yields the zero Identity.
func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey).(Identity)
	return id
}

func withIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// bearerToken returns the credential from the Authorization header. The last
// space-separated field is taken, so both "Bearer <token>" and a bare token
// are accepted.
func bearerToken(r *http.Request) string {
	fields := strings.Fields(r.Header.Get("Authorization"))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// resolve runs the validators in fixed order: a token accepted as a user
// token is never tried as a device token.
func (a *API) resolve(ctx context.Context, token string) Identity {
	if token == "" {
		return Identity{}
	}
	if userID, ok := a.users.ValidateToken(token); ok {
		return Identity{Token: token, Type: TokenUser, UserID: userID}
	}
	if binding, ok := a.devices.Validate(ctx, token); ok {
		return Identity{Token: token, Type: TokenDevice, PumpUID: binding.PumpUID, UserUID: binding.UserUID}
	}
	return Identity{Token: token}
}

// ResolveIdentity is middleware that resolves the bearer token once per
// request and stores the result on the request context. It never rejects a
// request; enforcement is left to Require.
func (a *API) ResolveIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := a.resolve(r.Context(), bearerToken(r))
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}
