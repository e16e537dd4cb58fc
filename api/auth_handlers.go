package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/fuelflux/core/catalog"
)

// dummyHash is compared against when the email is unknown so that a miss
// costs as much as a wrong password.
var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("fuelflux-dummy-password"), bcrypt.DefaultCost)
	return h
})

// Login handles POST /auth/login.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgBadRequest)
		return
	}
	email := catalog.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, msgBadRequest)
		return
	}

	if blocked, retryAfter := a.rateLimiter.check(email); blocked {
		a.audit.logFailure(AuditLoginRateLimited, r, "account locked out")
		writeRateLimited(w, r, retryAfter)
		return
	}

	user, err := a.catalog.UserByEmail(email)
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		a.mapError(w, r, err, msgInvalidLogin)
		return
	}
	hash := dummyHash()
	if user != nil {
		hash = []byte(user.PasswordHash)
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil || user == nil {
		a.rateLimiter.recordFailure(email)
		a.audit.logFailure(AuditLoginFailure, r, "invalid credentials")
		writeError(w, r, http.StatusUnauthorized, msgInvalidLogin)
		return
	}
	a.rateLimiter.recordSuccess(email)

	token, err := a.users.GenerateToken(user.ID)
	if err != nil {
		a.mapError(w, r, err, msgInternal)
		return
	}
	a.audit.logEvent(AuditLoginSuccess, r, user.ID, slog.String("role", user.Role.String()))
	writeJSON(w, http.StatusOK, LoginResponse{ID: user.ID, Token: token, RoleID: user.Role})
}

// CurrentUser handles GET /users/me.
func (a *API) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user := a.currentUser(w, r)
	if user == nil {
		return
	}
	writeJSON(w, http.StatusOK, newUserView(user))
}

// SweepRateLimits drops expired rate-limit records. It has the shape of a
// cleanup task so it can run on the same schedule as session cleanup.
func (a *API) SweepRateLimits(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return a.rateLimiter.sweep() + a.ipRateLimiter.sweep(), nil
}
