package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fuelflux/core/catalog"
)

// currentUser loads the user behind a user token. It writes the error
// response itself and returns nil when the user cannot be loaded.
func (a *API) currentUser(w http.ResponseWriter, r *http.Request) *catalog.User {
	id := IdentityFromContext(r.Context())
	user, err := a.catalog.User(id.UserID)
	if err != nil {
		a.mapError(w, r, err, msgUserNotFound)
		return nil
	}
	return user
}

// pairedUser loads the user and pump of a device session. A session whose
// user or pump has since disappeared is answered with 403.
func (a *API) pairedUser(w http.ResponseWriter, r *http.Request) (*catalog.User, *catalog.Pump) {
	id := IdentityFromContext(r.Context())
	user, err := a.catalog.UserByUID(id.UserUID)
	if err != nil {
		a.forbidden(w, r, err)
		return nil, nil
	}
	pump, err := a.catalog.PumpByUID(id.PumpUID)
	if err != nil {
		a.forbidden(w, r, err)
		return nil, nil
	}
	return user, pump
}

func (a *API) forbidden(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil && !isNotFound(err) {
		a.mapError(w, r, err, msgForbidden)
		return
	}
	writeError(w, r, http.StatusForbidden, msgForbidden)
}

// requireAdministrator admits only administrators. It runs after
// Require(ModeUser).
func (a *API) requireAdministrator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := a.currentUser(w, r)
		if user == nil {
			return
		}
		if !user.IsAdministrator() {
			a.audit.logEvent(AuditAdministratorCheck, r, user.ID)
			writeError(w, r, http.StatusForbidden, msgForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// pathID parses the {id} route parameter. It writes 400 and returns false
// when the parameter is not a positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, msgBadRequest)
		return 0, false
	}
	return id, true
}

func requestIsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	return strings.Contains(strings.ToLower(r.Header.Get("Forwarded")), "proto=https")
}
