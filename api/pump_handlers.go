package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fuelflux/core/catalog"
)

// AuthorizePump handles POST /pump/authorize. A pump controller presents
// its UID and the UID of the user standing at it, and receives a device
// token bound to that pair together with the station's tanks.
func (a *API) AuthorizePump(w http.ResponseWriter, r *http.Request) {
	ip := a.extractClientIP(r)
	if blocked, retryAfter := a.ipRateLimiter.check(ip); blocked {
		a.audit.logFailure(AuditPumpRateLimited, r, "too many failed pairings")
		writeRateLimited(w, r, retryAfter)
		return
	}

	var req DeviceAuthorizeRequest
	if err := decodeJSON(w, r, &req); err != nil || req.PumpControllerUID == "" || req.UserUID == "" {
		writeError(w, r, http.StatusBadRequest, msgBadRequest)
		return
	}

	reject := func(reason string, err error) {
		a.ipRateLimiter.recordFailure(ip)
		a.audit.logFailure(AuditPumpRejected, r, reason)
		a.forbidden(w, r, err)
	}

	pump, tanks, err := a.catalog.PumpWithTanks(req.PumpControllerUID)
	if err != nil {
		reject("unknown pump", err)
		return
	}
	user, err := a.catalog.UserByUID(req.UserUID)
	if err != nil {
		reject("unknown user", err)
		return
	}
	if !user.Role.CanUsePump() {
		reject("role cannot use pump", nil)
		return
	}

	token, err := a.devices.Authorize(r.Context(), pump.UID, user.UID)
	if err != nil {
		a.mapError(w, r, err, msgInternal)
		return
	}
	a.ipRateLimiter.recordSuccess(ip)

	resp := DeviceAuthorizeResponse{
		Token:     token,
		RoleID:    user.Role,
		FuelTanks: make([]FuelTankItem, 0, len(tanks)),
	}
	for _, t := range tanks {
		resp.FuelTanks = append(resp.FuelTanks, FuelTankItem{Number: t.Number, Volume: t.Volume})
	}
	if user.IsCustomer() {
		price := a.fuelPrice
		resp.Allowance = user.Allowance
		resp.Price = &price
	}

	a.audit.logEvent(AuditPumpAuthorized, r, user.ID, slog.Int64("pump_id", pump.ID))
	writeJSON(w, http.StatusOK, resp)
}

// DeauthorizePump handles POST /pump/deauthorize. It ends the caller's own
// device session.
func (a *API) DeauthorizePump(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())
	if err := a.devices.Deauthorize(r.Context(), id.Token); err != nil {
		a.mapError(w, r, err, msgInternal)
		return
	}
	a.audit.log(AuditPumpDeauthorized, r, slog.String("pump_uid", id.PumpUID))
	w.WriteHeader(http.StatusNoContent)
}

// minVolume is the smallest fuel volume, in litres, a pump may report.
const minVolume = 0.01

// FuelIntake handles POST /pump/fuelintake. Operators record fuel delivered
// into one of the station's tanks.
func (a *API) FuelIntake(w http.ResponseWriter, r *http.Request) {
	var req FuelIntakeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgBadRequest)
		return
	}
	if req.TankNumber < 1 {
		writeError(w, r, http.StatusBadRequest, msgTankNumberInvalid)
		return
	}
	if req.IntakeVolume < minVolume {
		writeError(w, r, http.StatusBadRequest, msgIntakeInvalid)
		return
	}

	user, pump := a.pairedUser(w, r)
	if user == nil {
		return
	}
	if !user.IsOperator() {
		writeError(w, r, http.StatusForbidden, msgForbidden)
		return
	}

	total, err := a.catalog.FuelIntake(pump.StationID, req.TankNumber, req.IntakeVolume)
	if err != nil {
		a.mapError(w, r, err, msgTankNotFound, req.TankNumber)
		return
	}
	a.logger.InfoContext(r.Context(), "fuel intake",
		"tank", req.TankNumber, "volume", req.IntakeVolume, "total", total)
	a.audit.logEvent(AuditFuelIntake, r, user.ID,
		slog.Int64("station_id", pump.StationID),
		slog.Int("tank", req.TankNumber),
		slog.Float64("volume", req.IntakeVolume))
	w.WriteHeader(http.StatusNoContent)
}

// Refuel handles POST /pump/refuel. Customers draw fuel from a tank; the
// volume is also taken off their allowance when they have one.
func (a *API) Refuel(w http.ResponseWriter, r *http.Request) {
	var req RefuelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgBadRequest)
		return
	}
	if req.TankNumber < 1 {
		writeError(w, r, http.StatusBadRequest, msgTankNumberInvalid)
		return
	}
	if req.RefuelVolume < minVolume {
		writeError(w, r, http.StatusBadRequest, msgRefuelInvalid)
		return
	}

	user, pump := a.pairedUser(w, r)
	if user == nil {
		return
	}
	if !user.IsCustomer() {
		writeError(w, r, http.StatusForbidden, msgForbidden)
		return
	}

	left, err := a.catalog.Refuel(pump.StationID, req.TankNumber, user.ID, req.RefuelVolume)
	if err != nil {
		a.mapError(w, r, err, msgTankNotFound, req.TankNumber)
		return
	}
	a.logger.InfoContext(r.Context(), "refuel",
		"tank", req.TankNumber, "volume", req.RefuelVolume, "tank_left", left)
	a.audit.logEvent(AuditRefuel, r, user.ID,
		slog.Int64("station_id", pump.StationID),
		slog.Int("tank", req.TankNumber),
		slog.Float64("volume", req.RefuelVolume))
	w.WriteHeader(http.StatusNoContent)
}

// PumpUsers handles GET /pump/users?first=&number=. Controllers page
// through the customers and operators known to the system.
func (a *API) PumpUsers(w http.ResponseWriter, r *http.Request) {
	first, number, ok := parsePumpPaging(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, msgPagingInvalid)
		return
	}

	user, _ := a.pairedUser(w, r)
	if user == nil {
		return
	}
	if !user.IsController() {
		writeError(w, r, http.StatusForbidden, msgForbidden)
		return
	}

	users, err := a.catalog.UsersWithRoles([]catalog.Role{catalog.RoleCustomer, catalog.RoleOperator}, first, number)
	if err != nil {
		a.mapError(w, r, err, msgInternal)
		return
	}
	if len(users) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	items := make([]PumpUserItem, 0, len(users))
	for _, u := range users {
		item := PumpUserItem{UID: u.UID}
		if u.IsCustomer() {
			item.Allowance = u.Allowance
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}

// parsePumpPaging reads first (default 0, at least 0) and number (at least
// 1) from the query string.
func parsePumpPaging(r *http.Request) (first, number int, ok bool) {
	q := r.URL.Query()
	if v := q.Get("first"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, false
		}
		first = n
	}
	if v := q.Get("number"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, false
		}
		number = n
	}
	return first, number, first >= 0 && number >= 1
}
