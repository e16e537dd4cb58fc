package api

import (
	"log/slog"
	"net/http"

	"github.com/fuelflux/core/catalog"
)

// Station administration. Every route here runs behind
// Require(ModeUser) and requireAdministrator.

func (a *API) auditChange(event AuditEvent, r *http.Request, action string, id int64) {
	a.audit.logEvent(event, r, IdentityFromContext(r.Context()).UserID,
		slog.String("action", action), slog.Int64("id", id))
}

// ListStations handles GET /fuelstation/stations.
func (a *API) ListStations(w http.ResponseWriter, r *http.Request) {
	stations, err := a.catalog.Stations()
	if err != nil {
		a.mapError(w, r, err, msgInternal)
		return
	}
	writePage(w, r, stations)
}

// GetStation handles GET /fuelstation/stations/{id}.
func (a *API) GetStation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s, err := a.catalog.Station(id)
	if err != nil {
		a.mapError(w, r, err, msgStationNotFound, id)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// CreateStation handles POST /fuelstation/stations.
func (a *API) CreateStation(w http.ResponseWriter, r *http.Request) {
	var s catalog.Station
	if err := decodeJSON(w, r, &s); err != nil {
		writeError(w, r, http.StatusBadRequest, msgBadRequest)
		return
	}
	s.ID = 0
	id, err := a.catalog.SaveStation(s)
	if err != nil {
		a.mapError(w, r, err, msgInternal)
		return
	}
	a.auditChange(AuditStationChanged, r, "create", id)
	writeJSON(w, http.StatusCreated, IDResponse{ID: id})
}

// UpdateStation handles PUT /fuelstation/stations/{id}.
func (a *API) UpdateStation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var s catalog.Station
	if err := decodeJSON(w, r, &s); err != nil {
		writeError(w, r, http.StatusBadRequest, msgBadRequest)
		return
	}
	s.ID = id
	if err := a.catalog.UpdateStation(s); err != nil {
		a.mapError(w, r, err, msgStationNotFound, id)
		return
	}
	a.auditChange(AuditStationChanged, r, "update", id)
	w.WriteHeader(http.StatusNoContent)
}

// DeleteStation handles DELETE /fuelstation/stations/{id}. The station's
// tanks and pumps go with it.
func (a *API) DeleteStation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := a.catalog.DeleteStation(id); err != nil {
		a.mapError(w, r, err, msgStationNotFound, id)
		return
	}
	a.auditChange(AuditStationChanged, r, "delete", id)
	w.WriteHeader(http.StatusNoContent)
}

// ListTanks handles GET /fuelstation/tanks.
func (a *API) ListTanks(w http.ResponseWriter, r *http.Request) {
	tanks, err := a.catalog.Tanks()
	if err != nil {
		a.mapError(w, r, err, msgInternal)
		return
	}
	writePage(w, r, tanks)
}

// GetTank handles GET /fuelstation/tanks/{id}.
func (a *API) GetTank(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := a.catalog.Tank(id)
	if err != nil {
		a.mapError(w, r, err, msgTankNotFound, id)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CreateTank handles POST /fuelstation/tanks.
func (a *API) CreateTank(w http.ResponseWriter, r *http.Request) {
	var t catalog.Tank
	if err := decodeJSON(w, r, &t); err != nil {
		writeError(w, r, http.StatusBadRequest, msgBadRequest)
		return
	}
	t.ID = 0
	id, err := a.catalog.SaveTank(t)
	if err != nil {
		a.mapError(w, r, err, msgStationNotFound, t.StationID)
		return
	}
	a.auditChange(AuditTankChanged, r, "create", id)
	writeJSON(w, http.StatusCreated, IDResponse{ID: id})
}

// UpdateTank handles PUT /fuelstation/tanks/{id}.
func (a *API) UpdateTank(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var t catalog.Tank
	if err := decodeJSON(w, r, &t); err != nil {
		writeError(w, r, http.StatusBadRequest, msgBadRequest)
		return
	}
	t.ID = id
	if err := a.catalog.UpdateTank(t); err != nil {
		a.mapError(w, r, err, msgTankNotFound, id)
		return
	}
	a.auditChange(AuditTankChanged, r, "update", id)
	w.WriteHeader(http.StatusNoContent)
}

// DeleteTank handles DELETE /fuelstation/tanks/{id}.
func (a *API) DeleteTank(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := a.catalog.DeleteTank(id); err != nil {
		a.mapError(w, r, err, msgTankNotFound, id)
		return
	}
	a.auditChange(AuditTankChanged, r, "delete", id)
	w.WriteHeader(http.StatusNoContent)
}

// ListPumps handles GET /fuelstation/pumps.
func (a *API) ListPumps(w http.ResponseWriter, r *http.Request) {
	pumps, err := a.catalog.Pumps()
	if err != nil {
		a.mapError(w, r, err, msgInternal)
		return
	}
	writePage(w, r, pumps)
}

// GetPump handles GET /fuelstation/pumps/{id}.
func (a *API) GetPump(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := a.catalog.Pump(id)
	if err != nil {
		a.mapError(w, r, err, msgPumpNotFound, id)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreatePump handles POST /fuelstation/pumps.
func (a *API) CreatePump(w http.ResponseWriter, r *http.Request) {
	var p catalog.Pump
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, http.StatusBadRequest, msgBadRequest)
		return
	}
	p.ID = 0
	id, err := a.catalog.SavePump(p)
	if err != nil {
		a.mapError(w, r, err, msgStationNotFound, p.StationID)
		return
	}
	a.auditChange(AuditPumpChanged, r, "create", id)
	writeJSON(w, http.StatusCreated, IDResponse{ID: id})
}

// UpdatePump handles PUT /fuelstation/pumps/{id}.
func (a *API) UpdatePump(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var p catalog.Pump
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, http.StatusBadRequest, msgBadRequest)
		return
	}
	p.ID = id
	if err := a.catalog.UpdatePump(p); err != nil {
		a.mapError(w, r, err, msgPumpNotFound, id)
		return
	}
	a.auditChange(AuditPumpChanged, r, "update", id)
	w.WriteHeader(http.StatusNoContent)
}

// DeletePump handles DELETE /fuelstation/pumps/{id}.
func (a *API) DeletePump(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := a.catalog.DeletePump(id); err != nil {
		a.mapError(w, r, err, msgPumpNotFound, id)
		return
	}
	a.auditChange(AuditPumpChanged, r, "delete", id)
	w.WriteHeader(http.StatusNoContent)
}
