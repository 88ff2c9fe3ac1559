package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (a *API) AssignDevice(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	device, err := a.ownership.Assign(r.Context(), req.DeviceID, req.UserID)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Device assigned to user", device)
}

func (a *API) UnassignDevice(w http.ResponseWriter, r *http.Request) {
	device, err := a.ownership.Unassign(r.Context(), chi.URLParam(r, "deviceId"))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Device unassigned", device)
}

func (a *API) GetUserDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := a.ownership.DevicesForUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Success", devices)
}

func (a *API) GetDeviceOwner(w http.ResponseWriter, r *http.Request) {
	owner, err := a.ownership.OwnerOf(r.Context(), chi.URLParam(r, "deviceId"))
	if err != nil {
		fail(w, r, err)
		return
	}
	if owner == nil {
		respond(w, http.StatusOK, "Device has no user", nil)
		return
	}
	respond(w, http.StatusOK, "Success", owner)
}
