package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"iot-ingest-backend/internal/registry"
)

func (a *API) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req RegisterDeviceRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	device, created, err := a.registry.Register(r.Context(), registry.RegisterInput{
		SerialNumber: req.SerialNumber,
		Model:        req.Model,
		DeviceID:     req.DeviceID,
		UserID:       req.UserID,
		Name:         req.Name,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	if !created {
		respond(w, http.StatusOK, "Device already registered", device)
		return
	}
	respond(w, http.StatusCreated, "Device registered successfully", device)
}

// ListDevices reads page and itemsPerPage from the query. Missing or
// malformed values fall back to the registry defaults.
func (a *API) ListDevices(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("itemsPerPage"))

	p, err := a.registry.ListPage(r.Context(), page, pageSize)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Success", DevicePage{
		Items: p.Items,
		Pagination: Pagination{
			CurrentPage:  p.Page,
			ItemsPerPage: p.PageSize,
			TotalItems:   p.Total,
			TotalPages:   p.TotalPages,
		},
	})
}

func (a *API) GetDeviceBySerial(w http.ResponseWriter, r *http.Request) {
	device, err := a.registry.FindBySerial(r.Context(), chi.URLParam(r, "serialNumber"))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Success", device)
}

func (a *API) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	if err := a.registry.Delete(r.Context(), chi.URLParam(r, "serialNumber")); err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Device deleted", nil)
}

func (a *API) UpdateDeviceName(w http.ResponseWriter, r *http.Request) {
	var req UpdateNameRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	device, err := a.registry.Rename(r.Context(), chi.URLParam(r, "deviceId"), req.Name)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Device name updated", device)
}

func (a *API) UpdateDeviceSerial(w http.ResponseWriter, r *http.Request) {
	var req UpdateSerialRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	device, err := a.registry.ChangeSerial(r.Context(), chi.URLParam(r, "deviceId"), req.SerialNumber)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Serial number updated", device)
}

func (a *API) UpdateDeviceLastValue(w http.ResponseWriter, r *http.Request) {
	var req UpdateValueRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if !req.Value.Set {
		fail(w, r, invalid("value is required"))
		return
	}
	device, err := a.registry.UpdateLastValue(r.Context(), chi.URLParam(r, "deviceId"), req.Value.Value)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Last value updated", device)
}

func (a *API) UpdateDeviceUnit(w http.ResponseWriter, r *http.Request) {
	var req UpdateUnitRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if req.Unit == nil {
		fail(w, r, invalid("unit is required"))
		return
	}
	device, err := a.registry.UpdateUnit(r.Context(), chi.URLParam(r, "deviceId"), *req.Unit)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Device unit updated", device)
}
