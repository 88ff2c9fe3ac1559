package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"iot-ingest-backend/internal/db"
)

func (a *API) CreateStockDevice(w http.ResponseWriter, r *http.Request) {
	var req StockDeviceRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	sd, err := a.stock.Create(r.Context(), db.StockDevice{
		SerialNumber: req.SerialNumber,
		LotNo:        req.LotNo,
		CompanyName:  req.CompanyName,
		DeviceID:     req.DeviceID,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "StockDevice created", sd)
}

func (a *API) ListStockDevices(w http.ResponseWriter, r *http.Request) {
	list, err := a.stock.List(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Success", list)
}

func (a *API) GetStockDevice(w http.ResponseWriter, r *http.Request) {
	sd, err := a.stock.Get(r.Context(), chi.URLParam(r, "serialNumber"))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Success", sd)
}

func (a *API) GetStockDeviceByDeviceID(w http.ResponseWriter, r *http.Request) {
	sd, err := a.stock.GetByDeviceID(r.Context(), chi.URLParam(r, "deviceId"))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Success", sd)
}

func (a *API) UpdateStockDevice(w http.ResponseWriter, r *http.Request) {
	var req UpdateStockDeviceRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	sd, err := a.stock.Update(r.Context(), chi.URLParam(r, "serialNumber"), req.LotNo, req.CompanyName)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "StockDevice updated", sd)
}

func (a *API) DeleteStockDevice(w http.ResponseWriter, r *http.Request) {
	if err := a.stock.Delete(r.Context(), chi.URLParam(r, "serialNumber")); err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "StockDevice deleted", nil)
}
