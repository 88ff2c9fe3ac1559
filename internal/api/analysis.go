package api

import (
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"iot-ingest-backend/internal/analysis"
)

func (a *API) Analyze(w http.ResponseWriter, r *http.Request) {
	value, err := strconv.ParseFloat(chi.URLParam(r, "val"), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		fail(w, r, invalid("Invalid value parameter"))
		return
	}
	respond(w, http.StatusOK, "Success", analysis.Analyze(value, a.now()))
}
