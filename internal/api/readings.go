package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"iot-ingest-backend/internal/ingest"
)

func toCandidate(in ReadingInput) (ingest.Candidate, error) {
	switch {
	case !in.RecordNumber.Set:
		return ingest.Candidate{}, invalid("recordNumber is required")
	case !in.Timestamp.Set:
		return ingest.Candidate{}, invalid("timestamp is required")
	case !in.Value.Set:
		return ingest.Candidate{}, invalid("value is required")
	}
	return ingest.Candidate{
		RecordNumber: in.RecordNumber.Value,
		Timestamp:    in.Timestamp.Time,
		Value:        in.Value.Value,
		Unit:         unitString(in.Unit),
	}, nil
}

func (a *API) IngestOne(w http.ResponseWriter, r *http.Request) {
	var req IngestOneRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	serial := strings.TrimSpace(req.SerialNumber)
	if serial == "" {
		fail(w, r, invalid("serialNumber is required"))
		return
	}
	c, err := toCandidate(req.ReadingInput)
	if err != nil {
		fail(w, r, err)
		return
	}
	reading, accepted, err := a.ingester.IngestOne(r.Context(), serial, c)
	if err != nil {
		fail(w, r, err)
		return
	}
	if !accepted {
		respond(w, http.StatusOK, "Record already exists", nil)
		return
	}
	respond(w, http.StatusCreated, "Record added successfully", toReadingResponse(reading))
}

// IngestBatch rejects the whole batch if any record is malformed; nothing is
// stored in that case.
func (a *API) IngestBatch(w http.ResponseWriter, r *http.Request) {
	var req IngestBatchRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	serial := strings.TrimSpace(req.SerialNumber)
	if serial == "" {
		fail(w, r, invalid("serialNumber is required"))
		return
	}
	candidates := make([]ingest.Candidate, 0, len(req.Records))
	for i, rec := range req.Records {
		c, err := toCandidate(rec)
		if err != nil {
			fail(w, r, invalid(fmt.Sprintf("records[%d]: %v", i, err)))
			return
		}
		candidates = append(candidates, c)
	}

	accepted, err := a.ingester.IngestBatch(r.Context(), serial, candidates)
	if err != nil {
		fail(w, r, err)
		return
	}
	message := "Records added successfully"
	if accepted == 0 {
		message = "No new records to add"
	}
	respond(w, http.StatusOK, message, IngestBatchResponse{
		AcceptedCount: accepted,
		SkippedCount:  len(candidates) - accepted,
	})
}

func (a *API) GetLatestRecord(w http.ResponseWriter, r *http.Request) {
	latest, err := a.timeline.Latest(r.Context(), chi.URLParam(r, "serialNumber"))
	if err != nil {
		fail(w, r, err)
		return
	}
	if latest == nil {
		respond(w, http.StatusOK, "No record found", nil)
		return
	}
	respond(w, http.StatusOK, "Success", toReadingResponse(*latest))
}

func (a *API) GetRecords(w http.ResponseWriter, r *http.Request) {
	readings, err := a.timeline.Records(r.Context(), chi.URLParam(r, "serialNumber"))
	if err != nil {
		fail(w, r, err)
		return
	}
	resp := make([]ReadingResponse, 0, len(readings))
	for _, reading := range readings {
		resp = append(resp, toReadingResponse(reading))
	}
	respond(w, http.StatusOK, "Success", resp)
}
