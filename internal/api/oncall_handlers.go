package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/interval"
	"github.com/clinicore/clinic-scheduling/internal/oncall"
)

func createOnCallHandler(registry *oncall.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeAssignmentRequest(w, r)
		if !ok {
			return
		}

		start, err := interval.ParseTimeOfDay(req.OnCallStart)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid_window", "on_call_start must be HH:MM")
			return
		}
		end, err := interval.ParseTimeOfDay(req.OnCallEnd)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid_window", "on_call_end must be HH:MM")
			return
		}

		created, err := registry.Create(r.Context(), oncall.Assignment{
			Date:      req.Date,
			StaffName: req.StaffName,
			Start:     start,
			End:       end,
			Phone:     req.Phone,
		})
		if err != nil {
			handleOnCallError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAssignmentResponse(created))
	}
}

func updateOnCallHandler(registry *oncall.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_assignment_id", "id must be a valid UUID")
			return
		}

		var body struct {
			Date        *string `json:"date"`
			StaffName   *string `json:"staff_name"`
			OnCallStart *string `json:"on_call_start"`
			OnCallEnd   *string `json:"on_call_end"`
			Phone       *string `json:"phone"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		upd := oncall.AssignmentUpdate{
			Date:      body.Date,
			StaffName: body.StaffName,
			Phone:     body.Phone,
		}
		if body.OnCallStart != nil {
			start, err := interval.ParseTimeOfDay(*body.OnCallStart)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "invalid_window", "on_call_start must be HH:MM")
				return
			}
			upd.Start = &start
		}
		if body.OnCallEnd != nil {
			end, err := interval.ParseTimeOfDay(*body.OnCallEnd)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "invalid_window", "on_call_end must be HH:MM")
				return
			}
			upd.End = &end
		}

		updated, err := registry.Update(r.Context(), id, upd)
		if err != nil {
			handleOnCallError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAssignmentResponse(updated))
	}
}

func deleteOnCallHandler(registry *oncall.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_assignment_id", "id must be a valid UUID")
			return
		}

		if err := registry.Delete(r.Context(), id); err != nil {
			handleOnCallError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func listOnCallHandler(registry *oncall.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		weekStart := r.URL.Query().Get("week_start")
		if weekStart == "" {
			writeError(w, http.StatusBadRequest, "missing_week_start", "week_start query parameter is required")
			return
		}

		assignments, err := registry.ListWeek(r.Context(), weekStart)
		if err != nil {
			handleOnCallError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAssignmentList(assignments))
	}
}

func activeOnCallHandler(registry *oncall.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		at, err := interval.ParseTimeOfDay(r.URL.Query().Get("at"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_at", "at must be HH:MM")
			return
		}

		assignments, err := registry.OnCallAt(r.Context(), date, at)
		if err != nil {
			handleOnCallError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAssignmentList(assignments))
	}
}

func decodeAssignmentRequest(w http.ResponseWriter, r *http.Request) (OnCallAssignmentRequest, bool) {
	var req OnCallAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return req, false
	}
	if req.Date == "" || req.StaffName == "" || req.OnCallStart == "" || req.OnCallEnd == "" || req.Phone == "" {
		writeError(w, http.StatusBadRequest, "missing_fields", "date, staff_name, on_call_start, on_call_end and phone are required")
		return req, false
	}
	return req, true
}

func handleOnCallError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, oncall.ErrInvalidWindow):
		writeError(w, http.StatusUnprocessableEntity, "invalid_window", err.Error())
	case errors.Is(err, oncall.ErrAssignmentNotFound):
		writeError(w, http.StatusNotFound, "assignment_not_found", err.Error())
	case errors.Is(err, oncall.ErrStorage):
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "the on-call store is unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
