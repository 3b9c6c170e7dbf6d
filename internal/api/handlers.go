package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/interval"
	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

func createAppointmentHandler(booker *schedule.Booker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		practitionerID, err := uuid.Parse(req.PractitionerID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "practitioner_id must be a valid UUID")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		start, err := interval.ParseTimeOfDay(req.StartTime)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid_interval", "start_time must be HH:MM")
			return
		}

		end, err := interval.ParseTimeOfDay(req.EndTime)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid_interval", "end_time must be HH:MM")
			return
		}

		appt, err := booker.Book(r.Context(), schedule.BookingRequest{
			PractitionerID: practitionerID,
			PatientID:      patientID,
			Date:           req.Date,
			Start:          start,
			End:            end,
			Kind:           schedule.KindScheduled,
		})
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func walkInHandler(allocator *schedule.WalkInAllocator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req WalkInRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		var preferred *uuid.UUID
		if req.PreferredPractitionerID != "" {
			id, err := uuid.Parse(req.PreferredPractitionerID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "preferred_practitioner_id must be a valid UUID")
				return
			}
			preferred = &id
		}

		appt, err := allocator.Assign(r.Context(), patientID, req.Date, preferred)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(queries *schedule.Queries) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := queries.Appointment(r.Context(), id)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

var transitionStatuses = map[string]schedule.AppointmentStatus{
	"checked_in": schedule.StatusCheckedIn,
	"completed":  schedule.StatusCompleted,
	"cancelled":  schedule.StatusCancelled,
	"no_show":    schedule.StatusNoShow,
}

func transitionAppointmentHandler(booker *schedule.Booker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req TransitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		to, ok := transitionStatuses[req.Status]
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_status", "status must be one of checked_in, completed, cancelled, no_show")
			return
		}

		appt, err := booker.Transition(r.Context(), id, to)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(booker *schedule.Booker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := booker.Cancel(r.Context(), id)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func masterScheduleHandler(queries *schedule.Queries) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")

		appts, err := queries.DailyMasterSchedule(r.Context(), date)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, ScheduleResponse{Date: date, Appointments: toAppointmentList(appts)})
	}
}

func practitionerScheduleHandler(queries *schedule.Queries) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		practitionerID, err := uuid.Parse(r.URL.Query().Get("practitioner_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "practitioner_id must be a valid UUID")
			return
		}
		date := r.URL.Query().Get("date")

		appts, err := queries.PractitionerDay(r.Context(), practitionerID, date)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, ScheduleResponse{Date: date, Appointments: toAppointmentList(appts)})
	}
}

func listSlotsHandler(availability *schedule.Availability) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		practitionerID, err := uuid.Parse(r.URL.Query().Get("practitioner_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "practitioner_id must be a valid UUID")
			return
		}
		date := r.URL.Query().Get("date")

		duration := 0
		if v := r.URL.Query().Get("duration"); v != "" {
			duration, err = strconv.Atoi(v)
			if err != nil || duration < 0 {
				writeError(w, http.StatusBadRequest, "invalid_duration", "duration must be a non-negative number of minutes")
				return
			}
		}

		slots, err := availability.ListSlots(r.Context(), practitionerID, date, duration)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, SlotListResponse{PractitionerID: practitionerID, Date: date, Slots: slots})
	}
}

// handleScheduleError maps domain errors to status codes. Every scheduling
// error is actionable by the caller; only infrastructure failures surface as
// 5xx.
func handleScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrInvalidInterval):
		writeError(w, http.StatusUnprocessableEntity, "invalid_interval", err.Error())
	case errors.Is(err, schedule.ErrNoSchedule):
		writeError(w, http.StatusNotFound, "no_schedule", err.Error())
	case errors.Is(err, schedule.ErrPractitionerNotFound):
		writeError(w, http.StatusNotFound, "practitioner_not_found", err.Error())
	case errors.Is(err, schedule.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, schedule.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, schedule.ErrPractitionerInactive):
		writeError(w, http.StatusUnprocessableEntity, "practitioner_inactive", err.Error())
	case errors.Is(err, schedule.ErrAppointmentConflict):
		writeError(w, http.StatusConflict, "appointment_conflict", err.Error())
	case errors.Is(err, schedule.ErrScheduleBusy):
		writeError(w, http.StatusConflict, "schedule_busy", "schedule is currently being modified, please retry shortly")
	case errors.Is(err, schedule.ErrNoAvailability):
		writeError(w, http.StatusConflict, "no_availability", err.Error())
	case errors.Is(err, schedule.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, schedule.ErrStorage):
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "the scheduling store is unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
