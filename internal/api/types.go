package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/oncall"
	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

type CreateAppointmentRequest struct {
	PractitionerID string `json:"practitioner_id"`
	PatientID      string `json:"patient_id"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
}

type WalkInRequest struct {
	PatientID               string `json:"patient_id"`
	Date                    string `json:"date"`
	PreferredPractitionerID string `json:"preferred_practitioner_id,omitempty"`
}

type TransitionRequest struct {
	Status string `json:"status"`
}

type AppointmentResponse struct {
	ID             uuid.UUID `json:"id"`
	PractitionerID uuid.UUID `json:"practitioner_id"`
	PatientID      uuid.UUID `json:"patient_id"`
	Date           string    `json:"date"`
	StartTime      string    `json:"start_time"`
	EndTime        string    `json:"end_time"`
	Kind           string    `json:"kind"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

func toAppointmentResponse(a *schedule.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:             a.ID,
		PractitionerID: a.PractitionerID,
		PatientID:      a.PatientID,
		Date:           a.Date,
		StartTime:      a.Start.String(),
		EndTime:        a.End.String(),
		Kind:           string(a.Kind),
		Status:         string(a.Status),
		CreatedAt:      a.CreatedAt,
	}
}

func toAppointmentList(list []schedule.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(list))
	for i := range list {
		out = append(out, toAppointmentResponse(&list[i]))
	}
	return out
}

type ScheduleResponse struct {
	Date         string                `json:"date"`
	Appointments []AppointmentResponse `json:"appointments"`
}

type SlotListResponse struct {
	PractitionerID uuid.UUID           `json:"practitioner_id"`
	Date           string              `json:"date"`
	Slots          []schedule.TimeSlot `json:"slots"`
}

type OnCallAssignmentRequest struct {
	Date        string `json:"date"`
	StaffName   string `json:"staff_name"`
	OnCallStart string `json:"on_call_start"`
	OnCallEnd   string `json:"on_call_end"`
	Phone       string `json:"phone"`
}

type OnCallAssignmentResponse struct {
	ID          uuid.UUID `json:"id"`
	Date        string    `json:"date"`
	StaffName   string    `json:"staff_name"`
	OnCallStart string    `json:"on_call_start"`
	OnCallEnd   string    `json:"on_call_end"`
	Phone       string    `json:"phone"`
}

func toAssignmentResponse(a *oncall.Assignment) OnCallAssignmentResponse {
	return OnCallAssignmentResponse{
		ID:          a.ID,
		Date:        a.Date,
		StaffName:   a.StaffName,
		OnCallStart: a.Start.String(),
		OnCallEnd:   a.End.String(),
		Phone:       a.Phone,
	}
}

func toAssignmentList(list []oncall.Assignment) []OnCallAssignmentResponse {
	out := make([]OnCallAssignmentResponse, 0, len(list))
	for i := range list {
		out = append(out, toAssignmentResponse(&list[i]))
	}
	return out
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
