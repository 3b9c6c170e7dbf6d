package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinic-scheduling/internal/interval"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// Helpers

func scanShift(row pgx.Row) (*Shift, error) {
	var s Shift
	var workDate time.Time
	var startMin, endMin, gran int
	var breaks []byte

	err := row.Scan(
		&s.PractitionerID,
		&workDate,
		&startMin,
		&endMin,
		&gran,
		&s.WalkInEnabled,
		&s.WalkInCapacity,
		&breaks,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoSchedule
		}
		return nil, storageErr("scan shift", err)
	}

	s.Date = workDate.Format(DateLayout)
	s.Start = interval.TimeOfDay(startMin)
	s.End = interval.TimeOfDay(endMin)
	s.SlotGranularity = gran

	if len(breaks) > 0 {
		if err := json.Unmarshal(breaks, &s.Breaks); err != nil {
			return nil, storageErr("decode shift breaks", err)
		}
	}

	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var workDate time.Time
	var startMin, endMin int

	err := row.Scan(
		&a.ID,
		&a.PractitionerID,
		&a.PatientID,
		&workDate,
		&startMin,
		&endMin,
		&a.Kind,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, storageErr("scan appointment", err)
	}

	a.Date = workDate.Format(DateLayout)
	a.Start = interval.TimeOfDay(startMin)
	a.End = interval.TimeOfDay(endMin)
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate appointments", err)
	}

	return result, nil
}

const appointmentColumns = `id, practitioner_id, patient_id, work_date, start_min, end_min, kind, status, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetShift(ctx context.Context, practitionerID uuid.UUID, date string) (*Shift, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT practitioner_id, work_date, start_min, end_min, slot_granularity, walk_in_enabled, walk_in_capacity, breaks
		FROM shifts
		WHERE practitioner_id = $1 AND work_date = $2
	`, practitionerID, date)
	return scanShift(row)
}

func (r *PgRepository) ListWalkInShifts(ctx context.Context, date string) ([]Shift, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT practitioner_id, work_date, start_min, end_min, slot_granularity, walk_in_enabled, walk_in_capacity, breaks
		FROM shifts
		WHERE work_date = $1 AND walk_in_enabled
		ORDER BY practitioner_id
	`, date)
	if err != nil {
		return nil, storageErr("list walk-in shifts", err)
	}
	defer rows.Close()

	var result []Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate shifts", err)
	}

	return result, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListOccupying(ctx context.Context, practitionerID uuid.UUID, date string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE practitioner_id = $1
		  AND work_date = $2
		  AND status = ANY($3)
		ORDER BY start_min
	`, practitionerID, date, statusStrings(OccupyingStatuses))
	if err != nil {
		return nil, storageErr("list occupying appointments", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListByDate(ctx context.Context, date string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE work_date = $1
		ORDER BY start_min, practitioner_id
	`, date)
	if err != nil {
		return nil, storageErr("list appointments by date", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListPractitionerDay(ctx context.Context, practitionerID uuid.UUID, date string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE practitioner_id = $1 AND work_date = $2
		ORDER BY start_min
	`, practitionerID, date)
	if err != nil {
		return nil, storageErr("list practitioner day", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) CountWalkIns(ctx context.Context, practitionerID uuid.UUID, date string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE practitioner_id = $1
		  AND work_date = $2
		  AND kind = 'walk_in'
		  AND status NOT IN ('cancelled', 'no_show')
	`, practitionerID, date).Scan(&count)
	if err != nil {
		return 0, storageErr("count walk-ins", err)
	}
	return count, nil
}

func (r *PgRepository) CreateAppointment(ctx context.Context, appt Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, practitioner_id, patient_id, work_date, start_min, end_min, kind, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING `+appointmentColumns+`
	`, appt.ID, appt.PractitionerID, appt.PatientID, appt.Date, int(appt.Start), int(appt.End), appt.Kind, appt.Status)

	created, err := scanAppointment(row)
	if err != nil {
		// The exclusion constraint backstops the schedule lock; a
		// violation means a concurrent writer got there first.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
			return nil, ErrAppointmentConflict
		}
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, storageErr("create appointment", errors.New("insert returned no row"))
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from []AppointmentStatus, to AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = ANY($3)
		RETURNING `+appointmentColumns+`
	`, id, to, statusStrings(from))

	return scanAppointment(row)
}

func (r *PgRepository) FindOverdue(ctx context.Context, before time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status IN ('scheduled', 'walk_in')
		  AND work_date + make_interval(mins => start_min) < $1
	`, before)
	if err != nil {
		return nil, storageErr("find overdue appointments", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO schedule_events (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return storageErr("insert event log", err)
	}

	return nil
}

func statusStrings(statuses []AppointmentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Directories backed by the staff and patient tables.

type PgPractitionerDirectory struct {
	pool *pgxpool.Pool
}

func NewPgPractitionerDirectory(pool *pgxpool.Pool) *PgPractitionerDirectory {
	return &PgPractitionerDirectory{pool: pool}
}

func (d *PgPractitionerDirectory) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM practitioners WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, storageErr("practitioner exists", err)
	}
	return exists, nil
}

func (d *PgPractitionerDirectory) IsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	var active bool
	err := d.pool.QueryRow(ctx, `SELECT active FROM practitioners WHERE id = $1`, id).Scan(&active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, storageErr("practitioner active", err)
	}
	return active, nil
}

type PgPatientDirectory struct {
	pool *pgxpool.Pool
}

func NewPgPatientDirectory(pool *pgxpool.Pool) *PgPatientDirectory {
	return &PgPatientDirectory{pool: pool}
}

func (d *PgPatientDirectory) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM patients WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, storageErr("patient exists", err)
	}
	return exists, nil
}
