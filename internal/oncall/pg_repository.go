package oncall

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
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

const assignmentColumns = `id, work_date, staff_name, start_min, end_min, phone, created_at, updated_at`

func scanAssignment(row pgx.Row) (*Assignment, error) {
	var a Assignment
	var workDate time.Time
	var startMin, endMin int

	err := row.Scan(
		&a.ID,
		&workDate,
		&a.StaffName,
		&startMin,
		&endMin,
		&a.Phone,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAssignmentNotFound
		}
		return nil, storageErr("scan assignment", err)
	}

	a.Date = workDate.Format(dateLayout)
	a.Start = interval.TimeOfDay(startMin)
	a.End = interval.TimeOfDay(endMin)
	return &a, nil
}

func collectAssignments(rows pgx.Rows) ([]Assignment, error) {
	defer rows.Close()

	var result []Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate assignments", err)
	}

	return result, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Assignment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+assignmentColumns+`
		FROM on_call_assignments
		WHERE id = $1
	`, id)
	return scanAssignment(row)
}

func (r *PgRepository) ListRange(ctx context.Context, from, to string) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+assignmentColumns+`
		FROM on_call_assignments
		WHERE work_date >= $1 AND work_date < $2
		ORDER BY work_date, start_min
	`, from, to)
	if err != nil {
		return nil, storageErr("list assignment range", err)
	}
	return collectAssignments(rows)
}

func (r *PgRepository) ListByDate(ctx context.Context, date string) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+assignmentColumns+`
		FROM on_call_assignments
		WHERE work_date = $1
		ORDER BY start_min
	`, date)
	if err != nil {
		return nil, storageErr("list assignments by date", err)
	}
	return collectAssignments(rows)
}

func (r *PgRepository) Create(ctx context.Context, a Assignment) (*Assignment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO on_call_assignments (id, work_date, staff_name, start_min, end_min, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+assignmentColumns+`
	`, a.ID, a.Date, a.StaffName, int(a.Start), int(a.End), a.Phone)

	return scanAssignment(row)
}

func (r *PgRepository) Update(ctx context.Context, id uuid.UUID, upd AssignmentUpdate) (*Assignment, error) {
	var startMin, endMin *int
	if upd.Start != nil {
		v := int(*upd.Start)
		startMin = &v
	}
	if upd.End != nil {
		v := int(*upd.End)
		endMin = &v
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE on_call_assignments
		SET work_date  = COALESCE($2::date, work_date),
		    staff_name = COALESCE($3::text, staff_name),
		    start_min  = COALESCE($4::int, start_min),
		    end_min    = COALESCE($5::int, end_min),
		    phone      = COALESCE($6::text, phone),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+assignmentColumns+`
	`, id, upd.Date, upd.StaffName, startMin, endMin, upd.Phone)

	return scanAssignment(row)
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM on_call_assignments WHERE id = $1`, id)
	if err != nil {
		return storageErr("delete assignment", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}
