package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinic-scheduling/internal/db"
	"github.com/clinicore/clinic-scheduling/internal/interval"
	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	practitionerIDs, err := seedPractitioners(context.Background(), pool, 20)
	if err != nil {
		log.Fatalf("seed practitioners: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedShifts(context.Background(), pool, practitionerIDs, 7); err != nil {
		log.Fatalf("seed shifts: %v", err)
	}
	if err := seedOnCall(context.Background(), pool, 7); err != nil {
		log.Fatalf("seed on-call assignments: %v", err)
	}

	log.Println("seed complete")
}

func seedPractitioners(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d practitioners", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO practitioners (id, name, specialty, active, created_at, updated_at)
			VALUES ($1, $2, $3, true, now(), now())
		`, id, name, spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("practitioners seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}

func seedShifts(ctx context.Context, pool *pgxpool.Pool, practitionerIDs []uuid.UUID, days int) error {
	log.Printf("seeding shifts for %d practitioners over %d days", len(practitionerIDs), days)

	lunch := []interval.Span{{Start: 12 * 60, End: 13 * 60}}
	breaksJSON, err := json.Marshal(lunch)
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	today := time.Now()
	for d := 0; d < days; d++ {
		date := today.AddDate(0, 0, d).Format(schedule.DateLayout)

		for _, id := range practitionerIDs {
			walkIn := gofakeit.Bool()
			capacity := 0
			if walkIn {
				capacity = gofakeit.Number(0, 6)
			}

			_, err := tx.Exec(ctx, `
				INSERT INTO shifts (practitioner_id, work_date, start_min, end_min, slot_granularity, walk_in_enabled, walk_in_capacity, breaks)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (practitioner_id, work_date) DO NOTHING
			`, id, date, 9*60, 17*60, schedule.DefaultSlotGranularity, walkIn, capacity, breaksJSON)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("shifts seeded")
	return nil
}

func seedOnCall(ctx context.Context, pool *pgxpool.Pool, days int) error {
	log.Printf("seeding on-call assignments over %d days", days)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	today := time.Now()
	for d := 0; d < days; d++ {
		date := today.AddDate(0, 0, d).Format(schedule.DateLayout)

		// Evening and overnight coverage; the windows overlap.
		windows := [][2]int{{17 * 60, 22 * 60}, {20 * 60, 24*60 - 1}}
		for _, wnd := range windows {
			_, err := tx.Exec(ctx, `
				INSERT INTO on_call_assignments (id, work_date, staff_name, start_min, end_min, phone, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			`, uuid.New(), date, gofakeit.Name(), wnd[0], wnd[1], gofakeit.Phone())
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("on-call assignments seeded")
	return nil
}
