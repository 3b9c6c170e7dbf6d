// simulate hammers the booking and walk-in endpoints with concurrent workers
// and reports success/conflict/error counts with latency percentiles. Its main
// job is demonstrating that overlapping bookings for one practitioner never
// both succeed under load.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinic-scheduling/internal/db"
	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	WalkInRatio  float64
	Date         string
	PatientLimit int
	PostgresDSN  string
}

type DataPool struct {
	Patients      []uuid.UUID
	Practitioners []uuid.UUID

	mu           sync.RWMutex
	appointments []uuid.UUID
}

func (dp *DataPool) AddAppointment(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) RandomAppointment(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return uuid.Nil, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, success, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case conflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.latencies) == 0 {
		return 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.latencies))
	copy(latencies, om.latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))

	idx := func(pct int) int {
		i := len(latencies) * pct / 100
		if i >= len(latencies) {
			i = len(latencies) - 1
		}
		return i
	}
	return avg, latencies[idx(50)], latencies[idx(95)]
}

type Simulator struct {
	cfg     SimConfig
	pool    *DataPool
	client  *http.Client
	booking OperationMetrics
	walkIn  OperationMetrics
	reads   OperationMetrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	pool, err := loadDataPool(context.Background(), pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}
	log.Printf("loaded %d patients, %d practitioners with shifts on %s",
		len(pool.Patients), len(pool.Practitioners), cfg.Date)

	sim := &Simulator{
		cfg:    cfg,
		pool:   pool,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	return SimConfig{
		APIBaseURL:   getEnv("SIM_API_URL", "http://127.0.0.1:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 16),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.5),
		WalkInRatio:  getFloat("SIM_WALKIN_RATIO", 0.3),
		Date:         getEnv("SIM_DATE", time.Now().Format(schedule.DateLayout)),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 500),
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
	}
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be positive")
	}
	if cfg.BookingRatio+cfg.WalkInRatio > 1.0 {
		return fmt.Errorf("booking and walk-in ratios must sum to at most 1.0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pgPool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	pool := &DataPool{}

	rows, err := pgPool.Query(ctx, `SELECT id FROM patients LIMIT $1`, cfg.PatientLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		pool.Patients = append(pool.Patients, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	shiftRows, err := pgPool.Query(ctx, `
		SELECT practitioner_id FROM shifts WHERE work_date = $1 ORDER BY practitioner_id
	`, cfg.Date)
	if err != nil {
		return nil, err
	}
	defer shiftRows.Close()
	for shiftRows.Next() {
		var id uuid.UUID
		if err := shiftRows.Scan(&id); err != nil {
			return nil, err
		}
		pool.Practitioners = append(pool.Practitioners, id)
	}
	if err := shiftRows.Err(); err != nil {
		return nil, err
	}

	if len(pool.Patients) == 0 || len(pool.Practitioners) == 0 {
		return nil, fmt.Errorf("no patients or no shifts for %s; run the seed first", cfg.Date)
	}

	return pool, nil
}

func (s *Simulator) Run() {
	log.Printf("running %d workers for %s against %s", s.cfg.Workers, s.cfg.Duration, s.cfg.APIBaseURL)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}
	wg.Wait()
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		roll := rng.Float64()
		switch {
		case roll < s.cfg.BookingRatio:
			s.doBooking(ctx, rng)
		case roll < s.cfg.BookingRatio+s.cfg.WalkInRatio:
			s.doWalkIn(ctx, rng)
		default:
			s.doRead(ctx, rng)
		}
	}
}

// doBooking proposes a random aligned 10..30 minute interval inside the
// standard seeded shift window. Most proposals overlap something, which is
// the point.
func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	practitioner := s.pool.Practitioners[rng.Intn(len(s.pool.Practitioners))]
	patient := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	startMin := 9*60 + rng.Intn(42)*10
	length := (1 + rng.Intn(3)) * 10

	body := map[string]string{
		"practitioner_id": practitioner.String(),
		"patient_id":      patient.String(),
		"date":            s.cfg.Date,
		"start_time":      fmt.Sprintf("%02d:%02d", startMin/60, startMin%60),
		"end_time":        fmt.Sprintf("%02d:%02d", (startMin+length)/60, (startMin+length)%60),
	}

	status, respBody, latency := s.post(ctx, "/appointments", body)
	s.booking.Record(latency, status == http.StatusCreated, status == http.StatusConflict)

	if status == http.StatusCreated {
		s.recordAppointment(respBody)
	}
}

func (s *Simulator) doWalkIn(ctx context.Context, rng *rand.Rand) {
	patient := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	body := map[string]string{
		"patient_id": patient.String(),
		"date":       s.cfg.Date,
	}
	if rng.Float64() < 0.5 {
		body["preferred_practitioner_id"] = s.pool.Practitioners[rng.Intn(len(s.pool.Practitioners))].String()
	}

	status, respBody, latency := s.post(ctx, "/walk-ins", body)
	s.walkIn.Record(latency, status == http.StatusCreated, status == http.StatusConflict)

	if status == http.StatusCreated {
		s.recordAppointment(respBody)
	}
}

func (s *Simulator) doRead(ctx context.Context, rng *rand.Rand) {
	var url string
	if id, ok := s.pool.RandomAppointment(rng); ok && rng.Float64() < 0.5 {
		url = s.cfg.APIBaseURL + "/appointments/" + id.String()
	} else {
		url = s.cfg.APIBaseURL + "/schedule/master?date=" + s.cfg.Date
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		s.reads.Record(time.Since(start), false, false)
		return
	}
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		s.reads.Record(latency, false, false)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	s.reads.Record(latency, resp.StatusCode == http.StatusOK, false)
}

func (s *Simulator) post(ctx context.Context, path string, payload map[string]string) (int, []byte, time.Duration) {
	data, _ := json.Marshal(payload)

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIBaseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, nil, time.Since(start)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, time.Since(start)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body, time.Since(start)
}

func (s *Simulator) recordAppointment(respBody []byte) {
	var resp struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.Unmarshal(respBody, &resp); err == nil && resp.ID != uuid.Nil {
		s.pool.AddAppointment(resp.ID)
	}
}

func (s *Simulator) PrintReport() {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("simulation report")
	fmt.Println(strings.Repeat("=", 60))
	printOperationReport("bookings", &s.booking)
	printOperationReport("walk-ins", &s.walkIn)
	printOperationReport("reads", &s.reads)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		fmt.Printf("%-10s no operations\n", name)
		return
	}

	avg, p50, p95 := om.Stats()
	fmt.Printf("%-10s total=%d success=%d conflict=%d error=%d avg=%s p50=%s p95=%s\n",
		name, total,
		atomic.LoadInt64(&om.Success),
		atomic.LoadInt64(&om.Conflict),
		atomic.LoadInt64(&om.Error),
		avg, p50, p95)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
