/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements punch-ledger persistence plus the supporting tables the
  attendance system needs (employees, schedule configuration versions,
  payroll runs). In production the same patterns apply to PostgreSQL -
  only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  engine.PunchStore: Append-only punch ledger

APPEND-ONLY ENFORCEMENT:
  The punches table accepts no UPDATE and no DELETE. A mistaken punch is
  corrected by an admin punch under a new idempotency key; the raw trail
  stays auditable because it feeds payroll.

KEY TABLES:
  punches:          Immutable clock-event ledger
  employees:        Employee records with payroll inputs
  schedule_configs: Versioned workday configuration (JSON)
  payroll_runs:     Completed run results (JSON figures)

INDEXES:
  - idx_punches_employee_at:    Day/range loads (hot path)
  - idx_unique_punch_slot:      One punch per label per employee-day
  - idx_punches_idempotency:    Retry safety

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block, single writer at a time.

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := attendance.NewLedger(store, cfg)

SEE ALSO:
  - engine/store.go: Interface definition
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/attendance-engine/engine"
)

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Punches (append-only clock-event ledger)
	CREATE TABLE IF NOT EXISTS punches (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		label TEXT NOT NULL,
		punched_at TEXT NOT NULL,
		source TEXT,
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_punches_employee_at
		ON punches(employee_id, punched_at);
	CREATE INDEX IF NOT EXISTS idx_punches_idempotency
		ON punches(idempotency_key) WHERE idempotency_key IS NOT NULL;

	-- CRITICAL: one punch per label slot per employee-day
	-- (cannot clock morning-in twice on March 10)
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_punch_slot
		ON punches(employee_id, label, DATE(punched_at));

	-- Employees
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		base_salary TEXT NOT NULL DEFAULT '0',
		benefits TEXT NOT NULL DEFAULT '0',
		deductions TEXT NOT NULL DEFAULT '0',
		hire_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Schedule configuration (versioned, JSON form)
	CREATE TABLE IF NOT EXISTS schedule_configs (
		version INTEGER PRIMARY KEY AUTOINCREMENT,
		config_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Payroll runs (results kept for audit; figures as JSON)
	CREATE TABLE IF NOT EXISTS payroll_runs (
		id TEXT PRIMARY KEY,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		figures_json TEXT NOT NULL,
		anomaly_count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payroll_runs_period
		ON payroll_runs(period_start, period_end);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PUNCH STORE (engine.PunchStore interface)
// =============================================================================

// Append adds a single punch. Append-only.
func (s *Store) Append(ctx context.Context, event engine.ClockEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendPunch(ctx, s.db, event)
}

// AppendBatch adds multiple punches atomically.
func (s *Store) AppendBatch(ctx context.Context, events []engine.ClockEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Duplicate idempotency keys within the batch fail before any write.
	keys := make(map[string]bool)
	for _, e := range events {
		if e.IdempotencyKey != "" {
			if keys[e.IdempotencyKey] {
				return engine.ErrDuplicateIdempotencyKey
			}
			keys[e.IdempotencyKey] = true
		}
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, e := range events {
		if err := s.appendPunch(ctx, sqlTx, e); err != nil {
			return err
		}
	}

	return sqlTx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) appendPunch(ctx context.Context, db execer, e engine.ClockEvent) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO punches (id, employee_id, label, punched_at, source, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		e.ID,
		e.EmployeeID,
		e.Label,
		e.At.UTC().Format(time.RFC3339),
		e.Source,
		nullString(e.IdempotencyKey),
		createdAt.Format(time.RFC3339),
	)

	if err != nil {
		if isUniqueConstraintError(err) {
			if isSlotUniquenessError(err) {
				return &engine.DuplicatePunchError{
					EmployeeID: e.EmployeeID,
					Label:      e.Label,
					Date:       e.Day(),
				}
			}
			return engine.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append punch: %w", err)
	}

	return nil
}

// LoadDay returns an employee's punches for one calendar day.
func (s *Store) LoadDay(ctx context.Context, employee engine.EmployeeID, day engine.Day) ([]engine.ClockEvent, error) {
	return s.LoadRange(ctx, employee, day, day)
}

// LoadRange returns punches in [from, to], ordered by punch time.
func (s *Store) LoadRange(ctx context.Context, employee engine.EmployeeID, from, to engine.Day) ([]engine.ClockEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, employee_id, label, punched_at, source, idempotency_key, created_at
		FROM punches
		WHERE employee_id = ? AND DATE(punched_at) >= ? AND DATE(punched_at) <= ?
		ORDER BY punched_at ASC, created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, employee, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query punches: %w", err)
	}
	defer rows.Close()

	var events []engine.ClockEvent
	for rows.Next() {
		var (
			e              engine.ClockEvent
			punchedAt      string
			source         sql.NullString
			idempotencyKey sql.NullString
			createdAt      string
		)
		if err := rows.Scan(&e.ID, &e.EmployeeID, &e.Label, &punchedAt, &source, &idempotencyKey, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan punch: %w", err)
		}
		e.At, _ = time.Parse(time.RFC3339, punchedAt)
		e.Source = source.String
		e.IdempotencyKey = idempotencyKey.String
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		events = append(events, e)
	}

	return events, rows.Err()
}

// Exists checks if an idempotency key exists.
func (s *Store) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM punches WHERE idempotency_key = ?",
		idempotencyKey,
	).Scan(&count)

	return count > 0, err
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// Employee represents an employee record with its payroll inputs.
type Employee struct {
	ID         string
	Name       string
	Email      string
	BaseSalary string // decimal string, parsed at the payroll boundary
	Benefits   string
	Deductions string
	HireDate   time.Time
	CreatedAt  time.Time
}

// SaveEmployee inserts or updates an employee.
func (s *Store) SaveEmployee(ctx context.Context, emp Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, name, email, base_salary, benefits, deductions, hire_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			base_salary = excluded.base_salary,
			benefits = excluded.benefits,
			deductions = excluded.deductions,
			hire_date = excluded.hire_date
	`

	_, err := s.db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.Email,
		defaultDecimal(emp.BaseSalary), defaultDecimal(emp.Benefits), defaultDecimal(emp.Deductions),
		emp.HireDate.Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetEmployee retrieves an employee by ID. Returns nil when missing.
func (s *Store) GetEmployee(ctx context.Context, id string) (*Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var emp Employee
	var hireDate, createdAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, base_salary, benefits, deductions, hire_date, created_at FROM employees WHERE id = ?",
		id,
	).Scan(&emp.ID, &emp.Name, &emp.Email, &emp.BaseSalary, &emp.Benefits, &emp.Deductions, &hireDate, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	emp.HireDate, _ = time.Parse(time.RFC3339, hireDate)
	emp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &emp, nil
}

// ListEmployees returns all employees ordered by name.
func (s *Store) ListEmployees(ctx context.Context) ([]Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, email, base_salary, benefits, deductions, hire_date, created_at FROM employees ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		var emp Employee
		var hireDate, createdAt string
		if err := rows.Scan(&emp.ID, &emp.Name, &emp.Email, &emp.BaseSalary, &emp.Benefits, &emp.Deductions, &hireDate, &createdAt); err != nil {
			return nil, err
		}
		emp.HireDate, _ = time.Parse(time.RFC3339, hireDate)
		emp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// =============================================================================
// SCHEDULE CONFIG STORE
// =============================================================================

// ScheduleRecord is a stored schedule configuration version.
type ScheduleRecord struct {
	Version    int
	ConfigJSON string
	CreatedAt  time.Time
}

// SaveSchedule appends a new configuration version.
func (s *Store) SaveSchedule(ctx context.Context, configJSON string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO schedule_configs (config_json, created_at) VALUES (?, ?)",
		configJSON, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}
	version, err := res.LastInsertId()
	return int(version), err
}

// CurrentSchedule returns the latest configuration version, or nil when
// none has been stored yet.
func (s *Store) CurrentSchedule(ctx context.Context) (*ScheduleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec ScheduleRecord
	var createdAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT version, config_json, created_at FROM schedule_configs ORDER BY version DESC LIMIT 1",
	).Scan(&rec.Version, &rec.ConfigJSON, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &rec, nil
}

// =============================================================================
// PAYROLL RUN STORE
// =============================================================================

// RunRecord is a stored payroll run result.
type RunRecord struct {
	ID           engine.RunID
	PeriodStart  time.Time
	PeriodEnd    time.Time
	FiguresJSON  string
	AnomalyCount int
	CreatedAt    time.Time
}

// SaveRun stores a completed payroll run.
func (s *Store) SaveRun(ctx context.Context, run RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO payroll_runs (id, period_start, period_end, figures_json, anomaly_count, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		string(run.ID),
		run.PeriodStart.Format(time.RFC3339),
		run.PeriodEnd.Format(time.RFC3339),
		run.FiguresJSON,
		run.AnomalyCount,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetRun retrieves a payroll run by ID. Returns nil when missing.
func (s *Store) GetRun(ctx context.Context, id engine.RunID) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var run RunRecord
	var periodStart, periodEnd, createdAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, period_start, period_end, figures_json, anomaly_count, created_at FROM payroll_runs WHERE id = ?",
		string(id),
	).Scan(&run.ID, &periodStart, &periodEnd, &run.FiguresJSON, &run.AnomalyCount, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	run.PeriodStart, _ = time.Parse(time.RFC3339, periodStart)
	run.PeriodEnd, _ = time.Parse(time.RFC3339, periodEnd)
	run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &run, nil
}

// ListRuns returns payroll runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, period_start, period_end, figures_json, anomaly_count, created_at FROM payroll_runs ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var run RunRecord
		var periodStart, periodEnd, createdAt string
		if err := rows.Scan(&run.ID, &periodStart, &periodEnd, &run.FiguresJSON, &run.AnomalyCount, &createdAt); err != nil {
			return nil, err
		}
		run.PeriodStart, _ = time.Parse(time.RFC3339, periodStart)
		run.PeriodEnd, _ = time.Parse(time.RFC3339, periodEnd)
		run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func defaultDecimal(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}

func isSlotUniquenessError(err error) bool {
	// Expression indexes report as "index 'name'" rather than column lists.
	return err != nil && (strings.Contains(err.Error(), "idx_unique_punch_slot") ||
		strings.Contains(err.Error(), "punches.employee_id"))
}
