/*
handlers.go - HTTP API handlers for the attendance and payroll system

PURPOSE:
  Exposes the attendance engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Employees:
    GET    /api/employees                  List all employees
    POST   /api/employees                  Create employee
    GET    /api/employees/{id}             Get employee details
    POST   /api/employees/{id}/punches     Record a clock event
    GET    /api/employees/{id}/punches     Raw punch trail for a range
    GET    /api/employees/{id}/hours       Computed hours for one day
    GET    /api/employees/{id}/summary     Aggregated hours for one month

  Schedule:
    GET    /api/schedule                   Active schedule configuration
    PUT    /api/schedule                   Store a new schedule version

  Payroll:
    POST   /api/payroll/runs               Execute a payroll run
    GET    /api/payroll/runs               List completed runs
    GET    /api/payroll/runs/{id}          One run with its figures

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - ScheduleFactory: JSON to ScheduleConfig conversion
  - The active calculator/ledger pair, rebuilt when the schedule changes

  The schedule is read on every request and replaced rarely, so the
  active pair sits behind a RWMutex and PUT /api/schedule swaps it
  atomically. In-flight requests keep the snapshot they started with.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, bad schedule configuration
  - 404: Resource not found
  - 409: Conflict (filled punch slot, duplicate idempotency key)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/engine"
	"github.com/warp/attendance-engine/factory"
	"github.com/warp/attendance-engine/payroll"
	"github.com/warp/attendance-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store           *sqlite.Store
	ScheduleFactory *factory.ScheduleFactory

	mu      sync.RWMutex
	cfg     engine.ScheduleConfig
	calc    *engine.HoursCalculator
	ledger  *attendance.Ledger
	version int
}

// NewHandler creates a handler over the store, starting from the
// default schedule until LoadSchedule finds a stored version.
func NewHandler(store *sqlite.Store) *Handler {
	h := &Handler{
		Store:           store,
		ScheduleFactory: factory.NewScheduleFactory(),
	}
	cfg := engine.DefaultSchedule()
	calc, _ := engine.NewCalculator(cfg) // defaults always validate
	h.cfg, h.calc = cfg, calc
	h.ledger = attendance.NewLedger(store, cfg)
	return h
}

// LoadSchedule activates the latest stored schedule version, if any.
func (h *Handler) LoadSchedule(ctx context.Context) error {
	rec, err := h.Store.CurrentSchedule(ctx)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	cfg, err := h.ScheduleFactory.ParseSchedule(rec.ConfigJSON)
	if err != nil {
		return fmt.Errorf("stored schedule version %d is invalid: %w", rec.Version, err)
	}
	h.activate(cfg, rec.Version)
	return nil
}

func (h *Handler) activate(cfg engine.ScheduleConfig, version int) {
	calc, _ := engine.NewCalculator(cfg) // caller validated
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cfg = cfg
	h.calc = calc
	h.ledger = attendance.NewLedger(h.Store, cfg)
	h.version = version
}

// snapshot returns the active schedule, calculator, and ledger.
// Requests operate on the snapshot they took even if the schedule is
// replaced mid-flight.
func (h *Handler) snapshot() (engine.ScheduleConfig, *engine.HoursCalculator, *attendance.Ledger, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg, h.calc, h.ledger, h.version
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = employeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, employeeDTO(*emp))
}

// CreateEmployee creates or updates an employee record.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	hireDate := time.Now().UTC()
	if req.HireDate != "" {
		d, err := engine.ParseDay(req.HireDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid hire_date, expected YYYY-MM-DD", err)
			return
		}
		hireDate = d.Time
	}

	for field, v := range map[string]string{
		"base_salary": req.BaseSalary,
		"benefits":    req.Benefits,
		"deductions":  req.Deductions,
	} {
		if v == "" {
			continue
		}
		if _, err := decimal.NewFromString(v); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid decimal in "+field, err)
			return
		}
	}

	emp := sqlite.Employee{
		ID:         req.ID,
		Name:       req.Name,
		Email:      req.Email,
		BaseSalary: req.BaseSalary,
		Benefits:   req.Benefits,
		Deductions: req.Deductions,
		HireDate:   hireDate,
	}
	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, employeeDTO(emp))
}

func employeeDTO(e sqlite.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:         e.ID,
		Name:       e.Name,
		Email:      e.Email,
		BaseSalary: orZero(e.BaseSalary),
		Benefits:   orZero(e.Benefits),
		Deductions: orZero(e.Deductions),
		HireDate:   e.HireDate.Format("2006-01-02"),
	}
	if !e.CreatedAt.IsZero() {
		dto.CreatedAt = e.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// =============================================================================
// PUNCH HANDLERS
// =============================================================================

// RecordPunch records one clock event for an employee.
func (h *Handler) RecordPunch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}

	var req RecordPunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	at, err := time.Parse(time.RFC3339, req.At)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid at timestamp, expected RFC3339", err)
		return
	}

	_, _, ledger, _ := h.snapshot()
	event := engine.ClockEvent{
		ID:             engine.PunchID(newID("punch")),
		EmployeeID:     engine.EmployeeID(id),
		Label:          engine.ClockLabel(req.Label),
		At:             at,
		Source:         req.Source,
		IdempotencyKey: req.IdempotencyKey,
	}
	if err := ledger.RecordPunch(r.Context(), event); err != nil {
		writeDomainError(w, "Failed to record punch", err)
		return
	}

	writeJSON(w, http.StatusCreated, PunchDTO{
		ID:         string(event.ID),
		EmployeeID: id,
		Label:      string(event.Label),
		At:         at.UTC().Format(time.RFC3339),
		Source:     event.Source,
	})
}

// ListPunches returns the raw punch trail for a date range.
// Query params: from, to (YYYY-MM-DD, both default to today).
func (h *Handler) ListPunches(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	from, err := dayParam(r, "from", engine.Today())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date", err)
		return
	}
	to, err := dayParam(r, "to", from)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date", err)
		return
	}

	_, _, ledger, _ := h.snapshot()
	events, err := ledger.Punches(r.Context(), engine.EmployeeID(id), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load punches", err)
		return
	}

	dtos := make([]PunchDTO, len(events))
	for i, e := range events {
		dtos[i] = PunchDTO{
			ID:         string(e.ID),
			EmployeeID: string(e.EmployeeID),
			Label:      string(e.Label),
			At:         e.At.UTC().Format(time.RFC3339),
			Source:     e.Source,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HOURS HANDLERS
// =============================================================================

// GetDayHours computes the credited hours for one employee-day.
// Query param: date (YYYY-MM-DD, defaults to today).
func (h *Handler) GetDayHours(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	day, err := dayParam(r, "date", engine.Today())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	_, calc, ledger, _ := h.snapshot()
	set, anomalies, err := ledger.SessionsForDay(r.Context(), engine.EmployeeID(id), day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load punches", err)
		return
	}

	breakdown := calc.ComputeDay(engine.EmployeeID(id), day, set)
	breakdown.Anomalies = append(breakdown.Anomalies, anomalies...)
	writeJSON(w, http.StatusOK, dayHoursDTO(breakdown))
}

// GetPeriodSummary aggregates one employee's hours over a month.
// Query params: year, month (default to the current month).
func (h *Handler) GetPeriodSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	period, err := monthParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year/month", err)
		return
	}

	_, calc, ledger, _ := h.snapshot()
	days, err := ledger.SessionsInPeriod(r.Context(), engine.EmployeeID(id), period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load punches", err)
		return
	}

	totals := engine.NewPeriodTotals(engine.EmployeeID(id), period)
	for _, day := range days {
		breakdown := calc.ComputeDay(engine.EmployeeID(id), day.Date, day.Sessions)
		breakdown.Anomalies = append(breakdown.Anomalies, day.Anomalies...)
		totals = totals.Add(breakdown)
	}
	writeJSON(w, http.StatusOK, periodSummaryDTO(totals))
}

// =============================================================================
// SCHEDULE HANDLERS
// =============================================================================

// GetSchedule returns the active schedule configuration.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	cfg, _, _, version := h.snapshot()
	writeJSON(w, http.StatusOK, ScheduleDTO{
		Version: version,
		Config:  h.ScheduleFactory.ToJSON(cfg),
	})
}

// UpdateSchedule validates, stores, and activates a new schedule version.
// A configuration violating any rule is rejected whole, with every
// violation listed, and the previous version stays active.
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req UpdateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cfg, err := h.ScheduleFactory.FromJSON(req.Config)
	if err != nil {
		var cfgErr *engine.ConfigurationError
		if errors.As(err, &cfgErr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":      "Invalid schedule configuration",
				"violations": cfgErr.Violations,
			})
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid schedule", err)
		return
	}

	raw, err := json.Marshal(h.ScheduleFactory.ToJSON(cfg))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode schedule", err)
		return
	}
	version, err := h.Store.SaveSchedule(r.Context(), string(raw))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store schedule", err)
		return
	}

	h.activate(cfg, version)
	writeJSON(w, http.StatusOK, ScheduleDTO{
		Version: version,
		Config:  h.ScheduleFactory.ToJSON(cfg),
	})
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// RunPayroll executes a payroll run for one month across all employees
// and persists the result.
func (h *Handler) RunPayroll(w http.ResponseWriter, r *http.Request) {
	var req RunPayrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Year < 2000 || req.Month < 1 || req.Month > 12 {
		writeError(w, http.StatusBadRequest, "year and month are required", nil)
		return
	}
	period := engine.MonthlyPeriod(req.Year, time.Month(req.Month))

	runReq := payroll.RunRequest{Period: period}

	if req.ExpectedHours != "" {
		expected, err := decimal.NewFromString(req.ExpectedHours)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid expected_hours", err)
			return
		}
		runReq.ExpectedHours = expected
	}

	if req.Policy != nil {
		raw, _ := json.Marshal(req.Policy)
		policy, err := factory.ParsePayrollPolicy(string(raw))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid payroll policy", err)
			return
		}
		runReq.Policy = policy.LatePolicy
		runReq.OvertimeToLeaveRatio = policy.OvertimeToLeaveRatio
		if runReq.ExpectedHours.IsZero() && policy.ExpectedMonthlyHours.IsPositive() {
			runReq.ExpectedHours = policy.ExpectedMonthlyHours
		}
	}

	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}
	for _, e := range employees {
		runReq.Employees = append(runReq.Employees, payroll.EmployeeRecord{
			ID:         engine.EmployeeID(e.ID),
			BaseSalary: parseStoredDecimal(e.BaseSalary),
			Benefits:   parseStoredDecimal(e.Benefits),
			Deductions: parseStoredDecimal(e.Deductions),
		})
	}

	_, calc, ledger, _ := h.snapshot()
	runner := payroll.NewRunner(calc, ledger, engine.PayrollDeriver{})
	result, err := runner.Run(r.Context(), runReq)
	if err != nil {
		writeDomainError(w, "Payroll run failed", err)
		return
	}

	figures := make([]PayrollFiguresDTO, len(result.Results))
	anomalyCount := result.Statistics.AnomalyCount
	for i, res := range result.Results {
		figures[i] = figuresDTO(res.Figures)
		anomalyCount += len(res.Figures.Warnings)
	}

	figuresJSON, err := json.Marshal(figures)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode run", err)
		return
	}

	run := sqlite.RunRecord{
		ID:           engine.RunID(newID("run")),
		PeriodStart:  period.Start.Time,
		PeriodEnd:    period.End.Time,
		FiguresJSON:  string(figuresJSON),
		AnomalyCount: anomalyCount,
	}
	if err := h.Store.SaveRun(r.Context(), run); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store run", err)
		return
	}

	writeJSON(w, http.StatusCreated, RunDTO{
		ID:           string(run.ID),
		PeriodStart:  period.Start.String(),
		PeriodEnd:    period.End.String(),
		Figures:      figures,
		AnomalyCount: anomalyCount,
	})
}

// ListRuns returns completed payroll runs, newest first, without their
// per-employee figures.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = RunDTO{
			ID:           string(run.ID),
			PeriodStart:  run.PeriodStart.Format("2006-01-02"),
			PeriodEnd:    run.PeriodEnd.Format("2006-01-02"),
			AnomalyCount: run.AnomalyCount,
			CreatedAt:    run.CreatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRun returns one payroll run with its figures.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.Store.GetRun(r.Context(), engine.RunID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get run", err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "Payroll run not found", nil)
		return
	}

	var figures []PayrollFiguresDTO
	if err := json.Unmarshal([]byte(run.FiguresJSON), &figures); err != nil {
		writeError(w, http.StatusInternalServerError, "Corrupt run record", err)
		return
	}

	writeJSON(w, http.StatusOK, RunDTO{
		ID:           string(run.ID),
		PeriodStart:  run.PeriodStart.Format("2006-01-02"),
		PeriodEnd:    run.PeriodEnd.Format("2006-01-02"),
		Figures:      figures,
		AnomalyCount: run.AnomalyCount,
		CreatedAt:    run.CreatedAt.Format(time.RFC3339),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func dayParam(r *http.Request, name string, fallback engine.Day) (engine.Day, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, nil
	}
	return engine.ParseDay(v)
}

func monthParam(r *http.Request) (engine.PayPeriod, error) {
	now := time.Now().UTC()
	year, month := now.Year(), int(now.Month())

	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &year); err != nil {
			return engine.PayPeriod{}, fmt.Errorf("bad year %q", v)
		}
	}
	if v := q.Get("month"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &month); err != nil {
			return engine.PayPeriod{}, fmt.Errorf("bad month %q", v)
		}
	}
	if month < 1 || month > 12 {
		return engine.PayPeriod{}, fmt.Errorf("month out of range: %d", month)
	}
	return engine.MonthlyPeriod(year, time.Month(month)), nil
}

// parseStoredDecimal reads a decimal persisted by this service. Stored
// values were validated on the way in; a corrupt one degrades to zero
// rather than failing the whole run.
func parseStoredDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

var idCounter uint64

func newID(prefix string) string {
	n := atomic.AddUint64(&idCounter, 1)
	return fmt.Sprintf("%s_%d_%d", prefix, time.Now().UnixNano(), n)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Detail = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, engine.ErrDuplicatePunch),
		errors.Is(err, engine.ErrDuplicateIdempotencyKey):
		writeError(w, http.StatusConflict, message, err)
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
