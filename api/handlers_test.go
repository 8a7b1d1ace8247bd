package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/factory"
	"github.com/warp/attendance-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestAPI(t *testing.T) http.Handler {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return api.NewRouter(api.NewHandler(store))
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func createEmployee(t *testing.T, router http.Handler, id string) {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/employees", api.CreateEmployeeRequest{
		ID:         id,
		Name:       "Test Employee " + id,
		BaseSalary: "3000",
		HireDate:   "2024-06-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func recordPunch(t *testing.T, router http.Handler, emp, label, at string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, router, http.MethodPost, "/api/employees/"+emp+"/punches", api.RecordPunchRequest{
		Label: label,
		At:    at,
	})
}

func fullDay(t *testing.T, router http.Handler, emp, date string) {
	t.Helper()
	for label, clock := range map[string]string{
		"morning_in":    "08:00",
		"morning_out":   "12:00",
		"afternoon_in":  "13:00",
		"afternoon_out": "17:00",
	} {
		rec := recordPunch(t, router, emp, label, fmt.Sprintf("%sT%s:00Z", date, clock))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
}

// factoryScheduleJSON builds a schedule override touching only the
// grace period.
func factoryScheduleJSON(grace *int) factory.ScheduleJSON {
	return factory.ScheduleJSON{GraceMinutes: grace}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestAPI_EmployeeLifecycle(t *testing.T) {
	router := newTestAPI(t)

	createEmployee(t, router, "emp-1")

	rec := do(t, router, http.MethodGet, "/api/employees", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]api.EmployeeDTO](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "3000", list[0].BaseSalary)

	rec = do(t, router, http.MethodGet, "/api/employees/emp-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/employees/emp-404", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_CreateEmployee_Validation(t *testing.T) {
	router := newTestAPI(t)

	rec := do(t, router, http.MethodPost, "/api/employees", api.CreateEmployeeRequest{Name: "No ID"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/employees", api.CreateEmployeeRequest{
		ID: "emp-1", Name: "Bad Salary", BaseSalary: "lots",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// PUNCHES AND HOURS
// =============================================================================

func TestAPI_PunchFlow_ComputesDayHours(t *testing.T) {
	router := newTestAPI(t)
	createEmployee(t, router, "emp-1")

	fullDay(t, router, "emp-1", "2025-03-10")

	rec := do(t, router, http.MethodGet, "/api/employees/emp-1/hours?date=2025-03-10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	hours := decode[api.DayHoursDTO](t, rec)
	assert.Equal(t, int64(8), hours.WholeHours)
	assert.Equal(t, 0, hours.LateMinutes)
	assert.Empty(t, hours.Anomalies)
}

func TestAPI_DuplicatePunch_Conflict(t *testing.T) {
	router := newTestAPI(t)
	createEmployee(t, router, "emp-1")

	rec := recordPunch(t, router, "emp-1", "morning_in", "2025-03-10T08:00:00Z")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = recordPunch(t, router, "emp-1", "morning_in", "2025-03-10T08:05:00Z")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_IdempotentRetry_Conflict(t *testing.T) {
	router := newTestAPI(t)
	createEmployee(t, router, "emp-1")

	body := api.RecordPunchRequest{Label: "morning_in", At: "2025-03-10T08:00:00Z", IdempotencyKey: "k-1"}
	rec := do(t, router, http.MethodPost, "/api/employees/emp-1/punches", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	body.Label = "morning_out"
	body.At = "2025-03-10T12:00:00Z"
	rec = do(t, router, http.MethodPost, "/api/employees/emp-1/punches", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_Punch_UnknownEmployee_NotFound(t *testing.T) {
	router := newTestAPI(t)

	rec := recordPunch(t, router, "emp-404", "morning_in", "2025-03-10T08:00:00Z")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_Punch_UnrecognizedLabel_BadRequest(t *testing.T) {
	// A label outside the four workday slots is the client's mistake,
	// not a server failure.

	router := newTestAPI(t)
	createEmployee(t, router, "emp-1")

	rec := recordPunch(t, router, "emp-1", "lunch_in", "2025-03-10T12:15:00Z")
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "lunch_in")
}

func TestAPI_DayHours_RoundedForDisplay(t *testing.T) {
	// GIVEN: A lone 08:31 entry and 18:00 exit spanning the break
	// THEN: The response carries four-place hours, whole hours, and the
	//       raw lateness

	router := newTestAPI(t)
	createEmployee(t, router, "emp-1")

	rec := recordPunch(t, router, "emp-1", "morning_in", "2025-03-10T08:31:00Z")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = recordPunch(t, router, "emp-1", "afternoon_out", "2025-03-10T18:00:00Z")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/employees/emp-1/hours?date=2025-03-10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	hours := decode[api.DayHoursDTO](t, rec)

	assert.Equal(t, "3.4833", hours.Morning.Hours)
	assert.Equal(t, "7.4833", hours.TotalHours)
	assert.Equal(t, int64(7), hours.WholeHours)
	assert.Equal(t, 31, hours.LateMinutes)
}

func TestAPI_PeriodSummary(t *testing.T) {
	router := newTestAPI(t)
	createEmployee(t, router, "emp-1")
	fullDay(t, router, "emp-1", "2025-03-10")
	fullDay(t, router, "emp-1", "2025-03-11")

	rec := do(t, router, http.MethodGet, "/api/employees/emp-1/summary?year=2025&month=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[api.PeriodSummaryDTO](t, rec)

	assert.Equal(t, "16", summary.WorkedHours)
	assert.Equal(t, 2, summary.WorkingDays)
	assert.Equal(t, 31, summary.CalendarDays)
}

// =============================================================================
// SCHEDULE
// =============================================================================

func TestAPI_Schedule_GetDefaults(t *testing.T) {
	router := newTestAPI(t)

	rec := do(t, router, http.MethodGet, "/api/schedule", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decode[api.ScheduleDTO](t, rec)

	assert.Equal(t, 0, dto.Version, "no stored version yet")
	require.NotNil(t, dto.Config.GraceMinutes)
	assert.Equal(t, 30, *dto.Config.GraceMinutes)
}

func TestAPI_Schedule_UpdateAndActivate(t *testing.T) {
	router := newTestAPI(t)

	grace := 15
	rec := do(t, router, http.MethodPut, "/api/schedule", api.UpdateScheduleRequest{
		Config: factoryScheduleJSON(&grace),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dto := decode[api.ScheduleDTO](t, rec)
	assert.Equal(t, 1, dto.Version)

	rec = do(t, router, http.MethodGet, "/api/schedule", nil)
	dto = decode[api.ScheduleDTO](t, rec)
	require.NotNil(t, dto.Config.GraceMinutes)
	assert.Equal(t, 15, *dto.Config.GraceMinutes)
}

func TestAPI_Schedule_InvalidConfig_RejectedWithViolations(t *testing.T) {
	router := newTestAPI(t)

	grace := 90
	rec := do(t, router, http.MethodPut, "/api/schedule", api.UpdateScheduleRequest{
		Config: factoryScheduleJSON(&grace),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "grace_range")

	// Previous (default) schedule stays active.
	rec = do(t, router, http.MethodGet, "/api/schedule", nil)
	dto := decode[api.ScheduleDTO](t, rec)
	assert.Equal(t, 30, *dto.Config.GraceMinutes)
}

// =============================================================================
// PAYROLL
// =============================================================================

func TestAPI_PayrollRun_EndToEnd(t *testing.T) {
	router := newTestAPI(t)
	createEmployee(t, router, "emp-1")
	fullDay(t, router, "emp-1", "2025-03-10")

	rec := do(t, router, http.MethodPost, "/api/payroll/runs", api.RunPayrollRequest{
		Year:          2025,
		Month:         3,
		ExpectedHours: "168",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	run := decode[api.RunDTO](t, rec)

	require.Len(t, run.Figures, 1)
	assert.Equal(t, "emp-1", run.Figures[0].EmployeeID)
	assert.Equal(t, "8", run.Figures[0].WorkedHours)
	// gross = 3000 * 8/168
	assert.Equal(t, "142.86", run.Figures[0].GrossPay)

	rec = do(t, router, http.MethodGet, "/api/payroll/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]api.RunDTO](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, run.ID, list[0].ID)

	rec = do(t, router, http.MethodGet, "/api/payroll/runs/"+run.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	fetched := decode[api.RunDTO](t, rec)
	assert.Len(t, fetched.Figures, 1)

	rec = do(t, router, http.MethodGet, "/api/payroll/runs/run-404", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_PayrollRun_Validation(t *testing.T) {
	router := newTestAPI(t)

	rec := do(t, router, http.MethodPost, "/api/payroll/runs", api.RunPayrollRequest{Year: 2025, Month: 13})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
