package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jat99/PowerMonitor/internal/api"
	"github.com/jat99/PowerMonitor/internal/api/middleware"
	"github.com/jat99/PowerMonitor/internal/series"
	"github.com/jat99/PowerMonitor/internal/services"
	"github.com/jat99/PowerMonitor/internal/testutil"
	"github.com/jat99/PowerMonitor/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiSetup struct {
	*testutil.TestSetup
	auth map[string]string
}

func newAPISetup(t *testing.T) *apiSetup {
	ts := testutil.NewTestSetup(t)

	sp := services.NewServiceProvider(ts.Logger, ts.Config, ts.DB)
	require.NoError(t, sp.Initialize(context.Background()))
	t.Cleanup(func() { _ = sp.Shutdown() })

	router := api.NewRouter(ts.Config, ts.Logger, sp)
	router.SetupRoutes()
	ts.Router = router.GetEngine()

	token, err := middleware.IssueDeviceToken(&ts.Config.JWT, "meter-test", 0)
	require.NoError(t, err)

	return &apiSetup{
		TestSetup: ts,
		auth:      map[string]string{"Authorization": "Bearer " + token},
	}
}

func TestRouter_Health(t *testing.T) {
	ts := newAPISetup(t)

	resp := ts.ExecuteRequest("GET", "/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	var body map[string]interface{}
	ts.ParseResponse(resp, &body)
	assert.Equal(t, "up", body["database"])
	assert.NotContains(t, body, "kafka")
	assert.NotEmpty(t, resp.Header().Get(middleware.RequestIDHeader))
}

func TestRouter_Series(t *testing.T) {
	ts := newAPISetup(t)

	t.Run("Should list periods", func(t *testing.T) {
		resp := ts.ExecuteRequest("GET", "/api/periods", nil, nil)
		require.Equal(t, http.StatusOK, resp.Code)

		var periods []series.PeriodSpec
		ts.ParseResponse(resp, &periods)
		require.Len(t, periods, 3)
		assert.Equal(t, 96, periods[1].PointCount)
	})

	t.Run("Should default to the hour period", func(t *testing.T) {
		resp := ts.ExecuteRequest("GET", "/api/series/voltage", nil, nil)
		require.Equal(t, http.StatusOK, resp.Code)

		var chart series.Chart
		ts.ParseResponse(resp, &chart)
		assert.Len(t, chart.Points, 60)
		assert.Equal(t, series.Hour, chart.Period)
		assert.Equal(t, "Last Hour", chart.Title)
	})

	t.Run("Should build a week chart", func(t *testing.T) {
		resp := ts.ExecuteRequest("GET", "/api/series/power?period=week", nil, nil)
		require.Equal(t, http.StatusOK, resp.Code)

		var chart series.Chart
		ts.ParseResponse(resp, &chart)
		assert.Len(t, chart.Points, 7)
		assert.Len(t, chart.Ticks, 7)
	})

	t.Run("Should reject an unknown period", func(t *testing.T) {
		resp := ts.ExecuteRequest("GET", "/api/series/voltage?period=month", nil, nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)

		var body utils.ErrorResponse
		ts.ParseResponse(resp, &body)
		assert.Equal(t, "invalid_period", body.Error)
	})

	t.Run("Should reject an unknown quantity", func(t *testing.T) {
		resp := ts.ExecuteRequest("GET", "/api/series/frequency", nil, nil)
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

type outageBody struct {
	ID             string   `json:"id"`
	Status         string   `json:"status"`
	Duration       string   `json:"duration"`
	FormattedStart string   `json:"formatted_start"`
	FormattedEnd   string   `json:"formatted_end"`
	VoltageAfter   *float64 `json:"voltage_after"`
}

func TestRouter_OutageLifecycle(t *testing.T) {
	ts := newAPISetup(t)

	t.Run("Should require a device token to write", func(t *testing.T) {
		resp := ts.ExecuteRequest("POST", "/api/outages", map[string]interface{}{"voltage_before": 120}, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("Should validate the body", func(t *testing.T) {
		resp := ts.ExecuteRequest("POST", "/api/outages", map[string]interface{}{"cause": "storm"}, ts.auth)
		assert.Equal(t, http.StatusBadRequest, resp.Code)

		var body utils.ValidationErrorResponse
		ts.ParseResponse(resp, &body)
		require.Len(t, body.Errors, 1)
		assert.Equal(t, "voltage_before", body.Errors[0].Field)
	})

	var opened outageBody
	t.Run("Should open an outage", func(t *testing.T) {
		resp := ts.ExecuteRequest("POST", "/api/outages", map[string]interface{}{
			"start_time":     "2024-01-15T14:23:00Z",
			"voltage_before": 120.5,
			"cause":          "Grid failure",
		}, ts.auth)
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

		ts.ParseResponse(resp, &opened)
		assert.Equal(t, "Active", opened.Status)
		assert.Equal(t, "Ongoing", opened.Duration)
		assert.Equal(t, "-", opened.FormattedEnd)
	})

	t.Run("Should refuse a second active outage", func(t *testing.T) {
		resp := ts.ExecuteRequest("POST", "/api/outages", map[string]interface{}{
			"start_time":     "2024-01-15T14:30:00Z",
			"voltage_before": 119,
		}, ts.auth)
		assert.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("Should report the active outage", func(t *testing.T) {
		resp := ts.ExecuteRequest("GET", "/api/outages/active", nil, nil)
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("Should resolve by id", func(t *testing.T) {
		resp := ts.ExecuteRequest("POST", "/api/outages/"+opened.ID+"/resolve", map[string]interface{}{
			"end_time":      "2024-01-15T14:45:00Z",
			"voltage_after": 120.2,
		}, ts.auth)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var resolved outageBody
		ts.ParseResponse(resp, &resolved)
		assert.Equal(t, "Resolved", resolved.Status)
		assert.Equal(t, "22 min", resolved.Duration)
		require.NotNil(t, resolved.VoltageAfter)
		assert.Equal(t, 120.2, *resolved.VoltageAfter)
	})

	t.Run("Should refuse resolving twice", func(t *testing.T) {
		resp := ts.ExecuteRequest("POST", "/api/outages/resolve", map[string]interface{}{
			"end_time":      "2024-01-15T15:00:00Z",
			"voltage_after": 120,
		}, ts.auth)
		assert.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("Should 404 an unknown id", func(t *testing.T) {
		resp := ts.ExecuteRequest("POST", "/api/outages/999/resolve", map[string]interface{}{"voltage_after": 120}, ts.auth)
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("Should 404 when power is on", func(t *testing.T) {
		resp := ts.ExecuteRequest("GET", "/api/outages/active", nil, nil)
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

func TestRouter_ListOutages(t *testing.T) {
	ts := newAPISetup(t)

	for _, day := range []string{"2024-01-11", "2024-01-12", "2024-01-14"} {
		resp := ts.ExecuteRequest("POST", "/api/outages", map[string]interface{}{
			"start_time":     day + "T10:30:00Z",
			"voltage_before": 120,
		}, ts.auth)
		require.Equal(t, http.StatusCreated, resp.Code)

		resp = ts.ExecuteRequest("POST", "/api/outages/resolve", map[string]interface{}{
			"end_time":      day + "T12:45:00Z",
			"voltage_after": 120,
		}, ts.auth)
		require.Equal(t, http.StatusOK, resp.Code)
	}

	tests := []struct {
		name   string
		query  string
		status int
		count  int
	}{
		{"all", "", http.StatusOK, 3},
		{"single day", "?date=2024-01-12", http.StatusOK, 1},
		{"empty day", "?date=2024-01-13", http.StatusOK, 0},
		{"inclusive range", "?start_date=2024-01-12&end_date=2024-01-14", http.StatusOK, 2},
		{"half range", "?start_date=2024-01-12", http.StatusBadRequest, 0},
		{"reversed range", "?start_date=2024-01-14&end_date=2024-01-12", http.StatusBadRequest, 0},
		{"bad date", "?date=12/01/2024", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.ExecuteRequest("GET", "/api/outages"+tt.query, nil, nil)
			require.Equal(t, tt.status, resp.Code, resp.Body.String())
			if tt.status != http.StatusOK {
				return
			}

			var views []outageBody
			ts.ParseResponse(resp, &views)
			assert.Len(t, views, tt.count)
			for _, v := range views {
				assert.Equal(t, "2h 15min", v.Duration)
			}
		})
	}
}

func TestRouter_Measurements(t *testing.T) {
	ts := newAPISetup(t)

	t.Run("Should ingest a single reading", func(t *testing.T) {
		resp := ts.ExecuteRequest("POST", "/api/measurements", map[string]interface{}{
			"timestamp": "2024-01-15T14:20:00Z",
			"voltage":   120.4,
			"current":   11.2,
			"power":     1348,
			"pf":        0.97,
		}, ts.auth)
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	})

	t.Run("Should ingest a batch and detect the outage", func(t *testing.T) {
		resp := ts.ExecuteRequest("POST", "/api/measurements", []map[string]interface{}{
			{"timestamp": "2024-01-15T14:21:00Z", "voltage": 0},
			{"timestamp": "2024-01-15T14:22:00Z", "voltage": 0},
		}, ts.auth)
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

		resp = ts.ExecuteRequest("GET", "/api/outages/active", nil, nil)
		require.Equal(t, http.StatusOK, resp.Code)

		var active struct {
			VoltageBefore float64 `json:"voltage_before"`
			Cause         string  `json:"cause"`
		}
		ts.ParseResponse(resp, &active)
		assert.Equal(t, 120.4, active.VoltageBefore)
		assert.Equal(t, services.VoltageLossCause, active.Cause)
	})

	t.Run("Should reject an invalid reading", func(t *testing.T) {
		resp := ts.ExecuteRequest("POST", "/api/measurements", map[string]interface{}{"current": 3}, ts.auth)
		assert.Equal(t, http.StatusBadRequest, resp.Code)

		resp = ts.ExecuteRequest("POST", "/api/measurements", []interface{}{}, ts.auth)
		assert.Equal(t, http.StatusBadRequest, resp.Code)

		resp = ts.ExecuteRequest("POST", "/api/measurements", []map[string]interface{}{
			{"timestamp": "2024-01-15T14:23:00Z", "voltage": 120},
			{"timestamp": "2024-01-15T14:24:00Z", "voltage": 120, "pf": 2},
		}, ts.auth)
		require.Equal(t, http.StatusBadRequest, resp.Code)

		var body utils.ValidationErrorResponse
		ts.ParseResponse(resp, &body)
		require.Len(t, body.Errors, 1)
		assert.Equal(t, "[1].pf", body.Errors[0].Field)
	})

	t.Run("Should page readings", func(t *testing.T) {
		resp := ts.ExecuteRequest("GET", "/api/measurements?page=1&limit=2", nil, nil)
		require.Equal(t, http.StatusOK, resp.Code)

		var page utils.PaginatedResponse
		ts.ParseResponse(resp, &page)
		assert.Equal(t, int64(3), page.Pagination.TotalItems)
		assert.Equal(t, 2, page.Pagination.TotalPages)
	})

	t.Run("Should reject a non-numeric limit", func(t *testing.T) {
		resp := ts.ExecuteRequest("GET", "/api/measurements?limit=abc", nil, nil)
		require.Equal(t, http.StatusBadRequest, resp.Code)

		var body utils.ErrorResponse
		ts.ParseResponse(resp, &body)
		assert.Equal(t, "bad_request", body.Error)
	})
}

func TestRouter_Swagger(t *testing.T) {
	ts := newAPISetup(t)

	req := httptest.NewRequest("GET", "/swagger/index.html", nil)
	resp := httptest.NewRecorder()
	ts.Router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}
