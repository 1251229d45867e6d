package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/salesflow/salesflow-api/internal/http/handler"
	"github.com/salesflow/salesflow-api/internal/jobs"
	"github.com/salesflow/salesflow-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type jobList []jobs.JobStatus

func (l jobList) Status() []jobs.JobStatus { return l }

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler_Live(t *testing.T) {
	h := handler.NewHealthHandler(testutil.SetupTestDB(t), nil, zap.NewNop())
	rr := httptest.NewRecorder()
	h.Live(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}

func TestHealthHandler_Database(t *testing.T) {
	h := handler.NewHealthHandler(testutil.SetupTestDB(t), nil, zap.NewNop())
	rr := httptest.NewRecorder()
	h.Database(rr, httptest.NewRequest(http.MethodGet, "/health/db", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body, "stats")
}

func TestHealthHandler_Ready(t *testing.T) {
	db := testutil.SetupTestDB(t)

	t.Run("all healthy", func(t *testing.T) {
		h := handler.NewHealthHandler(db, pingerFunc(func(context.Context) error { return nil }), zap.NewNop())
		rr := httptest.NewRecorder()
		h.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"healthy","checks":{"database":{"status":"healthy"},"backend":{"status":"healthy"}}}`, rr.Body.String())
	})

	t.Run("backend down", func(t *testing.T) {
		h := handler.NewHealthHandler(db, pingerFunc(func(context.Context) error { return errors.New("backend unreachable") }), zap.NewNop())
		rr := httptest.NewRecorder()
		h.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		var body struct {
			Status string                       `json:"status"`
			Checks map[string]map[string]string `json:"checks"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "unhealthy", body.Status)
		assert.Equal(t, "healthy", body.Checks["database"]["status"])
		assert.Equal(t, "backend unreachable", body.Checks["backend"]["error"])
	})
}

func TestHealthHandler_ReadyListsJobs(t *testing.T) {
	lastRun := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	h := handler.NewHealthHandler(testutil.SetupTestDB(t), nil, zap.NewNop()).WithJobs(jobList{
		{Name: jobs.SnapshotJobName, Schedule: "0 0 6 * * *", LastRun: &lastRun, LastError: "failed to capture snapshot: backend down"},
	})
	rr := httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Status string           `json:"status"`
		Jobs   []jobs.JobStatus `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	require.Len(t, body.Jobs, 1)
	assert.Equal(t, jobs.SnapshotJobName, body.Jobs[0].Name)
	assert.Equal(t, "failed to capture snapshot: backend down", body.Jobs[0].LastError)
	assert.True(t, lastRun.Equal(*body.Jobs[0].LastRun))
}
