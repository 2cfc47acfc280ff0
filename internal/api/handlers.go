package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/3grands/habitflow/internal/coach"
	"github.com/3grands/habitflow/internal/constants"
	apperrors "github.com/3grands/habitflow/internal/errors"
	"github.com/3grands/habitflow/internal/models"
	"github.com/3grands/habitflow/internal/service"
	"github.com/3grands/habitflow/internal/validation"
)

// Handler serves the habit, mood and coaching endpoints
type Handler struct {
	habits *service.HabitService
	coach  coach.Coach
}

func NewHandler(habits *service.HabitService, c coach.Coach) *Handler {
	if c == nil {
		c = coach.RuleCoach{}
	}
	return &Handler{habits: habits, coach: c}
}

func habitID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid habit ID"})
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, v interface{}) bool {
	err := c.ShouldBindJSON(v)
	if err == nil {
		return true
	}
	var fieldErrs validator.ValidationErrors
	if apperrors.As(err, &fieldErrs) {
		writeError(c, validation.FieldErrors(fieldErrs))
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
	return false
}

// bindOptionalJSON binds v only when the request carries a body.
func bindOptionalJSON(c *gin.Context, v interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return bindJSON(c, v)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ListHabits(c *gin.Context) {
	list, err := h.habits.ListHabits(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetHabit(c *gin.Context) {
	id, ok := habitID(c)
	if !ok {
		return
	}
	habit, err := h.habits.GetHabit(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, habit)
}

func (h *Handler) CreateHabit(c *gin.Context) {
	var req CreateHabitRequest
	if !bindJSON(c, &req) {
		return
	}
	habit, err := h.habits.CreateHabit(c.Request.Context(), req.toModel())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, habit)
}

func (h *Handler) UpdateHabit(c *gin.Context) {
	id, ok := habitID(c)
	if !ok {
		return
	}

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(c.Request.Body).Decode(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}
	update, err := validation.BuildHabitUpdate(fields)
	if err != nil {
		writeError(c, err)
		return
	}

	habit, err := h.habits.UpdateHabit(c.Request.Context(), id, update)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, habit)
}

func (h *Handler) DeleteHabit(c *gin.Context) {
	id, ok := habitID(c)
	if !ok {
		return
	}
	if err := h.habits.DeleteHabit(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type transitionCall func(h *service.HabitService, c *gin.Context, id int64) (models.Transition, error)

func (h *Handler) transition(call transitionCall) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := habitID(c)
		if !ok {
			return
		}
		res, err := call(h.habits, c, id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func (h *Handler) Toggle() gin.HandlerFunc {
	return h.transition(func(s *service.HabitService, c *gin.Context, id int64) (models.Transition, error) {
		return s.Toggle(c.Request.Context(), id)
	})
}

// Complete and Undo act on today unless the body names another date.
func (h *Handler) Complete() gin.HandlerFunc {
	return h.dayTransition((*service.HabitService).CompleteOn)
}

func (h *Handler) Undo() gin.HandlerFunc {
	return h.dayTransition((*service.HabitService).UndoOn)
}

type dayCall func(s *service.HabitService, ctx context.Context, id int64, date string) (models.Transition, error)

func (h *Handler) dayTransition(call dayCall) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := habitID(c)
		if !ok {
			return
		}
		var req DayRequest
		if !bindOptionalJSON(c, &req) {
			return
		}
		res, err := call(h.habits, c.Request.Context(), id, req.Date)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func (h *Handler) Progress(c *gin.Context) {
	id, ok := habitID(c)
	if !ok {
		return
	}

	var req ProgressRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	delta := 1
	if req.Delta != nil {
		delta = *req.Delta
	}

	res, err := h.habits.RecordProgressOn(c.Request.Context(), id, delta, req.Date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.habits.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListMoods(c *gin.Context) {
	days := constants.StatsWindowDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 366 {
			writeError(c, apperrors.Validation("days must be between 1 and 366"))
			return
		}
		days = n
	}
	moods, err := h.habits.ListMoods(c.Request.Context(), days)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, moods)
}

func (h *Handler) AddMood(c *gin.Context) {
	var req MoodRequest
	if !bindJSON(c, &req) {
		return
	}
	entry, err := h.habits.AddMood(c.Request.Context(), req.Mood, req.Note)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *Handler) CoachingTip(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := h.habits.ListHabits(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	stats, err := h.habits.Stats(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	tip, err := h.coach.Tip(ctx, list, stats)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, TipResponse{Tip: tip})
}
