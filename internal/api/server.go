// Package api serves the habit tracker's JSON HTTP API.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/3grands/habitflow/internal/logger"
	"github.com/3grands/habitflow/internal/metrics"
	"github.com/3grands/habitflow/internal/validation"
)

var registerTags sync.Once

// registerBindingTags teaches gin's shared validator the habit tags used in the DTOs.
func registerBindingTags() {
	registerTags.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			logger.Warn("gin validator engine is not validator/v10, habit tags unavailable")
			return
		}
		if err := validation.RegisterTags(v); err != nil {
			logger.Error("failed to register binding tags", "error", err)
		}
	})
}

// NewRouter wires every route behind recovery, logging, metrics and the security filter.
func NewRouter(h *Handler) *gin.Engine {
	registerBindingTags()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	router.Use(metrics.Middleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(SecurityFilter())
	api.GET("/health", h.Health)

	habits := api.Group("/habits")
	habits.GET("", h.ListHabits)
	habits.POST("", h.CreateHabit)
	habits.GET("/stats", h.Stats)
	habits.GET("/:id", h.GetHabit)
	habits.PATCH("/:id", h.UpdateHabit)
	habits.DELETE("/:id", h.DeleteHabit)
	habits.POST("/:id/toggle", h.Toggle())
	habits.POST("/:id/complete", h.Complete())
	habits.POST("/:id/undo", h.Undo())
	habits.POST("/:id/progress", h.Progress)

	api.GET("/mood", h.ListMoods)
	api.POST("/mood", h.AddMood)
	api.GET("/coaching/tip", h.CoachingTip)

	return router
}

// Server runs the router until its context is cancelled
type Server struct {
	http            *http.Server
	shutdownTimeout time.Duration
}

func NewServer(addr string, h *Handler) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(h),
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: 5 * time.Second,
	}
}

// Run listens until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	logger.Info("shutting down server")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server exited properly")
	return nil
}
