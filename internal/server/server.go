package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"iiqsort/internal/config"
	"iiqsort/internal/db"
	"iiqsort/internal/logger"
	"iiqsort/internal/model"
	"iiqsort/internal/pipeline"
	"iiqsort/internal/repository"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// RunnerFactory builds a runner for one request's configuration.
type RunnerFactory func(cfg *config.Config) *pipeline.Runner

type Server struct {
	echo      *echo.Echo
	cfg       *config.Config
	newRunner RunnerFactory
	histRepo  *repository.HistoryRepository
	port      int
	stopCh    chan struct{}

	mu      sync.Mutex
	running bool
	runs    int
	last    *model.Summary
}

func New(cfg *config.Config, newRunner RunnerFactory, port int) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:      e,
		cfg:       cfg,
		newRunner: newRunner,
		histRepo:  repository.NewHistoryRepository(),
		port:      port,
		stopCh:    make(chan struct{}, 1),
	}
	s.registerRoutes()
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) registerRoutes() {
	s.echo.GET("/status", s.handleStatus)
	s.echo.POST("/stop", s.handleStop)

	s.echo.POST("/runs", s.handleRun)

	s.echo.GET("/history", s.handleHistory)
	s.echo.GET("/history/:run_id", s.handleRunHistory)
	s.echo.GET("/stats", s.handleStats)
}

func (s *Server) Start() {
	go func() {
		addr := ":" + strconv.Itoa(s.port)
		logger.Log.Info("api server started",
			zap.String("addr", addr))

		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("api server error", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) StopCh() <-chan struct{} {
	return s.stopCh
}

func (s *Server) handleStatus(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := model.RunSnapshot{
		Running: s.running,
		Runs:    s.runs,
		Last:    s.last,
	}
	if s.last != nil {
		finished := s.last.FinishedAt
		snap.LastRun = &finished
		snap.LastRunID = s.last.RunID
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleStop(c echo.Context) error {
	select {
	case s.stopCh <- struct{}{}:
	default:
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "stopping"})
}

type runRequest struct {
	Source    string `json:"source"`
	Output    string `json:"output"`
	DryRun    *bool  `json:"dry_run"`
	Overwrite *bool  `json:"overwrite"`
}

func (s *Server) handleRun(c echo.Context) error {
	var req runRequest
	if err := c.Bind(&req); err != nil || req.Source == "" || req.Output == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "source and output required"})
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return c.JSON(http.StatusConflict, map[string]string{"error": "a run is already in progress"})
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	cfg := *s.cfg
	if req.DryRun != nil {
		cfg.DryRun = *req.DryRun
	}
	if req.Overwrite != nil {
		cfg.Overwrite = *req.Overwrite
	}

	sum, err := s.newRunner(&cfg).Run(c.Request().Context(), req.Source, req.Output)
	if err != nil {
		status := http.StatusInternalServerError
		if config.IsConfigError(err) {
			status = http.StatusBadRequest
		}
		return c.JSON(status, map[string]string{"error": err.Error()})
	}

	s.mu.Lock()
	s.runs++
	s.last = sum
	s.mu.Unlock()

	return c.JSON(http.StatusOK, sum)
}

func (s *Server) handleHistory(c echo.Context) error {
	if !db.Enabled() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "history is disabled"})
	}

	n := 20
	if v := c.QueryParam("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "n must be a positive integer"})
		}
		n = parsed
	}

	histories, err := s.histRepo.GetRecent(n)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, histories)
}

func (s *Server) handleRunHistory(c echo.Context) error {
	if !db.Enabled() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "history is disabled"})
	}

	histories, err := s.histRepo.GetRun(c.Param("run_id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if len(histories) == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}
	return c.JSON(http.StatusOK, histories)
}

func (s *Server) handleStats(c echo.Context) error {
	if !db.Enabled() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "history is disabled"})
	}

	stats, err := s.histRepo.GetStats()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}

// ShutdownTimeout bounds how long Stop waits for in-flight requests.
const ShutdownTimeout = 5 * time.Second
