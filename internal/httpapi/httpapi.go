package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/slok/tierd/internal/app/osrelease"
	"github.com/slok/tierd/internal/app/promotion"
	"github.com/slok/tierd/internal/log"
	"github.com/slok/tierd/internal/model"
	"github.com/slok/tierd/internal/scheduler"
	"github.com/slok/tierd/internal/storage"
)

//go:generate mockery --case underscore --output httpapimock --outpkg httpapimock --name TaskController --structname MockTaskController
//go:generate mockery --case underscore --output httpapimock --outpkg httpapimock --name OSReleaseService --structname MockOSReleaseService
//go:generate mockery --case underscore --output httpapimock --outpkg httpapimock --name PromotionService --structname MockPromotionService

// TaskController controls the execution of the background tasks.
type TaskController interface {
	EnqueueTask(ctx context.Context, args model.TaskArgs, meta scheduler.EnqueueMeta) (string, error)
	PauseTask(id string) error
	ResumeTask(ctx context.Context, id string) error
	Running() []string
}

// OSReleaseService creates and lists OS releases.
type OSReleaseService interface {
	Create(ctx context.Context, req osrelease.CreateRequest) (*osrelease.CreateResponse, error)
	List(ctx context.Context) ([]model.OSRelease, error)
}

// PromotionService manages the stable promotion requests.
type PromotionService interface {
	Create(ctx context.Context, req promotion.CreateRequest) (*model.StablePromotionRequest, error)
	Approve(ctx context.Context, id, reviewer, reason string) (*model.StablePromotionRequest, error)
	Deny(ctx context.Context, id, reviewer, reason string) (*model.StablePromotionRequest, error)
	Get(ctx context.Context, id string) (*model.StablePromotionRequest, error)
	List(ctx context.Context, filter model.PromotionFilter) ([]model.StablePromotionRequest, error)
}

// HandlerConfig is the configuration for the admin HTTP API handler.
type HandlerConfig struct {
	Tasks      storage.TaskRepository
	Journal    storage.MoveJournalRepository
	Controller TaskController
	OSReleases OSReleaseService
	Promotions PromotionService
	// LogsDir is where the task logs are stored.
	LogsDir string
	Logger  log.Logger
}

func (c *HandlerConfig) defaults() error {
	if c.Tasks == nil {
		return fmt.Errorf("task repository is required")
	}
	if c.Journal == nil {
		return fmt.Errorf("move journal repository is required")
	}
	if c.Controller == nil {
		return fmt.Errorf("task controller is required")
	}
	if c.OSReleases == nil {
		return fmt.Errorf("os release service is required")
	}
	if c.Promotions == nil {
		return fmt.Errorf("promotion service is required")
	}
	if c.LogsDir == "" {
		return fmt.Errorf("logs dir is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "httpapi.Handler"})

	return nil
}

type handler struct {
	tasks      storage.TaskRepository
	journal    storage.MoveJournalRepository
	controller TaskController
	osReleases OSReleaseService
	promotions PromotionService
	logsDir    string
	validate   *validator.Validate
	logger     log.Logger
}

// NewHandler returns the admin HTTP API handler.
func NewHandler(cfg HandlerConfig) (http.Handler, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	h := handler{
		tasks:      cfg.Tasks,
		journal:    cfg.Journal,
		controller: cfg.Controller,
		osReleases: cfg.OSReleases,
		promotions: cfg.Promotions,
		logsDir:    cfg.LogsDir,
		validate:   validator.New(),
		logger:     cfg.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.listTasks)
			r.Get("/{id}", h.getTask)
			r.Get("/{id}/logs", h.getTaskLogs)
			r.Get("/{id}/moves", h.listTaskMoves)
			r.Post("/{id}/pause", h.pauseTask)
			r.Post("/{id}/resume", h.resumeTask)
		})

		r.Get("/os-releases", h.listOSReleases)
		r.Post("/os-releases", h.createOSRelease)
		r.Post("/testing-repo/update", h.updateTesting)

		r.Route("/promotions", func(r chi.Router) {
			r.Get("/", h.listPromotions)
			r.Post("/", h.createPromotion)
			r.Get("/{id}", h.getPromotion)
			r.Post("/{id}/approve", h.approvePromotion)
			r.Post("/{id}/deny", h.denyPromotion)
		})
	})

	return r, nil
}

func (h handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debugf("%s %s %d (%s)", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}
