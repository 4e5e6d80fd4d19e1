// Package evaluation provides the department evaluation bounded context
// module: sequential stage gating, external task submission, webhook and
// poll reconciliation, and aggregate project readiness.
package evaluation

import (
	"greenlight_backend/internal/departments"
	"greenlight_backend/internal/evaluation/handler"
	"greenlight_backend/internal/evaluation/repository"
	"greenlight_backend/internal/evaluation/service"
	"greenlight_backend/internal/events"
	apphttp "greenlight_backend/internal/http"
	"greenlight_backend/platform/logger"
	"greenlight_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the evaluation bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the evaluation module with all its
// dependencies.
func NewModule(pool *pgxpool.Pool, catalog *departments.Catalog, content service.ContentProvider, tasks service.TaskClient, locker service.StageLocker, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, catalog, content, tasks, locker, bus, log)
	h := handler.New(svc, val, log)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "evaluation"
}

// Service returns the service layer for external use (scheduler workers).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts evaluation routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	projects := ctx.V1.Group("/projects/:projectId")
	projects.GET("/departments", m.handler.ListStages)
	projects.GET("/departments/:departmentNumber", m.handler.GetStage)
	projects.POST("/departments/:departmentNumber/evaluate", m.handler.Evaluate)
	projects.POST("/departments/:departmentNumber/cancel", m.handler.Cancel)
	projects.GET("/readiness", m.handler.Readiness)

	ctx.V1.POST("/webhooks/evaluation", m.handler.Webhook)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
