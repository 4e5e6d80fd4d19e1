// Package staging provides the content staging bounded context module.
// It enriches freeform preproduction content, detects near-duplicates, and
// stores the result for later use as evaluation input.
package staging

import (
	"greenlight_backend/internal/events"
	apphttp "greenlight_backend/internal/http"
	"greenlight_backend/internal/staging/handler"
	"greenlight_backend/internal/staging/repository"
	"greenlight_backend/internal/staging/service"
	"greenlight_backend/platform/logger"
	"greenlight_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the staging bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the staging module with all its dependencies.
func NewModule(pool *pgxpool.Pool, ai service.TextGenerator, search service.SimilaritySearcher, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, ai, search, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "staging"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts staged content routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	projects := ctx.V1.Group("/projects/:projectId")
	projects.POST("/content", m.handler.Stage)
	projects.GET("/content", m.handler.List)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
