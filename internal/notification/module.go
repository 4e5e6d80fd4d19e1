// Package notification provides the notification bounded context module.
// Its only delivery channel is Server-Sent Events to connected browsers.
package notification

import (
	"io"
	"net/http"

	"greenlight_backend/internal/events"
	apphttp "greenlight_backend/internal/http"
	"greenlight_backend/internal/notification/sse"
	"greenlight_backend/platform/httpkit"
	"greenlight_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Module is the notification bounded context module implementing http.Module.
type Module struct {
	sse *sse.Service
}

// NewModule creates the notification module and subscribes it to the bus.
func NewModule(bus events.Bus, log *logger.Logger) *Module {
	return &Module{sse: sse.New(bus, log)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// SSE returns the underlying SSE service.
func (m *Module) SSE() *sse.Service {
	return m.sse
}

// RegisterRoutes mounts the event stream endpoint.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/projects/:projectId/events", m.stream)
}

// stream holds the connection open and writes pipeline events as they occur.
// GET /api/v1/projects/:projectId/events
func (m *Module) stream(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid project ID", nil)
		return
	}

	ch, cancel := m.sse.Subscribe(projectID)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(msg.Event, string(msg.Data))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
