// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fix-logviewer/backend/internal/parser"
)

// SchemaCounter reports how many dictionary schemas are built.
type SchemaCounter interface {
	Loaded() []parser.LoadedSchema
}

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version  string
	registry SchemaCounter
}

// NewHealthHandler creates a new health handler. registry may be nil.
func NewHealthHandler(version string, registry SchemaCounter) HealthHandler {
	return &HealthHandlerImpl{
		version:  version,
		registry: registry,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	}
	if h.registry != nil {
		resp["schemas"] = len(h.registry.Loaded())
	}
	return c.JSON(http.StatusOK, resp)
}
