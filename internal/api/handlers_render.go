// handlers_render.go - Single line rendering and dictionary status
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/fix-logviewer/backend/internal/config"
	"github.com/fix-logviewer/backend/internal/models"
	"github.com/fix-logviewer/backend/internal/parser"
)

const msgpackContentType = "application/msgpack"

// maxRenderLineBytes bounds a single line accepted by the render endpoints.
const maxRenderLineBytes = 1 << 20

// DictionaryRegistry exposes the catalog and the schemas built from it.
type DictionaryRegistry interface {
	Catalog() *config.DictionaryCatalog
	Loaded() []parser.LoadedSchema
}

// RenderHandlerImpl implements the RenderHandler interface
type RenderHandlerImpl struct {
	renderer LineRenderer
	registry DictionaryRegistry
}

// NewRenderHandler creates a new render handler
func NewRenderHandler(renderer LineRenderer, registry DictionaryRegistry) RenderHandler {
	return &RenderHandlerImpl{
		renderer: renderer,
		registry: registry,
	}
}

// HandleRender renders the FIX message embedded in a log line as JSON
func (h *RenderHandlerImpl) HandleRender(c echo.Context) error {
	res, err := h.renderRequest(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// HandleRenderMsgpack renders a log line and returns the result as msgpack
func (h *RenderHandlerImpl) HandleRenderMsgpack(c echo.Context) error {
	res, err := h.renderRequest(c)
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(res)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, msgpackContentType, data)
}

func (h *RenderHandlerImpl) renderRequest(c echo.Context) (*models.RenderResult, error) {
	var req renderRequest
	if err := c.Bind(&req); err != nil {
		return nil, NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	res, err := h.renderer.RenderResult(req.Line)
	if err != nil {
		return nil, renderError(err)
	}
	return res, nil
}

// HandleDictionaries returns the dictionary catalog and the schemas built so far
func (h *RenderHandlerImpl) HandleDictionaries(c echo.Context) error {
	if h.registry == nil {
		return NewServiceUnavailableError("no dictionary registry configured")
	}

	loaded := h.registry.Loaded()
	if loaded == nil {
		loaded = []parser.LoadedSchema{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"catalog": h.registry.Catalog(),
		"loaded":  loaded,
	})
}

// Request types

type renderRequest struct {
	Line string `json:"line"`
}

func (r *renderRequest) validate() error {
	if r.Line == "" {
		return NewValidationError("line")
	}
	if len(r.Line) > maxRenderLineBytes {
		return NewBadRequestError("line too long", nil)
	}
	return nil
}
