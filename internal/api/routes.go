// routes.go - Route registration helpers
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/fix-logviewer/backend/internal/observability"
	"github.com/fix-logviewer/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store      storage.Store
	SessionMgr SessionManager
	Renderer   LineRenderer
	Registry   DictionaryRegistry
	Files      FileOptions
	Version    string
	Logger     zerolog.Logger

	// WSMaxMessageSize bounds render socket frames, in bytes.
	WSMaxMessageSize int64
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Render  RenderHandler
	Files   FileHandler
	Session SessionHandler
	Socket  *RenderSocket
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	var counter SchemaCounter
	if deps.Registry != nil {
		counter = deps.Registry
	}
	return &Handlers{
		Health:  NewHealthHandler(deps.Version, counter),
		Render:  NewRenderHandler(deps.Renderer, deps.Registry),
		Files:   NewFileHandler(deps.Store, deps.Files),
		Session: NewSessionHandler(deps.Store, deps.SessionMgr, deps.Renderer),
		Socket:  NewRenderSocket(deps.Renderer, deps.WSMaxMessageSize, deps.Logger),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers, enableMetrics bool) {
	apiGroup := e.Group("/api")

	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Rendering
	apiGroup.POST("/render", handlers.Render.HandleRender)
	apiGroup.POST("/render/msgpack", handlers.Render.HandleRenderMsgpack)
	apiGroup.GET("/dictionaries", handlers.Render.HandleDictionaries)
	apiGroup.GET("/ws/render", handlers.Socket.HandleWebSocket)

	// File management
	fileGroup := apiGroup.Group("/files")
	fileGroup.POST("/upload", handlers.Files.HandleUploadFile)
	fileGroup.POST("/upload/chunk", handlers.Files.HandleUploadChunk)
	fileGroup.POST("/upload/complete", handlers.Files.HandleCompleteUpload)
	fileGroup.GET("/recent", handlers.Files.HandleGetRecentFiles)
	fileGroup.GET("/:id", handlers.Files.HandleGetFile)
	fileGroup.DELETE("/:id", handlers.Files.HandleDeleteFile)
	fileGroup.PUT("/:id", handlers.Files.HandleRenameFile)

	// Index sessions
	sessionGroup := apiGroup.Group("/sessions")
	sessionGroup.POST("", handlers.Session.HandleStartSession)
	sessionGroup.GET("/:sessionId", handlers.Session.HandleSessionStatus)
	sessionGroup.GET("/:sessionId/progress", handlers.Session.HandleSessionProgressStream)
	sessionGroup.POST("/:sessionId/keepalive", handlers.Session.HandleSessionKeepAlive)
	sessionGroup.GET("/:sessionId/messages", handlers.Session.HandleMessages)
	sessionGroup.GET("/:sessionId/messages/msgpack", handlers.Session.HandleMessagesMsgpack)
	sessionGroup.GET("/:sessionId/messages/:msgId/render", handlers.Session.HandleRenderMessage)
	sessionGroup.GET("/:sessionId/message-types", handlers.Session.HandleMessageTypes)

	if enableMetrics {
		observability.RegisterMetrics()
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}
}

// MiddlewareOptions configures SetupMiddleware
type MiddlewareOptions struct {
	Logger            zerolog.Logger
	RequestLogging    bool
	Metrics           bool
	RequestTimeout    time.Duration
	BodyLimit         string
	EnableCompression bool
	CompressionLevel  int
	EnableCORS        bool
	AllowOrigins      string
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, opts MiddlewareOptions) {
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			opts.Logger.Error().Err(err).Bytes("stack", stack).Msg("Recovered from handler panic")
			return err
		},
	}))

	if opts.RequestLogging {
		e.Use(observability.RequestLogger(opts.Logger, quietPath))
	}
	if opts.Metrics {
		e.Use(observability.RequestMetrics())
	}

	if opts.RequestTimeout > 0 {
		e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout:      opts.RequestTimeout,
			Skipper:      isStreaming,
			ErrorMessage: "Request timeout - query took too long",
		}))
	}

	if opts.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level:   opts.CompressionLevel,
			Skipper: isStreaming,
		}))
	}

	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}

	if opts.EnableCORS {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: splitOrigins(opts.AllowOrigins),
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}

// quietPath skips request logging for polling endpoints.
func quietPath(c echo.Context) bool {
	path := c.Request().URL.Path
	return path == "/api/health" ||
		path == "/metrics" ||
		strings.HasSuffix(path, "/progress") ||
		strings.HasSuffix(path, "/keepalive")
}

// isStreaming matches SSE, WebSocket and upload requests, which outlive the
// request timeout and must not be buffered.
func isStreaming(c echo.Context) bool {
	req := c.Request()
	return req.Header.Get("Accept") == "text/event-stream" ||
		strings.EqualFold(req.Header.Get("Upgrade"), "websocket") ||
		strings.HasSuffix(req.URL.Path, "/progress") ||
		strings.Contains(req.URL.Path, "/upload")
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
