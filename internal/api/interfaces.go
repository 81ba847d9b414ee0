// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/fix-logviewer/backend/internal/models"
	"github.com/fix-logviewer/backend/internal/parser"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// RenderHandler renders single log lines and reports dictionary state
type RenderHandler interface {
	HandleRender(c echo.Context) error
	HandleRenderMsgpack(c echo.Context) error
	HandleDictionaries(c echo.Context) error
}

// FileHandler handles uploaded log files
type FileHandler interface {
	HandleUploadFile(c echo.Context) error
	HandleUploadChunk(c echo.Context) error
	HandleCompleteUpload(c echo.Context) error
	HandleGetRecentFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
	HandleRenameFile(c echo.Context) error
}

// SessionHandler handles indexing sessions and message queries
type SessionHandler interface {
	HandleStartSession(c echo.Context) error
	HandleSessionStatus(c echo.Context) error
	HandleSessionProgressStream(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
	HandleMessages(c echo.Context) error
	HandleMessagesMsgpack(c echo.Context) error
	HandleMessageTypes(c echo.Context) error
	HandleRenderMessage(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	StartSession(fileID, filePath string) (*models.IndexSession, error)
	GetSession(id string) (*models.IndexSession, bool)
	TouchSession(id string) bool
	QueryMessages(ctx context.Context, id string, q parser.MessageQuery, page, pageSize int) ([]models.MessageEntry, int, error)
	GetMessage(ctx context.Context, id string, msgID int) (models.MessageEntry, error)
	MessageTypes(ctx context.Context, id string) ([]models.MessageTypeCount, error)
}

// LineRenderer renders one log line. *parser.Renderer implements it.
type LineRenderer interface {
	RenderResult(line string) (*models.RenderResult, error)
}
