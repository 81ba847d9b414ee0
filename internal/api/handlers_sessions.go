// handlers_sessions.go - Indexing session and message query handlers
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/fix-logviewer/backend/internal/models"
	"github.com/fix-logviewer/backend/internal/parser"
	"github.com/fix-logviewer/backend/internal/storage"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000

	progressInterval = 100 * time.Millisecond
	progressTimeout  = 5 * time.Minute
)

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	store      storage.Store
	sessionMgr SessionManager
	renderer   LineRenderer
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(store storage.Store, sessionMgr SessionManager, renderer LineRenderer) SessionHandler {
	return &SessionHandlerImpl{
		store:      store,
		sessionMgr: sessionMgr,
		renderer:   renderer,
	}
}

// HandleStartSession starts indexing an uploaded file
func (h *SessionHandlerImpl) HandleStartSession(c echo.Context) error {
	var req startSessionRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.FileID == "" {
		return NewValidationError("fileId")
	}

	path, err := h.store.GetFilePath(req.FileID)
	if err != nil {
		return domainError(err, "file", req.FileID)
	}

	sess, err := h.sessionMgr.StartSession(req.FileID, path)
	if err != nil {
		return NewInternalError("failed to start session", err)
	}
	_ = h.store.SetStatus(req.FileID, models.FileStatusIndexing, sess.ID)

	return c.JSON(http.StatusAccepted, sess)
}

// HandleSessionStatus returns the current state of a session
func (h *SessionHandlerImpl) HandleSessionStatus(c echo.Context) error {
	id := c.Param("sessionId")
	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}
	h.syncFileStatus(sess)
	return c.JSON(http.StatusOK, sess)
}

// syncFileStatus copies a finished session's outcome onto its file.
func (h *SessionHandlerImpl) syncFileStatus(sess *models.IndexSession) {
	switch sess.Status {
	case models.SessionStatusComplete:
		_ = h.store.SetStatus(sess.FileID, models.FileStatusIndexed, sess.ID)
	case models.SessionStatusError:
		_ = h.store.SetStatus(sess.FileID, models.FileStatusError, sess.ID)
	}
}

// HandleSessionProgressStream streams session progress via Server-Sent Events
func (h *SessionHandlerImpl) HandleSessionProgressStream(c echo.Context) error {
	id := c.Param("sessionId")

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	timeout := time.NewTimer(progressTimeout)
	defer timeout.Stop()

	ctx := c.Request().Context()
	for {
		sess, ok := h.sessionMgr.GetSession(id)
		if !ok {
			sendSSEError(c, "session not found")
			return nil
		}
		sendSSEData(c, sess)
		if sess.Status == models.SessionStatusComplete || sess.Status == models.SessionStatusError {
			h.syncFileStatus(sess)
			return nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		case <-timeout.C:
			sendSSEError(c, "stream timeout")
			return nil
		}
	}
}

// HandleSessionKeepAlive protects a session from idle cleanup
func (h *SessionHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("sessionId")
	if !h.sessionMgr.TouchSession(id) {
		return NewNotFoundError("session", id)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// HandleMessages returns one page of a session's indexed messages
func (h *SessionHandlerImpl) HandleMessages(c echo.Context) error {
	page, err := h.queryMessages(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// HandleMessagesMsgpack returns one page of messages encoded as msgpack
func (h *SessionHandlerImpl) HandleMessagesMsgpack(c echo.Context) error {
	page, err := h.queryMessages(c)
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(page)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, msgpackContentType, data)
}

func (h *SessionHandlerImpl) queryMessages(c echo.Context) (*messagePage, error) {
	id := c.Param("sessionId")
	if err := h.requireSession(id); err != nil {
		return nil, err
	}

	page, pageSize := pagination(c)
	q := parser.MessageQuery{
		MsgType:       c.QueryParam("msgType"),
		SenderCompID:  c.QueryParam("sender"),
		TargetCompID:  c.QueryParam("target"),
		Search:        c.QueryParam("search"),
		SortDirection: strings.ToLower(c.QueryParam("sort")),
	}

	entries, total, err := h.sessionMgr.QueryMessages(c.Request().Context(), id, q, page, pageSize)
	if err != nil {
		return nil, domainError(err, "messages", id)
	}
	if entries == nil {
		entries = []models.MessageEntry{}
	}

	return &messagePage{
		Messages: entries,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// HandleMessageTypes returns per-MsgType counts for a session
func (h *SessionHandlerImpl) HandleMessageTypes(c echo.Context) error {
	id := c.Param("sessionId")
	if err := h.requireSession(id); err != nil {
		return err
	}

	types, err := h.sessionMgr.MessageTypes(c.Request().Context(), id)
	if err != nil {
		return domainError(err, "message types", id)
	}
	if types == nil {
		types = []models.MessageTypeCount{}
	}
	return c.JSON(http.StatusOK, types)
}

// HandleRenderMessage renders one indexed message as a field tree
func (h *SessionHandlerImpl) HandleRenderMessage(c echo.Context) error {
	id := c.Param("sessionId")
	if err := h.requireSession(id); err != nil {
		return err
	}

	raw := c.Param("msgId")
	msgID, err := strconv.Atoi(raw)
	if err != nil || msgID < 0 {
		return NewValidationError("msgId")
	}

	entry, err := h.sessionMgr.GetMessage(c.Request().Context(), id, msgID)
	if err != nil {
		return domainError(err, "message", raw)
	}

	rendered, err := h.renderer.RenderResult(entry.Raw)
	if err != nil {
		return renderError(err)
	}

	return c.JSON(http.StatusOK, renderedMessage{
		Message:  entry,
		Rendered: rendered,
	})
}

func (h *SessionHandlerImpl) requireSession(id string) error {
	if _, ok := h.sessionMgr.GetSession(id); !ok {
		return NewNotFoundError("session", id)
	}
	return nil
}

func pagination(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func sendSSEData(c echo.Context, data interface{}) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(c.Response(), "data: %s\n\n", jsonData)
	c.Response().Flush()
}

func sendSSEError(c echo.Context, message string) {
	sendSSEData(c, map[string]string{"error": message})
}

// Request/Response types

type startSessionRequest struct {
	FileID string `json:"fileId"`
}

type messagePage struct {
	Messages []models.MessageEntry `json:"messages" msgpack:"messages"`
	Total    int                   `json:"total" msgpack:"total"`
	Page     int                   `json:"page" msgpack:"page"`
	PageSize int                   `json:"pageSize" msgpack:"pageSize"`
}

type renderedMessage struct {
	Message  models.MessageEntry  `json:"message"`
	Rendered *models.RenderResult `json:"rendered"`
}
