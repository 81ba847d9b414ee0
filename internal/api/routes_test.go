package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fix-logviewer/backend/internal/models"
	"github.com/fix-logviewer/backend/internal/parser"
	"github.com/fix-logviewer/backend/internal/session"
	"github.com/fix-logviewer/backend/internal/storage"
)

const routesLog = "09:00:00 OUT " + "8=FIX.4.4|9=10|35=BE|49=A|56=B|34=1|923=r1|924=1|553=u|10=000|\n" +
	"09:00:01 heartbeat timer\n" +
	"09:00:02 IN 8=FIX.4.4|9=10|35=BE|49=B|56=A|34=2|923=r2|924=2|553=v|10=000|\n"

func newTestServer(t *testing.T, logBuf *bytes.Buffer) *echo.Echo {
	t.Helper()
	logger := zerolog.Nop()
	if logBuf != nil {
		logger = zerolog.New(logBuf)
	}

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	registry := newTestRegistry(t)
	renderer := parser.NewRenderer(registry, logger)
	mgr := session.NewManager(parser.NewIndexer(registry, logger), session.Options{TempDir: t.TempDir()}, logger)
	t.Cleanup(mgr.Close)

	e := echo.New()
	SetupMiddleware(e, MiddlewareOptions{
		Logger:         logger,
		RequestLogging: true,
		Metrics:        true,
		BodyLimit:      "1M",
		EnableCORS:     true,
	})
	RegisterRoutes(e, NewHandlers(&Dependencies{
		Store:      store,
		SessionMgr: mgr,
		Renderer:   renderer,
		Registry:   registry,
		Files:      FileOptions{AllowedTypes: ".log", AllowDelete: true},
		Version:    "test",
		Logger:     logger,
	}), true)
	return e
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_UploadIndexQueryRender(t *testing.T) {
	e := newTestServer(t, nil)

	body, contentType := multipartBody(t, nil, "file", "session.log", []byte(routesLog))
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := serve(e, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var file models.FileInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &file))

	req = httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(`{"fileId":"`+file.ID+`"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = serve(e, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var sess models.IndexSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))

	require.Eventually(t, func() bool {
		rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.ID, nil))
		var s models.IndexSession
		if json.Unmarshal(rec.Body.Bytes(), &s) != nil {
			return false
		}
		return s.Status == models.SessionStatusComplete
	}, 10*time.Second, 20*time.Millisecond)

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/api/files/"+file.ID, nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &file))
	assert.Equal(t, models.FileStatusIndexed, file.Status)
	assert.Equal(t, sess.ID, file.SessionID)

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.ID+"/messages?sender=B", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page messagePage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 1, page.Total)
	assert.Equal(t, 3, page.Messages[0].LineNumber)

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.ID+"/message-types", nil))
	assert.JSONEq(t, `[{"msgType":"BE","messageName":"UserRequest","count":2}]`, rec.Body.String())

	msgID := page.Messages[0].ID
	rec = serve(e, httptest.NewRequest(http.MethodGet,
		"/api/sessions/"+sess.ID+"/messages/"+jsonInt(msgID)+"/render", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `UserRequestType[924] = LOG_OFF_USER[2]`)
}

func jsonInt(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestRoutes_ErrorResponses(t *testing.T) {
	e := newTestServer(t, nil)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/files/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "NOT_FOUND", apiErr.Code)

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"HTTP_ERROR"`)
}

func TestRoutes_HealthAndMetrics(t *testing.T) {
	e := newTestServer(t, nil)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.JSONEq(t, `{"status":"ok","version":"test","schemas":0}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/api/render", strings.NewReader(`{"line":"`+logonLine+`"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	require.Equal(t, http.StatusOK, serve(e, req).Code)

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `fixlog_render_lines_total{outcome="rendered"}`)
	assert.Contains(t, rec.Body.String(), `fixlog_http_requests_total{method="POST",path="/api/render",status="200"}`)
}

func TestRoutes_MetricsDisabled(t *testing.T) {
	e := echo.New()
	RegisterRoutes(e, NewHandlers(&Dependencies{Version: "test", Logger: zerolog.Nop()}), false)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoutes_RequestLogging(t *testing.T) {
	var buf bytes.Buffer
	e := newTestServer(t, &buf)

	serve(e, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.NotContains(t, buf.String(), "http_request")

	serve(e, httptest.NewRequest(http.MethodGet, "/api/files/recent", nil))
	assert.Contains(t, buf.String(), `"message":"http_request"`)
	assert.Contains(t, buf.String(), `"path":"/api/files/recent"`)

	buf.Reset()
	serve(e, httptest.NewRequest(http.MethodGet, "/api/files/missing", nil))
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"status":404`)
}
