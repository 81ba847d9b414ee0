package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/fix-logviewer/backend/internal/config"
	"github.com/fix-logviewer/backend/internal/models"
	"github.com/fix-logviewer/backend/internal/parser"
	"github.com/fix-logviewer/backend/internal/testutil"
)

const logonLine = "2018-10-03 15:41:13,388 INFO : Sending FIX  message: " +
	"8=FIX.4.4|9=124|35=BE|49=BBNDTRFMD1|56=FIXCTSBOBGW|34=2|52=20181003-14:41:13.386|" +
	"923=eS8B7kkLlcxzPshEy4z8|924=1|553=bbndtrfmd1|554=testing1|10=046|"

func newTestRegistry(t *testing.T) *parser.Registry {
	t.Helper()
	dir := testutil.WriteStandardDictionaries(t)
	return parser.NewRegistry(config.DefaultCatalog(dir), zerolog.Nop())
}

func newRenderHandler(t *testing.T) (RenderHandler, *parser.Registry) {
	t.Helper()
	registry := newTestRegistry(t)
	return NewRenderHandler(parser.NewRenderer(registry, zerolog.Nop()), registry), registry
}

func renderContext(body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/render", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRenderHandler_HandleRender(t *testing.T) {
	handler, _ := newRenderHandler(t)

	body, _ := json.Marshal(renderRequest{Line: logonLine})
	c, rec := renderContext(string(body))
	require.NoError(t, handler.HandleRender(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var res models.RenderResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "BE", res.MsgType)
	assert.Equal(t, "UserRequest", res.MessageName)
	assert.True(t, strings.HasSuffix(res.Version, "FIX44.xml"), res.Version)
	require.Len(t, res.Lines, 12)
	assert.Equal(t, "+--BeginString[8] = FIX.4.4", res.Lines[0])
	assert.Equal(t, "|--UserRequestType[924] = LOG_ON_USER[1]", res.Lines[8])
	assert.Len(t, res.Fields, len(res.Lines))
	assert.Equal(t, "LOG_ON_USER", res.Fields[8].Description)
}

func TestRenderHandler_Errors(t *testing.T) {
	handler, _ := newRenderHandler(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{name: "invalid json", body: `{`, status: http.StatusBadRequest, code: "BAD_REQUEST"},
		{name: "empty line", body: `{"line":""}`, status: http.StatusBadRequest, code: "VALIDATION_ERROR"},
		{name: "no fix message", body: `{"line":"plain application log"}`, status: http.StatusUnprocessableEntity, code: "NO_FIX_MESSAGE"},
		{name: "unknown version", body: `{"line":"8=FIX.9.9|35=D|10=000|"}`, status: http.StatusUnprocessableEntity, code: "SCHEMA_UNAVAILABLE"},
		{name: "unknown msg type", body: `{"line":"8=FIX.4.4|35=ZZ|10=000|"}`, status: http.StatusUnprocessableEntity, code: "UNKNOWN_MSG_TYPE"},
		{name: "malformed tag", body: `{"line":"8=FIX.4.4|35=D|abc=1|10=000|"}`, status: http.StatusUnprocessableEntity, code: "MALFORMED_FIELD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := renderContext(tt.body)
			assertAPIError(t, handler.HandleRender(c), tt.status, tt.code)
		})
	}
}

func TestRenderHandler_HandleRenderMsgpack(t *testing.T) {
	handler, _ := newRenderHandler(t)

	body, _ := json.Marshal(renderRequest{Line: logonLine})
	c, rec := renderContext(string(body))
	require.NoError(t, handler.HandleRenderMsgpack(c))
	assert.Equal(t, msgpackContentType, rec.Header().Get(echo.HeaderContentType))

	var res models.RenderResult
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "BE", res.MsgType)
	assert.Len(t, res.Lines, 12)
}

func TestRenderHandler_HandleDictionaries(t *testing.T) {
	handler, _ := newRenderHandler(t)

	get := func() map[string]json.RawMessage {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/dictionaries", nil), rec)
		require.NoError(t, handler.HandleDictionaries(c))
		var out map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return out
	}

	before := get()
	assert.JSONEq(t, `[]`, string(before["loaded"]))

	var catalog config.DictionaryCatalog
	require.NoError(t, json.Unmarshal(before["catalog"], &catalog))
	assert.Equal(t, "FIX44.xml", catalog.BeginStrings["FIX.4.4"])

	body, _ := json.Marshal(renderRequest{Line: logonLine})
	c, _ := renderContext(string(body))
	require.NoError(t, handler.HandleRender(c))

	var loaded []parser.LoadedSchema
	require.NoError(t, json.Unmarshal(get()["loaded"], &loaded))
	require.Len(t, loaded, 1)
	assert.True(t, strings.HasSuffix(loaded[0].Key, "FIX44.xml"), loaded[0].Key)
	assert.Empty(t, loaded[0].Error)
}

func TestRenderHandler_NoRegistry(t *testing.T) {
	handler := NewRenderHandler(nil, nil)
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/dictionaries", nil), httptest.NewRecorder())
	assertAPIError(t, handler.HandleDictionaries(c), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE")
}
