package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"convstore/gateway"
	"convstore/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGateway answers by statement prefix. Message rows are returned as
// stored, so tests list them in the order the query asks for.
type stubGateway struct {
	mu       sync.Mutex
	conv     gateway.Row
	messages []gateway.Row
	err      error
	writes   []string
	limits   []any
}

func (s *stubGateway) Dialect() gateway.Dialect { return gateway.DialectSQLite }

func (s *stubGateway) Execute(_ context.Context, sql string, params ...any) (*gateway.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	sql = strings.TrimSpace(sql)
	switch {
	case strings.HasPrefix(sql, "SELECT conversation_id FROM Conversation"),
		strings.HasPrefix(sql, "SELECT * FROM Conversation"):
		if s.conv == nil {
			return &gateway.Result{}, nil
		}
		return &gateway.Result{Rows: []gateway.Row{s.conv}}, nil
	case strings.HasPrefix(sql, "SELECT * FROM Message"):
		s.limits = append(s.limits, params[len(params)-1])
		rows := make([]gateway.Row, len(s.messages))
		copy(rows, s.messages)
		return &gateway.Result{Rows: rows}, nil
	case strings.HasPrefix(sql, "SELECT 1"):
		return &gateway.Result{Rows: []gateway.Row{{"1": float64(1)}}}, nil
	default:
		s.writes = append(s.writes, sql)
		return &gateway.Result{Meta: gateway.Meta{Changes: 1}}, nil
	}
}

func conversationRow() gateway.Row {
	return gateway.Row{
		"conversation_id": "c1",
		"sequence":        "sequential",
		"status":          "active",
		"created_at":      "2025-03-01T12:00:00.000000Z",
	}
}

func newestFirstRows() []gateway.Row {
	return []gateway.Row{
		{"message_id": "m2", "conversation_id": "c1", "role": "assistant", "text": "hello", "timestamp": "2025-03-01T12:00:02.000000Z"},
		{"message_id": "m1", "conversation_id": "c1", "role": "user", "text": "hi", "timestamp": "2025-03-01T12:00:01.000000Z"},
	}
}

func setupRouter(gw *stubGateway) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	conversations := service.NewConversationService(gw)
	RegisterRoutes(r, NewConversationController(conversations, gw, 0), nil)
	return r
}

func doRequest(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetConversationXML(t *testing.T) {
	gw := &stubGateway{conv: conversationRow(), messages: newestFirstRows()}
	w := doRequest(setupRouter(gw), http.MethodGet, "/v1/conversations/c1", "")

	require.Equal(t, http.StatusOK, w.Code)
	expected := "<history>\n" +
		"<message>\n    <role>user</role>\n    <content>hi</content>\n</message>\n" +
		"<message>\n    <role>assistant</role>\n    <content>hello</content>\n</message>\n" +
		"</history>"
	assert.Equal(t, expected, w.Body.String())
	assert.Equal(t, []any{50}, gw.limits)
}

func TestGetConversationXMLNotFoundWithInput(t *testing.T) {
	w := doRequest(setupRouter(&stubGateway{}), http.MethodGet, "/v1/conversations/nope?user_input=hello", "")

	require.Equal(t, http.StatusOK, w.Code)
	expected := "<history>\n" + service.NotFoundXML + "\n</history>\n" +
		"<latest><message>\n    <role>user</role>\n    <content>hello</content>\n</message></latest>"
	assert.Equal(t, expected, w.Body.String())
}

func TestGetConversationJSON(t *testing.T) {
	gw := &stubGateway{conv: conversationRow(), messages: newestFirstRows()}
	w := doRequest(setupRouter(gw), http.MethodGet, "/v1/conversations/c1?format=json&user_input=next&max_round=2&message_id=m1", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"conversation":[
		{"role":"user","content":"hi"},
		{"role":"assistant","content":"hello"},
		{"role":"user","content":"next"}
	]}`, w.Body.String())
	assert.Equal(t, []any{2}, gw.limits)
}

func TestGetConversationJSONNotFound(t *testing.T) {
	w := doRequest(setupRouter(&stubGateway{}), http.MethodGet, "/v1/conversations/nope?format=json", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"conversation":[]}`, w.Body.String())
}

func TestGetConversationGatewayFailureRendersNotFound(t *testing.T) {
	gw := &stubGateway{err: &gateway.RequestError{StatusCode: 500, Body: "boom"}}
	r := setupRouter(gw)

	w := doRequest(r, http.MethodGet, "/v1/conversations/c1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<history>\n"+service.NotFoundXML+"\n</history>", w.Body.String())

	w = doRequest(r, http.MethodGet, "/v1/conversations/c1/raw", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestGetConversationBadQuery(t *testing.T) {
	r := setupRouter(&stubGateway{})

	w := doRequest(r, http.MethodGet, "/v1/conversations/c1?format=yaml", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "only 'xml' and 'json' are supported")

	w = doRequest(r, http.MethodGet, "/v1/conversations/c1?max_round=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodGet, "/v1/conversations/c1?max_round=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRawConversation(t *testing.T) {
	r := setupRouter(&stubGateway{conv: conversationRow(), messages: newestFirstRows()})

	w := doRequest(r, http.MethodGet, "/v1/conversations/c1/raw", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		ConversationID string `json:"conversation_id"`
		Messages       []struct {
			MessageID string `json:"message_id"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "c1", body.ConversationID)
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "m1", body.Messages[0].MessageID)

	w = doRequest(setupRouter(&stubGateway{}), http.MethodGet, "/v1/conversations/c1/raw", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPutMessage(t *testing.T) {
	gw := &stubGateway{}
	r := setupRouter(gw)

	w := doRequest(r, http.MethodPost, "/v1/messages", `{"conversation_id":"c1","role":"user","text":"hi","metadata":{"n":1}}`)
	require.Equal(t, http.StatusOK, w.Code)
	var res map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "c1", res["conversation_id"])
	assert.NotEmpty(t, res["message_id"])
	// conversation insert, message insert, latest pointer update
	assert.Len(t, gw.writes, 3)

	w = doRequest(r, http.MethodPost, "/v1/messages", `{"conversation_id":"c1","role":"user","text":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodPost, "/v1/messages", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPutMessageGatewayFailure(t *testing.T) {
	gw := &stubGateway{err: &gateway.RequestError{StatusCode: 503, Body: "unavailable"}}
	w := doRequest(setupRouter(gw), http.MethodPost, "/v1/messages", `{"conversation_id":"c1","role":"user","text":"hi"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestCreateConversation(t *testing.T) {
	gw := &stubGateway{}
	r := setupRouter(gw)

	w := doRequest(r, http.MethodPost, "/v1/conversations", `{"conversation_id":"t1","sequence":"tree"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sequence":"tree"`)
	assert.Len(t, gw.writes, 1)

	w = doRequest(r, http.MethodPost, "/v1/conversations", `{"sequence":"graph"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInitAndHealth(t *testing.T) {
	gw := &stubGateway{}
	r := setupRouter(gw)

	w := doRequest(r, http.MethodPost, "/v1/init", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"table":"Conversation"`)
	assert.Contains(t, w.Body.String(), `"table":"Message"`)

	w = doRequest(r, http.MethodGet, "/v1/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	gw.err = gateway.ErrDecode
	w = doRequest(r, http.MethodGet, "/v1/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doRequest(r, http.MethodPost, "/v1/init", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
