package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livestore/internal/config"
	"github.com/roach88/livestore/internal/engine"
	"github.com/roach88/livestore/internal/tasks"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	eng, err := engine.New(context.Background(), config.Default(),
		engine.WithDatabase(filepath.Join(t.TempDir(), "api.db")),
		engine.WithMigrations(tasks.Migrations, tasks.MigrationsDir))
	require.NoError(t, err)
	srv := httptest.NewServer(New(eng).Routes())
	t.Cleanup(func() {
		srv.Close()
		_ = eng.Close()
	})
	return srv
}

func do(t *testing.T, method, url string, body any) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) == 0 {
		return resp.StatusCode, nil
	}
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return resp.StatusCode, out
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	status, body := do(t, http.MethodGet, srv.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestRoutes(t *testing.T) {
	srv := newTestServer(t)
	status, body := do(t, http.MethodGet, srv.URL+"/api/routes", nil)
	require.Equal(t, http.StatusOK, status)
	routes := body["routes"].([]any)
	require.Len(t, routes, 5)
	first := routes[0].(map[string]any)
	assert.Equal(t, "tasks", first["name"])
	assert.Equal(t, "task", first["table"])
}

func TestDataLifecycle(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, http.MethodPost, srv.URL+"/api/data/tasks", map[string]any{"title": "Buy milk"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "/tasks/1", body["identifier"])

	status, _ = do(t, http.MethodPost, srv.URL+"/api/data/tasks", map[string]any{})
	assert.Equal(t, http.StatusNoContent, status)

	status, body = do(t, http.MethodGet, srv.URL+"/api/data/tasks/1", nil)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].([]any)
	require.Len(t, data, 1)
	row := data[0].(map[string]any)
	assert.Equal(t, "Buy milk", row["title"])
	assert.Equal(t, false, row["finished"])

	status, body = do(t, http.MethodPatch, srv.URL+"/api/data/tasks/1",
		UpdateRequest{Values: map[string]any{"finished": true}})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["count"])

	status, body = do(t, http.MethodGet, srv.URL+"/api/data/tasks?finished=true&limit=5", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = do(t, http.MethodDelete, srv.URL+"/api/data/tasks?finished=true", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["count"])

	status, body = do(t, http.MethodDelete, srv.URL+"/api/data/tasks?finished=true", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["count"])
}

func TestErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown route", http.MethodGet, "/api/data/users", nil, http.StatusNotFound, "UNKNOWN_ROUTE"},
		{"bad limit", http.MethodGet, "/api/data/tasks?limit=-1", nil, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"unknown filter column", http.MethodGet, "/api/data/tasks?owner=me", nil, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"unknown insert column", http.MethodPost, "/api/data/tasks", map[string]any{"owner": "me"}, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"wrong type", http.MethodPatch, "/api/data/tasks/1", UpdateRequest{Values: map[string]any{"finished": "maybe"}}, http.StatusBadRequest, "INVALID_ARGUMENT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, tt.method, srv.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			detail := body["error"].(map[string]any)
			assert.Equal(t, tt.code, detail["code"])
		})
	}
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func dialWatch(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/watch"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, req WatchRequest) {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

type received struct {
	Type   string           `json:"type"`
	ID     string           `json:"id"`
	Target string           `json:"target"`
	Data   []map[string]any `json:"data"`
	Error  *ErrorDetail     `json:"error"`
}

func receive(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg received
	require.NoError(t, json.Unmarshal(data, &msg), string(data))
	return msg
}

func TestWatch_StreamsResults(t *testing.T) {
	srv := newTestServer(t)
	conn := dialWatch(t, srv)

	send(t, conn, WatchRequest{Type: "subscribe", ID: "s1", Target: "/tasks"})
	msg := receive(t, conn)
	assert.Equal(t, "subscribed", msg.Type)
	assert.Equal(t, "/tasks", msg.Target)

	msg = receive(t, conn)
	assert.Equal(t, "result", msg.Type)
	assert.Equal(t, "s1", msg.ID)
	assert.Empty(t, msg.Data)

	status, _ := do(t, http.MethodPost, srv.URL+"/api/data/tasks", map[string]any{"title": "Buy milk"})
	require.Equal(t, http.StatusCreated, status)

	msg = receive(t, conn)
	assert.Equal(t, "result", msg.Type)
	require.Len(t, msg.Data, 1)
	assert.Equal(t, "Buy milk", msg.Data[0]["title"])

	send(t, conn, WatchRequest{Type: "unsubscribe", ID: "s1"})
	msg = receive(t, conn)
	assert.Equal(t, "unsubscribed", msg.Type)
}

func TestWatch_Errors(t *testing.T) {
	srv := newTestServer(t)
	conn := dialWatch(t, srv)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	msg := receive(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "INVALID_ARGUMENT", msg.Error.Code)

	send(t, conn, WatchRequest{Type: "subscribe", Target: "/tasks"})
	msg = receive(t, conn)
	assert.Equal(t, "MISSING_VALUE", msg.Error.Code)

	send(t, conn, WatchRequest{Type: "subscribe", ID: "s1", Target: "/users"})
	msg = receive(t, conn)
	assert.Equal(t, "UNKNOWN_ROUTE", msg.Error.Code)

	send(t, conn, WatchRequest{Type: "poll", ID: "s1"})
	msg = receive(t, conn)
	assert.Equal(t, "INVALID_ARGUMENT", msg.Error.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(io.EOF))
}
