package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/roach88/livestore/internal/errs"
	"github.com/roach88/livestore/internal/plan"
	"github.com/roach88/livestore/internal/route"
	"github.com/roach88/livestore/internal/value"
	"github.com/roach88/livestore/internal/watch"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// WatchRequest is a client message on the watch stream:
//
//	{"type": "subscribe", "id": "s1", "target": "/tasks"}
//	{"type": "unsubscribe", "id": "s1"}
type WatchRequest struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Target string `json:"target,omitempty"`
}

// WatchMessage is a server message on the watch stream. Type is one of
// subscribed, result, unsubscribed or error.
type WatchMessage struct {
	Type   string       `json:"type"`
	ID     string       `json:"id,omitempty"`
	Target string       `json:"target,omitempty"`
	Data   any          `json:"data,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// wsConn serializes writes from the reader and from dispatchers.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(msg WatchMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) sendError(id string, err error) {
	code := string(errs.CodeExecution)
	var e *errs.Error
	if errors.As(err, &e) {
		code = string(e.Code)
	}
	_ = c.send(WatchMessage{Type: "error", ID: id, Error: &ErrorDetail{Code: code, Message: err.Error()}})
}

// handleWatch upgrades the connection and serves subscribe/unsubscribe
// messages. Every subscription is cancelled when the client disconnects.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	c := &wsConn{conn: conn}
	subs := map[string]*watch.Subscription{}
	defer func() {
		for _, sub := range subs {
			sub.Cancel()
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			slog.Debug("websocket closed", "error", err, "subscriptions", len(subs))
			return
		}

		var req WatchRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			c.sendError("", errs.New(errs.CodeInvalidArgument, "invalid JSON"))
			continue
		}

		switch strings.ToLower(req.Type) {
		case "subscribe":
			if req.ID == "" {
				c.sendError("", errs.New(errs.CodeMissingValue, "missing subscription id"))
				continue
			}
			if _, dup := subs[req.ID]; dup {
				c.sendError(req.ID, errs.New(errs.CodeInvalidArgument, "subscription %q already exists", req.ID))
				continue
			}
			sub, err := s.subscribe(c, req)
			if err != nil {
				c.sendError(req.ID, err)
				continue
			}
			subs[req.ID] = sub

		case "unsubscribe":
			if sub, ok := subs[req.ID]; ok {
				sub.Cancel()
				delete(subs, req.ID)
			}
			_ = c.send(WatchMessage{Type: "unsubscribed", ID: req.ID})

		default:
			c.sendError(req.ID, errs.New(errs.CodeInvalidArgument, "unknown message type %q", req.Type))
		}
	}
}

// subscribe registers a watch whose results stream to c, acknowledges it,
// then starts it so the acknowledgement precedes the first result.
func (s *Server) subscribe(c *wsConn, req WatchRequest) (*watch.Subscription, error) {
	id := route.Identifier(req.Target).Normalize()
	table, err := s.engine.TableOf(id)
	if err != nil {
		return nil, err
	}
	schema := s.engine.Schema()

	sub, err := watch.Register(s.engine.Watch(), id, plan.Rows(schema.Columns(table)...), func(rows []value.Row) {
		out := make([]map[string]any, len(rows))
		for i, row := range rows {
			out[i] = schema.Plain(table, row)
		}
		if err := c.send(WatchMessage{Type: "result", ID: req.ID, Target: string(id), Data: out}); err != nil {
			slog.Debug("websocket send failed", "subscription", req.ID, "error", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if err := c.send(WatchMessage{Type: "subscribed", ID: req.ID, Target: string(id)}); err != nil {
		sub.Cancel()
		return nil, err
	}
	if err := sub.Start(); err != nil {
		sub.Cancel()
		return nil, err
	}
	return sub, nil
}
