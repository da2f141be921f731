package server

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mchurichi/logdash/internal/logger"
	"github.com/mchurichi/logdash/pkg/filter"
	"github.com/mchurichi/logdash/pkg/flow"
	"github.com/mchurichi/logdash/pkg/record"
	"github.com/mchurichi/logdash/pkg/stats"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
	sendBuffer     = 16
)

// Client actions.
const (
	actionQuery = "query"
	actionFlow  = "flow"
	actionFiles = "files"
)

type request struct {
	Action string            `json:"action"`
	ID     string            `json:"id,omitempty"`
	Params map[string]string `json:"params"`
}

type resultsMessage struct {
	Type       string           `json:"type"`
	ID         string           `json:"id,omitempty"`
	Logs       []*record.Record `json:"logs"`
	Statistics *stats.Bundle    `json:"statistics"`
	TookMS     int64            `json:"took_ms"`
}

type flowMessage struct {
	Type  string     `json:"type"`
	ID    string     `json:"id,omitempty"`
	Graph flow.Graph `json:"graph"`
}

type filesMessage struct {
	Type  string   `json:"type"`
	ID    string   `json:"id,omitempty"`
	Files []string `json:"files"`
}

type errorMessage struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

type client struct {
	conn *websocket.Conn
	send chan any
	// done is closed by readPump, stopped by writePump.
	done    chan struct{}
	stopped chan struct{}
}

// handleWebSocket handles GET /ws. Every request message gets exactly one
// reply; nothing is pushed unprompted.
func (s *Server) handleWebSocket(c *gin.Context) {
	log := logger.Get(c.Request.Context())

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warnw("websocket upgrade failed", "error", err)
		return
	}

	cl := &client{
		conn:    conn,
		send:    make(chan any, sendBuffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	s.mu.Lock()
	s.clients[conn] = cl
	s.mu.Unlock()
	log.Debugw("websocket client connected", "remote", conn.RemoteAddr().String())

	go s.writePump(cl)

	// The handler blocks in readPump so the request context stays valid
	// for the queries it runs.
	s.readPump(c.Request.Context(), cl)
	log.Debugw("websocket client disconnected")
}

// readPump reads messages from the WebSocket
func (s *Server) readPump(ctx context.Context, c *client) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, c.conn)
		s.mu.Unlock()
		close(c.done)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var req request
		if err := c.conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Get(ctx).Debugw("websocket read failed", "error", err)
			}
			return
		}

		select {
		case c.send <- s.answer(ctx, req):
		case <-c.stopped:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) answer(ctx context.Context, req request) any {
	params := url.Values{}
	for k, v := range req.Params {
		params.Set(k, v)
	}

	switch req.Action {
	case actionQuery:
		criteria, err := filter.ParseCriteria(params)
		if err != nil {
			return errorMessage{Type: "error", ID: req.ID, Error: err.Error()}
		}
		start := time.Now()
		res, err := s.engine.Query(ctx, criteria)
		if err != nil {
			return s.wsError(ctx, req, err)
		}
		return resultsMessage{
			Type:       "results",
			ID:         req.ID,
			Logs:       res.Logs,
			Statistics: res.Statistics,
			TookMS:     time.Since(start).Milliseconds(),
		}

	case actionFlow:
		criteria, err := filter.ParseCriteria(params)
		if err != nil {
			return errorMessage{Type: "error", ID: req.ID, Error: err.Error()}
		}
		graph, err := s.engine.Flow(ctx, criteria)
		if err != nil {
			return s.wsError(ctx, req, err)
		}
		return flowMessage{Type: "flow", ID: req.ID, Graph: graph}

	case actionFiles:
		files, err := s.engine.Files(ctx)
		if err != nil {
			return s.wsError(ctx, req, err)
		}
		return filesMessage{Type: "files", ID: req.ID, Files: files}

	default:
		return errorMessage{Type: "error", ID: req.ID, Error: fmt.Sprintf("unknown action %q", req.Action)}
	}
}

func (s *Server) wsError(ctx context.Context, req request, err error) errorMessage {
	logger.Get(ctx).Errorw("websocket query failed", "action", req.Action, "error", err)
	return errorMessage{Type: "error", ID: req.ID, Error: "failed to read logs"}
}

// writePump sends messages to the WebSocket
func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.stopped)
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.conn.Close()
				return
			}

		case <-ticker.C:
			// Send ping to keep connection alive
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}

		case <-c.done:
			return
		}
	}
}
