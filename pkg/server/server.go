package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mchurichi/logdash/internal/logger"
	"github.com/mchurichi/logdash/pkg/engine"
	"github.com/mchurichi/logdash/pkg/filter"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

//go:embed templates/*.html static
var assets embed.FS

// Server represents the HTTP server
type Server struct {
	engine   *engine.Engine
	creds    Credentials
	pages    *template.Template
	upgrader websocket.Upgrader
	router   *gin.Engine
	handler  http.Handler

	mu         sync.Mutex
	clients    map[*websocket.Conn]*client
	httpServer *http.Server
	closed     bool
}

// NewServer creates a new HTTP server
func NewServer(eng *engine.Engine, creds Credentials) (*Server, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	s := &Server{
		engine: eng,
		creds:  creds,
		pages:  pages,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Dashboard is usually opened from another host name
			},
		},
		clients: make(map[*websocket.Conn]*client),
	}
	s.router = s.routes()
	s.handler = compress(s.router)
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog())

	static, _ := fs.Sub(assets, "static")

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := r.Group("/", s.requireAuth())
	authed.GET("/", s.handleDashboard)
	authed.GET("/logs", s.handleLogsPage)
	authed.StaticFS("/static", http.FS(static))

	api := authed.Group("/api")
	api.GET("/logs", s.handleLogs)
	api.GET("/stats", s.handleStats)
	api.GET("/files", s.handleFiles)
	api.GET("/flow", s.handleFlow)

	authed.GET("/ws", s.handleWebSocket)
	return r
}

// compress gzips responses for clients that accept it. WebSocket upgrades
// go straight to the router since the connection is hijacked.
func compress(h http.Handler) http.Handler {
	gz := gzhttp.GzipHandler(h)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			h.ServeHTTP(w, r)
			return
		}
		gz.ServeHTTP(w, r)
	})
}

// Handler returns the complete HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on addr and serves until Shutdown is called. It returns nil
// after a clean shutdown.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return nil
	}
	s.httpServer = srv
	s.mu.Unlock()

	logger.Get(context.Background()).Infow("server listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes WebSocket clients and stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.httpServer
	for conn := range s.clients {
		conn.Close()
	}
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)

		ctx := c.Request.Context()
		l := logger.Get(ctx).With("request_id", id)
		c.Request = c.Request.WithContext(logger.WithContext(ctx, l))
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Get(c.Request.Context()).Debugw("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start),
		)
	}
}

// handleHealth handles GET /health
func (s *Server) handleHealth(c *gin.Context) {
	files, err := s.engine.Files(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "files": len(files)})
}

// handleLogs handles GET /api/logs
func (s *Server) handleLogs(c *gin.Context) {
	criteria, ok := s.criteria(c)
	if !ok {
		return
	}
	res, err := s.engine.Query(c.Request.Context(), criteria)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(c *gin.Context) {
	criteria, ok := s.criteria(c)
	if !ok {
		return
	}
	bundle, err := s.engine.Stats(c.Request.Context(), criteria)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bundle)
}

// handleFiles handles GET /api/files
func (s *Server) handleFiles(c *gin.Context) {
	files, err := s.engine.Files(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// handleFlow handles GET /api/flow
func (s *Server) handleFlow(c *gin.Context) {
	criteria, ok := s.criteria(c)
	if !ok {
		return
	}
	graph, err := s.engine.Flow(c.Request.Context(), criteria)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, graph)
}

func (s *Server) criteria(c *gin.Context) (filter.Criteria, bool) {
	criteria, err := filter.ParseCriteria(c.Request.URL.Query())
	if err != nil {
		s.fail(c, err)
		return filter.Criteria{}, false
	}
	return criteria, true
}

// fail maps an engine error to a response. Bad input is the caller's
// problem; anything else is logged and reported as a server error.
func (s *Server) fail(c *gin.Context, err error) {
	if errors.Is(err, filter.ErrInvalidCriteria) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	logger.Get(c.Request.Context()).Errorw("query failed", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read logs"})
}
