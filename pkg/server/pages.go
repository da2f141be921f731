package server

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mchurichi/logdash/internal/logger"
	"github.com/mchurichi/logdash/pkg/filter"
	"github.com/mchurichi/logdash/pkg/record"
	"github.com/mchurichi/logdash/pkg/stats"
)

var levelClasses = map[string]string{
	"INFO":     "bg-success",
	"WARNING":  "bg-warning",
	"ERROR":    "bg-danger",
	"CRITICAL": "bg-dark",
	"DEBUG":    "bg-secondary",
}

// levelClass maps a level to the badge class used by the templates.
func levelClass(level string) string {
	if class, ok := levelClasses[level]; ok {
		return class
	}
	return "bg-secondary"
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func metadataJSON(v *record.Value) string {
	if v == nil {
		return ""
	}
	return v.Text()
}

func parsePages() (*template.Template, error) {
	return template.New("pages").Funcs(template.FuncMap{
		"levelClass":   levelClass,
		"formatTime":   formatTime,
		"metadataJSON": metadataJSON,
		"sortedKeys":   stats.SortedKeys,
	}).ParseFS(assets, "templates/*.html")
}

type dashboardPage struct {
	Username string
}

type logsPage struct {
	Username   string
	Criteria   filter.Criteria
	Logs       []*record.Record
	Statistics *stats.Bundle
	Files      []string
}

// handleDashboard handles GET /
func (s *Server) handleDashboard(c *gin.Context) {
	s.render(c, "dashboard.html", dashboardPage{Username: c.GetString(usernameKey)})
}

// handleLogsPage handles GET /logs. It accepts the same filters as
// /api/logs and shows every record when none are given.
func (s *Server) handleLogsPage(c *gin.Context) {
	criteria, ok := s.criteria(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	res, err := s.engine.Query(ctx, criteria)
	if err != nil {
		s.fail(c, err)
		return
	}
	files, err := s.engine.Files(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.render(c, "logs.html", logsPage{
		Username:   c.GetString(usernameKey),
		Criteria:   criteria,
		Logs:       res.Logs,
		Statistics: res.Statistics,
		Files:      files,
	})
}

// render writes the page only after the template executed completely.
func (s *Server) render(c *gin.Context, name string, data any) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Get(c.Request.Context()).Errorw("render failed", "template", name, "error", err)
		c.String(http.StatusInternalServerError, "failed to render page")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
