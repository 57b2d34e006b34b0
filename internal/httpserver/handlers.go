package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tinytelemetry/edetail/internal/content"
	"github.com/tinytelemetry/edetail/internal/model"
)

// maxTrackField bounds free-text event fields.
const maxTrackField = 1024

func (s *Server) handleHealth(c *gin.Context) {
	count, err := s.deps.Store.TotalEvents()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read health metrics"})
		return
	}
	_, _, loaded := s.deps.Library.Document()

	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime":         time.Since(s.startTime).String(),
		"event_count":    count,
		"sitemap_loaded": loaded,
	})
}

func (s *Server) handleSitemap(c *gin.Context) {
	_, encoded, ok := s.deps.Library.Document()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sitemap not loaded"})
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "application/json; charset=utf-8", encoded)
}

func (s *Server) handlePage(c *gin.Context) {
	ref := c.Param("ref")
	body, err := s.deps.Library.Page(ref)
	switch {
	case err == nil:
		s.metrics.FragmentsServed.WithLabelValues("ok").Inc()
		c.Data(http.StatusOK, "text/html; charset=utf-8", body)
	case errors.Is(err, content.ErrInvalidRef):
		s.metrics.FragmentsServed.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page ref"})
	case errors.Is(err, model.ErrNotFound):
		s.metrics.FragmentsServed.WithLabelValues("missing").Inc()
		c.JSON(http.StatusNotFound, gin.H{"error": "page not found"})
	default:
		s.metrics.FragmentsServed.WithLabelValues("error").Inc()
		s.log.Error("httpserver: read fragment failed", "ref", ref, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read page"})
	}
}

func (s *Server) handleTrack(c *gin.Context) {
	var ev model.TrackEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid event: " + err.Error()})
		return
	}
	ev.Type = strings.TrimSpace(ev.Type)
	ev.ID = strings.TrimSpace(ev.ID)
	if len(ev.Type) > maxTrackField || len(ev.ID) > maxTrackField || len(ev.Description) > maxTrackField {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "event field too long"})
		return
	}

	if _, err := uuid.Parse(ev.EventID); err != nil {
		ev.EventID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	s.deps.Queue.Add(&ev)
	s.metrics.TrackEvents.WithLabelValues(ev.Type).Inc()
	s.log.Debug("httpserver: event tracked", "type", ev.Type, "id", ev.ID, "event_id", ev.EventID)

	c.JSON(http.StatusOK, gin.H{"success": true, "id": ev.EventID})
}

func (s *Server) handlePageviews(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
			return
		}
		limit = n
	}

	counts, err := s.deps.Store.PageviewCounts(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read pageviews"})
		return
	}
	if counts == nil {
		counts = []model.PageviewCount{}
	}
	c.JSON(http.StatusOK, gin.H{"pageviews": counts})
}

func (s *Server) handleEventTypes(c *gin.Context) {
	counts, err := s.deps.Store.EventTypeCounts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read event types"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"types": counts})
}

func (s *Server) handleSchema(c *gin.Context) {
	columns, err := s.deps.Store.ExecuteQuery(
		"SELECT table_name, column_name, data_type FROM information_schema.columns WHERE table_schema = 'main' ORDER BY table_name, ordinal_position",
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read schema metadata"})
		return
	}

	schema := make(map[string][]map[string]string)
	for _, row := range columns {
		table := fmt.Sprintf("%v", row["table_name"])
		schema[table] = append(schema[table], map[string]string{
			"column": fmt.Sprintf("%v", row["column_name"]),
			"type":   fmt.Sprintf("%v", row["data_type"]),
		})
	}

	counts, err := s.deps.Store.TableRowCounts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read table row counts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"description": s.deps.Store.SchemaDescription(),
		"tables":      schema,
		"row_counts":  counts,
	})
}

func (s *Server) handleQuery(c *gin.Context) {
	var req struct {
		SQL string `json:"sql" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing sql field"})
		return
	}

	results, err := s.deps.Store.ExecuteQuery(req.SQL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	columns := []string{}
	if len(results) > 0 {
		for col := range results[0] {
			columns = append(columns, col)
		}
		slices.Sort(columns)
	}

	c.JSON(http.StatusOK, gin.H{
		"columns":   columns,
		"rows":      results,
		"row_count": len(results),
	})
}

func (s *Server) handleBackups(c *gin.Context) {
	if s.deps.Backups == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "backups are disabled"})
		return
	}
	list, err := s.deps.Backups.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list backups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"backups": list})
}
