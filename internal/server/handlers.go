package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) handleGetQueue(c *gin.Context) {
	items := s.Store.Items()

	if dest := c.Query("destination"); dest != "" {
		items = s.Store.ByDestination(dest)
	} else if contentType := c.Query("type"); contentType != "" {
		items = s.Store.ByType(contentType)
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": len(items),
	})
}

func (s *Server) handleGetDailySchedule(c *gin.Context) {
	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
			return
		}
		date = parsed
	}

	c.JSON(http.StatusOK, gin.H{
		"date":     date.Format("2006-01-02"),
		"schedule": s.Store.DailySchedule(date),
	})
}

func (s *Server) handleValidateQueue(c *gin.Context) {
	warnings := s.Store.ValidateNoSameDayDuplicates()
	c.JSON(http.StatusOK, gin.H{
		"valid":    len(warnings) == 0,
		"warnings": warnings,
	})
}

func (s *Server) handleGetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"queue":   s.Store.Statistics(),
		"budgets": s.Dispatcher.BudgetState(),
		"catalog": gin.H{"sources": s.Catalog.Len()},
	})
}

func (s *Server) handleGetHistory(c *gin.Context) {
	days := 30
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid days parameter"})
			return
		}
		days = parsed
	}

	recs, err := s.Store.RecentlyPublished(c.Query("platform"), days)
	if err != nil {
		s.Logger.Error("Failed to load posting history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": recs,
		"total":   len(recs),
	})
}

func (s *Server) handleGetDestinations(c *gin.Context) {
	dests := s.Routes.Destinations()

	type destView struct {
		ID        string   `json:"id"`
		Name      string   `json:"name"`
		Platforms []string `json:"platforms"`
		Default   bool     `json:"default"`
	}

	out := make([]destView, 0, len(dests))
	for _, d := range dests {
		out = append(out, destView{
			ID:        d.ID,
			Name:      d.Name,
			Platforms: d.Platforms,
			Default:   d.Default,
		})
	}

	c.JSON(http.StatusOK, gin.H{"destinations": out})
}

func (s *Server) handleValidatePublishers(c *gin.Context) {
	results := s.Publishers.ValidateAll(c.Request.Context())

	out := make(map[string]gin.H, len(results))
	for platform, err := range results {
		if err != nil {
			out[platform] = gin.H{"valid": false, "error": err.Error()}
		} else {
			out[platform] = gin.H{"valid": true}
		}
	}

	c.JSON(http.StatusOK, gin.H{"publishers": out})
}

func (s *Server) handleRefill(c *gin.Context) {
	before := s.Store.Len()
	s.Dispatcher.RefillHorizon()
	after := s.Store.Len()

	c.JSON(http.StatusOK, gin.H{
		"message":  "Horizon refill completed",
		"enqueued": after - before,
		"total":    after,
	})
}

func (s *Server) handleDispatch(c *gin.Context) {
	s.Dispatcher.RunOnce(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"message":   "Dispatch pass completed",
		"remaining": s.Store.Len(),
	})
}

func (s *Server) handleReschedule(c *gin.Context) {
	contentID := c.Param("content_id")

	var body struct {
		ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scheduled_at is required (RFC 3339)"})
		return
	}

	found, err := s.Store.Reschedule(contentID, body.ScheduledAt)
	if err != nil {
		s.Logger.Error("Failed to reschedule content", zap.String("content_id", contentID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reschedule"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Content not found in queue"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Content rescheduled"})
}

func (s *Server) handleRemove(c *gin.Context) {
	contentID := c.Param("content_id")

	found, err := s.Store.Remove(contentID)
	if err != nil {
		s.Logger.Error("Failed to remove content", zap.String("content_id", contentID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Content not found in queue"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Content removed from queue"})
}
