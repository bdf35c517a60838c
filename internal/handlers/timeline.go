package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"emergency_dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid   = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"
	errLimit       = "invalid 'limit'; use a non-negative integer"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// @Summary      List timeline events
// @Description  Filter the event log by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). If 'to' is date-only, it is treated as end-of-day inclusive.
// @Tags         timeline
// @Produce      json
// @Param        from  query   string  false  "Start of range"  example(2025-08-01)
// @Param        to    query   string  false  "End of range. Date-only treated as end of day."  example(2025-08-31)
// @Param        type  query   string  false  "Event type"  Enums(VIEW_MOUNTED,VIEW_UNMOUNTED,PLAYBACK_TOGGLED,NAV_SELECTED,CODE_ISSUED,CODE_RESENT,CODE_EXPIRED,CODE_CANCELLED,FORM_SUBMITTED,NAVIGATED)
// @Param        limit query   int     false  "Keep only the most recent N events"
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/timeline [get]
func (h *Handler) getTimeline(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		q   = service.TimelineQuery{Type: c.Query("type")}
		err error
	)
	if qs := c.Query("from"); qs != "" {
		q.From, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errFromInvalid})
			return
		}
	}
	if qs := c.Query("to"); qs != "" {
		q.To, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errToInvalid})
			return
		}
		if isDateOnly(qs) {
			q.To = q.To.Add(24*time.Hour - time.Millisecond).UTC()
		}
	}
	if qs := c.Query("limit"); qs != "" {
		q.Limit, err = strconv.Atoi(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errLimit})
			return
		}
	}

	events, err := h.services.Timeline.List(ctx, q)
	if err != nil {
		h.respondError(c, "timeline_list_failed", err, "from", q.From, "to", q.To, "type", q.Type)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2025-08-27T15:04:05Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}
