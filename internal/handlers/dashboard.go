package handlers

import (
	"errors"
	"net/http"

	"emergency_dashboard/internal/dashboard"
	"emergency_dashboard/internal/navigation"
	"emergency_dashboard/internal/scheduler"
	"emergency_dashboard/internal/service"
	"emergency_dashboard/internal/verification"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK        = "ok"
	statusUnmounted = "unmounted"
	statusCancelled = "cancelled"

	errMountView       = "failed to mount view"
	errInternal        = "internal error"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// respondError maps domain errors to status codes. Client errors echo the
// error text; anything else is logged and answered with a generic message.
func (h *Handler) respondError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.logAndJSONError(c, code, errInternal, logKey, err, kv...)
		return
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrViewNotFound),
		errors.Is(err, service.ErrFlowNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrCodeExpired),
		errors.Is(err, verification.ErrStopped):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrNavOutOfRange),
		errors.Is(err, verification.ErrUnknownScreen),
		errors.Is(err, service.ErrUnknownForm),
		errors.Is(err, service.ErrInvalidTimeRange),
		errors.Is(err, service.ErrUnknownEventType),
		errors.Is(err, service.ErrInvalidLimit),
		errors.Is(err, navigation.ErrUnknownLink),
		errors.Is(err, scheduler.ErrInvalidInterval):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Request DTO for selecting a navigation tab.
type navRequest struct {
	Index *int `json:"index" binding:"required"`
}

// SelectNavRequest is an exported model for Swagger docs of the selectNav payload.
type SelectNavRequest struct {
	// Zero-based tab index
	Index int `json:"index" example:"1"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Mount dashboard view
// @Description  Starts the clock, progress and metrics tasks of a new view. Playback starts paused.
// @Tags         dashboard
// @Produce      json
// @Success      201  {object}  models.DashboardSnapshot
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/dashboard/views [post]
func (h *Handler) mountView(c *gin.Context) {
	snap, err := h.services.Dashboard.Mount(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errMountView, "view_mount_failed", err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

// @Summary      Get dashboard view
// @Tags         dashboard
// @Produce      json
// @Param        id   path      string  true  "View ID"
// @Success      200  {object}  models.DashboardSnapshot
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/dashboard/views/{id} [get]
func (h *Handler) getView(c *gin.Context) {
	snap, err := h.services.Dashboard.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "view_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// @Summary      Unmount dashboard view
// @Description  Cancels every task of the view.
// @Tags         dashboard
// @Produce      json
// @Param        id   path      string  true  "View ID"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/dashboard/views/{id} [delete]
func (h *Handler) unmountView(c *gin.Context) {
	id := c.Param("id")
	if err := h.services.Dashboard.Unmount(c.Request.Context(), id); err != nil {
		h.respondError(c, "view_unmount_failed", err, "view_id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusUnmounted, "view_id": id})
}

// @Summary      Toggle playback
// @Description  Flips play/pause. Progress is never reset.
// @Tags         dashboard
// @Produce      json
// @Param        id   path      string  true  "View ID"
// @Success      200  {object}  models.PlaybackState
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/dashboard/views/{id}/playback [post]
func (h *Handler) togglePlayback(c *gin.Context) {
	state, err := h.services.Dashboard.TogglePlayback(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "playback_toggle_failed", err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// @Summary      Select navigation tab
// @Tags         dashboard
// @Accept       json
// @Produce      json
// @Param        id       path      string            true  "View ID"
// @Param        payload  body      SelectNavRequest  true  "Tab index"
// @Success      200  {object}  models.DashboardSnapshot
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/dashboard/views/{id}/nav [post]
func (h *Handler) selectNav(c *gin.Context) {
	var req navRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	snap, err := h.services.Dashboard.SelectNav(c.Request.Context(), c.Param("id"), *req.Index)
	if err != nil {
		h.respondError(c, "nav_select_failed", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}
