package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type issueRequest struct {
	Screen string `json:"screen" binding:"required"`
}

// IssueCodeRequest is an exported model for Swagger docs of the issueCode payload.
type IssueCodeRequest struct {
	// Screen showing the countdown. Allowed: login_reset, find_id, signup
	Screen string `json:"screen" example:"signup"`
}

// bindJSONOrBadRequest tries to bind the request body into dst and writes a 400 JSON on failure.
// Returns false if the request was already handled (aborted), true otherwise.
func (h *Handler) bindJSONOrBadRequest(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.log.Infow("bad_request_body", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return false
	}
	return true
}

// @Summary      Issue verification code
// @Description  Starts the code validity countdown (default 02:15) for an auth screen.
// @Tags         verification
// @Accept       json
// @Produce      json
// @Param        payload  body      IssueCodeRequest  true  "Screen"
// @Success      201  {object}  models.VerificationStatus
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/verification [post]
func (h *Handler) issueCode(c *gin.Context) {
	var req issueRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	st, err := h.services.Verification.Issue(c.Request.Context(), req.Screen)
	if err != nil {
		h.respondError(c, "code_issue_failed", err, "screen", req.Screen)
		return
	}
	c.JSON(http.StatusCreated, st)
}

// @Summary      Get verification status
// @Tags         verification
// @Produce      json
// @Param        id   path      string  true  "Flow ID"
// @Success      200  {object}  models.VerificationStatus
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/verification/{id} [get]
func (h *Handler) getVerification(c *gin.Context) {
	st, err := h.services.Verification.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "code_status_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Resend verification code
// @Description  Explicitly restarts the countdown from the configured duration.
// @Tags         verification
// @Produce      json
// @Param        id   path      string  true  "Flow ID"
// @Success      200  {object}  models.VerificationStatus
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/verification/{id}/resend [post]
func (h *Handler) resendCode(c *gin.Context) {
	st, err := h.services.Verification.Resend(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "code_resend_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Cancel verification
// @Tags         verification
// @Produce      json
// @Param        id   path      string  true  "Flow ID"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/verification/{id} [delete]
func (h *Handler) cancelVerification(c *gin.Context) {
	id := c.Param("id")
	if err := h.services.Verification.Cancel(c.Request.Context(), id); err != nil {
		h.respondError(c, "code_cancel_failed", err, "flow_id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusCancelled, "flow_id": id})
}
