package handlers

import (
	"net/http"

	"emergency_dashboard/internal/models"
	"emergency_dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

// Request DTO for the auth screens; the form name comes from the path.
type formRequest struct {
	FlowID string            `json:"flow_id"`
	Fields map[string]string `json:"fields"`
}

// @Summary      Submit auth form
// @Description  Authentication boundary stub: the payload is logged with passwords redacted and recorded on the timeline. Nothing is authenticated.
// @Tags         forms
// @Accept       json
// @Produce      json
// @Param        form     path      string  true  "Form"  Enums(login,signup,find_id,reset_password)
// @Param        payload  body      models.FormSubmission  true  "Fields and optional flow_id"
// @Success      200  {object}  models.SubmitResult
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string  "verification code expired"
// @Router       /api/v1/forms/{form} [post]
func (h *Handler) submitForm(c *gin.Context) {
	var req formRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	res, err := h.services.Forms.Submit(c.Request.Context(), models.FormSubmission{
		Form:   c.Param("form"),
		FlowID: req.FlowID,
		Fields: req.Fields,
	})
	if err != nil {
		h.respondError(c, "form_submit_failed", err, "form", c.Param("form"))
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary      Follow a navigation link
// @Description  Resolves a header/login link and hands it to the injected navigator.
// @Tags         navigation
// @Produce      json
// @Param        link  path      string  true  "Link"  Enums(home,login,signup,findid,resetpw)
// @Success      200   {object}  service.NavigateResult
// @Failure      400   {object}  map[string]string
// @Router       /api/v1/navigate/{link} [post]
func (h *Handler) navigate(c *gin.Context) {
	link := c.Param("link")
	path, err := h.services.Navigation.Navigate(c.Request.Context(), link)
	if err != nil {
		h.respondError(c, "navigate_failed", err, "link", link)
		return
	}
	c.JSON(http.StatusOK, service.NavigateResult{Link: link, Path: path})
}
