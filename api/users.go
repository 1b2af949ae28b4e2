package api

import (
	"net/http"

	"social-publisher/models"
	"social-publisher/roles"

	"github.com/gin-gonic/gin"
)

type roleRequest struct {
	Role   string `json:"role" binding:"required"`
	Reason string `json:"reason"`
}

// RegisterUser creates a plain user account.
func (h *Handler) RegisterUser(c *gin.Context) {
	var reg roles.Registration
	if err := c.ShouldBindJSON(&reg); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid data")
		return
	}
	user, err := h.Roles.RegisterUser(c.Request.Context(), reg)
	if err != nil {
		RespondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// ChangeRole answers 200 when the role was applied and 202 when it became a
// pending admin role request.
func (h *Handler) ChangeRole(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid data")
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		RespondErr(c, models.Invalid("role", "%v", err))
		return
	}
	out, err := h.Roles.ChangeRole(c.Request.Context(), ActorFrom(c), c.Param("id"), role, req.Reason)
	if err != nil {
		RespondErr(c, err)
		return
	}
	status := http.StatusOK
	if !out.Applied {
		status = http.StatusAccepted
	}
	c.JSON(status, out)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.Roles.DeleteUser(c.Request.Context(), ActorFrom(c), c.Param("id")); err != nil {
		RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ListRequests lists admin role requests, pending ones unless ?status= says
// otherwise; ?status=all lists every request.
func (h *Handler) ListRequests(c *gin.Context) {
	status := models.RequestStatus(c.DefaultQuery("status", string(models.RequestPending)))
	switch status {
	case "all":
		status = ""
	case models.RequestPending, models.RequestApproved, models.RequestRejected:
	default:
		RespondError(c, http.StatusBadRequest, "unknown status "+string(status))
		return
	}
	reqs, err := h.Roles.ListRequests(c.Request.Context(), ActorFrom(c), status)
	if err != nil {
		RespondErr(c, err)
		return
	}
	if reqs == nil {
		reqs = []*models.AdminRoleRequest{}
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs})
}

func (h *Handler) ApproveRequest(c *gin.Context) {
	req, err := h.Roles.ApproveRequest(c.Request.Context(), ActorFrom(c), c.Param("id"))
	if err != nil {
		RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handler) RejectRequest(c *gin.Context) {
	req, err := h.Roles.RejectRequest(c.Request.Context(), ActorFrom(c), c.Param("id"))
	if err != nil {
		RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}
