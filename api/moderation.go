package api

import (
	"net/http"

	"social-publisher/models"

	"github.com/gin-gonic/gin"
)

type rejectRequest struct {
	Reason string `json:"reason"`
}

// PendingPosts returns the review queue, oldest first.
func (h *Handler) PendingPosts(c *gin.Context) {
	posts, err := h.Moderation.Pending(c.Request.Context(), ActorFrom(c))
	if err != nil {
		RespondErr(c, err)
		return
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (h *Handler) ApprovePost(c *gin.Context) {
	post, err := h.Moderation.Approve(c.Request.Context(), ActorFrom(c), c.Param("id"))
	if err != nil {
		RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// RejectPost needs a non-empty reason; the lifecycle reports it as a validation error.
func (h *Handler) RejectPost(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid data")
		return
	}
	post, err := h.Moderation.Reject(c.Request.Context(), ActorFrom(c), c.Param("id"), req.Reason)
	if err != nil {
		RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}
