package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"social-publisher/lifecycle"
	"social-publisher/media"
	"social-publisher/models"

	"github.com/gin-gonic/gin"
)

type scheduleRequest struct {
	ScheduledDate time.Time `json:"scheduled_date" binding:"required"`
}

type publishRequest struct {
	Platforms []string    `json:"platforms"`
	Media     []media.Ref `json:"media"`
}

type fallbackRequest struct {
	Platform string `json:"platform" binding:"required"`
}

// publishResponse always carries the per-platform results.
type publishResponse struct {
	Post      *models.Post           `json:"post"`
	Scheduled bool                   `json:"scheduled"`
	Results   []models.PublishResult `json:"results"`
	Error     string                 `json:"error,omitempty"`
}

// CreatePost stores a new draft, or a scheduled post when it has a future date.
func (h *Handler) CreatePost(c *gin.Context) {
	var d lifecycle.Draft
	if err := c.ShouldBindJSON(&d); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid data")
		return
	}
	post, err := h.Posts.Create(c.Request.Context(), ActorFrom(c), d)
	if err != nil {
		RespondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// ListPosts lists the caller's posts, optionally filtered by ?status=a,b.
func (h *Handler) ListPosts(c *gin.Context) {
	var statuses []models.PostStatus
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status := models.PostStatus(strings.TrimSpace(s))
			if !status.Valid() {
				RespondError(c, http.StatusBadRequest, "unknown status "+s)
				return
			}
			statuses = append(statuses, status)
		}
	}
	posts, err := h.Posts.List(c.Request.Context(), ActorFrom(c), statuses...)
	if err != nil {
		RespondErr(c, err)
		return
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (h *Handler) GetPost(c *gin.Context) {
	post, err := h.Posts.Get(c.Request.Context(), ActorFrom(c), c.Param("id"))
	if err != nil {
		RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// EditPost replaces the content; for published posts the edit results are included.
func (h *Handler) EditPost(c *gin.Context) {
	var d lifecycle.Draft
	if err := c.ShouldBindJSON(&d); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid data")
		return
	}
	post, edits, err := h.Posts.Edit(c.Request.Context(), ActorFrom(c), c.Param("id"), d)
	if err != nil {
		RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post, "edits": edits})
}

func (h *Handler) SchedulePost(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid data")
		return
	}
	post, err := h.Posts.Schedule(c.Request.Context(), ActorFrom(c), c.Param("id"), req.ScheduledDate)
	if err != nil {
		RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *Handler) UnschedulePost(c *gin.Context) {
	post, err := h.Posts.Unschedule(c.Request.Context(), ActorFrom(c), c.Param("id"))
	if err != nil {
		RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// SubmitPost sends the post to the moderation queue.
func (h *Handler) SubmitPost(c *gin.Context) {
	post, err := h.Moderation.Submit(c.Request.Context(), ActorFrom(c), c.Param("id"))
	if err != nil {
		RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// PublishPost fans the post out now. A total failure answers 502; partial
// failures answer 200 with the failing platforms in results.
func (h *Handler) PublishPost(c *gin.Context) {
	var req publishRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			RespondError(c, http.StatusBadRequest, "invalid data")
			return
		}
	}
	platforms, err := models.ParsePlatforms(req.Platforms)
	if err != nil {
		RespondErr(c, models.Invalid("platforms", "%v", err))
		return
	}

	out, err := h.Posts.Publish(c.Request.Context(), ActorFrom(c), c.Param("id"), platforms, req.Media)
	if err != nil {
		RespondErr(c, err)
		return
	}

	resp := publishResponse{Post: out.Post, Scheduled: out.Scheduled, Results: out.Results()}
	if resp.Results == nil {
		resp.Results = []models.PublishResult{}
	}
	status := http.StatusOK
	if failure := out.Failure(); failure != nil {
		resp.Error = failure.Error()
		var total *models.TotalPublishError
		if errors.As(failure, &total) {
			status = http.StatusBadGateway
		}
	}
	c.JSON(status, resp)
}

// AcknowledgeManualFallback records that the owner posted to a platform by hand.
func (h *Handler) AcknowledgeManualFallback(c *gin.Context) {
	var req fallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid data")
		return
	}
	p, err := models.ParsePlatform(req.Platform)
	if err != nil {
		RespondErr(c, models.Invalid("platform", "%v", err))
		return
	}
	post, err := h.Posts.AcknowledgeManualFallback(c.Request.Context(), ActorFrom(c), c.Param("id"), p)
	if err != nil {
		RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}
