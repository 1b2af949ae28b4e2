// Package api exposes the post lifecycle, moderation and role workflows over HTTP.
package api

import (
	"net/http"

	"social-publisher/database"
	"social-publisher/lifecycle"
	"social-publisher/media"
	"social-publisher/moderation"
	"social-publisher/roles"

	"github.com/gin-gonic/gin"
)

// Handler serves every route; Media may be nil when uploads are disabled.
type Handler struct {
	Posts      *lifecycle.Machine
	Moderation *moderation.Workflow
	Roles      *roles.Workflow
	Store      database.Store
	Media      media.Storage
}

// NewRouter builds the engine with every route registered.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	SetupRoutes(r, h)
	return r
}

// SetupRoutes registers the API on r.
func SetupRoutes(r *gin.Engine, h *Handler) {
	r.GET("/health", h.Health)
	r.POST("/users", h.RegisterUser)

	switch storage := h.Media.(type) {
	case *media.DiskStorage:
		r.Static("/media", storage.Dir)
	case mediaOpener:
		r.GET("/media/:id", h.ServeMedia)
	}

	auth := r.Group("/", ActorRequired(h.Store))

	posts := auth.Group("/posts")
	posts.POST("", h.CreatePost)
	posts.GET("", h.ListPosts)
	posts.GET("/:id", h.GetPost)
	posts.PUT("/:id", h.EditPost)
	posts.POST("/:id/schedule", h.SchedulePost)
	posts.DELETE("/:id/schedule", h.UnschedulePost)
	posts.POST("/:id/submit", h.SubmitPost)
	posts.POST("/:id/publish", h.PublishPost)
	posts.POST("/:id/manual-fallback", h.AcknowledgeManualFallback)

	mod := auth.Group("/moderation")
	mod.GET("/pending", h.PendingPosts)
	mod.POST("/posts/:id/approve", h.ApprovePost)
	mod.POST("/posts/:id/reject", h.RejectPost)

	users := auth.Group("/users")
	users.PUT("/:id/role", h.ChangeRole)
	users.DELETE("/:id", h.DeleteUser)

	requests := auth.Group("/admin-requests")
	requests.GET("", h.ListRequests)
	requests.POST("/:id/approve", h.ApproveRequest)
	requests.POST("/:id/reject", h.RejectRequest)

	auth.POST("/media", h.UploadMedia)
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
