package api

import (
	"errors"
	"net/http"
	"strings"

	"social-publisher/database"
	"social-publisher/models"

	"github.com/gin-gonic/gin"
)

const (
	// UserHeader carries the id of the already authenticated caller.
	UserHeader = "X-User-ID"
	actorKey   = "actor"
)

// ActorRequired resolves the caller named by UserHeader to an Actor.
func ActorRequired(store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(UserHeader))
		if id == "" {
			RespondError(c, http.StatusUnauthorized, "missing "+UserHeader+" header")
			return
		}
		user, err := store.GetUser(c.Request.Context(), id)
		if errors.Is(err, models.ErrNotFound) {
			RespondError(c, http.StatusUnauthorized, "unknown user")
			return
		}
		if err != nil {
			RespondErr(c, err)
			return
		}
		c.Set(actorKey, models.ActorFor(user))
		c.Next()
	}
}

// ActorFrom returns the actor stored by ActorRequired.
func ActorFrom(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(models.Actor); ok {
			return actor
		}
	}
	return models.Actor{}
}
