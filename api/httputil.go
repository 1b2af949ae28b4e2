package api

import (
	"errors"
	"net/http"

	"social-publisher/models"
	"social-publisher/utils"

	"github.com/gin-gonic/gin"
)

// RespondError aborts the request with a JSON error body.
func RespondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// RespondErr maps a domain error onto its HTTP status.
func RespondErr(c *gin.Context, err error) {
	var (
		verr     *models.ValidationError
		stale    *models.StaleStateError
		authErr  *models.AuthError
		apiErr   *models.PlatformAPIError
		fallback *models.ManualFallbackError
	)
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, models.ErrForbidden):
		RespondError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrNotFound):
		RespondError(c, http.StatusNotFound, err.Error())
	case errors.As(err, &stale):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": stale.Error(), "status": stale.Actual})
	case errors.Is(err, models.ErrDuplicateRequest):
		RespondError(c, http.StatusConflict, err.Error())
	case errors.As(err, &authErr), errors.As(err, &apiErr), errors.As(err, &fallback):
		RespondError(c, http.StatusBadGateway, err.Error())
	default:
		utils.Error("API", c.FullPath(), err.Error())
		RespondError(c, http.StatusInternalServerError, "internal error")
	}
}
