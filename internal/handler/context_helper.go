package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/studyrhythm/studyrhythm-api/internal/middleware"
	"github.com/studyrhythm/studyrhythm-api/internal/models"
	appErrors "github.com/studyrhythm/studyrhythm-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// currentUserID returns the authenticated user's id, or zero for anonymous
// requests passing through OptionalJWT.
func currentUserID(c *gin.Context) int64 {
	claims := claimsFromContext(c)
	if claims == nil {
		return 0
	}
	return claims.UserID
}

func parseIDParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid "+name+" parameter")
	}
	return id, nil
}
