package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/genplan/genplan-web/internal/middleware"
	"github.com/genplan/genplan-web/internal/models"
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

// sessionFromContext returns the caller's session. Routes without the JWT
// middleware get an empty session and reach upstream anonymously.
func sessionFromContext(c *gin.Context) models.Session {
	value, exists := c.Get(middleware.ContextSessionKey)
	if !exists {
		return models.Session{Claims: claimsFromContext(c)}
	}
	session, ok := value.(models.Session)
	if !ok {
		return models.Session{Claims: claimsFromContext(c)}
	}
	return session
}

func responseMeta(c *gin.Context) map[string]interface{} {
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	return meta
}
