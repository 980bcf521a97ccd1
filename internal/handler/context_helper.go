package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tahfidz-api/internal/middleware"
	"github.com/noah-isme/tahfidz-api/internal/models"
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

func boolQuery(c *gin.Context, key string) *bool {
	switch c.Query(key) {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	default:
		return nil
	}
}

func intQuery(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(fallback))); err == nil {
		return v
	}
	return fallback
}

func dateQuery(c *gin.Context, key string) *time.Time {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	return nil
}
