package middleware

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/schoolhub-io/schoolhub-api/internal/models"
	"github.com/schoolhub-io/schoolhub-api/internal/repository"
)

// Audit writes an audit row once the wrapped handler finishes. Failed
// requests leave no trail; the row belongs to the mutation, not the
// attempt.
func Audit(repo *repository.AuditRepository, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}
		_ = repo.Create(c.Request.Context(), auditEntry(c, action, resource, start))
	}
}

func auditEntry(c *gin.Context, action, resource string, start time.Time) *models.AuditLog {
	entry := &models.AuditLog{
		UserID:    actorID(c),
		Action:    action,
		Resource:  resource,
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
	if id := c.Param("id"); id != "" {
		entry.ResourceID = &id
	}
	entry.NewValues, _ = json.Marshal(map[string]interface{}{
		"path":    c.FullPath(),
		"method":  c.Request.Method,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).Milliseconds(),
	})
	return entry
}

func actorID(c *gin.Context) *string {
	claims, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, ok := claims.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return &user.UserID
}
