package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// ActorContextKey is a gin context key for the acting admin identity.
	ActorContextKey = "actor"
	actorHeader     = "X-Actor"
)

// ActorRequired ensures administrative requests carry an actor identity
// so every transition lands in the audit trail with a name attached.
func ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(actorHeader))
		if actor == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + actorHeader + " header"})
			return
		}

		c.Set(ActorContextKey, actor)
		c.Next()
	}
}
