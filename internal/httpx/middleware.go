package httpx

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CallerKey is the gin context key holding the resolved caller identity.
const CallerKey = "caller"

// Caller is the authenticated identity attached to a request.
type Caller struct {
	ID    string
	Name  string
	Email string
}

// Resolver turns an opaque bearer token into a caller identity. The
// identity capability owns token semantics; this layer just trusts it.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*Caller, error)
}

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set("rid", rid)
		c.Writer.Header().Set("X-Request-ID", rid)
		c.Next()
	}
}

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		rid, _ := c.Get("rid")
		log.Printf("[http] rid=%v %s %s status=%d dur=%s",
			rid, c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// Auth rejects requests without a resolvable bearer token and stores the
// caller under CallerKey for handlers.
func Auth(r Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		caller, err := r.Resolve(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(CallerKey, caller)
		c.Next()
	}
}

// CallerFrom returns the authenticated caller set by Auth, if any.
func CallerFrom(c *gin.Context) (*Caller, bool) {
	v, ok := c.Get(CallerKey)
	if !ok {
		return nil, false
	}
	caller, ok := v.(*Caller)
	return caller, ok
}

func bearerToken(header string) string {
	if h := strings.TrimSpace(header); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}
