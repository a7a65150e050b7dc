package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/felix-phuctran/base-be-go/internal/pkg"
)

const userIDContextKey = "user_id"

// TokenParser validates a bearer token and returns the user it belongs to.
type TokenParser interface {
	Parse(token string) (uuid.UUID, error)
}

// Auth returns a gin middleware that requires a valid Bearer access token on
// every request whose path is not listed in publicPaths. The authenticated
// user id is stored in gin.Context under "user_id".
func Auth(parser TokenParser, publicPaths []string) gin.HandlerFunc {
	public := make(map[string]struct{}, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := public[c.FullPath()]; ok {
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			unauthorized(c)
			return
		}

		userID, err := parser.Parse(token)
		if err != nil {
			unauthorized(c)
			return
		}

		c.Set(userIDContextKey, userID)
		c.Next()
	}
}

// GetUserID extracts the authenticated user id from the gin.Context.
// Returns uuid.Nil and false if the request was not authenticated.
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(userIDContextKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, pkg.Response{
		Code:    http.StatusUnauthorized,
		Message: "unauthorized",
		Data:    nil,
	})
}
