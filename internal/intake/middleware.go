package intake

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"lusterd/internal/auth"
	"lusterd/internal/store"
	"lusterd/internal/utils"
)

const contextUserIDKey = "user_id"

// AuthMiddleware verifies the Clerk bearer token and lazily provisions the
// account on first sight, the same flow as the teacher's
// handlers.AuthMiddleware generalized off its repository-specific User type.
func AuthMiddleware(users *store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.SendError(c, http.StatusUnauthorized, "missing authorization header", nil)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.SendError(c, http.StatusUnauthorized, "invalid authorization header format", nil)
			return
		}

		claims, err := auth.VerifyToken(parts[1])
		if err != nil {
			utils.SendError(c, http.StatusUnauthorized, "invalid token", err)
			return
		}

		clerkID := claims.Subject
		clerkUser, err := auth.GetUser(clerkID)
		if err != nil || len(clerkUser.EmailAddresses) == 0 {
			utils.SendError(c, http.StatusUnauthorized, "failed to resolve clerk identity", err)
			return
		}
		email := clerkUser.EmailAddresses[0].EmailAddress

		user, err := users.GetOrCreateByClerkID(c.Request.Context(), clerkID, email)
		if err != nil {
			utils.SendError(c, http.StatusInternalServerError, "failed to sync user", err)
			return
		}

		c.Set(contextUserIDKey, user.ID)
		c.Next()
	}
}

// userID reads the authenticated caller's ID set by AuthMiddleware.
func userID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(contextUserIDKey)
	if !ok {
		return uuid.UUID{}, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
