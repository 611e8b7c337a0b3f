package middlewares

import (
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/wealth_backend/utils"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the bearer session token and stashes the
// provider user id in the request context. Requests without a token pass
// through; resolving the user downstream decides whether that is allowed.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")

		if auth == "" {
			c.Next()
			return
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
			c.Abort()
			return
		}
		auth = auth[len(bearer):]

		validated, err := utils.JwtValidate(auth)
		if err != nil || !validated.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
			c.Abort()
			return
		}

		claim, ok := validated.Claims.(*utils.SessionClaim)
		if !ok || claim.Subject == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), auth)
		ctx = utils.SetClerkUserIdInContext(ctx, claim.Subject)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
