package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_gear_inventory/auth"
	"Gin_postgres_redis_gear_inventory/db"
	"Gin_postgres_redis_gear_inventory/models"
	"Gin_postgres_redis_gear_inventory/session"
)

const AppSessionCookie = "app_session"

// AuthRequired resolves the session cookie, confirms the user still exists
// and puts userID/username/role into the request context.
func AuthRequired(appSess *session.AppSessionStore, repo *db.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		ck, err := c.Request.Cookie(AppSessionCookie)
		if err != nil || ck.Value == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		as, err := appSess.Get(c.Request.Context(), ck.Value)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid session"})
			return
		}

		u, err := repo.FindUserByID(c.Request.Context(), as.UserID)
		if err != nil {
			_ = appSess.Delete(c.Request.Context(), ck.Value)
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		c.Set("userID", u.ID)
		c.Set("username", u.Username)
		c.Set("role", u.Role)
		c.Next()
	}
}

// DeviceTokenAuth authenticates the mobile scanner clients via a bearer
// token. The JWT must verify and its JTI must still be live in the database.
func DeviceTokenAuth(repo *db.Repo, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "missing bearer token"})
			return
		}
		claims, err := auth.ValidateDeviceToken(secret, tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid token"})
			return
		}
		rec, err := repo.FindDeviceTokenByJTI(c.Request.Context(), claims.ID)
		if err != nil || rec.RevokedAt != nil || time.Now().After(rec.ExpiresAt) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "token revoked or expired"})
			return
		}
		u, err := repo.FindUserByID(c.Request.Context(), rec.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		_ = repo.TouchDeviceTokenUsed(c.Request.Context(), claims.ID) // best effort
		c.Set("userID", u.ID)
		c.Set("username", u.Username)
		c.Set("role", u.Role)
		c.Next()
	}
}

// AdminOnly runs after AuthRequired or DeviceTokenAuth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get("role")
		if role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
