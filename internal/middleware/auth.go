package middleware

import (
	"context"
	"net/http"
	"strings"

	"community_hub/internal/pkg"
	"community_hub/internal/policy"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserIDKey = "user_id"
	contextActorKey  = "actor"
)

// TokenStore access token 白名单
type TokenStore interface {
	GetUserToken(ctx context.Context, userID uint64) (string, error)
	ExtendUserToken(ctx context.Context, userID uint64) error
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": msg})
}

func AuthMiddleware(jwt *pkg.JWT, tokens TokenStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Authentication credentials were not provided.")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorized(c, "Invalid authorization header.")
			return
		}
		tokenStr := parts[1]

		claims, err := jwt.ParseAccess(tokenStr)
		if err != nil {
			unauthorized(c, "Token is invalid or expired")
			return
		}

		// 只有白名单中的 token 有效，重新登录或登出后旧 token 失效
		origin, err := tokens.GetUserToken(c.Request.Context(), claims.UserID)
		if err != nil || origin != tokenStr {
			unauthorized(c, "Token is invalid or expired")
			return
		}

		// 校验通过后续期
		if err = tokens.ExtendUserToken(c.Request.Context(), claims.UserID); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		SetActor(c, policy.Actor{
			UserID:      claims.UserID,
			IsStaff:     claims.IsStaff,
			IsSuperuser: claims.IsSuperuser,
		})
		c.Next()
	}
}

// CurrentActor 未登录时返回零值 Actor
func CurrentActor(c *gin.Context) policy.Actor {
	if v, ok := c.Get(contextActorKey); ok {
		if a, ok := v.(policy.Actor); ok {
			return a
		}
	}
	return policy.Actor{}
}

// SetActor 写入当前用户，user_id 与 actor 同时设置
func SetActor(c *gin.Context, a policy.Actor) {
	c.Set(ContextUserIDKey, a.UserID)
	c.Set(contextActorKey, a)
}
