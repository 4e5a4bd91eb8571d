package middleware

import (
	"skillplan_backend/internal/config"
	"skillplan_backend/internal/util"
	"skillplan_backend/pkg/logger"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
		if err != nil {
			logger.Log.Debug("JWT解析错误", zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set("user", claims)
		c.Next()
	}
}

// UserKey 已认证请求按用户限流，未认证退回 IP
func UserKey(c *gin.Context) string {
	if claims := util.GetUserFromContext(c); claims != nil {
		return "user:" + util.FormatUint(claims.UserID)
	}
	return "ip:" + c.ClientIP()
}
