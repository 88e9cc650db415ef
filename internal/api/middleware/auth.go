package middleware

import (
	"Leadline/internal/pkg/redis"
	"Leadline/internal/pkg/response"
	"Leadline/internal/pkg/security"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 负责验证 JWT 并将操作员身份信息注入 Context
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			response.Fail(c, response.Unauthorized, "Token 缺失或格式错误")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		signature, err := security.ExtractSignature(tokenString)
		if err != nil {
			response.Fail(c, response.Unauthorized, "Token 缺失或格式错误")
			c.Abort()
			return
		}

		// 登出黑名单
		value, err := redis.GetValue(c.Request.Context(), signature)
		if err != nil {
			response.Fail(c, response.InternalServerError, "未知错误")
			c.Abort()
			return
		}
		if value != "" {
			response.Fail(c, response.Unauthorized, "Token 无效或已过期")
			c.Abort()
			return
		}

		claims, err := security.ValidateToken(tokenString)
		if err != nil {
			response.Fail(c, response.Unauthorized, "Token 无效或已过期")
			c.Abort()
			return
		}

		c.Set("operator_id", claims.OperatorID)
		c.Set("workspace_id", claims.WorkspaceID)
		c.Set("roles", claims.Roles)
		c.Set("claims", claims)

		c.Next()
	}
}

// OperatorClaims 取出鉴权中间件注入的完整凭据
func OperatorClaims(c *gin.Context) *security.OperatorClaims {
	if v, ok := c.Get("claims"); ok {
		if claims, ok := v.(*security.OperatorClaims); ok {
			return claims
		}
	}
	return nil
}

// IsDelegate 当前操作员是否协作者视角（非 OWNER）
func IsDelegate(c *gin.Context) bool {
	for _, role := range c.GetStringSlice("roles") {
		if role == "OWNER" {
			return false
		}
	}
	return true
}
