package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"reelStudio/internal/auth"
	"reelStudio/internal/database"
)

// AdminTokenHeader 是管理后台静态令牌所在的请求头。
const AdminTokenHeader = "x-admin-token"

// AdminGate 放行两类请求：x-admin-token 与配置的令牌一致，或会话角色为 admin。
// 携带了错误的 x-admin-token 时直接 401，不再回退到会话校验。
func AdminGate(authService *auth.AuthService, adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 必须通过 Header 传递令牌，避免 query 泄露到浏览器/日志。
		if provided := strings.TrimSpace(c.GetHeader(AdminTokenHeader)); provided != "" {
			if !auth.SecretEqual(provided, adminToken) {
				abortUnauthorized(c)
				return
			}
			SetPrincipal(c, auth.Principal{UserID: 0, Role: database.RoleAdmin})
			c.Next()
			return
		}

		claims, err := bearerClaims(c, authService)
		if err != nil {
			abortUnauthorized(c)
			return
		}
		p := claims.Principal()
		if p.Role != database.RoleAdmin {
			abortForbidden(c)
			return
		}

		SetPrincipal(c, p)
		c.Next()
	}
}
