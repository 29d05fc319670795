package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const passwordChangeRequiredMessage = "password change required"

// RequirePasswordChangeCompleted 阻止仍需改密的账号访问业务接口，仅依赖访问令牌内的声明。
func RequirePasswordChangeCompleted() gin.HandlerFunc {
	return func(c *gin.Context) {
		if p, ok := PrincipalFromContext(c); ok && p.MustChangePassword {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": passwordChangeRequiredMessage})
			return
		}
		c.Next()
	}
}
