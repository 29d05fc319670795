package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"reelStudio/internal/auth"
)

// 上下文键，handler 通过 c.Get 读取会话身份。
const (
	ContextUserID             = "userID"
	ContextRole               = "role"
	ContextMustChangePassword = "mustChangePassword"
)

var errNoBearer = errors.New("missing bearer token")

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func abortForbidden(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
}

// bearerClaims 解析 Authorization 头中的访问令牌。
func bearerClaims(c *gin.Context, authService *auth.AuthService) (*auth.TokenClaims, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, errNoBearer
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, errNoBearer
	}

	claims, err := authService.ValidateToken(parts[1])
	if err != nil {
		return nil, err
	}
	if claims.TokenType != auth.TokenTypeAccess {
		return nil, errors.New("not an access token")
	}
	return claims, nil
}

// SetPrincipal 将会话身份写入上下文。
func SetPrincipal(c *gin.Context, p auth.Principal) {
	c.Set(ContextUserID, p.UserID)
	c.Set(ContextRole, p.Role)
	c.Set(ContextMustChangePassword, p.MustChangePassword)
}

// PrincipalFromContext 读取会话身份，未登录时 ok 为 false。
func PrincipalFromContext(c *gin.Context) (auth.Principal, bool) {
	value, ok := c.Get(ContextUserID)
	if !ok {
		return auth.Principal{}, false
	}
	userID, ok := value.(uint)
	if !ok {
		return auth.Principal{}, false
	}
	p := auth.Principal{UserID: userID}
	p.Role = c.GetString(ContextRole)
	p.MustChangePassword = c.GetBool(ContextMustChangePassword)
	return p, true
}

// AuthMiddleware 校验访问令牌并将 userID、role 注入上下文。
func AuthMiddleware(authService *auth.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := bearerClaims(c, authService)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		SetPrincipal(c, claims.Principal())
		c.Next()
	}
}

// RequireRole 要求已登录会话携带指定角色，需放在 AuthMiddleware 之后。
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFromContext(c)
		if !ok {
			abortUnauthorized(c)
			return
		}
		if p.Role != role {
			abortForbidden(c)
			return
		}
		c.Next()
	}
}
