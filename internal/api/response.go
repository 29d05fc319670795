package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// errorDetailKey 为 true 时 500 响应附带 detail，生产环境由路由关闭。
const errorDetailKey = "exposeErrorDetail"

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func Unauthorized(c *gin.Context)           { Error(c, http.StatusUnauthorized, "unauthorized") }
func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func Forbidden(c *gin.Context, msg string)  { Error(c, http.StatusForbidden, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)   { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }
func MethodNotAllowed(c *gin.Context)       { Error(c, http.StatusMethodNotAllowed, "method not allowed") }

// InternalErr 返回 500；非生产环境额外带上 err 文本。
func InternalErr(c *gin.Context, err error) {
	body := gin.H{"error": "internal error"}
	if err != nil && c.GetBool(errorDetailKey) {
		body["detail"] = err.Error()
	}
	c.JSON(http.StatusInternalServerError, body)
}

// success 包装 {success:true, <key>: value} 形式的响应。
func success(c *gin.Context, status int, key string, value any) {
	c.JSON(status, gin.H{"success": true, key: value})
}
