package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

const slogLoggerKey = "slogLogger"

// SlogLoggerMiddleware 为每个请求派生带 correlation_id 的 slog.Logger，结束时记录状态与耗时。
func SlogLoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		requestLogger := logger.With(
			slog.String("correlation_id", GetCorrelationID(c)),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
		)
		c.Set(slogLoggerKey, requestLogger)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		}
		if p, ok := PrincipalFromContext(c); ok {
			attrs = append(attrs, slog.Uint64("user_id", uint64(p.UserID)))
		}

		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		}
		requestLogger.Log(c.Request.Context(), level, "request completed", attrs...)
	}
}

// RequestLogger 返回 SlogLoggerMiddleware 注入的 logger。
func RequestLogger(c *gin.Context) (*slog.Logger, bool) {
	value, ok := c.Get(slogLoggerKey)
	if !ok {
		return nil, false
	}
	logger, ok := value.(*slog.Logger)
	return logger, ok
}

// LoggerFromContext 返回上下文中的 slog.Logger，缺失时回退到默认 logger。
func LoggerFromContext(c *gin.Context) *slog.Logger {
	if logger, ok := RequestLogger(c); ok {
		return logger
	}
	return slog.Default()
}
