package api

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"reelStudio/internal/api/middleware"
	"reelStudio/internal/auth"
	"reelStudio/internal/database"
)

var errInvalidID = errors.New("invalid id")

// Enqueuer 是 asynq.Client 的入队子集，为 nil 时跳过后台通知。
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func userIDFromContext(c *gin.Context) (uint, bool) {
	p, ok := middleware.PrincipalFromContext(c)
	if !ok {
		return 0, false
	}
	return p.UserID, true
}

// recordOwnerID 返回新建记录的属主。静态管理员不对应 users 行，不能持有记录。
// 返回 false 时响应已写出。
func recordOwnerID(c *gin.Context) (uint, bool) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return 0, false
	}
	if userID == adminPrincipalID {
		Forbidden(c, "admin session cannot own records")
		return 0, false
	}
	return userID, true
}

func principalFromContext(c *gin.Context) (auth.Principal, bool) {
	return middleware.PrincipalFromContext(c)
}

// canAccess 资源属主或 admin 角色可访问。
func canAccess(p auth.Principal, ownerID uint) bool {
	return p.Role == database.RoleAdmin || p.UserID == ownerID
}

func parseIDParam(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return uint(id), nil
}

// requestLogger 优先返回请求级 logger，其次是处理器自身的 logger。
func requestLogger(c *gin.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := middleware.RequestLogger(c); ok {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}

// enqueue 投递后台通知任务；失败只记日志，已写入的数据不回滚。
func enqueue(logger *slog.Logger, enqueuer Enqueuer, build func() (*asynq.Task, error)) {
	if enqueuer == nil {
		return
	}
	task, err := build()
	if err != nil {
		logger.Error("build notify task failed", slog.Any("error", err))
		return
	}
	if _, err := enqueuer.Enqueue(task, asynq.MaxRetry(5)); err != nil {
		logger.Error("enqueue notify task failed", slog.String("task_type", task.Type()), slog.Any("error", err))
	}
}

// loadOwned 按路径参数 id 读取记录并校验归属。返回 false 时响应已写出。
func loadOwned[T any](c *gin.Context, db *gorm.DB, logger *slog.Logger, dest *T, ownerOf func(*T) uint, preloads ...string) bool {
	p, ok := principalFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return false
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		BadRequest(c, "invalid id")
		return false
	}

	q := db.WithContext(c.Request.Context())
	for _, preload := range preloads {
		q = q.Preload(preload)
	}
	if err := q.First(dest, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "not found")
			return false
		}
		requestLogger(c, logger).Error("load record failed", slog.Uint64("id", uint64(id)), slog.Any("error", err))
		InternalErr(c, err)
		return false
	}

	if !canAccess(p, ownerOf(dest)) {
		Forbidden(c, "forbidden")
		return false
	}
	return true
}
