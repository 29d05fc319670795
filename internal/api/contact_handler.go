package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"

	"reelStudio/internal/api/middleware"
	"reelStudio/internal/database"
	"reelStudio/internal/tasks"
)

const leadStatusNew = "new"

// ContactHandler 接收官网联系表单，写入线索并通知管理员。
type ContactHandler struct {
	db       *gorm.DB
	enqueuer Enqueuer
	policy   *bluemonday.Policy
	logger   *slog.Logger
}

// NewContactHandler 构造联系表单处理器，enqueuer 可为 nil。
func NewContactHandler(db *gorm.DB, enqueuer Enqueuer, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{
		db:       db,
		enqueuer: enqueuer,
		policy:   bluemonday.StrictPolicy(),
		logger:   logger,
	}
}

type contactRequest struct {
	Name    string `json:"name" binding:"required,max=255"`
	Email   string `json:"email" binding:"required,email,max=255"`
	Phone   string `json:"phone" binding:"max=64"`
	Service string `json:"service" binding:"max=128"`
	Message string `json:"message" binding:"required,max=5000"`
}

// Submit POST /api/contact
func (h *ContactHandler) Submit(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "name, email and message are required")
		return
	}

	lead := database.Lead{
		Name:    sanitizeText(h.policy, req.Name),
		Email:   normalizeEmail(req.Email),
		Phone:   sanitizeText(h.policy, req.Phone),
		Service: sanitizeText(h.policy, req.Service),
		Message: sanitizeText(h.policy, req.Message),
		Status:  leadStatusNew,
	}
	if lead.Name == "" || lead.Message == "" {
		BadRequest(c, "name and message must contain text")
		return
	}

	ctx := c.Request.Context()
	logger := requestLogger(c, h.logger)
	if err := h.db.WithContext(ctx).Create(&lead).Error; err != nil {
		logger.Error("create lead failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}

	enqueue(logger, h.enqueuer, func() (*asynq.Task, error) {
		return tasks.NewLeadNotifyTask(lead.ID, middleware.GetCorrelationID(c))
	})

	logger.Info("lead received", slog.Uint64("lead_id", uint64(lead.ID)))
	success(c, http.StatusCreated, "data", gin.H{"id": lead.ID})
}

// sanitizeText 去除全部 HTML 标签。
func sanitizeText(policy *bluemonday.Policy, s string) string {
	return strings.TrimSpace(policy.Sanitize(s))
}
