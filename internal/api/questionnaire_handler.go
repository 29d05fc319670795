package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reelStudio/internal/database"
)

// QuestionnaireHandler 读写每个用户唯一的一份婚礼问卷。
type QuestionnaireHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewQuestionnaireHandler 构造问卷处理器。
func NewQuestionnaireHandler(db *gorm.DB, logger *slog.Logger) *QuestionnaireHandler {
	return &QuestionnaireHandler{db: db, logger: logger}
}

type questionnaireRequest struct {
	WeddingDate *string         `json:"weddingDate"`
	Region      string          `json:"region" binding:"max=128"`
	Tag         string          `json:"tag" binding:"max=64"`
	Responses   json.RawMessage `json:"responses"`
}

// Get GET /api/wedding/questionnaire
func (h *QuestionnaireHandler) Get(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var q database.WeddingQuestionnaire
	if err := h.db.WithContext(c.Request.Context()).Where("user_id = ?", userID).First(&q).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "questionnaire not found")
			return
		}
		requestLogger(c, h.logger).Error("load questionnaire failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}
	c.JSON(http.StatusOK, newQuestionnaireResponse(q))
}

// Upsert POST /api/wedding/questionnaire，以 user_id 为冲突键覆盖旧数据。
func (h *QuestionnaireHandler) Upsert(c *gin.Context) {
	userID, ok := recordOwnerID(c)
	if !ok {
		return
	}

	var req questionnaireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid questionnaire payload")
		return
	}

	record := database.WeddingQuestionnaire{
		UserID:    userID,
		Region:    strings.TrimSpace(req.Region),
		Tag:       strings.TrimSpace(req.Tag),
		Responses: normalizeResponses(req.Responses),
	}
	if req.WeddingDate != nil && strings.TrimSpace(*req.WeddingDate) != "" {
		d, err := parseDate(strings.TrimSpace(*req.WeddingDate))
		if err != nil {
			BadRequest(c, "weddingDate must be YYYY-MM-DD")
			return
		}
		record.WeddingDate = &d
	}

	ctx := c.Request.Context()
	logger := requestLogger(c, h.logger).With(slog.Uint64("user_id", uint64(userID)))

	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now
	err := h.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"wedding_date", "region", "tag", "responses", "updated_at", "deleted_at"}),
	}).Create(&record).Error
	if err != nil {
		logger.Error("upsert questionnaire failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}

	var stored database.WeddingQuestionnaire
	if err := h.db.WithContext(ctx).Where("user_id = ?", userID).First(&stored).Error; err != nil {
		logger.Error("reload questionnaire failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}
	c.JSON(http.StatusOK, newQuestionnaireResponse(stored))
}

// normalizeResponses 缺失或 null 时存空对象。
func normalizeResponses(raw json.RawMessage) datatypes.JSON {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(trimmed)
}
