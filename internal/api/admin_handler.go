package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"reelStudio/internal/database"
)

// AdminHandler 提供管理后台的只读列表与统计。
type AdminHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewAdminHandler 构造管理后台处理器。
func NewAdminHandler(db *gorm.DB, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{db: db, logger: logger}
}

// ListProjects GET /api/admin/projects
func (h *AdminHandler) ListProjects(c *gin.Context) {
	var projects []database.Project
	if err := h.db.WithContext(c.Request.Context()).
		Preload("User").
		Order("created_at DESC").
		Find(&projects).Error; err != nil {
		h.fail(c, "admin list projects failed", err)
		return
	}
	success(c, http.StatusOK, "data", mapSlice(projects, newProjectResponse))
}

type statusCount struct {
	Status string
	Count  int64
}

type statsResponse struct {
	Users          int64            `json:"users"`
	Projects       int64            `json:"projects"`
	Quotes         int64            `json:"quotes"`
	Questionnaires int64            `json:"questionnaires"`
	Leads          int64            `json:"leads"`
	Files          int64            `json:"files"`
	QuotesByStatus map[string]int64 `json:"quotesByStatus"`
}

// Stats GET /api/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	var stats statsResponse

	counts := []struct {
		model any
		dest  *int64
	}{
		{&database.User{}, &stats.Users},
		{&database.Project{}, &stats.Projects},
		{&database.WeddingQuote{}, &stats.Quotes},
		{&database.WeddingQuestionnaire{}, &stats.Questionnaires},
		{&database.Lead{}, &stats.Leads},
		{&database.File{}, &stats.Files},
	}
	for _, item := range counts {
		if err := h.count(ctx, item.model, item.dest); err != nil {
			h.fail(c, "admin stats count failed", err)
			return
		}
	}

	var rows []statusCount
	if err := h.db.WithContext(ctx).
		Model(&database.WeddingQuote{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		h.fail(c, "admin stats group failed", err)
		return
	}
	stats.QuotesByStatus = make(map[string]int64, len(rows))
	for _, r := range rows {
		stats.QuotesByStatus[r.Status] = r.Count
	}

	success(c, http.StatusOK, "data", stats)
}

// ListQuotes GET /api/admin/wedding/quotes?status=
func (h *AdminHandler) ListQuotes(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context())
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		q = q.Where("status = ?", status)
	}
	quotes, err := findQuotes(q)
	if err != nil {
		h.fail(c, "admin list quotes failed", err)
		return
	}
	success(c, http.StatusOK, "quotes", mapSlice(quotes, newQuoteDetail))
}

// ListQuestionnaires GET /api/admin/questionnaires?region=&tag=
func (h *AdminHandler) ListQuestionnaires(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context())
	if region := strings.TrimSpace(c.Query("region")); region != "" {
		q = q.Where("region = ?", region)
	}
	if tag := strings.TrimSpace(c.Query("tag")); tag != "" {
		q = q.Where("tag = ?", tag)
	}

	var rows []database.WeddingQuestionnaire
	if err := q.Order("updated_at DESC").Find(&rows).Error; err != nil {
		h.fail(c, "admin list questionnaires failed", err)
		return
	}
	success(c, http.StatusOK, "data", mapSlice(rows, newQuestionnaireResponse))
}

// ListLeads GET /api/admin/leads?status=
func (h *AdminHandler) ListLeads(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context())
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		q = q.Where("status = ?", status)
	}

	var leads []database.Lead
	if err := q.Order("created_at DESC").Find(&leads).Error; err != nil {
		h.fail(c, "admin list leads failed", err)
		return
	}
	success(c, http.StatusOK, "data", mapSlice(leads, newLeadResponse))
}

func (h *AdminHandler) count(ctx context.Context, model any, dest *int64) error {
	return h.db.WithContext(ctx).Model(model).Count(dest).Error
}

func (h *AdminHandler) fail(c *gin.Context, msg string, err error) {
	requestLogger(c, h.logger).Error(msg, slog.Any("error", err))
	InternalErr(c, err)
}
