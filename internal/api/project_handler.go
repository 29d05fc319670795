package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"reelStudio/internal/database"
)

const projectStatusPending = "pending"

// ProjectHandler 管理客户自己的制作项目，响应为裸资源。
type ProjectHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewProjectHandler 构造项目处理器。
func NewProjectHandler(db *gorm.DB, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{db: db, logger: logger}
}

func projectOwner(p *database.Project) uint { return p.UserID }

type createProjectRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description"`
	Budget      int64  `json:"budget" binding:"min=0"`
	Status      string `json:"status" binding:"max=64"`
	Progress    int    `json:"progress" binding:"min=0,max=100"`
}

// updateProjectRequest 只更新请求中出现的字段。
type updateProjectRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	Budget      *int64  `json:"budget" binding:"omitempty,min=0"`
	Status      *string `json:"status" binding:"omitempty,max=64"`
	Progress    *int    `json:"progress" binding:"omitempty,min=0,max=100"`
}

// List GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var projects []database.Project
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&projects).Error; err != nil {
		requestLogger(c, h.logger).Error("list projects failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(projects, newProjectResponse))
}

// Create POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	userID, ok := recordOwnerID(c)
	if !ok {
		return
	}

	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "title is required; budget must be >= 0 and progress 0-100")
		return
	}

	project := database.Project{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Budget:      req.Budget,
		Status:      strings.TrimSpace(req.Status),
		Progress:    req.Progress,
		UserID:      userID,
	}
	if project.Title == "" {
		BadRequest(c, "title is required")
		return
	}
	if project.Status == "" {
		project.Status = projectStatusPending
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&project).Error; err != nil {
		requestLogger(c, h.logger).Error("create project failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, newProjectResponse(project))
}

// Get GET /api/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	var project database.Project
	if !loadOwned(c, h.db, h.logger, &project, projectOwner) {
		return
	}
	c.JSON(http.StatusOK, newProjectResponse(project))
}

// Update PUT /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid project fields")
		return
	}

	var project database.Project
	if !loadOwned(c, h.db, h.logger, &project, projectOwner) {
		return
	}

	updates := map[string]any{}
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Budget != nil {
		updates["budget"] = *req.Budget
	}
	if req.Status != nil {
		updates["status"] = strings.TrimSpace(*req.Status)
	}
	if req.Progress != nil {
		updates["progress"] = *req.Progress
	}
	if len(updates) == 0 {
		BadRequest(c, "no updatable fields provided")
		return
	}

	ctx := c.Request.Context()
	if err := h.db.WithContext(ctx).Model(&project).Updates(updates).Error; err != nil {
		requestLogger(c, h.logger).Error("update project failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}
	if err := h.db.WithContext(ctx).First(&project, project.ID).Error; err != nil {
		requestLogger(c, h.logger).Error("reload project failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}
	c.JSON(http.StatusOK, newProjectResponse(project))
}

// Delete DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	var project database.Project
	if !loadOwned(c, h.db, h.logger, &project, projectOwner) {
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Unscoped().Delete(&project).Error; err != nil {
		requestLogger(c, h.logger).Error("delete project failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
