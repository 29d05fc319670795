package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"reelStudio/internal/database"
	"reelStudio/internal/storage"
)

const fileURLTTL = 15 * time.Minute

var errInfected = errors.New("malicious file detected")

// virusScanner 扫描上传内容，发现病毒时返回 errInfected。
type virusScanner interface {
	Scan(r io.Reader) error
}

type clamdScanner struct {
	addr string
}

func (s clamdScanner) Scan(r io.Reader) error {
	client := clamd.NewClamd(s.addr)
	abort := make(chan bool)
	defer close(abort)

	results, err := client.ScanStream(r, abort)
	if err != nil {
		return fmt.Errorf("clamd scan: %w", err)
	}
	var scanErr error
	for result := range results {
		switch result.Status {
		case clamd.RES_OK:
		case clamd.RES_FOUND:
			scanErr = errInfected
		default:
			if scanErr == nil {
				scanErr = fmt.Errorf("clamd scan: %s", result.Description)
			}
		}
	}
	return scanErr
}

// FileHandler 负责用户文件的上传、列表、读取与删除。
type FileHandler struct {
	db       *gorm.DB
	store    storage.ObjectStore
	scanner  virusScanner
	maxBytes int64
	logger   *slog.Logger
}

// NewFileHandler clamdAddr 为空时不做病毒扫描。
func NewFileHandler(db *gorm.DB, store storage.ObjectStore, clamdAddr string, maxBytes int64, logger *slog.Logger) *FileHandler {
	h := &FileHandler{db: db, store: store, maxBytes: maxBytes, logger: logger}
	if strings.TrimSpace(clamdAddr) != "" {
		h.scanner = clamdScanner{addr: clamdAddr}
	}
	return h
}

func fileOwner(f *database.File) uint { return f.UserID }

// List GET /api/files
func (h *FileHandler) List(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var files []database.File
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&files).Error; err != nil {
		requestLogger(c, h.logger).Error("list files failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}

	items := make([]fileResponse, 0, len(files))
	for _, f := range files {
		items = append(items, h.withFreshURL(c, f))
	}
	c.JSON(http.StatusOK, items)
}

// Upload POST /api/files，表单字段为 file。
func (h *FileHandler) Upload(c *gin.Context) {
	userID, ok := recordOwnerID(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	if h.maxBytes > 0 && file.Size > h.maxBytes {
		Error(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	ctx := c.Request.Context()
	logger := requestLogger(c, h.logger).With(slog.Uint64("user_id", uint64(userID)))

	if h.scanner != nil {
		reader, err := file.Open()
		if err != nil {
			logger.Error("open upload failed", slog.Any("error", err))
			InternalErr(c, err)
			return
		}
		err = h.scanner.Scan(reader)
		reader.Close()
		if errors.Is(err, errInfected) {
			logger.Warn("infected upload rejected", slog.String("filename", file.Filename))
			BadRequest(c, "malicious file detected")
			return
		}
		if err != nil {
			logger.Error("scan file failed", slog.Any("error", err))
			InternalErr(c, err)
			return
		}
	}

	reader, err := file.Open()
	if err != nil {
		logger.Error("open upload failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}
	defer reader.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	objectKey := fmt.Sprintf("files/%d/%s%s", userID, uuid.NewString(), safeExt(file.Filename))

	if err := h.store.UploadFile(ctx, objectKey, reader, file.Size, contentType); err != nil {
		logger.Error("upload file failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}
	url, err := h.store.ObjectURL(ctx, objectKey, fileURLTTL)
	if err != nil && !errors.Is(err, storage.ErrNoDirectURL) {
		logger.Warn("resolve file url failed", slog.Any("error", err))
	}

	record := database.File{
		UserID:    userID,
		Name:      displayName(file.Filename),
		URL:       url,
		Type:      contentType,
		Size:      file.Size,
		ObjectKey: objectKey,
	}
	if err := h.db.WithContext(ctx).Create(&record).Error; err != nil {
		logger.Error("create file record failed", slog.Any("error", err))
		_ = h.store.DeleteObject(ctx, objectKey)
		InternalErr(c, err)
		return
	}

	logger.Info("file uploaded", slog.Uint64("file_id", uint64(record.ID)), slog.Int64("size", record.Size))
	c.JSON(http.StatusCreated, h.withFreshURL(c, record))
}

// Get GET /api/files/:id
func (h *FileHandler) Get(c *gin.Context) {
	var f database.File
	if !loadOwned(c, h.db, h.logger, &f, fileOwner) {
		return
	}
	c.JSON(http.StatusOK, h.withFreshURL(c, f))
}

// Content GET /api/files/:id/content，按归属校验后输出文件内容。
func (h *FileHandler) Content(c *gin.Context) {
	var f database.File
	if !loadOwned(c, h.db, h.logger, &f, fileOwner) {
		return
	}
	if f.ObjectKey == "" {
		NotFound(c, "file content not found")
		return
	}

	rc, size, err := h.store.OpenObject(c.Request.Context(), f.ObjectKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		NotFound(c, "file content not found")
		return
	}
	if err != nil {
		requestLogger(c, h.logger).Error("open object failed", slog.Uint64("file_id", uint64(f.ID)), slog.Any("error", err))
		InternalErr(c, err)
		return
	}
	defer rc.Close()

	contentType := f.Type
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, size, contentType, rc, map[string]string{
		"Content-Disposition":    fmt.Sprintf("attachment; filename=%q", f.Name),
		"X-Content-Type-Options": "nosniff",
	})
}

// Delete DELETE /api/files/:id，先删对象再删记录。
func (h *FileHandler) Delete(c *gin.Context) {
	var f database.File
	if !loadOwned(c, h.db, h.logger, &f, fileOwner) {
		return
	}

	ctx := c.Request.Context()
	logger := requestLogger(c, h.logger).With(slog.Uint64("file_id", uint64(f.ID)))
	if f.ObjectKey != "" {
		if err := h.store.DeleteObject(ctx, f.ObjectKey); err != nil {
			logger.Error("delete object failed", slog.Any("error", err))
			InternalErr(c, err)
			return
		}
	}
	if err := h.db.WithContext(ctx).Unscoped().Delete(&f).Error; err != nil {
		logger.Error("delete file record failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// withFreshURL 预签名 URL 会过期，读取时重新生成。
// 存储不提供直链时指向需要会话的 content 路由。
func (h *FileHandler) withFreshURL(c *gin.Context, f database.File) fileResponse {
	resp := newFileResponse(f)
	if f.ObjectKey == "" {
		return resp
	}
	url, err := h.store.ObjectURL(c.Request.Context(), f.ObjectKey, fileURLTTL)
	if errors.Is(err, storage.ErrNoDirectURL) {
		resp.URL = fileContentPath(f.ID)
		return resp
	}
	if err != nil {
		requestLogger(c, h.logger).Warn("resolve file url failed", slog.Uint64("file_id", uint64(f.ID)), slog.Any("error", err))
		return resp
	}
	resp.URL = url
	return resp
}

func fileContentPath(id uint) string {
	return "/api/files/" + strconv.FormatUint(uint64(id), 10) + "/content"
}

func displayName(filename string) string {
	name := strings.TrimSpace(filepath.Base(strings.ReplaceAll(filename, `\`, "/")))
	if name == "" || name == "." || name == "/" {
		return "upload"
	}
	if r := []rune(name); len(r) > 255 {
		name = string(r[:255])
	}
	return name
}

// safeExt 只保留短的字母数字扩展名。
func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
