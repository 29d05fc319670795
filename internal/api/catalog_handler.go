package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"reelStudio/internal/cache"
	"reelStudio/internal/database"
)

const (
	defaultImageLimit = 50
	maxImageLimit     = 200
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// CatalogHandler 提供无需登录的作品集与婚礼目录列表。
type CatalogHandler struct {
	db       *gorm.DB
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewCatalogHandler cache 为 nil 或 ttl 为 0 时直接查库。
func NewCatalogHandler(db *gorm.DB, c cache.Cache, ttl time.Duration, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{db: db, cache: c, cacheTTL: ttl, logger: logger}
}

// ListImages GET /api/images?category=&search=&limit=
func (h *CatalogHandler) ListImages(c *gin.Context) {
	limit := defaultImageLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = min(n, maxImageLimit)
	}
	category := strings.TrimSpace(c.Query("category"))
	search := strings.TrimSpace(c.Query("search"))

	key := catalogKey("images", url.Values{
		"category": {category},
		"search":   {strings.ToLower(search)},
		"limit":    {strconv.Itoa(limit)},
	})
	var data []imageResponse
	err := h.cached(c.Request.Context(), key, &data, func(ctx context.Context) error {
		q := h.db.WithContext(ctx).Model(&database.PortfolioImage{})
		if category != "" {
			q = q.Where("category = ?", category)
		}
		if search != "" {
			q = q.Where(`LOWER(title) LIKE ? ESCAPE '\'`, likePattern(search))
		}
		var images []database.PortfolioImage
		if err := q.Order("sort_order ASC, id ASC").Limit(limit).Find(&images).Error; err != nil {
			return err
		}
		data = mapSlice(images, newImageResponse)
		return nil
	})
	if err != nil {
		h.fail(c, "list images failed", err)
		return
	}
	success(c, http.StatusOK, "data", data)
}

// ListPackages GET /api/wedding/packages
func (h *CatalogHandler) ListPackages(c *gin.Context) {
	var packages []packageResponse
	err := h.cached(c.Request.Context(), "packages", &packages, func(ctx context.Context) error {
		var rows []database.WeddingPackage
		if err := h.db.WithContext(ctx).Order("sort_order ASC, id ASC").Find(&rows).Error; err != nil {
			return err
		}
		packages = mapSlice(rows, newPackageResponse)
		return nil
	})
	if err != nil {
		h.fail(c, "list packages failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": packages})
}

// ListAddons GET /api/wedding/addons?category=，category 为精确匹配。
func (h *CatalogHandler) ListAddons(c *gin.Context) {
	category := strings.TrimSpace(c.Query("category"))

	var addons []addonResponse
	err := h.cached(c.Request.Context(), catalogKey("addons", url.Values{"category": {category}}), &addons, func(ctx context.Context) error {
		q := h.db.WithContext(ctx)
		if category != "" {
			q = q.Where("category = ?", category)
		}
		var rows []database.WeddingAddon
		if err := q.Order("id ASC").Find(&rows).Error; err != nil {
			return err
		}
		addons = mapSlice(rows, newAddonResponse)
		return nil
	})
	if err != nil {
		h.fail(c, "list addons failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"addons": addons})
}

// ListVenues GET /api/wedding/venues?search=&state=
func (h *CatalogHandler) ListVenues(c *gin.Context) {
	search := strings.TrimSpace(c.Query("search"))
	state := strings.TrimSpace(c.Query("state"))

	key := catalogKey("venues", url.Values{
		"state":  {state},
		"search": {strings.ToLower(search)},
	})
	var venues []venueResponse
	err := h.cached(c.Request.Context(), key, &venues, func(ctx context.Context) error {
		q := h.db.WithContext(ctx)
		if state != "" {
			q = q.Where("state = ?", state)
		}
		if search != "" {
			pattern := likePattern(search)
			q = q.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(city) LIKE ? ESCAPE '\')`, pattern, pattern)
		}
		var rows []database.Venue
		if err := q.Order("name ASC").Find(&rows).Error; err != nil {
			return err
		}
		venues = mapSlice(rows, newVenueResponse)
		return nil
	})
	if err != nil {
		h.fail(c, "list venues failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"venues": venues})
}

// catalogKey 用查询串编码过滤参数，参数值中的分隔符不会与其他组合撞键。
func catalogKey(list string, params url.Values) string {
	return list + "?" + params.Encode()
}

// cached 先读缓存，未命中时执行 load 并回写。缓存故障只记日志。
func (h *CatalogHandler) cached(ctx context.Context, key string, dest any, load func(context.Context) error) error {
	if h.cache == nil || h.cacheTTL <= 0 {
		return load(ctx)
	}

	err := h.cache.GetJSON(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		h.log().Warn("catalog cache read failed", slog.String("key", key), slog.Any("error", err))
	}

	if err := load(ctx); err != nil {
		return err
	}
	if err := h.cache.SetJSON(ctx, key, dest, h.cacheTTL); err != nil {
		h.log().Warn("catalog cache write failed", slog.String("key", key), slog.Any("error", err))
	}
	return nil
}

func (h *CatalogHandler) fail(c *gin.Context, msg string, err error) {
	requestLogger(c, h.logger).Error(msg, slog.Any("error", err))
	InternalErr(c, err)
}

func (h *CatalogHandler) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
