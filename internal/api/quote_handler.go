package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/microcosm-cc/bluemonday"
	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"reelStudio/internal/api/middleware"
	"reelStudio/internal/database"
	"reelStudio/internal/pricing"
	"reelStudio/internal/tasks"
)

const (
	quoteStatusPending   = "pending"
	paymentStatusUnpaid  = "unpaid"
	quoteQRCodeSize      = 256
	maxSpecialRequestLen = 5000
)

var quotePreloads = []string{"Package", "Venue", "Addons.Addon"}

var errUnknownCatalogItem = errors.New("unknown catalog item")

// QuoteHandler 处理婚礼报价的创建、查询、修改、删除与分享二维码。
type QuoteHandler struct {
	db              *gorm.DB
	enqueuer        Enqueuer
	policy          *bluemonday.Policy
	frontendBaseURL string
	logger          *slog.Logger
}

// NewQuoteHandler 构造报价处理器，enqueuer 可为 nil。
func NewQuoteHandler(db *gorm.DB, enqueuer Enqueuer, frontendBaseURL string, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{
		db:              db,
		enqueuer:        enqueuer,
		policy:          bluemonday.StrictPolicy(),
		frontendBaseURL: strings.TrimRight(strings.TrimSpace(frontendBaseURL), "/"),
		logger:          logger,
	}
}

func quoteOwner(q *database.WeddingQuote) uint { return q.UserID }

type quoteAddonInput struct {
	AddonID       uint   `json:"addonId" binding:"required"`
	PriceOverride *int64 `json:"priceOverride"`
}

type createQuoteRequest struct {
	PackageID       uint              `json:"packageId" binding:"required"`
	VenueID         *uint             `json:"venueId"`
	VenueName       string            `json:"venueName" binding:"max=255"`
	EventDate       string            `json:"eventDate" binding:"required"`
	EventTime       string            `json:"eventTime" binding:"max=32"`
	Addons          []quoteAddonInput `json:"addons" binding:"dive"`
	TotalPrice      *int64            `json:"totalPrice"`
	SpecialRequests string            `json:"specialRequests"`
	Status          string            `json:"status" binding:"max=64"`
	PaymentStatus   string            `json:"paymentStatus" binding:"max=64"`
}

// updateQuoteRequest 只更新请求中出现的字段，状态值不做枚举校验。
type updateQuoteRequest struct {
	Status          *string `json:"status" binding:"omitempty,max=64"`
	PaymentStatus   *string `json:"paymentStatus" binding:"omitempty,max=64"`
	SpecialRequests *string `json:"specialRequests"`
	EventDate       *string `json:"eventDate"`
	EventTime       *string `json:"eventTime" binding:"omitempty,max=32"`
	VenueName       *string `json:"venueName" binding:"omitempty,max=255"`
}

// Create POST /api/wedding/quotes
func (h *QuoteHandler) Create(c *gin.Context) {
	userID, ok := recordOwnerID(c)
	if !ok {
		return
	}

	var req createQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "packageId and eventDate are required")
		return
	}
	eventDate, err := parseDate(strings.TrimSpace(req.EventDate))
	if err != nil {
		BadRequest(c, "eventDate must be YYYY-MM-DD")
		return
	}
	if req.TotalPrice != nil && *req.TotalPrice < 0 {
		BadRequest(c, "totalPrice must be >= 0")
		return
	}
	for _, a := range req.Addons {
		if a.PriceOverride != nil && *a.PriceOverride < 0 {
			BadRequest(c, "priceOverride must be >= 0")
			return
		}
	}
	if len(req.SpecialRequests) > maxSpecialRequestLen {
		BadRequest(c, "specialRequests too long")
		return
	}

	ctx := c.Request.Context()
	logger := requestLogger(c, h.logger).With(slog.Uint64("user_id", uint64(userID)))

	quote := database.WeddingQuote{
		UserID:          userID,
		PackageID:       req.PackageID,
		VenueID:         req.VenueID,
		VenueName:       strings.TrimSpace(req.VenueName),
		EventDate:       eventDate,
		EventTime:       strings.TrimSpace(req.EventTime),
		Status:          strings.TrimSpace(req.Status),
		PaymentStatus:   strings.TrimSpace(req.PaymentStatus),
		SpecialRequests: sanitizeText(h.policy, req.SpecialRequests),
	}
	if quote.Status == "" {
		quote.Status = quoteStatusPending
	}
	if quote.PaymentStatus == "" {
		quote.PaymentStatus = paymentStatusUnpaid
	}

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pkg database.WeddingPackage
		if err := tx.First(&pkg, req.PackageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("package %d: %w", req.PackageID, errUnknownCatalogItem)
			}
			return err
		}
		if req.VenueID != nil {
			var venue database.Venue
			if err := tx.First(&venue, *req.VenueID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("venue %d: %w", *req.VenueID, errUnknownCatalogItem)
				}
				return err
			}
			if quote.VenueName == "" {
				quote.VenueName = venue.Name
			}
		}

		total := pkg.Price
		for _, in := range req.Addons {
			var addon database.WeddingAddon
			if err := tx.First(&addon, in.AddonID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("addon %d: %w", in.AddonID, errUnknownCatalogItem)
				}
				return err
			}
			total += pricing.EffectivePrice(addon.Price, in.PriceOverride)
			quote.Addons = append(quote.Addons, database.QuoteAddon{AddonID: addon.ID, PriceOverride: in.PriceOverride})
		}
		quote.TotalPrice = total
		if req.TotalPrice != nil {
			quote.TotalPrice = *req.TotalPrice
		}

		return tx.Create(&quote).Error
	})
	if errors.Is(err, errUnknownCatalogItem) {
		BadRequest(c, err.Error())
		return
	}
	if err != nil {
		logger.Error("create quote failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}

	enqueue(logger, h.enqueuer, func() (*asynq.Task, error) {
		return tasks.NewQuoteNotifyTask(quote.ID, middleware.GetCorrelationID(c))
	})

	detail, err := h.loadDetail(c, quote.ID)
	if err != nil {
		logger.Error("reload quote failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}
	logger.Info("quote created", slog.Uint64("quote_id", uint64(quote.ID)))
	success(c, http.StatusCreated, "quote", detail)
}

// List GET /api/wedding/quotes，仅返回自己的报价。
func (h *QuoteHandler) List(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	q := h.db.WithContext(c.Request.Context()).Where("user_id = ?", userID)
	quotes, err := findQuotes(q)
	if err != nil {
		requestLogger(c, h.logger).Error("list quotes failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}
	success(c, http.StatusOK, "quotes", mapSlice(quotes, newQuoteDetail))
}

// Get GET /api/wedding/quotes/:id
func (h *QuoteHandler) Get(c *gin.Context) {
	var quote database.WeddingQuote
	if !loadOwned(c, h.db, h.logger, &quote, quoteOwner, quotePreloads...) {
		return
	}
	success(c, http.StatusOK, "quote", newQuoteDetail(quote))
}

// Update PUT /api/wedding/quotes/:id
func (h *QuoteHandler) Update(c *gin.Context) {
	var req updateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid quote fields")
		return
	}

	updates := map[string]any{}
	if req.Status != nil {
		updates["status"] = strings.TrimSpace(*req.Status)
	}
	if req.PaymentStatus != nil {
		updates["payment_status"] = strings.TrimSpace(*req.PaymentStatus)
	}
	if req.SpecialRequests != nil {
		if len(*req.SpecialRequests) > maxSpecialRequestLen {
			BadRequest(c, "specialRequests too long")
			return
		}
		updates["special_requests"] = sanitizeText(h.policy, *req.SpecialRequests)
	}
	if req.EventDate != nil {
		d, err := parseDate(strings.TrimSpace(*req.EventDate))
		if err != nil {
			BadRequest(c, "eventDate must be YYYY-MM-DD")
			return
		}
		updates["event_date"] = d
	}
	if req.EventTime != nil {
		updates["event_time"] = strings.TrimSpace(*req.EventTime)
	}
	if req.VenueName != nil {
		updates["venue_name"] = strings.TrimSpace(*req.VenueName)
	}
	if len(updates) == 0 {
		BadRequest(c, "no updatable fields provided")
		return
	}

	var quote database.WeddingQuote
	if !loadOwned(c, h.db, h.logger, &quote, quoteOwner) {
		return
	}

	ctx := c.Request.Context()
	if err := h.db.WithContext(ctx).Model(&quote).Updates(updates).Error; err != nil {
		requestLogger(c, h.logger).Error("update quote failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}

	status := quote.Status
	if v, ok := updates["status"].(string); ok {
		status = v
	}
	success(c, http.StatusOK, "quote", gin.H{"id": quote.ID, "status": status})
}

// Delete DELETE /api/wedding/quotes/:id，先删除附加服务关联，再删除报价。
func (h *QuoteHandler) Delete(c *gin.Context) {
	var quote database.WeddingQuote
	if !loadOwned(c, h.db, h.logger, &quote, quoteOwner) {
		return
	}

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("quote_id = ?", quote.ID).Delete(&database.QuoteAddon{}).Error; err != nil {
			return fmt.Errorf("delete quote addons: %w", err)
		}
		if err := tx.Unscoped().Delete(&database.WeddingQuote{}, quote.ID).Error; err != nil {
			return fmt.Errorf("delete quote: %w", err)
		}
		return nil
	})
	if err != nil {
		requestLogger(c, h.logger).Error("delete quote failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// QRCode GET /api/wedding/quotes/:id/qrcode，返回指向前端报价页的 PNG。
func (h *QuoteHandler) QRCode(c *gin.Context) {
	var quote database.WeddingQuote
	if !loadOwned(c, h.db, h.logger, &quote, quoteOwner) {
		return
	}

	target := h.frontendBaseURL + "/wedding/quotes/" + strconv.FormatUint(uint64(quote.ID), 10)
	png, err := qrcode.Encode(target, qrcode.Medium, quoteQRCodeSize)
	if err != nil {
		requestLogger(c, h.logger).Error("encode quote qrcode failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", png)
}

func (h *QuoteHandler) loadDetail(c *gin.Context, id uint) (quoteDetail, error) {
	q := h.db.WithContext(c.Request.Context())
	for _, p := range quotePreloads {
		q = q.Preload(p)
	}
	var quote database.WeddingQuote
	if err := q.First(&quote, id).Error; err != nil {
		return quoteDetail{}, err
	}
	return newQuoteDetail(quote), nil
}

// findQuotes 附带目录关联，按创建时间倒序。
func findQuotes(q *gorm.DB) ([]database.WeddingQuote, error) {
	for _, p := range quotePreloads {
		q = q.Preload(p)
	}
	var quotes []database.WeddingQuote
	if err := q.Order("created_at DESC").Find(&quotes).Error; err != nil {
		return nil, err
	}
	return quotes, nil
}
