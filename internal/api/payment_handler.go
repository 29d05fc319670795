package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"reelStudio/internal/database"
	"reelStudio/internal/gateway"
)

const stripeSignatureHeader = "Stripe-Signature"

// PaymentHandler 把支付、合同、订阅与文件链接请求转给 gateway.Gateway。
// 当前实现为 Mock，不产生任何资金流动。
type PaymentHandler struct {
	db      *gorm.DB
	gateway gateway.Gateway
	logger  *slog.Logger
}

// NewPaymentHandler 构造处理器。
func NewPaymentHandler(db *gorm.DB, gw gateway.Gateway, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{db: db, gateway: gw, logger: logger}
}

// ListContracts GET /api/contracts
func (h *PaymentHandler) ListContracts(c *gin.Context) {
	items, err := h.gateway.ListContracts(c.Request.Context())
	h.reply(c, items, err)
}

// ListPayments GET /api/payments
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	items, err := h.gateway.ListPayments(c.Request.Context())
	h.reply(c, items, err)
}

// ListSubscriptions GET /api/subscriptions
func (h *PaymentHandler) ListSubscriptions(c *gin.Context) {
	items, err := h.gateway.ListSubscriptions(c.Request.Context())
	h.reply(c, items, err)
}

// FileDownload GET /api/files/:id/download
func (h *PaymentHandler) FileDownload(c *gin.Context) {
	link, err := h.gateway.FileDownload(c.Request.Context(), c.Param("id"))
	h.reply(c, link, err)
}

// FileView GET /api/files/:id/view
func (h *PaymentHandler) FileView(c *gin.Context) {
	link, err := h.gateway.FileView(c.Request.Context(), c.Param("id"))
	h.reply(c, link, err)
}

type createIntentRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency" binding:"omitempty,len=3"`
	QuoteID  uint   `json:"quoteId"`
}

// CreateIntent POST /api/payments/create-intent。提供 quoteId 且未给 amount 时使用报价总价。
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	p, ok := principalFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid payment intent payload")
		return
	}

	amount := req.Amount
	if req.QuoteID != 0 {
		var quote database.WeddingQuote
		if err := h.db.WithContext(c.Request.Context()).First(&quote, req.QuoteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				NotFound(c, "quote not found")
				return
			}
			requestLogger(c, h.logger).Error("load quote for intent failed", slog.Any("error", err))
			InternalErr(c, err)
			return
		}
		if !canAccess(p, quote.UserID) {
			Forbidden(c, "forbidden")
			return
		}
		if amount == 0 {
			amount = quote.TotalPrice
		}
	}
	if amount <= 0 {
		BadRequest(c, "amount must be a positive integer in cents")
		return
	}

	intent, err := h.gateway.CreatePaymentIntent(c.Request.Context(), gateway.PaymentIntentRequest{
		Amount:   amount,
		Currency: req.Currency,
		QuoteID:  req.QuoteID,
		UserID:   p.UserID,
	})
	h.reply(c, intent, err)
}

type webhookEvent struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Webhook POST /api/payments/webhook。只检查签名头是否存在，不做密码学校验。
func (h *PaymentHandler) Webhook(c *gin.Context) {
	if strings.TrimSpace(c.GetHeader(stripeSignatureHeader)) == "" {
		BadRequest(c, "missing signature")
		return
	}

	var event webhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		BadRequest(c, "invalid event payload")
		return
	}

	logger := requestLogger(c, h.logger).With(slog.String("event_id", event.ID), slog.String("event_type", event.Type))
	switch event.Type {
	case "payment_intent.succeeded":
		logger.Info("payment succeeded")
	case "payment_intent.payment_failed":
		logger.Warn("payment failed")
	case "checkout.session.completed":
		logger.Info("checkout completed")
	case "customer.subscription.updated", "customer.subscription.deleted":
		logger.Info("subscription changed")
	default:
		logger.Info("unhandled webhook event")
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "received": true})
}

func (h *PaymentHandler) reply(c *gin.Context, body any, err error) {
	if err != nil {
		requestLogger(c, h.logger).Error("gateway call failed", slog.Any("error", err))
		InternalErr(c, err)
		return
	}
	c.JSON(http.StatusOK, body)
}
