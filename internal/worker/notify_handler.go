package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"reelStudio/internal/database"
	"reelStudio/internal/metrics"
	"reelStudio/internal/pricing"
	"reelStudio/internal/tasks"
)

// Publisher 是 redis.Client 的发布子集，测试中可替换。
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// NotifyHandler 消费新线索与新报价任务：推送到管理后台频道，并按需发送短信。
type NotifyHandler struct {
	db        *gorm.DB
	publisher Publisher
	sms       SMSSender
	logger    *slog.Logger
	now       func() time.Time
}

// NewNotifyHandler 创建任务处理器，sms 可为 nil。
func NewNotifyHandler(db *gorm.DB, publisher Publisher, sms SMSSender, logger *slog.Logger) *NotifyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotifyHandler{
		db:        db,
		publisher: publisher,
		sms:       sms,
		logger:    logger,
		now:       time.Now,
	}
}

// ProcessLeadTask 处理 lead:notify。
func (h *NotifyHandler) ProcessLeadTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.LeadNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("unmarshal lead payload failed", slog.Any("error", err))
		return fmt.Errorf("unmarshal lead payload: %w", asynq.SkipRetry)
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("lead_id", uint64(payload.LeadID)),
	)

	var lead database.Lead
	if err := h.db.WithContext(ctx).First(&lead, payload.LeadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("lead not found, skipping task")
			metrics.RecordNotifyOutcome(KindLead, metrics.OutcomeSkippedMissing)
			return nil
		}
		log.Error("query lead failed", slog.Any("error", err))
		return err
	}

	summary := lead.Service
	if summary == "" {
		summary = truncate(lead.Message, 120)
	}
	msg := AdminNotifyMessage{
		Kind:          KindLead,
		ID:            lead.ID,
		Title:         fmt.Sprintf("New inquiry from %s", lead.Name),
		Summary:       summary,
		CorrelationID: payload.CorrelationID,
		CreatedAt:     h.now().UTC(),
	}
	return h.deliver(ctx, log, msg)
}

// ProcessQuoteTask 处理 quote:notify。
func (h *NotifyHandler) ProcessQuoteTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.QuoteNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("unmarshal quote payload failed", slog.Any("error", err))
		return fmt.Errorf("unmarshal quote payload: %w", asynq.SkipRetry)
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("quote_id", uint64(payload.QuoteID)),
	)

	var quote database.WeddingQuote
	err := h.db.WithContext(ctx).Preload("Package").First(&quote, payload.QuoteID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("quote not found, skipping task")
			metrics.RecordNotifyOutcome(KindQuote, metrics.OutcomeSkippedMissing)
			return nil
		}
		log.Error("query quote failed", slog.Any("error", err))
		return err
	}

	title := "New wedding quote"
	if quote.Package.Name != "" {
		title = fmt.Sprintf("New %s quote", quote.Package.Name)
	}
	summary := pricing.FormatCents(quote.TotalPrice)
	if !quote.EventDate.IsZero() {
		summary += " on " + quote.EventDate.Format("2006-01-02")
	}
	msg := AdminNotifyMessage{
		Kind:          KindQuote,
		ID:            quote.ID,
		Title:         title,
		Summary:       summary,
		CorrelationID: payload.CorrelationID,
		CreatedAt:     h.now().UTC(),
	}
	return h.deliver(ctx, log, msg)
}

func (h *NotifyHandler) deliver(ctx context.Context, log *slog.Logger, msg AdminNotifyMessage) error {
	if h.publisher != nil {
		if err := h.publishAdminNotify(ctx, msg); err != nil {
			log.Error("publish admin notification failed", slog.Any("error", err))
			metrics.RecordNotifyOutcome(msg.Kind, metrics.OutcomePublishFailed)
			if isFinalAsynqAttempt(ctx) {
				log.Error("admin notification dropped after final attempt", slog.String("kind", msg.Kind))
			}
			return err
		}
		metrics.RecordNotifyOutcome(msg.Kind, metrics.OutcomePublished)
	}

	// 短信失败不重试，避免重复推送
	if h.sms != nil {
		body := msg.Title
		if msg.Summary != "" {
			body += ": " + msg.Summary
		}
		if err := h.sms.Send(ctx, body); err != nil {
			log.Warn("send sms notification failed", slog.Any("error", err))
			metrics.RecordNotifyOutcome(msg.Kind, metrics.OutcomeSMSFailed)
		} else {
			metrics.RecordNotifyOutcome(msg.Kind, metrics.OutcomeSMSSent)
		}
	}

	log.Info("admin notification delivered", slog.String("kind", msg.Kind))
	return nil
}

func (h *NotifyHandler) publishAdminNotify(ctx context.Context, msg AdminNotifyMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	if err := h.publisher.Publish(ctx, tasks.AdminNotifyChannel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", tasks.AdminNotifyChannel, err)
	}
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
