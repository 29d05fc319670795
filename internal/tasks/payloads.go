package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeLeadNotify  = "lead:notify"
	TypeQuoteNotify = "quote:notify"
)

// LeadNotifyPayload 描述新线索通知所需的最小信息。
type LeadNotifyPayload struct {
	LeadID        uint   `json:"lead_id"`
	CorrelationID string `json:"correlation_id"`
}

// QuoteNotifyPayload 描述新报价通知所需的最小信息。
type QuoteNotifyPayload struct {
	QuoteID       uint   `json:"quote_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewLeadNotifyTask 构造一个新线索通知任务。
func NewLeadNotifyTask(id uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(LeadNotifyPayload{
		LeadID:        id,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeLeadNotify, payload), nil
}

// NewQuoteNotifyTask 构造一个新报价通知任务。
func NewQuoteNotifyTask(id uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(QuoteNotifyPayload{
		QuoteID:       id,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeQuoteNotify, payload), nil
}

// AdminNotifyChannel 是 Worker 发布、管理后台 WebSocket 订阅的 Redis 频道。
const AdminNotifyChannel = "admin_notify"
