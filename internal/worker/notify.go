package worker

import "time"

// 通知类别。
const (
	KindLead  = "lead"
	KindQuote = "quote"
)

// AdminNotifyMessage 通过 Redis Pub/Sub 转发给管理后台 WebSocket。
// 注意：这里的字段名与前端解析保持一致。
type AdminNotifyMessage struct {
	Kind          string    `json:"kind"`
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary"`
	CorrelationID string    `json:"correlation_id"`
	CreatedAt     time.Time `json:"created_at"`
}
