// Package gateway 隔离尚未接入的外部集成（支付、合同、订阅、文件下载）。
// 目前只有 Mock 实现，返回固定的字面量数据；接入真实服务时替换实现即可，
// 处理器的请求/响应约定保持不变。
package gateway

import "context"

// Gateway 是处理器依赖的外部集成接口。
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (PaymentIntent, error)
	ListContracts(ctx context.Context) ([]Contract, error)
	ListPayments(ctx context.Context) ([]Payment, error)
	ListSubscriptions(ctx context.Context) ([]Subscription, error)
	FileDownload(ctx context.Context, fileID string) (FileLink, error)
	FileView(ctx context.Context, fileID string) (FileLink, error)
}

// PaymentIntentRequest 是创建支付意图的入参，Amount 以分为单位。
type PaymentIntentRequest struct {
	Amount   int64
	Currency string
	QuoteID  uint
	UserID   uint
}

// PaymentIntent 模仿第三方支付网关的 intent 资源。不会产生任何资金流动。
type PaymentIntent struct {
	ID           string            `json:"id"`
	Object       string            `json:"object"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	ClientSecret string            `json:"client_secret"`
	Created      int64             `json:"created"`
	LiveMode     bool              `json:"livemode"`
	Metadata     map[string]string `json:"metadata"`
}

// Contract 是合同列表中的一项。
type Contract struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Client    string `json:"client"`
	Status    string `json:"status"`
	SignedAt  string `json:"signedAt,omitempty"`
	CreatedAt string `json:"createdAt"`
	URL       string `json:"url"`
}

// Payment 是付款记录。
type Payment struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	Description string `json:"description"`
	Method      string `json:"method"`
	CreatedAt   string `json:"createdAt"`
}

// Subscription 是订阅记录。
type Subscription struct {
	ID               string `json:"id"`
	Plan             string `json:"plan"`
	Status           string `json:"status"`
	Amount           int64  `json:"amount"`
	Interval         string `json:"interval"`
	CurrentPeriodEnd string `json:"currentPeriodEnd"`
}

// FileLink 是文件下载/预览链接。
type FileLink struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt"`
	Mode      string `json:"mode"`
}
