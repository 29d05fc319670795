package gateway

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Mock 返回固定字面量数据的 Gateway 实现。
type Mock struct {
	now func() time.Time
}

// NewMock 构造 Mock 网关。
func NewMock() *Mock {
	return &Mock{now: time.Now}
}

var _ Gateway = (*Mock)(nil)

// CreatePaymentIntent 返回伪造的 intent，id 与 client_secret 都是随机生成的占位字符串。
func (m *Mock) CreatePaymentIntent(_ context.Context, req PaymentIntentRequest) (PaymentIntent, error) {
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "usd"
	}
	id := "pi_mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
	metadata := map[string]string{"integration": "mock"}
	if req.QuoteID != 0 {
		metadata["quoteId"] = strconv.FormatUint(uint64(req.QuoteID), 10)
	}
	if req.UserID != 0 {
		metadata["userId"] = strconv.FormatUint(uint64(req.UserID), 10)
	}
	return PaymentIntent{
		ID:           id,
		Object:       "payment_intent",
		Amount:       req.Amount,
		Currency:     currency,
		Status:       "requires_payment_method",
		ClientSecret: id + "_secret_mock",
		Created:      m.now().Unix(),
		LiveMode:     false,
		Metadata:     metadata,
	}, nil
}

// ListContracts 返回固定合同列表。
func (m *Mock) ListContracts(_ context.Context) ([]Contract, error) {
	return []Contract{
		{
			ID:        "contract_001",
			Title:     "Wedding Videography Agreement",
			Client:    "Sarah & James",
			Status:    "signed",
			SignedAt:  "2024-02-12T15:04:05Z",
			CreatedAt: "2024-02-01T10:00:00Z",
			URL:       "/contracts/contract_001.pdf",
		},
		{
			ID:        "contract_002",
			Title:     "Commercial Production Agreement",
			Client:    "Northside Coffee Roasters",
			Status:    "pending",
			CreatedAt: "2024-03-05T09:30:00Z",
			URL:       "/contracts/contract_002.pdf",
		},
	}, nil
}

// ListPayments 返回固定付款记录。
func (m *Mock) ListPayments(_ context.Context) ([]Payment, error) {
	return []Payment{
		{
			ID:          "pay_001",
			Amount:      150000,
			Currency:    "usd",
			Status:      "succeeded",
			Description: "Wedding package deposit",
			Method:      "card",
			CreatedAt:   "2024-02-12T15:10:00Z",
		},
		{
			ID:          "pay_002",
			Amount:      270000,
			Currency:    "usd",
			Status:      "pending",
			Description: "Wedding package balance",
			Method:      "card",
			CreatedAt:   "2024-05-01T12:00:00Z",
		},
	}, nil
}

// ListSubscriptions 返回固定订阅记录。
func (m *Mock) ListSubscriptions(_ context.Context) ([]Subscription, error) {
	return []Subscription{
		{
			ID:               "sub_001",
			Plan:             "Archive Storage",
			Status:           "active",
			Amount:           1500,
			Interval:         "month",
			CurrentPeriodEnd: "2024-07-01T00:00:00Z",
		},
	}, nil
}

// FileDownload 返回固定的下载链接。
func (m *Mock) FileDownload(_ context.Context, fileID string) (FileLink, error) {
	return m.fileLink(fileID, "download"), nil
}

// FileView 返回固定的预览链接。
func (m *Mock) FileView(_ context.Context, fileID string) (FileLink, error) {
	return m.fileLink(fileID, "view"), nil
}

func (m *Mock) fileLink(fileID, mode string) FileLink {
	return FileLink{
		ID:        fileID,
		Name:      "file-" + fileID,
		URL:       "https://files.example.com/mock/" + url.PathEscape(fileID) + "?mode=" + mode,
		ExpiresAt: m.now().Add(15 * time.Minute).UTC().Format(time.RFC3339),
		Mode:      mode,
	}
}
