package worker

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"reelStudio/internal/config"
)

// SMSSender 发送一条短信给值班手机。
type SMSSender interface {
	Send(ctx context.Context, body string) error
}

// TwilioSender 使用 Twilio REST API 发送短信。
type TwilioSender struct {
	client *twilio.RestClient
	from   string
	to     string
}

// NewTwilioSender 在配置不完整时返回 nil，调用方据此跳过短信。
func NewTwilioSender(cfg config.NotifyConfig) *TwilioSender {
	if !cfg.SMSEnabled() {
		return nil
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})
	return &TwilioSender{client: client, from: cfg.FromNumber, to: cfg.ToNumber}
}

// Send 实现 SMSSender。twilio-go 不接受 context，ctx 仅用于提前退出。
func (s *TwilioSender) Send(ctx context.Context, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(s.to)
	params.SetFrom(s.from)
	params.SetBody(body)
	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio create message: %w", err)
	}
	return nil
}
