package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hewenyu/service-registry/pkg/model"
)

// telegram Bot API默认地址
const defaultTelegramAPI = "https://api.telegram.org"

// TelegramSender 把告警转发到Telegram Bot API
type TelegramSender struct {
	apiBase    string
	token      string
	chatID     string
	httpClient *http.Client
}

// NewTelegramSender 创建Telegram告警发送器。
// apiBase为空时使用官方API地址，测试时可指向本地服务。
func NewTelegramSender(apiBase, token, chatID string) *TelegramSender {
	if apiBase == "" {
		apiBase = defaultTelegramAPI
	}
	return &TelegramSender{
		apiBase: strings.TrimSuffix(apiBase, "/"),
		token:   token,
		chatID:  chatID,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Send 将告警格式化为Markdown文本并发送
func (s *TelegramSender) Send(ctx context.Context, alert *model.Alert) error {
	text := fmt.Sprintf(
		"*Service Alert!*\n*Service:* %s\n*Status:* %s\n*Time:* %s\n*Message:* %s",
		alert.Service,
		strings.ToUpper(alert.Status),
		alert.Timestamp,
		alert.Message,
	)

	form := url.Values{}
	form.Set("chat_id", s.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("创建Telegram请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("发送Telegram消息失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Telegram API返回异常状态: %d", resp.StatusCode)
	}

	return nil
}
