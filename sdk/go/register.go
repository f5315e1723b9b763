package sdk

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"
)

// RegisterRequest 服务注册请求
type RegisterRequest struct {
	ServiceName    string            `json:"service_name"`
	ServiceID      string            `json:"service_id"`
	Host           string            `json:"host"`
	Port           int               `json:"port"`
	HealthCheckURL string            `json:"health_check_url,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Register 注册服务
func (c *Client) Register(ctx context.Context) error {
	req := RegisterRequest{
		ServiceName:    c.config.ServiceName,
		ServiceID:      c.config.ServiceID,
		Host:           c.config.Host,
		Port:           c.config.Port,
		HealthCheckURL: c.config.HealthCheckURL,
		Metadata:       c.config.Metadata,
	}

	var registerResp RegisterResponse
	if err := c.doRequest(ctx, http.MethodPost, "/register", req, &registerResp); err != nil {
		return fmt.Errorf("服务注册失败: %w", err)
	}

	c.isRegistered = true
	return nil
}

// RegisterWithRetry 带重试的注册：固定间隔重试，不做退避。
// 重试耗尽时返回最后一次错误，由调用方决定是否继续降级运行。
func (c *Client) RegisterWithRetry(ctx context.Context) error {
	var lastErr error

	for attempt := 1; attempt <= c.config.RetryCount; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		err := c.Register(reqCtx)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err
		log.Printf("注册尝试 %d/%d 失败: %v", attempt, c.config.RetryCount, err)

		if attempt < c.config.RetryCount {
			select {
			case <-time.After(c.config.RetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("注册重试耗尽: %w", lastErr)
}

// Deregister 注销服务
func (c *Client) Deregister(ctx context.Context) error {
	if !c.isRegistered {
		return fmt.Errorf("服务尚未注册")
	}

	path := fmt.Sprintf("/deregister/%s", c.config.ServiceID)
	if err := c.doRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("服务注销失败: %w", err)
	}

	c.isRegistered = false
	return nil
}
