package sdk

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"
)

// HeartbeatRequest 心跳请求
type HeartbeatRequest struct {
	ServiceID string `json:"service_id"`
}

// SendHeartbeat 发送心跳
func (c *Client) SendHeartbeat(ctx context.Context) error {
	if !c.isRegistered {
		return fmt.Errorf("服务尚未注册")
	}

	req := HeartbeatRequest{ServiceID: c.config.ServiceID}
	if err := c.doRequest(ctx, http.MethodPost, "/heartbeat", req, nil); err != nil {
		return fmt.Errorf("发送心跳失败: %w", err)
	}

	return nil
}

// StartHeartbeat 开始心跳任务
func (c *Client) StartHeartbeat() {
	c.stopMu.Lock()
	// 停止已有心跳任务
	if c.stopChan != nil {
		close(c.stopChan)
	}
	// 创建新的停止通道；协程持有自己的副本，避免与Stop竞争读写字段
	stop := make(chan struct{})
	c.stopChan = stop
	c.stopMu.Unlock()

	// 启动心跳协程
	go func() {
		ticker := time.NewTicker(c.config.HeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				// 停止信号优先于同时到达的tick
				select {
				case <-stop:
					return
				default:
				}

				ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)

				if err := c.SendHeartbeat(ctx); err != nil {
					log.Printf("心跳发送失败: %v, 将在下一个周期重试", err)
				}

				cancel()
			case <-stop:
				return
			}
		}
	}()
}

// StopHeartbeat 停止心跳任务，可重复调用
func (c *Client) StopHeartbeat() {
	c.stopMu.Lock()
	defer c.stopMu.Unlock()

	if c.stopChan != nil {
		close(c.stopChan)
		c.stopChan = nil
	}
}

// Close 关闭客户端：停止心跳并注销服务
func (c *Client) Close(ctx context.Context) error {
	c.StopHeartbeat()

	if c.isRegistered {
		if err := c.Deregister(ctx); err != nil {
			return fmt.Errorf("注销服务失败: %w", err)
		}
	}

	return nil
}
