package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config SDK客户端配置
type Config struct {
	// 注册中心地址，如 "localhost:8500"
	RegistryAddr string `json:"registry_addr"`
	// 服务名称
	ServiceName string `json:"service_name"`
	// 服务实例ID，为空时自动生成 <name>-<uuid前8位>
	ServiceID string `json:"service_id"`
	// 服务主机地址
	Host string `json:"host"`
	// 服务端口
	Port int `json:"port"`
	// 健康检查路径，为空表示不参与主动探测
	HealthCheckURL string `json:"health_check_url"`
	// 元数据
	Metadata map[string]string `json:"metadata"`
	// 心跳间隔
	HeartbeatInterval time.Duration `json:"heartbeat_interval"`
	// 操作超时时间
	Timeout time.Duration `json:"timeout"`
	// 注册重试次数
	RetryCount int `json:"retry_count"`
	// 注册重试间隔，固定间隔，不做退避
	RetryDelay time.Duration `json:"retry_delay"`
	// 是否使用HTTPS
	Secure bool `json:"secure"`
}

// Client 注册中心SDK客户端
type Client struct {
	config       *Config
	httpClient   *http.Client
	isRegistered bool

	// stopMu 保护stopChan的并发读写
	stopMu   sync.Mutex
	stopChan chan struct{}
}

// ErrorResponse 注册中心错误响应
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// RegisterResponse 注册响应
type RegisterResponse struct {
	Message      string    `json:"message"`
	ServiceID    string    `json:"service_id"`
	RegisteredAt time.Time `json:"registered_at"`
}

// NewClient 创建SDK客户端
func NewClient(config *Config) (*Client, error) {
	// 验证必填配置
	if config.RegistryAddr == "" {
		return nil, fmt.Errorf("注册中心地址不能为空")
	}
	if config.ServiceName == "" {
		return nil, fmt.Errorf("服务名称不能为空")
	}
	if config.Host == "" {
		return nil, fmt.Errorf("服务主机地址不能为空")
	}
	if config.Port <= 0 {
		return nil, fmt.Errorf("服务端口必须大于0")
	}

	// 设置默认值
	if config.ServiceID == "" {
		config.ServiceID = fmt.Sprintf("%s-%s", config.ServiceName, uuid.New().String()[:8])
	}
	if config.HeartbeatInterval == 0 {
		config.HeartbeatInterval = 30 * time.Second
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if config.RetryCount == 0 {
		config.RetryCount = 5
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 5 * time.Second
	}

	// 创建HTTP客户端
	httpClient := &http.Client{
		Timeout: config.Timeout,
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}, nil
}

// 构建API地址
func (c *Client) buildURL(path string) string {
	protocol := "http"
	if c.config.Secure {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s%s", protocol, c.config.RegistryAddr, path)
}

// 发送HTTP请求并解码响应
func (c *Client) doRequest(ctx context.Context, method, path string, body, out interface{}) error {
	url := c.buildURL(path)

	// 准备请求体
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("序列化请求体失败: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	// 创建请求
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// 发送请求
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应体失败: %w", err)
	}

	// 非2xx响应解析错误详情
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var errResp ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Detail != "" {
			return fmt.Errorf("API请求失败: %s (状态码: %d)", errResp.Detail, resp.StatusCode)
		}
		return fmt.Errorf("API请求失败 (状态码: %d)", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("解析响应失败: %w, 响应内容: %s", err, string(respBody))
		}
	}

	return nil
}

// ServiceID 获取服务实例ID
func (c *Client) ServiceID() string {
	return c.config.ServiceID
}

// IsRegistered 检查服务是否已注册
func (c *Client) IsRegistered() bool {
	return c.isRegistered
}
