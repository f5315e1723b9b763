package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// 从默认位置加载配置
	config, err := LoadConfig("")
	require.NoError(t, err, "无法加载默认配置")
	require.NotNil(t, config, "配置不应为nil")

	// 验证默认值
	assert.Equal(t, 8500, config.Server.Port, "HTTP端口应为8500")
	assert.Equal(t, 30*time.Second, config.HealthCheck.Interval, "健康检查间隔应为30秒")
	assert.Equal(t, 5*time.Second, config.HealthCheck.Timeout, "健康检查超时应为5秒")
	assert.Equal(t, time.Second, config.HealthCheck.SlowThreshold, "慢响应阈值应为1秒")
	assert.Equal(t, "both", config.DNS.Protocol, "DNS协议应为both")
	assert.Equal(t, "service.discovery.", config.DNS.Domain, "DNS域后缀应为默认值")
	assert.Equal(t, 2000, config.Log.BufferLines, "日志缓冲区容量应为2000")
	assert.Equal(t, 8610, config.Notifier.Port, "通知服务端口应为8610")
}

func TestLoadConfigFromEnvVars(t *testing.T) {
	// 设置环境变量
	os.Setenv("SERVICE_REGISTRY_SERVER_PORT", "9500")
	os.Setenv("SERVICE_REGISTRY_HEALTH_CHECK_INTERVAL", "10s")
	defer func() {
		os.Unsetenv("SERVICE_REGISTRY_SERVER_PORT")
		os.Unsetenv("SERVICE_REGISTRY_HEALTH_CHECK_INTERVAL")
	}()

	// 加载配置
	config, err := LoadConfig("")
	require.NoError(t, err, "无法加载配置")
	require.NotNil(t, config, "配置不应为nil")

	// 验证环境变量覆盖
	assert.Equal(t, 9500, config.Server.Port, "环境变量应正确覆盖HTTP端口")
	assert.Equal(t, 10*time.Second, config.HealthCheck.Interval, "环境变量应正确覆盖健康检查间隔")

	// 确认其他值不受影响
	assert.Equal(t, 8610, config.Notifier.Port, "通知服务端口不应被环境变量影响")
}

func TestLoadConfigWithMissingFile(t *testing.T) {
	// 尝试从不存在的文件加载配置
	config, err := LoadConfig("non_existent_file.yaml")

	// 应该返回错误
	assert.Error(t, err, "从不存在的文件加载配置应该失败")

	// 不应该返回配置对象
	assert.Nil(t, config, "加载不存在的配置文件应该返回nil配置")
}
