package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用程序配置结构
type Config struct {
	// 注册中心HTTP服务配置
	Server struct {
		ListenAddress string `mapstructure:"listen_address"`
		Port          int    `mapstructure:"port"`
	} `mapstructure:"server"`

	// DNS查询服务配置
	DNS struct {
		Enabled       bool   `mapstructure:"enabled"`
		ListenAddress string `mapstructure:"listen_address"`
		Port          int    `mapstructure:"port"`
		Protocol      string `mapstructure:"protocol"` // "udp", "tcp", 或 "both"
		Domain        string `mapstructure:"domain"`   // 服务域后缀
	} `mapstructure:"dns"`

	// 健康检查配置
	HealthCheck struct {
		Interval      time.Duration `mapstructure:"interval"`
		Timeout       time.Duration `mapstructure:"timeout"`
		SlowThreshold time.Duration `mapstructure:"slow_threshold"`
	} `mapstructure:"health_check"`

	// 日志配置
	Log struct {
		Level       string `mapstructure:"level"`
		Development bool   `mapstructure:"development"`
		BufferLines int    `mapstructure:"buffer_lines"`
	} `mapstructure:"log"`

	// 通知服务配置
	Notifier struct {
		ListenAddress  string `mapstructure:"listen_address"`
		Port           int    `mapstructure:"port"`
		RegistryAddr   string `mapstructure:"registry_addr"`
		TelegramToken  string `mapstructure:"telegram_token"`
		TelegramChatID string `mapstructure:"telegram_chat_id"`
	} `mapstructure:"notifier"`
}

// LoadConfig 从文件和环境变量加载配置
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	// 如果指定了配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// 设置配置文件名和路径
		v.SetConfigName("config")                  // 配置文件名（无扩展名）
		v.AddConfigPath(".")                       // 当前目录
		v.AddConfigPath("./configs")               // configs目录
		v.AddConfigPath("$HOME/.service-registry") // 用户目录
		v.AddConfigPath("/etc/service-registry")   // 系统目录
	}

	// 配置文件格式
	v.SetConfigType("yaml")

	// 尝试从配置文件加载
	if err := v.ReadInConfig(); err != nil {
		// 如果找不到配置文件，仅记录警告；其他错误则返回
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件错误: %w", err)
		}
	}

	// 绑定环境变量
	v.SetEnvPrefix("SERVICE_REGISTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 从环境变量覆盖
	bindEnvVariables(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置错误: %w", err)
	}

	return &config, nil
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	// HTTP服务默认配置
	v.SetDefault("server.listen_address", "0.0.0.0")
	v.SetDefault("server.port", 8500)

	// DNS服务默认配置
	v.SetDefault("dns.enabled", false)
	v.SetDefault("dns.listen_address", "0.0.0.0")
	v.SetDefault("dns.port", 8600)
	v.SetDefault("dns.protocol", "both")
	v.SetDefault("dns.domain", "service.discovery.")

	// 健康检查默认配置
	v.SetDefault("health_check.interval", "30s")
	v.SetDefault("health_check.timeout", "5s")
	v.SetDefault("health_check.slow_threshold", "1s")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", true)
	v.SetDefault("log.buffer_lines", 2000)

	// 通知服务默认配置
	v.SetDefault("notifier.listen_address", "0.0.0.0")
	v.SetDefault("notifier.port", 8610)
	v.SetDefault("notifier.registry_addr", "localhost:8500")
	v.SetDefault("notifier.telegram_token", "")
	v.SetDefault("notifier.telegram_chat_id", "")
}

// bindEnvVariables 绑定特定的环境变量
func bindEnvVariables(v *viper.Viper) {
	v.BindEnv("server.port", "SERVICE_REGISTRY_SERVER_PORT")
	v.BindEnv("dns.port", "SERVICE_REGISTRY_DNS_PORT")
	v.BindEnv("health_check.interval", "SERVICE_REGISTRY_HEALTH_CHECK_INTERVAL")
	v.BindEnv("notifier.registry_addr", "SERVICE_REGISTRY_NOTIFIER_REGISTRY_ADDR")
	v.BindEnv("notifier.telegram_token", "TELEGRAM_TOKEN")
	v.BindEnv("notifier.telegram_chat_id", "TELEGRAM_CHAT_ID")
}

// GetDefaultConfigPath 返回默认配置文件路径
func GetDefaultConfigPath() string {
	// 按顺序检查不同位置的配置文件
	paths := []string{
		"./config.yaml",
		"./configs/config.yaml",
		os.Getenv("HOME") + "/.service-registry/config.yaml",
		"/etc/service-registry/config.yaml",
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
