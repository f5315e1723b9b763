package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hewenyu/service-registry/internal/config"
	"github.com/hewenyu/service-registry/internal/notifier"
	"github.com/hewenyu/service-registry/pkg/api/router"
	sdk "github.com/hewenyu/service-registry/sdk/go"
)

var configFile string

func init() {
	flag.StringVar(&configFile, "config", "", "配置文件路径")
}

func main() {
	flag.Parse()

	// 加载配置
	appConfig, err := config.LoadConfig(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger, err := config.NewLogger(appConfig.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	logger.Info("Notification Service Starting...",
		zap.Int("port", appConfig.Notifier.Port),
		zap.String("registry_addr", appConfig.Notifier.RegistryAddr),
	)

	// 创建告警发送器和HTTP处理器
	sender := notifier.NewTelegramSender(
		"",
		appConfig.Notifier.TelegramToken,
		appConfig.Notifier.TelegramChatID,
	)
	h := notifier.NewHandler(sender, logger)

	e := router.NewEcho()
	h.RegisterRoutes(e)

	// 向注册中心注册自身，重试耗尽时降级运行，不阻塞服务启动
	client, err := sdk.NewClient(&sdk.Config{
		RegistryAddr:   appConfig.Notifier.RegistryAddr,
		ServiceName:    "notification-service",
		Host:           resolveOwnHost(),
		Port:           appConfig.Notifier.Port,
		HealthCheckURL: "/health",
		Metadata: map[string]string{
			"version": "1.0.0",
		},
	})
	if err != nil {
		logger.Fatal("创建注册中心客户端失败", zap.Error(err))
	}

	go func() {
		if err := client.RegisterWithRetry(context.Background()); err != nil {
			logger.Error("注册到注册中心失败，继续降级运行", zap.Error(err))
			return
		}
		logger.Info("已注册到注册中心", zap.String("service_id", client.ServiceID()))
		client.StartHeartbeat()
	}()

	// 启动HTTP服务器
	go func() {
		addr := fmt.Sprintf("%s:%d", appConfig.Notifier.ListenAddress, appConfig.Notifier.Port)
		logger.Info("HTTP服务器启动", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP服务器启动失败", zap.Error(err))
		}
	}()

	// 等待信号以优雅关闭
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("接收到关闭信号，正在优雅关闭...")

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Close(closeCtx); err != nil {
		logger.Warn("关闭注册中心客户端失败", zap.Error(err))
	}
	if err := e.Shutdown(closeCtx); err != nil {
		logger.Error("关闭HTTP服务器失败", zap.Error(err))
	}

	logger.Info("Notification Service已停止")
}

// resolveOwnHost 获取本机对外地址，失败时回退到localhost
func resolveOwnHost() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "localhost"
	}
	return hostname
}
