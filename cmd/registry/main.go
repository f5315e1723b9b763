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
	"github.com/hewenyu/service-registry/internal/dnsserver"
	"github.com/hewenyu/service-registry/internal/healthcheck"
	"github.com/hewenyu/service-registry/internal/logbuffer"
	"github.com/hewenyu/service-registry/pkg/api/handler"
	"github.com/hewenyu/service-registry/pkg/api/router"
	"github.com/hewenyu/service-registry/pkg/storage/memory"
)

var configFile string

func init() {
	// 解析命令行参数
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

	// 初始化日志，同时写入控制台和可下载的日志缓冲区
	buffer := logbuffer.NewBuffer(appConfig.Log.BufferLines)
	logger, err := config.NewBufferedLogger(appConfig.Log.Development, appConfig.Log.Level, buffer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	// 打印启动信息
	logger.Info("Service Registry Starting...",
		zap.String("version", "1.1.0"),
		zap.Int("port", appConfig.Server.Port),
		zap.Duration("health_check_interval", appConfig.HealthCheck.Interval),
		zap.Duration("health_check_timeout", appConfig.HealthCheck.Timeout),
	)

	// 初始化存储和探测器
	store := memory.NewStore()
	prober := healthcheck.NewProber(store, logger, healthcheck.Options{
		Interval:      appConfig.HealthCheck.Interval,
		Timeout:       appConfig.HealthCheck.Timeout,
		SlowThreshold: appConfig.HealthCheck.SlowThreshold,
	})

	// 启动后台健康检查任务
	proberCtx, cancelProber := context.WithCancel(context.Background())
	go prober.Run(proberCtx)

	// 启动DNS查询服务
	var dnsServer *dnsserver.Server
	if appConfig.DNS.Enabled {
		dnsServer = dnsserver.NewServer(appConfig, store, logger)
		dnsServer.Start()
	}

	// 创建HTTP服务并注册路由
	e := router.NewEcho()
	router.RegisterRoutes(e,
		handler.NewServiceHandler(store, logger),
		handler.NewQueryHandler(store, prober, logger),
		handler.NewStatsHandler(store, appConfig.HealthCheck.Interval),
		handler.NewLogsHandler(buffer),
	)

	// 启动HTTP服务器
	go func() {
		addr := fmt.Sprintf("%s:%d", appConfig.Server.ListenAddress, appConfig.Server.Port)
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

	// 取消探测任务，在途探测直接放弃
	cancelProber()
	if dnsServer != nil {
		dnsServer.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("关闭HTTP服务器失败", zap.Error(err))
	}

	logger.Info("Service Registry已停止")
}
