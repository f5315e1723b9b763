package router

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hewenyu/service-registry/pkg/api/handler"
)

// CustomValidator 基于go-playground/validator实现echo.Validator接口
type CustomValidator struct {
	validator *validator.Validate
}

// Validate 实现echo.Validator接口
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// NewEcho 创建配置好中间件和验证器的Echo实例
func NewEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Validator = &CustomValidator{validator: validator.New()}

	return e
}

// RegisterRoutes 配置注册中心的全部路由
func RegisterRoutes(
	e *echo.Echo,
	serviceHandler *handler.ServiceHandler,
	queryHandler *handler.QueryHandler,
	statsHandler *handler.StatsHandler,
	logsHandler *handler.LogsHandler,
) {
	// 注册中心信息与自身健康
	e.GET("/", statsHandler.Root)
	e.GET("/health", statsHandler.HealthCheck)
	e.GET("/stats", statsHandler.GetStats)

	// 服务注册相关路由
	e.POST("/register", serviceHandler.RegisterService)
	e.DELETE("/deregister/:serviceId", serviceHandler.DeregisterService)
	e.POST("/heartbeat", serviceHandler.Heartbeat)

	// 服务查询相关路由
	e.GET("/services", queryHandler.ListServices)
	e.GET("/services/:serviceName", queryHandler.GetServicesByName)
	e.GET("/service/:serviceId", queryHandler.GetServiceByID)
	e.GET("/services/:serviceName/health", queryHandler.GetServiceHealth)
	e.POST("/services/:serviceId/check-health", queryHandler.CheckHealthNow)

	// 日志下载
	e.GET("/logs", logsHandler.DownloadLogs)
	e.GET("/logs/recent", logsHandler.RecentLogs)
}
