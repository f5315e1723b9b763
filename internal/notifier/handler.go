package notifier

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hewenyu/service-registry/internal/config"
	"github.com/hewenyu/service-registry/pkg/model"
)

// AlertSender 告警发送接口
type AlertSender interface {
	Send(ctx context.Context, alert *model.Alert) error
}

// Handler 通知服务的HTTP处理器
type Handler struct {
	sender AlertSender
	logger config.Logger
}

// NewHandler 创建通知处理器
func NewHandler(sender AlertSender, logger config.Logger) *Handler {
	return &Handler{
		sender: sender,
		logger: logger,
	}
}

// RegisterRoutes 注册通知服务路由
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/notify", h.Notify)
	e.GET("/health", h.HealthCheck)
}

// Notify 接收告警并转发到聊天API
func (h *Handler) Notify(c echo.Context) error {
	var alert model.Alert
	if err := c.Bind(&alert); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "请求参数无效: " + err.Error(),
		})
	}
	if err := c.Validate(&alert); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "参数验证失败: " + err.Error(),
		})
	}

	if err := h.sender.Send(c.Request().Context(), &alert); err != nil {
		h.logger.Error("转发告警失败",
			zap.String("service", alert.Service),
			zap.Error(err),
		)
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "转发告警失败: " + err.Error(),
		})
	}

	h.logger.Info("告警已转发",
		zap.String("service", alert.Service),
		zap.String("status", alert.Status),
	)
	return c.JSON(http.StatusOK, map[string]string{
		"message": "告警通知已发送",
	})
}

// HealthCheck 通知服务自身健康检查
func (h *Handler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   "notification-service",
		"timestamp": time.Now().Format(time.RFC3339Nano),
	})
}
