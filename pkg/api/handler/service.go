package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hewenyu/service-registry/internal/config"
	"github.com/hewenyu/service-registry/pkg/model"
	"github.com/hewenyu/service-registry/pkg/storage"
)

// RegisterRequest 服务注册请求
type RegisterRequest struct {
	ServiceName    string            `json:"service_name" validate:"required"`
	ServiceID      string            `json:"service_id" validate:"required"`
	Host           string            `json:"host" validate:"required"`
	Port           int               `json:"port" validate:"required,min=1,max=65535"`
	HealthCheckURL string            `json:"health_check_url"`
	Metadata       map[string]string `json:"metadata"`
}

// HeartbeatRequest 服务心跳请求
type HeartbeatRequest struct {
	ServiceID string `json:"service_id" validate:"required"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ServiceHandler 处理服务注册、注销和心跳
type ServiceHandler struct {
	store  storage.RegistryStore
	logger config.Logger
}

// NewServiceHandler 创建服务处理器
func NewServiceHandler(store storage.RegistryStore, logger config.Logger) *ServiceHandler {
	return &ServiceHandler{
		store:  store,
		logger: logger,
	}
}

// RegisterService 注册服务实例，同ID重复注册为覆盖更新
func (h *ServiceHandler) RegisterService(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Detail: "请求参数无效: " + err.Error(),
		})
	}

	// 参数验证
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Detail: "参数验证失败: " + err.Error(),
		})
	}

	record := &model.ServiceRecord{
		ServiceName:    req.ServiceName,
		ServiceID:      req.ServiceID,
		Host:           req.Host,
		Port:           req.Port,
		HealthCheckURL: req.HealthCheckURL,
		Metadata:       req.Metadata,
	}

	registeredAt, err := h.store.Register(c.Request().Context(), record)
	if err != nil {
		if se, ok := err.(*storage.StorageError); ok && se.Code == storage.ErrInvalidArgument {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Detail: se.Error()})
		}
		h.logger.Error("服务注册失败",
			zap.String("service_id", req.ServiceID),
			zap.Error(err),
		)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Detail: "服务注册失败: " + err.Error(),
		})
	}

	h.logger.Info("服务注册成功",
		zap.String("service_name", req.ServiceName),
		zap.String("service_id", req.ServiceID),
		zap.String("address", req.Host),
		zap.Int("port", req.Port),
	)

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message":       "服务注册成功",
		"service_id":    req.ServiceID,
		"registered_at": registeredAt,
	})
}

// DeregisterService 注销服务实例
func (h *ServiceHandler) DeregisterService(c echo.Context) error {
	serviceID := c.Param("serviceId")
	if serviceID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Detail: "服务ID不能为空",
		})
	}

	if err := h.store.Deregister(c.Request().Context(), serviceID); err != nil {
		if storage.IsNotFound(err) {
			h.logger.Warn("注销不存在的服务", zap.String("service_id", serviceID))
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Detail: "服务不存在: " + serviceID,
			})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Detail: "服务注销失败: " + err.Error(),
		})
	}

	h.logger.Info("服务注销成功", zap.String("service_id", serviceID))

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":    "服务注销成功",
		"service_id": serviceID,
	})
}

// Heartbeat 接收服务心跳。
// 探测状态为unhealthy的服务不会因心跳恢复为healthy。
func (h *ServiceHandler) Heartbeat(c echo.Context) error {
	var req HeartbeatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Detail: "请求参数无效: " + err.Error(),
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Detail: "参数验证失败: " + err.Error(),
		})
	}

	timestamp, err := h.store.Heartbeat(c.Request().Context(), req.ServiceID)
	if err != nil {
		if storage.IsNotFound(err) {
			h.logger.Warn("收到未注册服务的心跳", zap.String("service_id", req.ServiceID))
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Detail: "服务未注册: " + req.ServiceID,
			})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Detail: "处理心跳失败: " + err.Error(),
		})
	}

	h.logger.Debug("收到服务心跳", zap.String("service_id", req.ServiceID))

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":    "心跳已接收",
		"service_id": req.ServiceID,
		"timestamp":  timestamp.Format(time.RFC3339Nano),
	})
}
