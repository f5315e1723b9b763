package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hewenyu/service-registry/internal/config"
	"github.com/hewenyu/service-registry/internal/healthcheck"
	"github.com/hewenyu/service-registry/pkg/model"
	"github.com/hewenyu/service-registry/pkg/storage"
)

// QueryHandler 提供注册中心的只读查询和按需探测
type QueryHandler struct {
	store  storage.RegistryStore
	prober *healthcheck.Prober
	logger config.Logger
}

// NewQueryHandler 创建查询处理器
func NewQueryHandler(store storage.RegistryStore, prober *healthcheck.Prober, logger config.Logger) *QueryHandler {
	return &QueryHandler{
		store:  store,
		prober: prober,
		logger: logger,
	}
}

// ListServices 获取所有已注册的服务实例
func (h *QueryHandler) ListServices(c echo.Context) error {
	records, err := h.store.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Detail: "获取服务列表失败: " + err.Error(),
		})
	}

	h.logger.Debug("列出所有服务", zap.Int("total", len(records)))
	return c.JSON(http.StatusOK, records)
}

// GetServicesByName 按名称获取服务的全部实例，无匹配时返回404
func (h *QueryHandler) GetServicesByName(c echo.Context) error {
	serviceName := c.Param("serviceName")

	records, err := h.store.ListByName(c.Request().Context(), serviceName)
	if err != nil {
		if se, ok := err.(*storage.StorageError); ok && se.Code == storage.ErrInvalidArgument {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Detail: se.Error()})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Detail: "获取服务失败: " + err.Error(),
		})
	}

	if len(records) == 0 {
		h.logger.Warn("未找到服务实例", zap.String("service_name", serviceName))
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Detail: "未找到服务实例: " + serviceName,
		})
	}

	h.logger.Info("按名称查询服务",
		zap.String("service_name", serviceName),
		zap.Int("instances", len(records)),
	)
	return c.JSON(http.StatusOK, records)
}

// GetServiceByID 按ID获取单个服务实例
func (h *QueryHandler) GetServiceByID(c echo.Context) error {
	serviceID := c.Param("serviceId")

	record, err := h.store.Get(c.Request().Context(), serviceID)
	if err != nil {
		if storage.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Detail: "服务不存在: " + serviceID,
			})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Detail: "获取服务失败: " + err.Error(),
		})
	}

	return c.JSON(http.StatusOK, record)
}

// GetServiceHealth 获取服务全部实例的健康摘要
func (h *QueryHandler) GetServiceHealth(c echo.Context) error {
	serviceName := c.Param("serviceName")

	records, err := h.store.ListByName(c.Request().Context(), serviceName)
	if err != nil {
		if se, ok := err.(*storage.StorageError); ok && se.Code == storage.ErrInvalidArgument {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Detail: se.Error()})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Detail: "获取健康状态失败: " + err.Error(),
		})
	}

	if len(records) == 0 {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Detail: "未找到服务实例: " + serviceName,
		})
	}

	summaries := make([]*model.ServiceHealth, 0, len(records))
	for _, record := range records {
		lastCheck := "never"
		if record.LastHealthCheck != nil {
			lastCheck = record.LastHealthCheck.Format(time.RFC3339Nano)
		}
		summaries = append(summaries, &model.ServiceHealth{
			ServiceID:      record.ServiceID,
			ServiceName:    record.ServiceName,
			Status:         record.Status,
			HealthStatus:   record.HealthStatus,
			LastCheck:      lastCheck,
			ResponseTimeMS: record.ResponseTimeMS,
		})
	}

	return c.JSON(http.StatusOK, summaries)
}

// CheckHealthNow 对指定服务立即执行一次健康探测并返回结果
func (h *QueryHandler) CheckHealthNow(c echo.Context) error {
	serviceID := c.Param("serviceId")

	record, err := h.store.Get(c.Request().Context(), serviceID)
	if err != nil {
		if storage.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Detail: "服务不存在: " + serviceID,
			})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Detail: "获取服务失败: " + err.Error(),
		})
	}

	h.logger.Info("手动触发健康检查",
		zap.String("service_name", record.ServiceName),
		zap.String("service_id", serviceID),
	)

	result, err := h.prober.CheckNow(c.Request().Context(), serviceID)
	if err != nil {
		if storage.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Detail: "服务不存在: " + serviceID,
			})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Detail: "健康检查失败: " + err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"service_id":       serviceID,
		"service_name":     record.ServiceName,
		"health_status":    result.HealthStatus,
		"response_time_ms": result.ResponseTimeMS,
		"details":          result.Details,
		"error":            result.Error,
		"checked_at":       time.Now().Format(time.RFC3339Nano),
	})
}
