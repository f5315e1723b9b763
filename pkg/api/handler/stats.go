package handler

import (
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hewenyu/service-registry/pkg/model"
	"github.com/hewenyu/service-registry/pkg/storage"
)

// 注册中心版本号
const registryVersion = "1.1.0"

// StatsHandler 提供聚合统计和注册中心自身信息
type StatsHandler struct {
	store    storage.RegistryStore
	interval time.Duration
}

// NewStatsHandler 创建统计处理器
func NewStatsHandler(store storage.RegistryStore, interval time.Duration) *StatsHandler {
	return &StatsHandler{
		store:    store,
		interval: interval,
	}
}

// GetStats 获取系统统计信息
func (h *StatsHandler) GetStats(c echo.Context) error {
	stats, err := h.store.Stats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Detail: "获取统计信息失败: " + err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"total_services":                stats.TotalServices,
		"healthy_services":              stats.HealthyServices,
		"unhealthy_services":            stats.UnhealthyServices,
		"unknown_services":              stats.UnknownServices,
		"average_response_time_ms":      math.Round(stats.AverageResponseTimeMS*100) / 100,
		"health_check_interval_seconds": int(h.interval.Seconds()),
		"timestamp":                     time.Now().Format(time.RFC3339Nano),
	})
}

// Root 注册中心信息
func (h *StatsHandler) Root(c echo.Context) error {
	stats, err := h.store.Stats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Detail: "获取统计信息失败: " + err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"service":             "Service Registry",
		"status":              "running",
		"version":             registryVersion,
		"registered_services": stats.TotalServices,
		"healthy_services":    stats.HealthyServices,
		"unhealthy_services":  stats.TotalServices - stats.HealthyServices,
		"timestamp":           time.Now().Format(time.RFC3339Nano),
	})
}

// HealthCheck 注册中心自身健康检查
func (h *StatsHandler) HealthCheck(c echo.Context) error {
	stats, err := h.store.Stats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"status":  string(model.StatusUnhealthy),
			"service": "service-registry",
			"error":   err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":              string(model.StatusHealthy),
		"service":             "service-registry",
		"timestamp":           time.Now().Format(time.RFC3339Nano),
		"registered_services": stats.TotalServices,
		"healthy_services":    stats.HealthyServices,
	})
}
