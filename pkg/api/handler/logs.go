package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hewenyu/service-registry/internal/logbuffer"
)

// LogsHandler 提供日志缓冲区的下载和尾部查询
type LogsHandler struct {
	buffer *logbuffer.Buffer
}

// NewLogsHandler 创建日志处理器
func NewLogsHandler(buffer *logbuffer.Buffer) *LogsHandler {
	return &LogsHandler{
		buffer: buffer,
	}
}

// DownloadLogs 下载缓冲区内的全部日志
func (h *LogsHandler) DownloadLogs(c echo.Context) error {
	content := h.buffer.String()
	if content == "" {
		return c.String(http.StatusOK, "No logs available")
	}

	filename := fmt.Sprintf("service_registry_logs_%s.txt", time.Now().Format("20060102_150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+filename)
	return c.String(http.StatusOK, content)
}

// RecentLogs 获取最近N行日志，默认100行
func (h *LogsHandler) RecentLogs(c echo.Context) error {
	lines := 100
	if param := c.QueryParam("lines"); param != "" {
		parsed, err := strconv.Atoi(param)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Detail: "lines参数无效: " + param,
			})
		}
		lines = parsed
	}

	total, recent := h.buffer.Tail(lines)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"total_lines":    total,
		"returned_lines": len(recent),
		"logs":           recent,
	})
}
