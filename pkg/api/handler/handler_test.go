package handler

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/hewenyu/service-registry/internal/healthcheck"
	"github.com/hewenyu/service-registry/internal/logbuffer"
	"github.com/hewenyu/service-registry/pkg/model"
	"github.com/hewenyu/service-registry/pkg/storage/memory"
)

// mockLogger 实现config.Logger接口，用于测试
type mockLogger struct{}

func (l *mockLogger) Debug(msg string, fields ...zapcore.Field) {}
func (l *mockLogger) Info(msg string, fields ...zapcore.Field)  {}
func (l *mockLogger) Warn(msg string, fields ...zapcore.Field)  {}
func (l *mockLogger) Error(msg string, fields ...zapcore.Field) {}
func (l *mockLogger) Fatal(msg string, fields ...zapcore.Field) {}

// customValidator 实现echo.Validator接口
type customValidator struct {
	validator *validator.Validate
}

func (cv *customValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// testEnv 测试环境：echo实例加内存存储
type testEnv struct {
	echo   *echo.Echo
	store  *memory.Store
	buffer *logbuffer.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	store := memory.NewStore()
	logger := &mockLogger{}
	buffer := logbuffer.NewBuffer(100)
	prober := healthcheck.NewProber(store, logger, healthcheck.Options{
		Interval: time.Minute,
		Timeout:  2 * time.Second,
	})

	e := echo.New()
	e.Validator = &customValidator{validator: validator.New()}

	serviceHandler := NewServiceHandler(store, logger)
	queryHandler := NewQueryHandler(store, prober, logger)
	statsHandler := NewStatsHandler(store, 30*time.Second)
	logsHandler := NewLogsHandler(buffer)

	e.GET("/", statsHandler.Root)
	e.GET("/health", statsHandler.HealthCheck)
	e.GET("/stats", statsHandler.GetStats)
	e.POST("/register", serviceHandler.RegisterService)
	e.DELETE("/deregister/:serviceId", serviceHandler.DeregisterService)
	e.POST("/heartbeat", serviceHandler.Heartbeat)
	e.GET("/services", queryHandler.ListServices)
	e.GET("/services/:serviceName", queryHandler.GetServicesByName)
	e.GET("/service/:serviceId", queryHandler.GetServiceByID)
	e.GET("/services/:serviceName/health", queryHandler.GetServiceHealth)
	e.POST("/services/:serviceId/check-health", queryHandler.CheckHealthNow)
	e.GET("/logs", logsHandler.DownloadLogs)
	e.GET("/logs/recent", logsHandler.RecentLogs)

	return &testEnv{echo: e, store: store, buffer: buffer}
}

// do 执行一次HTTP请求并返回记录器
func (env *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

func registerBody(id, name string) string {
	return `{"service_name":"` + name + `","service_id":"` + id + `","host":"192.168.1.10","port":8080,"health_check_url":"/health","metadata":{"version":"1.0"}}`
}

func TestRegisterService(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/register", registerBody("svc-1", "api-service"))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "svc-1", resp["service_id"])
	assert.Contains(t, resp, "registered_at")
}

func TestRegisterServiceValidation(t *testing.T) {
	env := newTestEnv(t)

	// 缺少必填字段
	rec := env.do(http.MethodPost, "/register", `{"service_name":"api-service"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 端口超出范围
	rec = env.do(http.MethodPost, "/register",
		`{"service_name":"api-service","service_id":"svc-1","host":"10.0.0.1","port":70000}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterServiceUpsert(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/register", registerBody("svc-1", "api-service"))
	require.Equal(t, http.StatusCreated, rec.Code)

	// 同ID再次注册为覆盖更新，不产生重复记录
	rec = env.do(http.MethodPost, "/register", registerBody("svc-1", "api-service"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodGet, "/services", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var services []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &services))
	assert.Len(t, services, 1)
}

func TestDeregisterService(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodDelete, "/deregister/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env.do(http.MethodPost, "/register", registerBody("svc-1", "api-service"))
	rec = env.do(http.MethodDelete, "/deregister/svc-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/service/svc-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHeartbeat(t *testing.T) {
	env := newTestEnv(t)

	// 未注册服务的心跳返回404
	rec := env.do(http.MethodPost, "/heartbeat", `{"service_id":"unknown"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env.do(http.MethodPost, "/register", registerBody("svc-1", "api-service"))
	rec = env.do(http.MethodPost, "/heartbeat", `{"service_id":"svc-1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "svc-1", resp["service_id"])
	assert.Contains(t, resp, "timestamp")
}

func TestHeartbeatStickyUnhealthy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.do(http.MethodPost, "/register", registerBody("svc-1", "api-service"))

	// 模拟探测失败
	record, err := env.store.Get(ctx, "svc-1")
	require.NoError(t, err)
	err = env.store.ApplyProbeResult(ctx, "svc-1", record.Version, &model.ProbeResult{
		HealthStatus: model.HealthStatusUnhealthy,
		Error:        "HTTP 503",
	})
	require.NoError(t, err)

	// 心跳成功但权威状态保持unhealthy
	rec := env.do(http.MethodPost, "/heartbeat", `{"service_id":"svc-1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/service/svc-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var saved map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.Equal(t, "unhealthy", saved["status"])
	assert.Equal(t, "unhealthy", saved["health_status"])
}

func TestGetServicesByName(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/services/api-service", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env.do(http.MethodPost, "/register", registerBody("svc-1", "api-service"))
	env.do(http.MethodPost, "/register", registerBody("svc-2", "api-service"))
	env.do(http.MethodPost, "/register", registerBody("other-1", "other-service"))

	rec = env.do(http.MethodGet, "/services/api-service", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var services []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &services))
	assert.Len(t, services, 2)
}

func TestGetServiceHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/services/api-service/health", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env.do(http.MethodPost, "/register", registerBody("svc-1", "api-service"))

	rec = env.do(http.MethodGet, "/services/api-service/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var summaries []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "svc-1", summaries[0]["service_id"])
	assert.Equal(t, "unknown", summaries[0]["health_status"])
	// 未探测过的实例last_check为never
	assert.Equal(t, "never", summaries[0]["last_check"])

	// 摘要携带details字段，值为null
	details, ok := summaries[0]["details"]
	assert.True(t, ok)
	assert.Nil(t, details)
}

func TestCheckHealthNow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/services/unknown/check-health", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// 指向真实的httptest后端
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	body := `{"service_name":"api-service","service_id":"svc-1","host":"` + host +
		`","port":` + strconv.Itoa(port) + `,"health_check_url":"/health"}`
	rec = env.do(http.MethodPost, "/register", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodPost, "/services/svc-1/check-health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["health_status"])
	assert.Equal(t, "svc-1", resp["service_id"])
	assert.Contains(t, resp, "checked_at")
}

func TestGetStatsEmpty(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, float64(0), stats["total_services"])
	assert.Equal(t, float64(0), stats["healthy_services"])
	assert.Equal(t, float64(0), stats["unhealthy_services"])
	assert.Equal(t, float64(0), stats["unknown_services"])
	// 空存储时平均延迟为0
	assert.Equal(t, float64(0), stats["average_response_time_ms"])
}

func TestRootAndHealth(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/register", registerBody("svc-1", "api-service"))

	rec := env.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var info map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "running", info["status"])
	assert.Equal(t, float64(1), info["registered_services"])

	rec = env.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "service-registry", health["service"])
}

func TestLogsEndpoints(t *testing.T) {
	env := newTestEnv(t)

	// 空缓冲区
	rec := env.do(http.MethodGet, "/logs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "No logs available", rec.Body.String())

	env.buffer.Append("line-1")
	env.buffer.Append("line-2")
	env.buffer.Append("line-3")

	rec = env.do(http.MethodGet, "/logs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "attachment")
	assert.Contains(t, rec.Body.String(), "line-2")

	rec = env.do(http.MethodGet, "/logs/recent?lines=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(3), resp["total_lines"])
	assert.Equal(t, float64(2), resp["returned_lines"])

	// 无效的lines参数
	rec = env.do(http.MethodGet, "/logs/recent?lines=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
