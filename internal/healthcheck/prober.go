package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hewenyu/service-registry/internal/config"
	"github.com/hewenyu/service-registry/pkg/model"
	"github.com/hewenyu/service-registry/pkg/storage"
)

// Options 健康探测配置
type Options struct {
	// Interval 探测周期
	Interval time.Duration
	// Timeout 单次探测超时时间
	Timeout time.Duration
	// SlowThreshold 慢响应告警阈值
	SlowThreshold time.Duration
}

// Prober 周期性探测已注册服务的健康检查端点，
// 并把探测结论回写到注册存储。
type Prober struct {
	store  storage.RegistryStore
	logger config.Logger
	client *http.Client
	opts   Options
}

// NewProber 创建健康探测器
func NewProber(store storage.RegistryStore, logger config.Logger, opts Options) *Prober {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.SlowThreshold <= 0 {
		opts.SlowThreshold = time.Second
	}

	return &Prober{
		store:  store,
		logger: logger,
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		opts: opts,
	}
}

// Run 启动周期性探测循环，直到上下文取消。
// 单个周期的异常只记录日志，不会终止循环。
func (p *Prober) Run(ctx context.Context) {
	p.logger.Info("启动周期性健康检查",
		zap.Duration("interval", p.opts.Interval),
		zap.Duration("timeout", p.opts.Timeout),
	)

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("健康检查任务已停止")
			return
		case <-ticker.C:
			p.runCycleSafe(ctx)
		}
	}
}

// runCycleSafe 执行一个探测周期并吞掉任何panic，保证调度继续
func (p *Prober) runCycleSafe(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("健康检查周期异常", zap.Any("panic", r))
		}
	}()

	if err := p.RunCycle(ctx); err != nil {
		p.logger.Error("健康检查周期出错", zap.Error(err))
	}
}

// RunCycle 对所有配置了健康检查地址的记录执行一轮探测。
// 单条记录的探测或回写失败不影响同一周期内的其余记录。
func (p *Prober) RunCycle(ctx context.Context) error {
	records, err := p.store.List(ctx)
	if err != nil {
		return fmt.Errorf("获取服务列表失败: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	p.logger.Info("开始健康检查", zap.Int("services", len(records)))

	for _, record := range records {
		if record.HealthCheckURL == "" {
			continue
		}
		p.probeAndApply(ctx, record)
	}

	p.logger.Info("健康检查周期完成")
	return nil
}

// CheckNow 对指定服务立即执行一次探测并回写结果。
// 与周期性探测使用完全相同的探测和回写逻辑。
func (p *Prober) CheckNow(ctx context.Context, serviceID string) (*model.ProbeResult, error) {
	record, err := p.store.Get(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	result := p.probe(ctx, record)
	p.applyResult(ctx, record, result)
	return result, nil
}

// probeAndApply 探测单条记录并回写，失败只记录日志
func (p *Prober) probeAndApply(ctx context.Context, record *model.ServiceRecord) {
	result := p.probe(ctx, record)

	if result.HealthStatus == model.HealthStatusUnhealthy {
		p.logger.Error("服务健康检查失败",
			zap.String("service_name", record.ServiceName),
			zap.String("service_id", record.ServiceID),
			zap.String("error", result.Error),
		)
	} else {
		p.logger.Debug("服务健康",
			zap.String("service_name", record.ServiceName),
			zap.Float64("response_time_ms", result.ResponseTimeMS),
		)
	}

	p.applyResult(ctx, record, result)
}

// applyResult 回写探测结果。探测期间记录可能被注销或覆盖注册，
// 存储按版本号拒绝写入时静默跳过。
func (p *Prober) applyResult(ctx context.Context, record *model.ServiceRecord, result *model.ProbeResult) {
	err := p.store.ApplyProbeResult(ctx, record.ServiceID, record.Version, result)
	if err != nil {
		if storage.IsNotFound(err) {
			p.logger.Debug("探测期间服务已变更，跳过回写",
				zap.String("service_id", record.ServiceID))
			return
		}
		p.logger.Error("回写探测结果失败",
			zap.String("service_id", record.ServiceID),
			zap.Error(err),
		)
	}
}

// probe 对单条记录执行一次健康探测并分类结果
func (p *Prober) probe(ctx context.Context, record *model.ServiceRecord) *model.ProbeResult {
	if record.HealthCheckURL == "" {
		return &model.ProbeResult{
			HealthStatus: model.HealthStatusUnknown,
			Error:        "未配置健康检查地址",
		}
	}

	healthURL := buildHealthURL(record)

	reqCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, healthURL, nil)
	if err != nil {
		return &model.ProbeResult{
			HealthStatus: model.HealthStatusUnhealthy,
			Error:        err.Error(),
		}
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0

	if err != nil {
		if isTimeout(err) {
			p.logger.Warn("健康检查超时",
				zap.String("service_name", record.ServiceName),
				zap.String("service_id", record.ServiceID),
			)
			return &model.ProbeResult{
				HealthStatus:   model.HealthStatusUnhealthy,
				ResponseTimeMS: float64(p.opts.Timeout.Milliseconds()),
				Error:          "Timeout",
			}
		}
		return &model.ProbeResult{
			HealthStatus: model.HealthStatusUnhealthy,
			Error:        err.Error(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &model.ProbeResult{
			HealthStatus:   model.HealthStatusUnhealthy,
			ResponseTimeMS: elapsed,
			Error:          fmt.Sprintf("HTTP %d", resp.StatusCode),
		}
	}

	result := &model.ProbeResult{
		HealthStatus:   model.HealthStatusHealthy,
		ResponseTimeMS: elapsed,
	}

	// 响应体作为补充信息解析，为空或非JSON时丢弃
	if body, readErr := io.ReadAll(resp.Body); readErr == nil && len(body) > 0 {
		var details map[string]interface{}
		if json.Unmarshal(body, &details) == nil {
			result.Details = details
		}
	}

	if elapsed > float64(p.opts.SlowThreshold.Milliseconds()) {
		p.logger.Warn("服务响应缓慢",
			zap.String("service_name", record.ServiceName),
			zap.String("service_id", record.ServiceID),
			zap.Float64("response_time_ms", elapsed),
		)
	}

	return result
}

// buildHealthURL 由记录的主机、端口和检查路径拼出探测地址
func buildHealthURL(record *model.ServiceRecord) string {
	path := record.HealthCheckURL
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("http://%s:%d%s", record.Host, record.Port, path)
}

// isTimeout 判断请求错误是否为超时
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Timeout()
	}
	return false
}
