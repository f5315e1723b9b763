package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hewenyu/service-registry/pkg/model"
	"github.com/hewenyu/service-registry/pkg/storage"
)

// Store 是基于内存的服务注册存储实现。
// 所有读写都在互斥锁内完成，记录出入均为拷贝，调用方不与存储共享内存。
type Store struct {
	records map[string]*model.ServiceRecord
	mutex   sync.RWMutex
}

// NewStore 创建新的内存存储
func NewStore() *Store {
	return &Store{
		records: make(map[string]*model.ServiceRecord),
	}
}

// Register 注册服务实例，按ServiceID执行upsert。
// 同ID重复注册整体覆盖字段并重置注册时间：重新注册视为重新加入。
func (s *Store) Register(ctx context.Context, record *model.ServiceRecord) (time.Time, error) {
	if record.ServiceID == "" || record.ServiceName == "" || record.Host == "" || record.Port <= 0 {
		return time.Time{}, storage.NewInvalidArgumentError("服务ID、名称、主机和端口不能为空")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now()
	saved := record.Clone()
	saved.RegisteredAt = now
	saved.LastHeartbeat = now
	saved.LastHealthCheck = nil
	saved.Status = model.StatusHealthy
	saved.HealthStatus = model.HealthStatusUnknown
	saved.ResponseTimeMS = 0
	if saved.Metadata == nil {
		saved.Metadata = make(map[string]string)
	}

	if old, exists := s.records[record.ServiceID]; exists {
		// 覆盖注册时版本号继续递增，使在途的探测回写失效
		saved.Version = old.Version + 1
	} else {
		saved.Version = 1
	}

	s.records[record.ServiceID] = saved
	return now, nil
}

// Deregister 注销服务实例
func (s *Store) Deregister(ctx context.Context, serviceID string) error {
	if serviceID == "" {
		return storage.NewInvalidArgumentError("服务ID不能为空")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.records[serviceID]; !exists {
		return storage.NewNotFoundError("服务不存在: " + serviceID)
	}

	delete(s.records, serviceID)
	return nil
}

// Get 获取服务实例详情
func (s *Store) Get(ctx context.Context, serviceID string) (*model.ServiceRecord, error) {
	if serviceID == "" {
		return nil, storage.NewInvalidArgumentError("服务ID不能为空")
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	record, exists := s.records[serviceID]
	if !exists {
		return nil, storage.NewNotFoundError("服务不存在: " + serviceID)
	}

	return record.Clone(), nil
}

// List 获取所有服务实例列表
func (s *Store) List(ctx context.Context) ([]*model.ServiceRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	records := make([]*model.ServiceRecord, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record.Clone())
	}

	return records, nil
}

// ListByName 获取指定名称的服务实例列表
func (s *Store) ListByName(ctx context.Context, serviceName string) ([]*model.ServiceRecord, error) {
	if serviceName == "" {
		return nil, storage.NewInvalidArgumentError("服务名称不能为空")
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	records := make([]*model.ServiceRecord, 0)
	for _, record := range s.records {
		if record.ServiceName == serviceName {
			records = append(records, record.Clone())
		}
	}

	return records, nil
}

// Heartbeat 更新服务心跳时间。
// 对账规则：探测状态为unhealthy时权威状态保持unhealthy，
// 自报心跳不能推翻探测到的故障。
func (s *Store) Heartbeat(ctx context.Context, serviceID string) (time.Time, error) {
	if serviceID == "" {
		return time.Time{}, storage.NewInvalidArgumentError("服务ID不能为空")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	record, exists := s.records[serviceID]
	if !exists {
		return time.Time{}, storage.NewNotFoundError("服务不存在: " + serviceID)
	}

	now := time.Now()
	record.LastHeartbeat = now
	if record.HealthStatus != model.HealthStatusUnhealthy {
		record.Status = model.StatusHealthy
	}
	return now, nil
}

// ApplyProbeResult 回写一次探测结果。
// 探测发起到回写之间记录可能已被注销或覆盖注册，
// 此处比对版本号，不匹配时静默跳过，避免复活已删除的实例。
func (s *Store) ApplyProbeResult(ctx context.Context, serviceID string, version uint64, result *model.ProbeResult) error {
	if serviceID == "" {
		return storage.NewInvalidArgumentError("服务ID不能为空")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	record, exists := s.records[serviceID]
	if !exists {
		return storage.NewNotFoundError("服务不存在: " + serviceID)
	}
	if record.Version != version {
		return storage.NewNotFoundError("服务记录已变更: " + serviceID)
	}

	now := time.Now()
	record.LastHealthCheck = &now
	record.HealthStatus = result.HealthStatus
	record.ResponseTimeMS = result.ResponseTimeMS
	if result.HealthStatus == model.HealthStatusUnhealthy {
		record.Status = model.StatusUnhealthy
	}
	return nil
}

// Stats 计算聚合统计
func (s *Store) Stats(ctx context.Context) (*model.RegistryStats, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stats := &model.RegistryStats{
		TotalServices: len(s.records),
	}

	if len(s.records) == 0 {
		// 空存储时平均延迟定义为0，避免除零
		return stats, nil
	}

	var totalResponse float64
	for _, record := range s.records {
		switch record.HealthStatus {
		case model.HealthStatusHealthy:
			stats.HealthyServices++
		case model.HealthStatusUnhealthy:
			stats.UnhealthyServices++
		default:
			stats.UnknownServices++
		}
		totalResponse += record.ResponseTimeMS
	}
	stats.AverageResponseTimeMS = totalResponse / float64(len(s.records))

	return stats, nil
}
