package storage

import (
	"context"
	"time"

	"github.com/hewenyu/service-registry/pkg/model"
)

// RegistryStore 定义服务注册存储接口。
// 存储是唯一的状态修改入口：注册、注销、心跳、探测回写都经由它完成。
type RegistryStore interface {
	// Register 注册服务实例，按ServiceID执行upsert语义。
	// 同ID重复注册会整体覆盖字段并重置注册时间（视为重新加入）。
	// 返回本次生效的注册时间。
	Register(ctx context.Context, record *model.ServiceRecord) (time.Time, error)

	// Deregister 注销服务实例
	Deregister(ctx context.Context, serviceID string) error

	// Get 获取服务实例详情
	Get(ctx context.Context, serviceID string) (*model.ServiceRecord, error)

	// List 获取所有服务实例列表
	List(ctx context.Context) ([]*model.ServiceRecord, error)

	// ListByName 获取指定名称的服务实例列表，无匹配时返回空切片
	ListByName(ctx context.Context, serviceName string) ([]*model.ServiceRecord, error)

	// Heartbeat 更新服务心跳时间并按对账规则更新权威状态：
	// 探测状态为unhealthy时心跳不会把权威状态拉回healthy。
	// 返回本次心跳时间。
	Heartbeat(ctx context.Context, serviceID string) (time.Time, error)

	// ApplyProbeResult 回写一次探测结果。version是探测发起前记录的版本号，
	// 记录已被注销或版本不匹配时跳过写入并返回NotFound错误，
	// 避免复活已删除的实例。
	ApplyProbeResult(ctx context.Context, serviceID string, version uint64, result *model.ProbeResult) error

	// Stats 计算聚合统计，空存储时平均延迟为0
	Stats(ctx context.Context) (*model.RegistryStats, error)
}

// StorageError 定义存储操作可能返回的错误类型
type StorageError struct {
	Code    int
	Message string
}

// Error 实现error接口
func (e *StorageError) Error() string {
	return e.Message
}

// 定义错误代码
const (
	// ErrNotFound 资源不存在
	ErrNotFound = iota + 1
	// ErrAlreadyExists 资源已存在
	ErrAlreadyExists
	// ErrInvalidArgument 参数无效
	ErrInvalidArgument
	// ErrInternal 内部错误
	ErrInternal
)

// NewNotFoundError 创建资源不存在错误
func NewNotFoundError(message string) *StorageError {
	return &StorageError{
		Code:    ErrNotFound,
		Message: message,
	}
}

// NewInvalidArgumentError 创建参数无效错误
func NewInvalidArgumentError(message string) *StorageError {
	return &StorageError{
		Code:    ErrInvalidArgument,
		Message: message,
	}
}

// NewInternalError 创建内部错误
func NewInternalError(message string) *StorageError {
	return &StorageError{
		Code:    ErrInternal,
		Message: message,
	}
}

// IsNotFound 判断错误是否为资源不存在
func IsNotFound(err error) bool {
	se, ok := err.(*StorageError)
	return ok && se.Code == ErrNotFound
}
