package model

import "time"

// Status 表示服务的权威状态，对外暴露的存活结论
type Status string

const (
	// StatusHealthy 健康状态
	StatusHealthy Status = "healthy"
	// StatusUnhealthy 不健康状态
	StatusUnhealthy Status = "unhealthy"
)

// HealthStatus 表示主动探测得到的健康状态
type HealthStatus string

const (
	// HealthStatusUnknown 未知状态（尚未探测或未配置健康检查）
	HealthStatusUnknown HealthStatus = "unknown"
	// HealthStatusHealthy 探测健康
	HealthStatusHealthy HealthStatus = "healthy"
	// HealthStatusUnhealthy 探测不健康
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ServiceRecord 表示一个已注册的服务实例
type ServiceRecord struct {
	ServiceName     string            `json:"service_name"`               // 服务名称，允许多实例同名
	ServiceID       string            `json:"service_id"`                 // 服务实例唯一ID，由注册方指定
	Host            string            `json:"host"`                       // 服务主机地址
	Port            int               `json:"port"`                       // 服务端口
	HealthCheckURL  string            `json:"health_check_url,omitempty"` // 健康检查路径，为空表示不参与主动探测
	Metadata        map[string]string `json:"metadata"`                   // 服务元数据
	RegisteredAt    time.Time         `json:"registered_at"`              // 注册时间
	LastHeartbeat   time.Time         `json:"last_heartbeat"`             // 最后心跳时间
	LastHealthCheck *time.Time        `json:"last_health_check"`          // 最后健康检查时间，未探测过为null
	Status          Status            `json:"status"`                     // 权威状态
	HealthStatus    HealthStatus      `json:"health_status"`              // 探测状态
	ResponseTimeMS  float64           `json:"response_time_ms"`           // 最近一次探测延迟（毫秒）

	// Version 是记录的版本号，每次写入递增，
	// 探测回写时用于检测删除/覆盖竞争。不参与序列化。
	Version uint64 `json:"-"`
}

// Clone 返回记录的深拷贝，调用方不会与存储共享内存
func (r *ServiceRecord) Clone() *ServiceRecord {
	clone := *r
	if r.Metadata != nil {
		clone.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			clone.Metadata[k] = v
		}
	}
	if r.LastHealthCheck != nil {
		t := *r.LastHealthCheck
		clone.LastHealthCheck = &t
	}
	return &clone
}

// ProbeResult 表示一次健康探测的结果
type ProbeResult struct {
	HealthStatus   HealthStatus           `json:"health_status"`
	ResponseTimeMS float64                `json:"response_time_ms"`
	Error          string                 `json:"error,omitempty"`
	Details        map[string]interface{} `json:"details,omitempty"`
}

// ServiceHealth 表示单个实例的健康摘要
type ServiceHealth struct {
	ServiceID      string       `json:"service_id"`
	ServiceName    string       `json:"service_name"`
	Status         Status       `json:"status"`
	HealthStatus   HealthStatus `json:"health_status"`
	LastCheck      string       `json:"last_check"`
	ResponseTimeMS float64      `json:"response_time_ms"`
	// Details 预留的摘要详情字段，当前固定输出null
	Details map[string]interface{} `json:"details"`
}

// RegistryStats 表示注册中心的聚合统计
type RegistryStats struct {
	TotalServices         int     `json:"total_services"`
	HealthyServices       int     `json:"healthy_services"`
	UnhealthyServices     int     `json:"unhealthy_services"`
	UnknownServices       int     `json:"unknown_services"`
	AverageResponseTimeMS float64 `json:"average_response_time_ms"`
}
