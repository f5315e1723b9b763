package model

// Alert 表示发送给通知服务的告警内容
type Alert struct {
	Service   string `json:"service" validate:"required"`
	Status    string `json:"status" validate:"required"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}
