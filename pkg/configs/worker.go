package configs

import (
	"github.com/spf13/viper"
)

const (
	DefaultPurgeFailedDays     = 30 // 默认失败资产保留天数
	DefaultStaleQueuedMinutes  = 30 // 默认 QUEUED 滞留判定（分钟）
	DefaultStaleRequeueMinutes = 60 // 默认 PROCESSING 孤儿判定（分钟）
)

// WorkerConfig 维护任务相关配置.
type WorkerConfig struct {
	// PurgeFailedDays 耗尽重试的失败资产保留天数，到期由周任务删除.
	PurgeFailedDays int `mapstructure:"purge_failed_days" rule:"min=1"`
	// StaleQueuedMinutes QUEUED 滞留超过该分钟数的资产会被补发处理消息.
	StaleQueuedMinutes int `mapstructure:"stale_queued_minutes" rule:"min=1"`
	// StaleRequeueMinutes PROCESSING 滞留超过该分钟数的资产会被重置回 QUEUED.
	StaleRequeueMinutes int `mapstructure:"stale_requeue_minutes" rule:"min=1"`
}

// setDefaults 设置维护任务配置的默认值.
func (c *WorkerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("worker.purge_failed_days", DefaultPurgeFailedDays)
	v.SetDefault("worker.stale_queued_minutes", DefaultStaleQueuedMinutes)
	v.SetDefault("worker.stale_requeue_minutes", DefaultStaleRequeueMinutes)
}
