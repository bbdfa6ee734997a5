package queue

import "time"

// ProcessAssetPayload 主处理队列的消息负载.
// TempFilePath 仅在异步本地上传时出现，指向 worker 可读取的暂存文件.
type ProcessAssetPayload struct {
	AssetID      uint64 `json:"assetId"`
	TempFilePath string `json:"tempFilePath,omitempty"`
}

// DeadLetterPayload 死信队列的消息负载，记录耗尽重试预算的资产.
type DeadLetterPayload struct {
	AssetID  uint64    `json:"assetId"`
	Error    string    `json:"error"`
	Attempts int       `json:"attempts"`
	FailedAt time.Time `json:"failedAt"`
}
