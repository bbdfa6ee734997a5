package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultHTTPTimeoutSeconds = 15               // 默认下载超时（秒）
	DefaultHTTPMaxBytes       = 15_000_000       // 默认单文件最大字节数
	DefaultHTTPUserAgent      = "mediavault/1.0" // 默认 User-Agent
	DefaultHTTPRatePerSecond  = 0                // 默认不限速（0 表示关闭）
	DefaultHTTPBreakerEnabled = true             // 默认启用熔断
)

// HTTPConfig 远程图片下载配置.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds" rule:"min=1,max=300"`
	MaxBytes       int64  `mapstructure:"max_bytes"       rule:"min=1"`
	UserAgent      string `mapstructure:"user_agent"`
	// RatePerSecond 出站请求限速，0 表示不限.
	RatePerSecond float64 `mapstructure:"rate_per_second" rule:"min=0"`
	// BreakerEnabled 是否对下载源启用熔断器.
	BreakerEnabled bool `mapstructure:"breaker_enabled"`
}

// GetTimeout 返回下载超时时间.
func (c *HTTPConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// setDefaults 设置下载器配置的默认值.
func (c *HTTPConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("http.timeout_seconds", DefaultHTTPTimeoutSeconds)
	v.SetDefault("http.max_bytes", DefaultHTTPMaxBytes)
	v.SetDefault("http.user_agent", DefaultHTTPUserAgent)
	v.SetDefault("http.rate_per_second", DefaultHTTPRatePerSecond)
	v.SetDefault("http.breaker_enabled", DefaultHTTPBreakerEnabled)
}
