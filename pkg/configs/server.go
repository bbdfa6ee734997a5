package configs

import (
	"github.com/spf13/viper"
)

const (
	DefaultReloadConfig = true  // 是否启用配置热重载
	DefaultDebug        = false // 是否启用调试模式
)

type (
	// ServerConfig 进程级配置（无HTTP服务，仅调试与热重载开关）.
	ServerConfig struct {
		ReloadConfig bool `mapstructure:"reload_config"`
		Debug        bool `mapstructure:"debug"`
	}
)

// setDefaults 设置进程配置的默认值.
func (s *ServerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("server.reload_config", DefaultReloadConfig)
	v.SetDefault("server.debug", DefaultDebug)
}
