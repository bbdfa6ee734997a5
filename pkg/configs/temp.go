package configs

import (
	"github.com/spf13/viper"
)

const (
	DefaultTempMaxAgeHours = 48 // 默认暂存文件保留时长（小时）
)

// TempConfig 本地上传暂存（spool）配置.
// UploadDir 为空时禁用异步本地上传（EnqueueLocal 返回错误）.
type TempConfig struct {
	UploadDir    string `mapstructure:"upload_dir"`
	MaxAgeHours  int    `mapstructure:"max_age_hours" rule:"min=1"`
}

// Enabled 是否启用暂存目录.
func (c *TempConfig) Enabled() bool {
	return c.UploadDir != ""
}

// setDefaults 设置暂存配置的默认值.
func (c *TempConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("temp.upload_dir", "")
	v.SetDefault("temp.max_age_hours", DefaultTempMaxAgeHours)
}
