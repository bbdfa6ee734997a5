package configs

import (
	"github.com/spf13/viper"
)

const (
	DefaultJPEGQuality    = 82 // 默认JPEG质量
	DefaultVariantQuality = 80 // 默认WEBP/AVIF/PNG质量
)

// ImageConfig 图像引擎配置.
type ImageConfig struct {
	// MemoryLimit 进程内存上限，如 "512M"、"2G"；为空表示不限，解码前的内存预估将被跳过.
	MemoryLimit    string `mapstructure:"memory_limit"`
	JPEGQuality    int    `mapstructure:"jpeg_quality"    rule:"min=1,max=100"`
	VariantQuality int    `mapstructure:"variant_quality" rule:"min=0,max=100"`
}

// setDefaults 设置图像引擎配置的默认值.
func (c *ImageConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("image.memory_limit", "")
	v.SetDefault("image.jpeg_quality", DefaultJPEGQuality)
	v.SetDefault("image.variant_quality", DefaultVariantQuality)
}
