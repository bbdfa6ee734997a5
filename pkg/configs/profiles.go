package configs

// ProfileConfig 单个渲染 profile 的原始配置，由 pkg/internal/profile 解析为
// 不可变的 Profile 记录.
type ProfileConfig struct {
	// Prefix 对象键前缀，如 "products".
	Prefix string `mapstructure:"prefix" rule:"required"`
	// KeepOriginal 是否保留（缩放后的）原图.
	KeepOriginal bool `mapstructure:"keep_original"`
	// MaxOriginalLongEdge 原图长边上限，仅缩小不放大.
	MaxOriginalLongEdge int `mapstructure:"max_original_long_edge" rule:"min=1"`
	// Codecs 输出编码列表，未知编码会被忽略，JPEG 始终隐式位于首位.
	Codecs []string `mapstructure:"codecs"`
	// Variants 变体名到几何定义的映射.
	Variants map[string]VariantConfig `mapstructure:"variants"`
}

// VariantConfig 变体几何配置.
type VariantConfig struct {
	Width  int    `mapstructure:"width"  rule:"min=1"`
	Height int    `mapstructure:"height" rule:"min=1"`
	// Fit 裁剪模式：cover（居中裁剪铺满）或 contain（等比缩放包含）.
	Fit string `mapstructure:"fit" rule:"oneof=cover contain"`
}
