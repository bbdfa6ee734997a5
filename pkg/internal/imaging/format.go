// Package imaging 提供无状态的图像解码与转码引擎.
package imaging

import "strings"

// Format 输出编码格式.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
	FormatAVIF Format = "avif"
	FormatPNG  Format = "png"
)

// Ext 返回对象键使用的扩展名.
func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}

	return string(f)
}

// ContentType 返回编码对应的 MIME 类型.
func (f Format) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatWebP:
		return "image/webp"
	case FormatAVIF:
		return "image/avif"
	case FormatPNG:
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// ParseFormat 解析配置中的编码名，未知编码返回 false.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpeg", "jpg":
		return FormatJPEG, true
	case "webp":
		return FormatWebP, true
	case "avif":
		return FormatAVIF, true
	case "png":
		return FormatPNG, true
	default:
		return "", false
	}
}
