package imaging

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// bytesPerPixelEstimate 解码一张图片的内存开销估算系数.
const bytesPerPixelEstimate = 5

// ErrInsufficientMemory 解码前的内存预估超过进程可用内存.
var ErrInsufficientMemory = fmt.Errorf("insufficient memory to decode image")

// ParseMemoryLimit 解析形如 "512M"、"2G"、"65536K" 的内存上限字符串，
// 后缀因子为 1024；空串、"0" 与 "-1" 表示不限，返回 0.
func ParseMemoryLimit(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" || s == "-1" {
		return 0, nil
	}

	factor := int64(1)
	upper := strings.ToUpper(s)

	switch {
	case strings.HasSuffix(upper, "K"):
		factor = 1024
		upper = strings.TrimSuffix(upper, "K")
	case strings.HasSuffix(upper, "M"):
		factor = 1024 * 1024
		upper = strings.TrimSuffix(upper, "M")
	case strings.HasSuffix(upper, "G"):
		factor = 1024 * 1024 * 1024
		upper = strings.TrimSuffix(upper, "G")
	}

	n, err := strconv.ParseInt(strings.TrimSpace(upper), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid memory limit %q: %w", s, err)
	}

	if n < 0 {
		return 0, nil
	}

	return n * factor, nil
}

// checkMemory 在解码前估算所需内存（srcW*srcH*5 字节），超出可用内存时返回
// ErrInsufficientMemory；上限为 0（不限）时跳过检查.
func (e *Engine) checkMemory(srcW, srcH int) error {
	if e.memoryLimit <= 0 {
		return nil
	}

	need := int64(srcW) * int64(srcH) * bytesPerPixelEstimate

	var stats runtime.MemStats

	runtime.ReadMemStats(&stats)

	available := e.memoryLimit - int64(stats.HeapAlloc)
	if need > available {
		return fmt.Errorf("%w: need %d bytes, available %d", ErrInsufficientMemory, need, available)
	}

	return nil
}
