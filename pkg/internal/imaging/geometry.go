package imaging

// ContainSize 计算 contain 模式的输出尺寸：等比缩放因子取
// min(targetW/srcW, targetH/srcH)，且不超过 1（只缩不放），
// 输出维度向下取整，至少为 1.
func ContainSize(srcW, srcH, targetW, targetH int) (int, int) {
	scale := min(float64(targetW)/float64(srcW), float64(targetH)/float64(srcH))
	if scale > 1 {
		scale = 1
	}

	w := int(float64(srcW) * scale)
	h := int(float64(srcH) * scale)

	return max(w, 1), max(h, 1)
}

// LongEdgeSize 计算把长边限制到 maxLongEdge 后的输出尺寸，只缩不放.
func LongEdgeSize(srcW, srcH, maxLongEdge int) (int, int) {
	longEdge := max(srcW, srcH)

	scale := float64(maxLongEdge) / float64(longEdge)
	if scale >= 1 {
		return srcW, srcH
	}

	w := int(float64(srcW) * scale)
	h := int(float64(srcH) * scale)

	return max(w, 1), max(h, 1)
}

// ClampTarget 把目标尺寸按源尺寸截断，cover 模式禁止放大时先做此截断.
func ClampTarget(srcW, srcH, targetW, targetH int) (int, int) {
	return min(targetW, srcW), min(targetH, srcH)
}

// CoverCrop 计算 cover 模式的居中裁剪矩形：在源图内取目标纵横比的最大矩形，
// 维度向下取整且至少为 1.裁剪余量为奇数时偏移向高坐标侧取整（half-up）.
func CoverCrop(srcW, srcH, targetW, targetH int) (x0, y0, cropW, cropH int) {
	if srcW*targetH > srcH*targetW {
		cropH = srcH
		cropW = max(srcH*targetW/targetH, 1)
	} else {
		cropW = srcW
		cropH = max(srcW*targetH/targetW, 1)
	}

	x0 = (srcW - cropW + 1) / 2
	y0 = (srcH - cropH + 1) / 2

	return x0, y0, cropW, cropH
}

// PNGCompressionLevel 把 0..100 的质量映射为 0..9 的压缩级别：
// quality=100 -> 0，quality=0 -> 9.
func PNGCompressionLevel(quality int) int {
	if quality < 0 {
		quality = 0
	}

	if quality > 100 {
		quality = 100
	}

	return 9 - int(float64(quality)/100*9+0.5)
}
