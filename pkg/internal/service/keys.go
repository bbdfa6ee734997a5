package service

import (
	"fmt"
	"regexp"
	"strings"
)

// ownerTypeSanitizer 对象键中 owner 类型段允许的字符之外全部替换为下划线.
var ownerTypeSanitizer = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// BuildBaseKey 计算资产的对象键前缀.
//
// 形如 prefix/sanitize(ownerType)/ownerID/assetID；ownerType 为空或 "_" 时
// 省略该段；prefix 末尾的斜杠被剥掉.
func BuildBaseKey(prefix, ownerType string, ownerID int64, assetID uint64) string {
	prefix = strings.TrimRight(prefix, "/")

	sanitized := ownerTypeSanitizer.ReplaceAllString(ownerType, "_")
	if sanitized == "" || sanitized == "_" {
		return fmt.Sprintf("%s/%d/%d", prefix, ownerID, assetID)
	}

	return fmt.Sprintf("%s/%s/%d/%d", prefix, sanitized, ownerID, assetID)
}

// BuildAssetBaseKey 计算无 owner 路径的对象键前缀，异步远程处理时使用：
// owner 可能有多个，不重建 owner 路径.
func BuildAssetBaseKey(prefix string, assetID uint64) string {
	return fmt.Sprintf("%s/_asset/%d", strings.TrimRight(prefix, "/"), assetID)
}
