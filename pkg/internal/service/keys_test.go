package service_test

import (
	"testing"

	"github.com/yeisme/mediavault/pkg/internal/service"
)

// TestBuildBaseKey 测试对象键前缀的构建规则.
func TestBuildBaseKey(t *testing.T) {
	cases := []struct {
		prefix    string
		ownerType string
		ownerID   int64
		assetID   uint64
		want      string
	}{
		{"p", "Product", 7, 12, "p/Product/7/12"},
		{"p/", "Product", 7, 12, "p/Product/7/12"},         // prefix 尾斜杠剥掉
		{"p", "App\\Models\\Post", 2, 9, "p/App_Models_Post/2/9"}, // 非法字符替换
		{"p", "", 7, 12, "p/7/12"},                          // 空 owner 类型省略段
		{"p", "_", 7, 12, "p/7/12"},                         // "_" 同样省略
		{"media/cards", "user profile", 1, 3, "media/cards/user_profile/1/3"},
	}

	for _, c := range cases {
		got := service.BuildBaseKey(c.prefix, c.ownerType, c.ownerID, c.assetID)
		if got != c.want {
			t.Errorf("BuildBaseKey(%q,%q,%d,%d) = %q, want %q",
				c.prefix, c.ownerType, c.ownerID, c.assetID, got, c.want)
		}
	}
}

// TestBuildAssetBaseKey 测试无 owner 路径的对象键前缀.
func TestBuildAssetBaseKey(t *testing.T) {
	if got := service.BuildAssetBaseKey("p", 42); got != "p/_asset/42" {
		t.Errorf("BuildAssetBaseKey(p,42) = %q, want p/_asset/42", got)
	}

	if got := service.BuildAssetBaseKey("p/", 42); got != "p/_asset/42" {
		t.Errorf("BuildAssetBaseKey(p/,42) = %q, want p/_asset/42", got)
	}
}
