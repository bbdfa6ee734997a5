package cmd

import "testing"

// TestResolveConfigPath 测试配置路径解析顺序：标志 → BOOTSTRAP_PATH → 当前目录.
func TestResolveConfigPath(t *testing.T) {
	t.Setenv("BOOTSTRAP_PATH", "")

	configPath = ""
	if got := resolveConfigPath(); got != "./" {
		t.Errorf("default path = %q, want ./", got)
	}

	t.Setenv("BOOTSTRAP_PATH", "/etc/mediavault")

	if got := resolveConfigPath(); got != "/etc/mediavault" {
		t.Errorf("env path = %q, want /etc/mediavault", got)
	}

	configPath = "/opt/conf"
	defer func() { configPath = "" }()

	if got := resolveConfigPath(); got != "/opt/conf" {
		t.Errorf("flag path = %q, want /opt/conf (flag overrides env)", got)
	}
}
