package spool_test

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/yeisme/mediavault/pkg/internal/spool"
)

// spoolPathPattern 日期分桶路径与文件名 token 的形状.
var spoolPathPattern = regexp.MustCompile(`\d{4}/\d{2}/\d{2}/\d+_[0-9a-f]{8}_photo.jpg$`)

// TestSaveBytesPathShape 测试暂存路径形状与文件内容.
func TestSaveBytesPathShape(t *testing.T) {
	sp := spool.New(t.TempDir())

	path, err := sp.SaveBytes([]byte("hello"), "photo.jpg")
	if err != nil {
		t.Fatalf("SaveBytes failed: %v", err)
	}

	if !spoolPathPattern.MatchString(filepath.ToSlash(path)) {
		t.Errorf("path %q does not match expected shape", path)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read spool file: %v", err)
	}

	if string(got) != "hello" {
		t.Errorf("content = %q, want hello", got)
	}
}

// TestSaveUploadSanitizesName 测试危险文件名被清洗.
func TestSaveUploadSanitizesName(t *testing.T) {
	sp := spool.New(t.TempDir())

	path, err := sp.SaveUpload(strings.NewReader("x"), "../../etc/pass wd#1.png")
	if err != nil {
		t.Fatalf("SaveUpload failed: %v", err)
	}

	name := filepath.Base(path)
	if strings.Contains(name, "/") || strings.Contains(name, "#") || strings.Contains(name, " ") {
		t.Errorf("unsanitized name %q", name)
	}

	if !strings.HasSuffix(name, "_pass_wd_1.png") {
		t.Errorf("name = %q, want suffix _pass_wd_1.png", name)
	}
}

// TestSaveDisabled 测试未配置暂存目录时保存报错.
func TestSaveDisabled(t *testing.T) {
	sp := spool.New("")

	if sp.Enabled() {
		t.Error("empty root should be disabled")
	}

	if _, err := sp.SaveBytes([]byte("x"), "a.jpg"); err == nil {
		t.Error("expected error when spool disabled")
	}
}

// TestDeleteIdempotent 测试删除不存在的文件不会恐慌或报错.
func TestDeleteIdempotent(t *testing.T) {
	sp := spool.New(t.TempDir())

	path, err := sp.SaveBytes([]byte("x"), "a.jpg")
	if err != nil {
		t.Fatalf("SaveBytes failed: %v", err)
	}

	sp.Delete(path)
	sp.Delete(path) // 第二次删除同样安全
	sp.Delete("")

	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Errorf("file %q still exists after Delete", path)
	}
}

// TestCleanup 测试过期文件被清理且空日期目录被移除.
func TestCleanup(t *testing.T) {
	root := t.TempDir()
	sp := spool.New(root)

	oldPath, err := sp.SaveBytes([]byte("old"), "old.jpg")
	if err != nil {
		t.Fatalf("SaveBytes failed: %v", err)
	}

	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(oldPath, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	freshPath, err := sp.SaveBytes([]byte("fresh"), "fresh.jpg")
	if err != nil {
		t.Fatalf("SaveBytes failed: %v", err)
	}

	removed, err := sp.Cleanup(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	if _, statErr := os.Stat(oldPath); !os.IsNotExist(statErr) {
		t.Errorf("old file %q survived cleanup", oldPath)
	}

	if _, statErr := os.Stat(freshPath); statErr != nil {
		t.Errorf("fresh file %q removed by cleanup: %v", freshPath, statErr)
	}

	// 根目录自身保留
	if _, statErr := os.Stat(root); statErr != nil {
		t.Errorf("spool root removed: %v", statErr)
	}
}

// TestCleanupRemovesEmptyDirs 测试全部文件过期后日期目录被移除.
func TestCleanupRemovesEmptyDirs(t *testing.T) {
	root := t.TempDir()
	sp := spool.New(root)

	path, err := sp.SaveBytes([]byte("x"), "a.jpg")
	if err != nil {
		t.Fatalf("SaveBytes failed: %v", err)
	}

	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	if _, err := sp.Cleanup(time.Now()); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("read root: %v", err)
	}

	if len(entries) != 0 {
		t.Errorf("root still has %d entries after cleanup", len(entries))
	}
}
