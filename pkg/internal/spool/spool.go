// Package spool 管理本地上传暂存目录：按日期分桶保存临时文件并定期清理.
package spool

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// nameSanitizer 文件名中允许的字符之外全部替换为下划线.
var nameSanitizer = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// Spool 本地暂存目录管理器.
type Spool struct {
	root string
}

// New 构建暂存管理器，root 为空时表示禁用本地暂存.
func New(root string) *Spool {
	return &Spool{root: root}
}

// Enabled 是否配置了暂存目录.
func (s *Spool) Enabled() bool { return s.root != "" }

// Root 返回暂存根目录.
func (s *Spool) Root() string { return s.root }

// SaveUpload 把上传流写入暂存目录，返回保存路径.
// 路径形如 {root}/2026/08/24/{unix}_{8hex}_{name}.
func (s *Spool) SaveUpload(r io.Reader, originalName string) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("spool is not configured")
	}

	path, err := s.buildPath(originalName)
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create spool file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)

		return "", fmt.Errorf("write spool file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)

		return "", fmt.Errorf("close spool file: %w", err)
	}

	return path, nil
}

// SaveBytes 把字节写入暂存目录，返回保存路径.
func (s *Spool) SaveBytes(b []byte, originalName string) (string, error) {
	return s.SaveUpload(strings.NewReader(string(b)), originalName)
}

// Delete 删除暂存文件，文件不存在不视为错误.
func (s *Spool) Delete(path string) {
	if path == "" {
		return
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("删除暂存文件失败")
	}
}

// Cleanup 删除修改时间早于 olderThan 的暂存文件并移除空的日期目录，
// 返回删除的文件数.
func (s *Spool) Cleanup(olderThan time.Time) (int, error) {
	if !s.Enabled() {
		return 0, nil
	}

	removed := 0

	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}

			return err
		}

		if info.IsDir() {
			return nil
		}

		if info.ModTime().Before(olderThan) {
			if rmErr := os.Remove(path); rmErr == nil {
				removed++
			} else {
				log.Warn().Err(rmErr).Str("path", path).Msg("清理暂存文件失败")
			}
		}

		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("walk spool dir: %w", err)
	}

	s.removeEmptyDirs()

	return removed, nil
}

// buildPath 构建日期分桶的唯一文件路径并确保目录存在.
func (s *Spool) buildPath(originalName string) (string, error) {
	now := time.Now()
	dir := filepath.Join(s.root, now.Format("2006"), now.Format("01"), now.Format("02"))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create spool dir: %w", err)
	}

	suffix := sanitizeName(originalName)
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]

	return filepath.Join(dir, fmt.Sprintf("%d_%s_%s", now.Unix(), token, suffix)), nil
}

// sanitizeName 清洗原始文件名，仅保留基础名；无可用名时退化为扩展名或 "bin".
func sanitizeName(originalName string) string {
	base := filepath.Base(originalName)
	base = nameSanitizer.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")

	if base == "" {
		if ext := strings.TrimPrefix(filepath.Ext(originalName), "."); ext != "" {
			return ext
		}

		return "bin"
	}

	return base
}

// removeEmptyDirs 自底向上移除空的日期目录，根目录保留.
func (s *Spool) removeEmptyDirs() {
	var dirs []string

	_ = filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}

		if info.IsDir() && path != s.root {
			dirs = append(dirs, path)
		}

		return nil
	})

	// 逆序保证先处理深层目录
	for i := len(dirs) - 1; i >= 0; i-- {
		entries, err := os.ReadDir(dirs[i])
		if err != nil || len(entries) > 0 {
			continue
		}

		_ = os.Remove(dirs[i])
	}
}
