// Package profile 将配置中的渲染 profile 解析为不可变记录并按名称提供查询.
package profile

import (
	"fmt"
	"sort"

	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/imaging"
)

// ErrProfileUnknown 查询了不存在的 profile，属于调用方编程错误，不重试.
var ErrProfileUnknown = fmt.Errorf("profile unknown")

// Fit 变体几何模式.
type Fit string

const (
	FitCover   Fit = "cover"   // 居中裁剪后铺满目标尺寸
	FitContain Fit = "contain" // 等比缩放到目标框内
)

// Variant 变体几何定义.
type Variant struct {
	Width  int
	Height int
	Fit    Fit
}

// Profile 一个已解析的渲染策略，构造后不可变.
type Profile struct {
	Name                string
	Prefix              string
	KeepOriginal        bool
	MaxOriginalLongEdge int
	// Codecs 输出编码，JPEG 始终位于首位；配置中的未知编码已被过滤.
	Codecs []imaging.Format
	// VariantNames 变体的确定性迭代顺序（按名称排序）.
	VariantNames []string
	Variants     map[string]Variant
}

// HasCodec 判断 profile 是否包含指定编码.
func (p *Profile) HasCodec(f imaging.Format) bool {
	for _, c := range p.Codecs {
		if c == f {
			return true
		}
	}

	return false
}

// Registry 按名称提供 profile 查询，构造后不可变.
type Registry struct {
	profiles map[string]*Profile
}

// NewRegistry 从原始配置构建注册表.
func NewRegistry(raw map[string]configs.ProfileConfig) *Registry {
	profiles := make(map[string]*Profile, len(raw))

	for name, cfg := range raw {
		profiles[name] = parseProfile(name, cfg)
	}

	return &Registry{profiles: profiles}
}

// Get 按名称查询 profile，不存在时返回 ErrProfileUnknown.
func (r *Registry) Get(name string) (*Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProfileUnknown, name)
	}

	return p, nil
}

// Names 返回全部 profile 名称（排序）.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// parseProfile 解析单个 profile：过滤未知编码，保证 JPEG 位于首位.
func parseProfile(name string, cfg configs.ProfileConfig) *Profile {
	codecs := []imaging.Format{imaging.FormatJPEG}

	for _, raw := range cfg.Codecs {
		f, ok := imaging.ParseFormat(raw)
		if !ok {
			// 未知编码静默忽略
			continue
		}

		if f == imaging.FormatJPEG {
			continue
		}

		duplicate := false

		for _, existing := range codecs {
			if existing == f {
				duplicate = true
				break
			}
		}

		if !duplicate {
			codecs = append(codecs, f)
		}
	}

	variants := make(map[string]Variant, len(cfg.Variants))
	names := make([]string, 0, len(cfg.Variants))

	for vname, vcfg := range cfg.Variants {
		fit := FitContain
		if vcfg.Fit == string(FitCover) {
			fit = FitCover
		}

		variants[vname] = Variant{Width: vcfg.Width, Height: vcfg.Height, Fit: fit}
		names = append(names, vname)
	}

	sort.Strings(names)

	return &Profile{
		Name:                name,
		Prefix:              cfg.Prefix,
		KeepOriginal:        cfg.KeepOriginal,
		MaxOriginalLongEdge: cfg.MaxOriginalLongEdge,
		Codecs:              codecs,
		VariantNames:        names,
		Variants:            variants,
	}
}
