package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gen2brain/avif"
	"github.com/gen2brain/jpegli"
	"github.com/gen2brain/webp"

	"github.com/yeisme/mediavault/pkg/configs"
)

// ErrDecode 输入字节无法解码为受支持的图像.
var ErrDecode = fmt.Errorf("image decode failed")

// progressiveLevel JPEG 渐进式编码级别.
const progressiveLevel = 2

// Engine 无状态图像转码引擎，可在多个 worker 间共享.
type Engine struct {
	jpegQuality    int
	variantQuality int
	memoryLimit    int64
}

// RenderResult 单个变体的渲染结果.
type RenderResult struct {
	Body        []byte
	Width       int
	Height      int
	ContentType string
}

// OriginalResult 原图渲染结果，JPEG 始终存在，其余编码按请求与支持情况产出.
type OriginalResult struct {
	BodyJPEG []byte
	BodyWebP []byte
	BodyAVIF []byte
	BodyPNG  []byte
	Width    int
	Height   int
}

// Body 返回指定编码的原图字节，未产出时返回 nil.
func (r *OriginalResult) Body(f Format) []byte {
	switch f {
	case FormatJPEG:
		return r.BodyJPEG
	case FormatWebP:
		return r.BodyWebP
	case FormatAVIF:
		return r.BodyAVIF
	case FormatPNG:
		return r.BodyPNG
	default:
		return nil
	}
}

// NewEngine 根据配置构建引擎.
func NewEngine(cfg *configs.ImageConfig) (*Engine, error) {
	limit, err := ParseMemoryLimit(cfg.MemoryLimit)
	if err != nil {
		return nil, err
	}

	jpegQ := cfg.JPEGQuality
	if jpegQ <= 0 {
		jpegQ = configs.DefaultJPEGQuality
	}

	variantQ := cfg.VariantQuality
	if variantQ <= 0 {
		variantQ = configs.DefaultVariantQuality
	}

	return &Engine{
		jpegQuality:    jpegQ,
		variantQuality: variantQ,
		memoryLimit:    limit,
	}, nil
}

// JPEGQuality 返回 JPEG 输出质量.
func (e *Engine) JPEGQuality() int { return e.jpegQuality }

// VariantQuality 返回 WEBP/AVIF/PNG 输出质量.
func (e *Engine) VariantQuality() int { return e.variantQuality }

// QualityFor 返回指定编码的默认输出质量.
func (e *Engine) QualityFor(f Format) int {
	if f == FormatJPEG {
		return e.jpegQuality
	}

	return e.variantQuality
}

// 能力探测：JPEG 恒为真，其余编码器基于 wasm 实现随二进制一同发布.

func (e *Engine) SupportsJPEG() bool { return true }
func (e *Engine) SupportsWebP() bool { return true }
func (e *Engine) SupportsAVIF() bool { return true }
func (e *Engine) SupportsPNG() bool  { return true }

// Supports 判断引擎是否支持指定编码.
func (e *Engine) Supports(f Format) bool {
	switch f {
	case FormatJPEG:
		return e.SupportsJPEG()
	case FormatWebP:
		return e.SupportsWebP()
	case FormatAVIF:
		return e.SupportsAVIF()
	case FormatPNG:
		return e.SupportsPNG()
	default:
		return false
	}
}

// RenderOriginal 解码源字节，把长边限制到 maxLongEdge（只缩不放），并编码为
// JPEG 及 codecs 中请求且受支持的其它编码.
func (e *Engine) RenderOriginal(b []byte, maxLongEdge int, codecs []Format) (*OriginalResult, error) {
	src, err := e.decode(b)
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	outW, outH := LongEdgeSize(bounds.Dx(), bounds.Dy(), maxLongEdge)

	if outW != bounds.Dx() || outH != bounds.Dy() {
		src = imaging.Resize(src, outW, outH, imaging.Lanczos)
	}

	result := &OriginalResult{Width: outW, Height: outH}

	result.BodyJPEG, err = e.encode(src, FormatJPEG, e.jpegQuality)
	if err != nil {
		return nil, err
	}

	for _, f := range codecs {
		if f == FormatJPEG || !e.Supports(f) {
			continue
		}

		body, err := e.encode(src, f, e.variantQuality)
		if err != nil {
			return nil, err
		}

		switch f {
		case FormatWebP:
			result.BodyWebP = body
		case FormatAVIF:
			result.BodyAVIF = body
		case FormatPNG:
			result.BodyPNG = body
		}
	}

	return result, nil
}

// RenderVariant 渲染单个变体.
//
// cover：禁止放大时先把目标尺寸按源尺寸截断，再居中裁剪出目标纵横比的矩形
// （奇数余量偏向高坐标侧）并缩放到目标尺寸；contain：等比缩放进目标框，
// 维度向下取整且至少为 1.
func (e *Engine) RenderVariant(b []byte, targetW, targetH int, cover bool, f Format, quality int) (*RenderResult, error) {
	if targetW <= 0 || targetH <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", targetW, targetH)
	}

	src, err := e.decode(b)
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	var out *image.NRGBA

	if cover {
		tw, th := ClampTarget(srcW, srcH, targetW, targetH)
		x0, y0, cw, ch := CoverCrop(srcW, srcH, tw, th)

		cropped := imaging.Crop(src, image.Rect(bounds.Min.X+x0, bounds.Min.Y+y0, bounds.Min.X+x0+cw, bounds.Min.Y+y0+ch))
		out = imaging.Resize(cropped, tw, th, imaging.Lanczos)
	} else {
		tw, th := ContainSize(srcW, srcH, targetW, targetH)
		out = imaging.Resize(src, tw, th, imaging.Lanczos)
	}

	if quality <= 0 {
		quality = e.QualityFor(f)
	}

	body, err := e.encode(out, f, quality)
	if err != nil {
		return nil, err
	}

	outBounds := out.Bounds()

	return &RenderResult{
		Body:        body,
		Width:       outBounds.Dx(),
		Height:      outBounds.Dy(),
		ContentType: f.ContentType(),
	}, nil
}

// decode 嗅探 MIME 并解码，解码前执行内存预估.
func (e *Engine) decode(b []byte) (image.Image, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}

	mtype := mimetype.Detect(b)

	cfg, err := e.decodeConfig(b, mtype.String())
	if err != nil {
		return nil, err
	}

	if err := e.checkMemory(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	var img image.Image

	switch mtype.String() {
	case "image/jpeg":
		img, err = jpegli.Decode(bytes.NewReader(b))
	case "image/png":
		img, err = png.Decode(bytes.NewReader(b))
	case "image/gif":
		img, err = gif.Decode(bytes.NewReader(b))
	case "image/webp":
		img, err = webp.Decode(bytes.NewReader(b))
	case "image/avif":
		img, err = avif.Decode(bytes.NewReader(b))
	default:
		return nil, fmt.Errorf("%w: unsupported content type %s", ErrDecode, mtype.String())
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return img, nil
}

// decodeConfig 只读取图像头部获取尺寸，用于内存预估.
func (e *Engine) decodeConfig(b []byte, contentType string) (image.Config, error) {
	var (
		cfg image.Config
		err error
	)

	switch contentType {
	case "image/jpeg":
		cfg, err = jpegli.DecodeConfig(bytes.NewReader(b))
	case "image/png":
		cfg, err = png.DecodeConfig(bytes.NewReader(b))
	case "image/gif":
		cfg, err = gif.DecodeConfig(bytes.NewReader(b))
	case "image/webp":
		cfg, err = webp.DecodeConfig(bytes.NewReader(b))
	case "image/avif":
		cfg, err = avif.DecodeConfig(bytes.NewReader(b))
	default:
		return cfg, fmt.Errorf("%w: unsupported content type %s", ErrDecode, contentType)
	}

	if err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return cfg, nil
}

// encode 按编码格式输出字节；JPEG 先把透明通道铺到纯白背景并使用渐进式编码.
func (e *Engine) encode(img image.Image, f Format, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch f {
	case FormatJPEG:
		flattened := flattenAlpha(img)

		err := jpegli.Encode(&buf, flattened, &jpegli.EncodingOptions{
			Quality:          quality,
			ProgressiveLevel: progressiveLevel,
		})
		if err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	case FormatWebP:
		if err := webp.Encode(&buf, img, webp.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode webp: %w", err)
		}
	case FormatAVIF:
		if err := avif.Encode(&buf, img, avif.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode avif: %w", err)
		}
	case FormatPNG:
		enc := png.Encoder{CompressionLevel: pngLevel(PNGCompressionLevel(quality))}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported output format %q", f)
	}

	return buf.Bytes(), nil
}

// flattenAlpha 把任意图像铺到纯白(255,255,255)背景，JPEG 不支持透明通道.
func flattenAlpha(img image.Image) image.Image {
	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, image.White, image.Point{}, draw.Src)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Over)

	return dst
}

// pngLevel 把 0..9 的级别折算到标准库的四档压缩级别.
func pngLevel(level int) png.CompressionLevel {
	switch {
	case level <= 0:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	case level <= 6:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}
