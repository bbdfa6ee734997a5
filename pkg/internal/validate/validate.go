// Package validate 提供图像字节与远程 URL 的入口校验.
// 校验失败属于调用方错误，直接返回给调用者，从不重试.
package validate

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrValidation 入口校验失败.
var ErrValidation = fmt.Errorf("validation failed")

// MaxImageBytes 单次上传/下载的图像字节上限（50 MiB）.
const MaxImageBytes = 50 << 20

// allowedMIMETypes 允许的图像 MIME 类型.
var allowedMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
	"image/avif": {},
}

// blockedHosts 禁止的主机名字面量.
var blockedHosts = map[string]struct{}{
	"localhost": {},
	"127.0.0.1": {},
	"::1":       {},
}

// ImageBytes 校验上传字节：非空、不超过 50 MiB、头部可嗅探为受支持的图像类型.
func ImageBytes(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("%w: empty image payload", ErrValidation)
	}

	if len(b) > MaxImageBytes {
		return fmt.Errorf("%w: image payload exceeds %d bytes", ErrValidation, MaxImageBytes)
	}

	mtype := mimetype.Detect(b)
	if _, ok := allowedMIMETypes[mtype.String()]; !ok {
		return fmt.Errorf("%w: unsupported content type %s", ErrValidation, mtype.String())
	}

	return nil
}

// URLValidator 校验远程 URL，解析主机名并拒绝指向内网的目标.
// lookup 可注入以便测试，默认使用 net.LookupIP.
type URLValidator struct {
	lookup func(host string) ([]net.IP, error)
}

// NewURLValidator 构建使用系统解析器的校验器.
func NewURLValidator() *URLValidator {
	return &URLValidator{lookup: net.LookupIP}
}

// NewURLValidatorWithLookup 构建使用自定义解析器的校验器，用于测试.
func NewURLValidatorWithLookup(lookup func(host string) ([]net.IP, error)) *URLValidator {
	return &URLValidator{lookup: lookup}
}

// URL 校验远程下载地址：可解析、scheme 为 http/https、主机不在封禁列表、
// 解析出的地址不落在回环/内网/链路本地网段. 一切 I/O 之前调用.
func (v *URLValidator) URL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: unparseable url: %v", ErrValidation, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrValidation, u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrValidation)
	}

	if _, blocked := blockedHosts[strings.ToLower(host)]; blocked {
		return fmt.Errorf("%w: blocked host %q", ErrValidation, host)
	}

	// 字面 IP 不经过解析器直接判定
	if ip := net.ParseIP(host); ip != nil {
		if isForbiddenIP(ip) {
			return fmt.Errorf("%w: host %q resolves to a private address", ErrValidation, host)
		}

		return nil
	}

	ips, err := v.lookup(host)
	if err != nil {
		return fmt.Errorf("%w: cannot resolve host %q: %v", ErrValidation, host, err)
	}

	for _, ip := range ips {
		if isForbiddenIP(ip) {
			return fmt.Errorf("%w: host %q resolves to a private address", ErrValidation, host)
		}
	}

	return nil
}

// isForbiddenIP 判定地址是否落在回环、RFC-1918、链路本地或未指定网段.
func isForbiddenIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}
