package validate_test

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net"
	"testing"

	"github.com/yeisme/mediavault/pkg/internal/validate"
)

// pngBytes 生成一张最小的 PNG 测试图.
func pngBytes(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode test png: %v", err)
	}

	return buf.Bytes()
}

// TestImageBytes 测试图像字节校验：空、超限、非图像、正常 PNG.
func TestImageBytes(t *testing.T) {
	if err := validate.ImageBytes(nil); !errors.Is(err, validate.ErrValidation) {
		t.Errorf("empty payload: got %v, want ErrValidation", err)
	}

	if err := validate.ImageBytes([]byte("plain text, not an image")); !errors.Is(err, validate.ErrValidation) {
		t.Errorf("non-image payload: got %v, want ErrValidation", err)
	}

	if err := validate.ImageBytes(pngBytes(t)); err != nil {
		t.Errorf("valid png rejected: %v", err)
	}
}

// TestURLValidator 测试 SSRF 校验的接受与拒绝集合.
func TestURLValidator(t *testing.T) {
	public := func(host string) ([]net.IP, error) {
		return []net.IP{net.ParseIP("93.184.216.34")}, nil
	}

	v := validate.NewURLValidatorWithLookup(public)

	rejected := []string{
		"http://127.0.0.1",
		"http://localhost/",
		"http://10.0.0.1/",
		"http://[::1]/",
		"ftp://example.com/",
		"http://169.254.169.254/latest/meta-data",
		"not a url at all ://",
	}

	for _, raw := range rejected {
		if err := v.URL(raw); !errors.Is(err, validate.ErrValidation) {
			t.Errorf("URL(%q) = %v, want ErrValidation", raw, err)
		}
	}

	if err := v.URL("https://example.com/a.jpg"); err != nil {
		t.Errorf("URL(https://example.com/a.jpg) = %v, want nil", err)
	}
}

// TestURLValidatorPrivateResolution 测试解析到内网地址的公网域名被拒绝.
func TestURLValidatorPrivateResolution(t *testing.T) {
	private := func(host string) ([]net.IP, error) {
		return []net.IP{net.ParseIP("192.168.1.10")}, nil
	}

	v := validate.NewURLValidatorWithLookup(private)

	if err := v.URL("http://rebind.example.com/x.png"); !errors.Is(err, validate.ErrValidation) {
		t.Errorf("private resolution: got %v, want ErrValidation", err)
	}
}

// TestURLValidatorLookupFailure 测试解析失败被视为校验失败.
func TestURLValidatorLookupFailure(t *testing.T) {
	failing := func(host string) ([]net.IP, error) {
		return nil, fmt.Errorf("no such host")
	}

	v := validate.NewURLValidatorWithLookup(failing)

	if err := v.URL("http://nonexistent.invalid/"); !errors.Is(err, validate.ErrValidation) {
		t.Errorf("lookup failure: got %v, want ErrValidation", err)
	}
}
