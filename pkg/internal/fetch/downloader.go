// Package fetch 负责从远程 URL 下载图像字节，带超时、大小上限、限速与熔断.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/yeisme/mediavault/pkg/configs"
)

// maxRedirects 单次下载允许的最大重定向次数.
const maxRedirects = 5

// ErrBodyTooLarge 响应体超过配置的最大字节数.
var ErrBodyTooLarge = errors.New("response body exceeds max bytes")

// ErrEmptyBody 响应体为空.
var ErrEmptyBody = errors.New("response body is empty")

// DownloadError 下载失败（非 2xx 状态码）.
type DownloadError struct {
	URL        string
	StatusCode int
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: unexpected status %d", e.URL, e.StatusCode)
}

// Downloader HTTP 图像下载器，可在多个 worker 间共享.
type Downloader struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
}

// NewDownloader 根据配置构建下载器.
func NewDownloader(cfg *configs.HTTPConfig) *Downloader {
	client := &http.Client{
		Timeout: cfg.GetTimeout(),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}

			return nil
		},
	}

	d := &Downloader{
		client:    client,
		maxBytes:  cfg.MaxBytes,
		userAgent: cfg.UserAgent,
	}

	if cfg.RatePerSecond > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	if cfg.BreakerEnabled {
		d.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "media-download",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		})
	}

	return d
}

// result 单次下载的字节与响应声明的内容类型.
type result struct {
	body        []byte
	contentType string
}

// Fetch 下载远程图像，返回完整字节与响应声明的 Content-Type.
//
// 重定向最多跟随 5 次；响应体超过 maxBytes 立即中止；空响应体视为失败；
// 状态码不在 [200,300) 内返回 *DownloadError.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, "", fmt.Errorf("rate limit wait: %w", err)
		}
	}

	if d.breaker == nil {
		res, err := d.fetch(ctx, rawURL)
		if err != nil {
			return nil, "", err
		}

		return res.body, res.contentType, nil
	}

	out, err := d.breaker.Execute(func() (any, error) {
		return d.fetch(ctx, rawURL)
	})
	if err != nil {
		return nil, "", err
	}

	res := out.(*result)

	return res.body, res.contentType, nil
}

// fetch 执行单次 HTTP GET.
func (d *Downloader) fetch(ctx context.Context, rawURL string) (*result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &DownloadError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	// Content-Length 可信时提前拒绝，避免读满上限才失败
	if resp.ContentLength > d.maxBytes {
		return nil, fmt.Errorf("download %s: %w (content-length %d)", rawURL, ErrBodyTooLarge, resp.ContentLength)
	}

	// 多读一个字节以区分"恰好等于上限"和"超过上限"
	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body from %s: %w", rawURL, err)
	}

	if int64(len(body)) > d.maxBytes {
		return nil, fmt.Errorf("download %s: %w", rawURL, ErrBodyTooLarge)
	}

	if len(body) == 0 {
		return nil, fmt.Errorf("download %s: %w", rawURL, ErrEmptyBody)
	}

	return &result{body: body, contentType: resp.Header.Get("Content-Type")}, nil
}
