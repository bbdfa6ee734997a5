// Package s3 处理S3存储操作.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/mediavault/pkg/configs"
	nlog "github.com/yeisme/mediavault/pkg/log"
)

// Client 包装 MinIO 客户端，绑定单一渲染结果 bucket.
type Client struct {
	*minio.Client

	bucket        string
	publicBaseURL string
	cacheSeconds  int
}

// New 初始化 MinIO 客户端，若 bucket 不存在则尝试创建.
func New(ctx context.Context, cfg *configs.S3Config) (*Client, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	// 允许用户传完整 schema endpoint（http:// 或 https://）
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo("mediavault", configs.AppVersion)

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}

	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}

		nlog.Logger().Info().Str("bucket", cfg.Bucket).Msg("bucket created")
	}

	nlog.Logger().Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.Bucket).Msg("s3 connected")

	return &Client{
		Client:        cli,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		cacheSeconds:  cfg.CacheSeconds,
	}, nil
}

// Bucket 返回绑定的 bucket 名称.
func (c *Client) Bucket() string { return c.bucket }

// Put 上传单个对象，附带公开读 ACL 与长期缓存头.
// key 开头的 "/" 会被剥掉，避免产生空路径段.
func (c *Client) Put(ctx context.Context, key, contentType string, body []byte) error {
	key = strings.TrimLeft(key, "/")

	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: fmt.Sprintf("public, max-age=%d", c.cacheSeconds),
		UserMetadata: map[string]string{"x-amz-acl": "public-read"},
	}

	_, err := c.PutObject(ctx, c.bucket, key, bytes.NewReader(body), int64(len(body)), opts)
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}

	return nil
}

// Delete 删除单个对象，对象不存在不视为错误.
func (c *Client) Delete(ctx context.Context, key string) error {
	key = strings.TrimLeft(key, "/")

	if err := c.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil
		}

		return fmt.Errorf("remove object %s: %w", key, err)
	}

	return nil
}

// PublicURL 拼接对象的公开访问 URL；未配置基础 URL 时返回裸 key.
func (c *Client) PublicURL(key string) string {
	key = strings.TrimLeft(key, "/")

	if c.publicBaseURL == "" {
		return key
	}

	return c.publicBaseURL + "/" + key
}

// HealthCheck 简单的健康检查，通过列出桶来验证连接.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.ListBuckets(ctx)
	return err
}

// Close 关闭 S3 客户端连接（无实际操作，接口兼容）.
func (c *Client) Close() error {
	return nil
}
