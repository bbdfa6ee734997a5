package configs

import (
	"fmt"

	"github.com/spf13/viper"
)

// S3Config MinIO/S3 对象存储配置.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	// PublicBaseURL 渲染结果对外可访问的基础 URL；为空时 PublicURL 返回裸 key.
	PublicBaseURL string `mapstructure:"public_base_url"`
	// CacheSeconds 上传对象的 Cache-Control max-age.
	CacheSeconds int `mapstructure:"cache_seconds" rule:"min=0"`
}

const (
	DefaultS3Endpoint        = "localhost:9000" // 默认S3端点
	DefaultS3AccessKeyID     = "minioadmin"     // 默认访问密钥ID
	DefaultS3SecretAccessKey = "minioadmin"     // 默认秘密访问密钥
	DefaultS3UseSSL          = false            // 默认是否使用SSL
	DefaultS3Region          = "us-east-1"      // 默认区域
	DefaultS3Bucket          = "mediavault"     // 默认存储桶名称
	DefaultS3CacheSeconds    = 31536000         // 默认缓存一年
)

// GetEndpointURL 获取完整的端点URL.
func (c *S3Config) GetEndpointURL() string {
	scheme := "http"
	if c.UseSSL {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s", scheme, c.Endpoint)
}

// setDefaults 设置 S3 配置的默认值.
func (c *S3Config) setDefaults(v *viper.Viper) {
	v.SetDefault("s3.endpoint", DefaultS3Endpoint)
	v.SetDefault("s3.access_key_id", DefaultS3AccessKeyID)
	v.SetDefault("s3.secret_access_key", DefaultS3SecretAccessKey)
	v.SetDefault("s3.use_ssl", DefaultS3UseSSL)
	v.SetDefault("s3.region", DefaultS3Region)
	v.SetDefault("s3.bucket", DefaultS3Bucket)
	v.SetDefault("s3.public_base_url", "")
	v.SetDefault("s3.cache_seconds", DefaultS3CacheSeconds)
}
