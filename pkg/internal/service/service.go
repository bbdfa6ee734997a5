// Package service 实现媒体资产的编排核心：校验 → 落库 → 渲染 → 批量上传 → 提交，
// 以及内容去重、异步认领处理与资产删除.
package service

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/imaging"
	"github.com/yeisme/mediavault/pkg/internal/profile"
	"github.com/yeisme/mediavault/pkg/internal/spool"
	s3c "github.com/yeisme/mediavault/pkg/internal/storage/s3"
	"github.com/yeisme/mediavault/pkg/internal/store"
	"github.com/yeisme/mediavault/pkg/internal/validate"
)

// ObjectStore 渲染结果对象存储的最小契约，生产实现为 storage/s3.Client.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	PutMultiple(ctx context.Context, objects []s3c.Object) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// Fetcher 远程图像下载的最小契约，生产实现为 fetch.Downloader.
// 第二个返回值是响应声明的 Content-Type，仅作参考；真实类型以字节嗅探为准.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, string, error)
}

// OwnerRef 发起本次摄取的 owner 引用.
type OwnerRef struct {
	OwnerType string
	OwnerID   int64
	Role      string
	Sort      int
}

// MediaService 媒体资产服务.
type MediaService struct {
	store     *store.AssetStore
	objects   ObjectStore
	engine    *imaging.Engine
	profiles  *profile.Registry
	fetcher   Fetcher
	urlCheck  *validate.URLValidator
	spool     *spool.Spool
	publisher message.Publisher
	queueName string
	retryMax  int
}

// Option 服务构造选项.
type Option func(*MediaService)

// WithFetcher 覆盖下载器，测试用.
func WithFetcher(f Fetcher) Option {
	return func(s *MediaService) { s.fetcher = f }
}

// WithURLValidator 覆盖 URL 校验器，测试用.
func WithURLValidator(v *validate.URLValidator) Option {
	return func(s *MediaService) { s.urlCheck = v }
}

// New 构建媒体资产服务.
func New(
	st *store.AssetStore,
	objects ObjectStore,
	engine *imaging.Engine,
	profiles *profile.Registry,
	fetcher Fetcher,
	sp *spool.Spool,
	publisher message.Publisher,
	mqCfg *configs.MQConfig,
	opts ...Option,
) *MediaService {
	s := &MediaService{
		store:     st,
		objects:   objects,
		engine:    engine,
		profiles:  profiles,
		fetcher:   fetcher,
		urlCheck:  validate.NewURLValidator(),
		spool:     sp,
		publisher: publisher,
		queueName: mqCfg.Queue,
		retryMax:  mqCfg.RetryMax,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// RetryMax 返回单资产的最大处理尝试次数.
func (s *MediaService) RetryMax() int { return s.retryMax }

// Store 返回底层资产存储.
func (s *MediaService) Store() *store.AssetStore { return s.store }

// Publisher 返回消息发布端.
func (s *MediaService) Publisher() message.Publisher { return s.publisher }
