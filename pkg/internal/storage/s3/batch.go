package s3

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	nlog "github.com/yeisme/mediavault/pkg/log"
)

// batchConcurrency 批量上传的最大并发数.
const batchConcurrency = 5

// Object 待上传的单个对象.
type Object struct {
	Key         string
	ContentType string
	Body        []byte
}

// BatchUploadError 批量上传失败，携带首个失败对象在批次里的下标与原因.
type BatchUploadError struct {
	Index int
	Key   string
	Cause error
}

func (e *BatchUploadError) Error() string {
	return fmt.Sprintf("batch upload failed at #%d (%s): %v", e.Index, e.Key, e.Cause)
}

func (e *BatchUploadError) Unwrap() error { return e.Cause }

// putFunc 上传单个对象；deleteFunc 删除单个对象.抽象出来便于测试.
type (
	putFunc    func(ctx context.Context, key, contentType string, body []byte) error
	deleteFunc func(ctx context.Context, key string) error
)

// PutMultiple 并发上传一批对象，任一失败即中止并尽力删除已完成的对象，
// 保证不留下部分上传的结果.全部成功或全部回滚.
func (c *Client) PutMultiple(ctx context.Context, objects []Object) error {
	return putMultiple(ctx, objects, c.Put, c.Delete)
}

// putMultiple PutMultiple 的实现主体，依赖注入便于单测.
func putMultiple(ctx context.Context, objects []Object, put putFunc, del deleteFunc) error {
	if len(objects) == 0 {
		return nil
	}

	var (
		mu        sync.Mutex
		completed []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	for i, obj := range objects {
		g.Go(func() error {
			if err := put(gctx, obj.Key, obj.ContentType, obj.Body); err != nil {
				return &BatchUploadError{Index: i, Key: obj.Key, Cause: err}
			}

			mu.Lock()
			completed = append(completed, obj.Key)
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// 回滚已完成的上传，失败只记日志
		for _, key := range completed {
			if delErr := del(context.WithoutCancel(ctx), key); delErr != nil {
				nlog.Logger().Warn().Err(delErr).Str("key", key).Msg("回滚批量上传失败")
			}
		}

		return err
	}

	return nil
}
