package mq

import (
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	nlog "github.com/yeisme/mediavault/pkg/log"
)

// retryPublisher 包装底层 Publisher：发布失败时拆除当前连接，通过 rebuild
// 重建后立即重试一次；第二次仍失败则向上传播.重建与重试全程持锁，避免
// 并发发布各自重建连接.
type retryPublisher struct {
	mu      sync.Mutex
	current message.Publisher
	rebuild func() (message.Publisher, error)
}

// newRetryPublisher 构建带单次重建重试的 Publisher 包装.
func newRetryPublisher(pub message.Publisher, rebuild func() (message.Publisher, error)) *retryPublisher {
	return &retryPublisher{current: pub, rebuild: rebuild}
}

// Publish 发布消息，失败时重建连接并重试一次.
func (p *retryPublisher) Publish(topic string, msgs ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	firstErr := p.current.Publish(topic, msgs...)
	if firstErr == nil {
		return nil
	}

	nlog.Logger().Warn().Err(firstErr).Str("topic", topic).Msg("消息发布失败，重建连接后重试")

	fresh, err := p.rebuild()
	if err != nil {
		return fmt.Errorf("rebuild publisher after failed publish (%v): %w", firstErr, err)
	}

	if closeErr := p.current.Close(); closeErr != nil {
		nlog.Logger().Warn().Err(closeErr).Msg("关闭失效 publisher 出错")
	}

	p.current = fresh

	if err := p.current.Publish(topic, msgs...); err != nil {
		return fmt.Errorf("publish retry after rebuild: %w", err)
	}

	return nil
}

// Close 关闭当前持有的底层 Publisher.
func (p *retryPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.current.Close()
}
