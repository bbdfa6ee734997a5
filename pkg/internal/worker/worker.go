// Package worker 实现长驻消费者：订阅主处理队列，驱动资产处理并执行
// 重试/死信策略.
//
// 确认矩阵：
//   - 处理成功：ack.
//   - 耗尽重试：配置了死信队列则先发布死信再 ack，否则记日志后 ack 丢弃.
//   - 其余失败：nack，消息回到队列等待重投.
//
// 多个 worker 可并行运行，资产级的互斥完全由数据库认领保证.
package worker

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/yeisme/mediavault/pkg/internal/service"
	nlog "github.com/yeisme/mediavault/pkg/log"
	"github.com/yeisme/mediavault/pkg/queue"
)

// Subscriber 消息订阅的最小契约，生产实现为 storage/mq.Client.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

// Processor 资产处理的最小契约，生产实现为 service.MediaService.
type Processor interface {
	ProcessAsset(ctx context.Context, assetID uint64, tempFilePath string) service.ProcessResult
}

// Worker 主处理队列的消费者.
type Worker struct {
	subscriber Subscriber
	publisher  message.Publisher
	processor  Processor
	queueName  string
	dlqName    string
	logger     *zerolog.Logger
}

// New 构建 worker.dlqName 为空表示不启用死信队列.
func New(sub Subscriber, pub message.Publisher, proc Processor, queueName, dlqName string) *Worker {
	return &Worker{
		subscriber: sub,
		publisher:  pub,
		processor:  proc,
		queueName:  queueName,
		dlqName:    dlqName,
		logger:     nlog.Logger(),
	}
}

// Run 订阅队列并阻塞消费，直到 ctx 取消且订阅通道关闭.
// 停止是协作式的：当前消息总是先 ack 或 nack 再退出.
func (w *Worker) Run(ctx context.Context) error {
	ch, err := w.subscriber.Subscribe(ctx, w.queueName)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", w.queueName, err)
	}

	w.logger.Info().Str("queue", w.queueName).Msg("worker 开始消费")

	for msg := range ch {
		w.handle(ctx, msg)
	}

	w.logger.Info().Str("queue", w.queueName).Msg("worker 已停止")

	return nil
}

// handle 处理单条投递，保证恰好一次 ack 或 nack.
func (w *Worker) handle(ctx context.Context, msg *message.Message) {
	payload, err := queue.ParseProcessAsset(msg)
	if err != nil {
		w.logger.Error().Err(err).Str("message_id", msg.UUID).Msg("消息解析失败，重新入队")
		msg.Nack()

		return
	}

	result := w.processor.ProcessAsset(ctx, payload.AssetID, payload.TempFilePath)

	switch {
	case result.Success:
		msg.Ack()

	case result.ExceededRetries:
		w.deadLetter(payload.AssetID, result)
		msg.Ack()

	default:
		w.logger.Warn().
			Uint64("asset_id", payload.AssetID).
			Int("attempts", result.Attempts).
			Str("error", result.Err).
			Msg("资产处理失败，重新入队")
		msg.Nack()
	}
}

// deadLetter 发布死信记录；未配置死信队列时记日志丢弃.
func (w *Worker) deadLetter(assetID uint64, result service.ProcessResult) {
	if w.dlqName == "" {
		w.logger.Error().
			Uint64("asset_id", assetID).
			Int("attempts", result.Attempts).
			Str("error", result.Err).
			Msg("资产耗尽重试且未配置死信队列，消息丢弃")

		return
	}

	payload := queue.DeadLetterPayload{
		AssetID:  assetID,
		Error:    result.Err,
		Attempts: result.Attempts,
	}
	if err := queue.PublishDeadLetter(w.publisher, w.dlqName, payload); err != nil {
		w.logger.Error().Err(err).Uint64("asset_id", assetID).Msg("死信发布失败，消息丢弃")
	}
}
