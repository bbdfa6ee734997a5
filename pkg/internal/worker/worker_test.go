package worker_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/mediavault/pkg/internal/service"
	"github.com/yeisme/mediavault/pkg/internal/worker"
)

// chanSubscriber 把手工灌入的通道作为订阅结果.
type chanSubscriber struct {
	ch chan *message.Message
}

func (s *chanSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return s.ch, nil
}

// scriptedProcessor 按资产 ID 返回预设的处理结果.
type scriptedProcessor struct {
	results map[uint64]service.ProcessResult
}

func (p *scriptedProcessor) ProcessAsset(ctx context.Context, assetID uint64, tempFilePath string) service.ProcessResult {
	return p.results[assetID]
}

// capturePublisher 记录发布的死信.
type capturePublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads []string
}

func (p *capturePublisher) Publish(topic string, msgs ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, msg := range msgs {
		p.topics = append(p.topics, topic)
		p.payloads = append(p.payloads, string(msg.Payload))
	}

	return nil
}

func (p *capturePublisher) Close() error { return nil }

// snapshot 返回已发布主题与载荷的拷贝.
func (p *capturePublisher) snapshot() ([]string, []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.topics...), append([]string(nil), p.payloads...)
}

// runWorker 启动 worker 消费给定通道，返回停止函数.
func runWorker(t *testing.T, w *worker.Worker, ch chan *message.Message) func() {
	t.Helper()

	done := make(chan struct{})

	go func() {
		defer close(done)

		_ = w.Run(context.Background())
	}()

	return func() {
		close(ch)
		<-done
	}
}

// deliver 投递一条消息并等待 ack 或 nack，返回是否被 ack.
func deliver(t *testing.T, ch chan *message.Message, payload string) bool {
	t.Helper()

	msg := message.NewMessage(watermill.NewUUID(), []byte(payload))
	ch <- msg

	select {
	case <-msg.Acked():
		return true
	case <-msg.Nacked():
		return false
	case <-time.After(5 * time.Second):
		t.Fatal("message neither acked nor nacked")
		return false
	}
}

// TestWorkerAcksSuccess 测试处理成功的消息被 ack.
func TestWorkerAcksSuccess(t *testing.T) {
	ch := make(chan *message.Message)
	pub := &capturePublisher{}
	proc := &scriptedProcessor{results: map[uint64]service.ProcessResult{
		1: {Success: true},
	}}

	stop := runWorker(t, worker.New(&chanSubscriber{ch: ch}, pub, proc, "media.process", "media.dlq"), ch)
	defer stop()

	if !deliver(t, ch, `{"assetId":1}`) {
		t.Error("successful message was nacked")
	}

	if topics, _ := pub.snapshot(); len(topics) != 0 {
		t.Errorf("unexpected dead letters: %v", topics)
	}
}

// TestWorkerNacksRetryableFailure 测试可重试失败的消息被 nack 回队列.
func TestWorkerNacksRetryableFailure(t *testing.T) {
	ch := make(chan *message.Message)
	pub := &capturePublisher{}
	proc := &scriptedProcessor{results: map[uint64]service.ProcessResult{
		2: {Err: "download failed", Attempts: 1},
	}}

	stop := runWorker(t, worker.New(&chanSubscriber{ch: ch}, pub, proc, "media.process", "media.dlq"), ch)
	defer stop()

	if deliver(t, ch, `{"assetId":2}`) {
		t.Error("retryable failure was acked")
	}

	if topics, _ := pub.snapshot(); len(topics) != 0 {
		t.Errorf("unexpected dead letters: %v", topics)
	}
}

// TestWorkerDeadLettersExhausted 测试耗尽重试的消息先发死信再 ack.
func TestWorkerDeadLettersExhausted(t *testing.T) {
	ch := make(chan *message.Message)
	pub := &capturePublisher{}
	proc := &scriptedProcessor{results: map[uint64]service.ProcessResult{
		3: {ExceededRetries: true, Err: "download failed", Attempts: 3},
	}}

	stop := runWorker(t, worker.New(&chanSubscriber{ch: ch}, pub, proc, "media.process", "media.dlq"), ch)
	defer stop()

	if !deliver(t, ch, `{"assetId":3}`) {
		t.Error("exhausted message was nacked instead of acked")
	}

	topics, payloads := pub.snapshot()
	if len(topics) != 1 || topics[0] != "media.dlq" {
		t.Fatalf("dead letter topics = %v, want [media.dlq]", topics)
	}

	for _, field := range []string{`"assetId":3`, `"error":"download failed"`, `"attempts":3`} {
		if !strings.Contains(payloads[0], field) {
			t.Errorf("dead letter %s missing %s", payloads[0], field)
		}
	}
}

// TestWorkerDropsExhaustedWithoutDLQ 测试未配置死信队列时消息被 ack 丢弃.
func TestWorkerDropsExhaustedWithoutDLQ(t *testing.T) {
	ch := make(chan *message.Message)
	pub := &capturePublisher{}
	proc := &scriptedProcessor{results: map[uint64]service.ProcessResult{
		4: {ExceededRetries: true, Err: "boom", Attempts: 3},
	}}

	stop := runWorker(t, worker.New(&chanSubscriber{ch: ch}, pub, proc, "media.process", ""), ch)
	defer stop()

	if !deliver(t, ch, `{"assetId":4}`) {
		t.Error("exhausted message was nacked")
	}

	if topics, _ := pub.snapshot(); len(topics) != 0 {
		t.Errorf("dead letters published without dlq: %v", topics)
	}
}

// TestWorkerNacksMalformedMessage 测试无法解析的消息被 nack.
func TestWorkerNacksMalformedMessage(t *testing.T) {
	ch := make(chan *message.Message)
	pub := &capturePublisher{}
	proc := &scriptedProcessor{results: map[uint64]service.ProcessResult{}}

	stop := runWorker(t, worker.New(&chanSubscriber{ch: ch}, pub, proc, "media.process", "media.dlq"), ch)
	defer stop()

	if deliver(t, ch, `not json`) {
		t.Error("malformed message was acked")
	}
}
