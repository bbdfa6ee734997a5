// Package queue 定义媒体处理管线的消息负载与编解码.
//
// 概览
//   - 主处理队列承载 ProcessAssetPayload，死信队列承载 DeadLetterPayload
//   - 负载为扁平 JSON（bytedance/sonic 编解码），跨语言易解析；字段名是对外
//     契约的一部分，不可随意改动
//   - 消息以持久化投递模式发布，content-type 为 application/json
//
// 发布/订阅示例
//
//	msg, _ := queue.NewProcessAssetMessage(queue.ProcessAssetPayload{AssetID: 42})
//	_ = client.Publish(ctx, cfg.MQ.Queue, msg)
//
//	ch, _ := client.Subscribe(ctx, cfg.MQ.Queue)
//	for m := range ch {
//	    payload, _ := queue.ParseProcessAsset(m)
//	    // 处理 payload.AssetID ...
//	    m.Ack()
//	}
package queue

import (
	"time"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
)

const (
	// ContentTypeJSON 所有总线消息的内容类型.
	ContentTypeJSON = "application/json"
)

// Encode 将负载编码为 JSON 字节切片.
func Encode[T any](payload T) ([]byte, error) { return sonic.Marshal(payload) }

// Decode 从 JSON 字节解码负载.
func Decode[T any](b []byte) (T, error) {
	var p T

	err := sonic.Unmarshal(b, &p)

	return p, err
}

// newMessage 构造一个 watermill 消息并设置内容类型元数据.
func newMessage[T any](payload T) (*message.Message, error) {
	data, err := Encode(payload)
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("content-type", ContentTypeJSON)

	return msg, nil
}

// NewProcessAssetMessage 构造处理任务消息.
func NewProcessAssetMessage(payload ProcessAssetPayload) (*message.Message, error) {
	return newMessage(payload)
}

// NewDeadLetterMessage 构造死信消息，FailedAt 若为零值则取当前UTC时间.
func NewDeadLetterMessage(payload DeadLetterPayload) (*message.Message, error) {
	if payload.FailedAt.IsZero() {
		payload.FailedAt = time.Now().UTC()
	}

	return newMessage(payload)
}

// ParseProcessAsset 解析处理任务消息.
func ParseProcessAsset(msg *message.Message) (ProcessAssetPayload, error) {
	return Decode[ProcessAssetPayload](msg.Payload)
}

// ParseDeadLetter 解析死信消息.
func ParseDeadLetter(msg *message.Message) (DeadLetterPayload, error) {
	return Decode[DeadLetterPayload](msg.Payload)
}
