// Package mq 提供 AMQP（RabbitMQ）消息队列操作实现。
// 此文件包含 AMQP 特定的工厂函数，使用持久化队列配置：
// 队列与消息均持久化，消费端通过 Qos 预取控制在途消息数.
package mq

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	amqp "github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/mediavault/pkg/configs"
)

// init 注册 AMQP 工厂.
func init() {
	RegisterFactory(configs.MQTypeAMQP, amqpFactory)
}

// buildAMQPConfig 构建持久化队列配置.
func buildAMQPConfig(cfg *configs.MQConfig) amqp.Config {
	amqpCfg := amqp.NewDurableQueueConfig(cfg.AMQP.URI())

	// 预取数限制单个消费者的在途消息
	amqpCfg.Consume.Qos.PrefetchCount = cfg.Prefetch

	return amqpCfg
}

// amqpFactory 创建 AMQP Publisher & Subscriber.
func amqpFactory(
	ctx context.Context,
	cfg *configs.MQConfig,
	logger watermill.LoggerAdapter) (
	message.Publisher, message.Subscriber, error) {
	amqpCfg := buildAMQPConfig(cfg)

	pub, err := amqp.NewPublisher(amqpCfg, logger)
	if err != nil {
		return nil, nil, err
	}

	sub, err := amqp.NewSubscriber(amqpCfg, logger)
	if err != nil {
		_ = pub.Close()

		return nil, nil, err
	}

	return pub, sub, nil
}
