// Package mq 提供基于 Watermill 库的统一消息队列操作接口。
// 支持发布/订阅模式，并通过工厂模式抽象不同的 MQ 实现。
//
// 支持的 MQ 类型：
//   - AMQP（RabbitMQ，持久化队列）
//   - NATS（支持 JetStream）
//
// 该包提供封装了 Publisher 和 Subscriber 的 Client，以及便捷的消息发布和订阅方法。
//
// 使用示例：
//
//	ctx := context.Background()
//	client, err := mq.New(ctx, &configs.GetConfig().MQ)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	// 发布消息
//	msg := message.NewMessage(watermill.NewUUID(), []byte(`{"assetId":1}`))
//	err = client.Publish(ctx, "media.process", msg)
//
//	// 订阅主题
//	ch, err := client.Subscribe(ctx, "media.process")
package mq

import (
	"context"
	"fmt"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/mediavault/pkg/configs"
	nlog "github.com/yeisme/mediavault/pkg/log"
)

// Factory 定义创建 Publisher + Subscriber 的工厂函数.
type Factory func(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error)

var factories = map[configs.MQType]Factory{}

// RegisterFactory 注册指定 MQType 的工厂.
func RegisterFactory(t configs.MQType, f Factory) {
	factories[t] = f
}

// GetRegisteredMQTypes 返回已注册的消息队列类型列表.
func GetRegisteredMQTypes() []configs.MQType {
	types := make([]configs.MQType, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	return types
}

// Client 封装 watermill Publisher 与 Subscriber.
type Client struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router
	closeFunc  func() // 用于关闭metrics服务器
}

// Publisher 返回底层 Publisher，供事件封装层使用.
func (c *Client) Publisher() message.Publisher {
	return c.publisher
}

// Publish 便捷发布.
func (c *Client) Publish(ctx context.Context, topic string, msgs ...*message.Message) error {
	if c == nil || c.publisher == nil {
		return fmt.Errorf("mq publisher not initialized")
	}

	for _, m := range msgs {
		if err := c.publisher.Publish(topic, m); err != nil {
			return err
		}
	}

	return nil
}

// Subscribe 便捷订阅.
func (c *Client) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if c == nil || c.subscriber == nil {
		return nil, fmt.Errorf("mq subscriber not initialized")
	}

	ch, err := c.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}

	return ch, nil
}

// Close 关闭资源.
func (c *Client) Close() error {
	var err error

	if c.publisher != nil {
		if e := c.publisher.Close(); e != nil {
			err = e
		}
	}

	if c.subscriber != nil {
		if e := c.subscriber.Close(); e != nil {
			err = e
		}
	}

	if c.router != nil {
		// 停止 router，确保所有 handler 停止运行
		if e := c.router.Close(); e != nil {
			err = e
		}
	}

	if c.closeFunc != nil {
		c.closeFunc()
	}

	return err
}

// New 根据配置初始化消息队列客户端.
func New(ctx context.Context, cfg *configs.MQConfig) (*Client, error) {
	factory, ok := factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported mq type: %s", cfg.Type)
	}

	logger := &zerologAdapter{l: nlog.Logger()}

	pub, sub, err := factory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init mq (%s): %w", cfg.Type, err)
	}

	// 发布失败时用工厂重建连接并重试一次；工厂同时返回订阅端，
	// 重建只保留发布端
	rebuild := func() (message.Publisher, error) {
		freshPub, freshSub, err := factory(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}

		_ = freshSub.Close()

		return freshPub, nil
	}
	pub = newRetryPublisher(pub, rebuild)

	var (
		closeFunc func()
		router    *message.Router
	)

	if configs.GetConfig().Metrics.Enabled {
		metricsCfg := configs.GetConfig().Metrics
		prometheusRegistry, closeMetricsServer := metrics.CreateRegistryAndServeHTTP(metricsCfg.Endpoint)
		closeFunc = closeMetricsServer

		// 创建并启动 router（用于 metrics 与将来 handler）
		router, err = message.NewRouter(message.RouterConfig{}, logger)
		if err != nil {
			return nil, fmt.Errorf("create router: %w", err)
		}

		// 启动 router
		go func() {
			if runErr := router.Run(ctx); runErr != nil {
				nlog.Logger().Error().Err(runErr).Msg("router run error")
			}
		}()

		// 创建metrics builder 并绑定 router
		metricsBuilder := metrics.NewPrometheusMetricsBuilder(prometheusRegistry, "", "")
		metricsBuilder.AddPrometheusRouterMetrics(router)

		// 装饰publisher和subscriber
		pub, err = metricsBuilder.DecoratePublisher(pub)
		if err != nil {
			return nil, fmt.Errorf("decorate publisher with metrics: %w", err)
		}

		sub, err = metricsBuilder.DecorateSubscriber(sub)
		if err != nil {
			return nil, fmt.Errorf("decorate subscriber with metrics: %w", err)
		}

		nlog.Logger().Info().Str("endpoint", metricsCfg.Endpoint).Msg("MQ metrics enabled")
	}

	nlog.Logger().Info().Str("type", string(cfg.Type)).Msg("MQ 管理器已初始化")

	return &Client{publisher: pub, subscriber: sub, router: router, closeFunc: closeFunc}, nil
}
