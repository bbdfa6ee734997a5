package configs

import (
	"fmt"

	"github.com/spf13/viper"
)

// MQType 消息队列类型.
type MQType string

const (
	MQTypeAMQP MQType = "amqp"
	MQTypeNATS MQType = "nats"

	DefaultMQQueue    = "media.process" // 默认处理队列
	DefaultMQDLQ      = ""              // 默认不启用死信队列
	DefaultMQPrefetch = 10              // 默认消费者预取数
	DefaultMQRetryMax = 3               // 默认单资产最大处理尝试次数

	DefaultAMQPHost  = "localhost"
	DefaultAMQPPort  = 5672
	DefaultAMQPUser  = "guest"
	DefaultAMQPPass  = "guest"
	DefaultAMQPVHost = "/"

	DefaultNATSURL       = "localhost:4222"
	DefaultMaxReconnects = 5 // 默认最大重连次数
	DefaultReconnectWait = 5 // 默认重连等待时间（秒）
)

// MQConfig 消息队列配置.
type MQConfig struct {
	Type MQType `mapstructure:"type" rule:"oneof=amqp nats"`
	// Queue 主处理队列名，消息为 {"assetId", "tempFilePath"?}.
	Queue string `mapstructure:"queue" rule:"required"`
	// DLQ 死信队列名，为空表示不启用.
	DLQ      string       `mapstructure:"dlq"`
	Prefetch int          `mapstructure:"prefetch"  rule:"min=1,max=1000"`
	RetryMax int          `mapstructure:"retry_max" rule:"min=1,max=100"`
	AMQP     MQAMQPConfig `mapstructure:"amqp"`
	NATS     MQNATSConfig `mapstructure:"nats"`
}

// MQAMQPConfig RabbitMQ/AMQP 配置.
type MQAMQPConfig struct {
	Host     string `mapstructure:"host"  rule:"hostname"`
	Port     int    `mapstructure:"port"  rule:"min=1,max=65535"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	VHost    string `mapstructure:"vhost"`
}

// URI 构建 AMQP 连接 URI.
func (c *MQAMQPConfig) URI() string {
	vhost := c.VHost
	if vhost == "/" {
		vhost = ""
	}

	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s", c.User, c.Password, c.Host, c.Port, vhost)
}

// MQNATSConfig NATS 配置（备选后端，JetStream 持久化）.
type MQNATSConfig struct {
	URL              string `mapstructure:"url"            rule:"hostname_port"`
	User             string `mapstructure:"user"`
	Password         string `mapstructure:"password"`
	ClientID         string `mapstructure:"client_id"`
	MaxReconnects    int    `mapstructure:"max_reconnects" rule:"min=0,max=100"`
	ReconnectWait    int    `mapstructure:"reconnect_wait" rule:"min=1,max=300"`
	JetStreamEnabled bool   `mapstructure:"jetstream_enabled"`
	DurablePrefix    string `mapstructure:"durable_prefix"`
}

// GetMQType 返回当前配置的消息队列类型.
func (c *MQConfig) GetMQType() MQType {
	return c.Type
}

// Endpoint 返回当前后端的连接端点，用于启动日志.
func (c *MQConfig) Endpoint() string {
	switch c.Type {
	case MQTypeAMQP:
		return fmt.Sprintf("%s:%d", c.AMQP.Host, c.AMQP.Port)
	case MQTypeNATS:
		return c.NATS.URL
	default:
		return ""
	}
}

// setDefaults 设置MQ配置的默认值.
func (c *MQConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("mq.type", MQTypeAMQP)
	v.SetDefault("mq.queue", DefaultMQQueue)
	v.SetDefault("mq.dlq", DefaultMQDLQ)
	v.SetDefault("mq.prefetch", DefaultMQPrefetch)
	v.SetDefault("mq.retry_max", DefaultMQRetryMax)

	// AMQP 默认值
	v.SetDefault("mq.amqp.host", DefaultAMQPHost)
	v.SetDefault("mq.amqp.port", DefaultAMQPPort)
	v.SetDefault("mq.amqp.user", DefaultAMQPUser)
	v.SetDefault("mq.amqp.password", DefaultAMQPPass)
	v.SetDefault("mq.amqp.vhost", DefaultAMQPVHost)

	// NATS 默认值
	v.SetDefault("mq.nats.url", DefaultNATSURL)
	v.SetDefault("mq.nats.user", "")
	v.SetDefault("mq.nats.password", "")
	v.SetDefault("mq.nats.client_id", "mediavault-worker")
	v.SetDefault("mq.nats.max_reconnects", DefaultMaxReconnects)
	v.SetDefault("mq.nats.reconnect_wait", DefaultReconnectWait)
	v.SetDefault("mq.nats.jetstream_enabled", true)
	v.SetDefault("mq.nats.durable_prefix", "mediavault-durable")
}
