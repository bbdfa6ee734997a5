package mq

import (
	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// zerologAdapter 把 watermill.LoggerAdapter 桥接到应用的 zerolog 日志器，
// 使消息队列内部日志与资产管线其余部分走同一输出与级别控制.
type zerologAdapter struct {
	l *zerolog.Logger
}

// emit 把 watermill 的结构化字段挂到事件上并输出.
func emit(ev *zerolog.Event, msg string, fields watermill.LogFields) {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}

	ev.Msg(msg)
}

func (z *zerologAdapter) Error(msg string, err error, fields watermill.LogFields) {
	emit(z.l.Error().Err(err), msg, fields)
}

func (z *zerologAdapter) Info(msg string, fields watermill.LogFields) {
	emit(z.l.Info(), msg, fields)
}

func (z *zerologAdapter) Debug(msg string, fields watermill.LogFields) {
	emit(z.l.Debug(), msg, fields)
}

func (z *zerologAdapter) Trace(msg string, fields watermill.LogFields) {
	emit(z.l.Trace(), msg, fields)
}

// With 返回携带固定字段的子适配器.
func (z *zerologAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	c := z.l.With()
	for k, v := range fields {
		c = c.Interface(k, v)
	}

	child := c.Logger()

	return &zerologAdapter{l: &child}
}

// String 实现 fmt.Stringer.
func (z *zerologAdapter) String() string { return "mediavault-mq-zerolog" }
