package queue

import "github.com/ThreeDotsLabs/watermill/message"

// -------------------------- 基于业务封装 events --------------------------

// PublishProcessAsset 向主处理队列发布一条处理任务.
// 发布必须发生在资产行落库提交之后：若发布失败，资产保持 QUEUED，
// 由周期性补发任务或人工补发恢复.
func PublishProcessAsset(pub message.Publisher, queueName string, payload ProcessAssetPayload) error {
	msg, err := NewProcessAssetMessage(payload)
	if err != nil {
		return err
	}

	return pub.Publish(queueName, msg)
}

// PublishDeadLetter 向死信队列发布一条耗尽重试的记录.
func PublishDeadLetter(pub message.Publisher, dlqName string, payload DeadLetterPayload) error {
	msg, err := NewDeadLetterMessage(payload)
	if err != nil {
		return err
	}

	return pub.Publish(dlqName, msg)
}
