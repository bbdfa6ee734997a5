package queue_test

import (
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/mediavault/pkg/queue"
)

// TestProcessAssetWireFormat 测试处理消息的字段名是对外契约.
func TestProcessAssetWireFormat(t *testing.T) {
	msg, err := queue.NewProcessAssetMessage(queue.ProcessAssetPayload{AssetID: 42, TempFilePath: "/tmp/x"})
	if err != nil {
		t.Fatalf("NewProcessAssetMessage failed: %v", err)
	}

	body := string(msg.Payload)
	for _, field := range []string{`"assetId":42`, `"tempFilePath":"/tmp/x"`} {
		if !strings.Contains(body, field) {
			t.Errorf("payload %s missing %s", body, field)
		}
	}

	if got := msg.Metadata.Get("content-type"); got != queue.ContentTypeJSON {
		t.Errorf("content-type = %q, want %q", got, queue.ContentTypeJSON)
	}
}

// TestProcessAssetOmitsTempPath 测试无暂存路径时字段整个省略.
func TestProcessAssetOmitsTempPath(t *testing.T) {
	msg, err := queue.NewProcessAssetMessage(queue.ProcessAssetPayload{AssetID: 7})
	if err != nil {
		t.Fatalf("NewProcessAssetMessage failed: %v", err)
	}

	if strings.Contains(string(msg.Payload), "tempFilePath") {
		t.Errorf("payload %s should omit tempFilePath", msg.Payload)
	}
}

// TestParseProcessAsset 测试从外部 JSON 解析处理消息.
func TestParseProcessAsset(t *testing.T) {
	msg := message.NewMessage("id", []byte(`{"assetId":99,"tempFilePath":"/spool/a.jpg"}`))

	payload, err := queue.ParseProcessAsset(msg)
	if err != nil {
		t.Fatalf("ParseProcessAsset failed: %v", err)
	}

	if payload.AssetID != 99 || payload.TempFilePath != "/spool/a.jpg" {
		t.Errorf("parsed payload = %+v", payload)
	}
}

// TestDeadLetterWireFormat 测试死信消息字段名与 FailedAt 默认值.
func TestDeadLetterWireFormat(t *testing.T) {
	msg, err := queue.NewDeadLetterMessage(queue.DeadLetterPayload{
		AssetID:  5,
		Error:    "download failed",
		Attempts: 3,
	})
	if err != nil {
		t.Fatalf("NewDeadLetterMessage failed: %v", err)
	}

	body := string(msg.Payload)
	for _, field := range []string{`"assetId":5`, `"error":"download failed"`, `"attempts":3`, `"failedAt"`} {
		if !strings.Contains(body, field) {
			t.Errorf("payload %s missing %s", body, field)
		}
	}

	parsed, err := queue.ParseDeadLetter(msg)
	if err != nil {
		t.Fatalf("ParseDeadLetter failed: %v", err)
	}

	if parsed.FailedAt.IsZero() || time.Since(parsed.FailedAt) > time.Minute {
		t.Errorf("FailedAt not defaulted to now: %v", parsed.FailedAt)
	}
}
