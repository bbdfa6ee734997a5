package service_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/yeisme/mediavault/pkg/internal/model"
)

// queueAsset 插入一个 QUEUED 测试资产.
func queueAsset(t *testing.T, env *testEnv, source model.AssetSource, sourceURL string) *model.MediaAsset {
	t.Helper()

	asset := &model.MediaAsset{
		Profile:   "card",
		Source:    source,
		SourceURL: sourceURL,
		Status:    model.StatusQueued,
	}
	if err := env.store.Create(context.Background(), asset); err != nil {
		t.Fatalf("create asset: %v", err)
	}

	return asset
}

// TestProcessAbsentAsset 测试资产不存在时视为成功（消息应被 ack 丢弃）.
func TestProcessAbsentAsset(t *testing.T) {
	env := newTestEnv(t)

	res := env.svc.ProcessAsset(context.Background(), 9999, "")
	if !res.Success {
		t.Errorf("result = %+v, want success", res)
	}
}

// TestProcessReadyAsset 测试已就绪资产的重复消息视为成功.
func TestProcessReadyAsset(t *testing.T) {
	env := newTestEnv(t)

	asset := queueAsset(t, env, model.SourceRemote, "https://img.example.com/a.jpg")
	asset.Status = model.StatusReady

	if err := env.store.Save(context.Background(), asset); err != nil {
		t.Fatalf("save: %v", err)
	}

	res := env.svc.ProcessAsset(context.Background(), asset.ID, "")
	if !res.Success {
		t.Errorf("result = %+v, want success", res)
	}
}

// TestProcessExceededRetries 测试尝试次数已达上限时返回死信信号.
func TestProcessExceededRetries(t *testing.T) {
	env := newTestEnv(t)

	asset := queueAsset(t, env, model.SourceRemote, "https://img.example.com/a.jpg")
	asset.Status = model.StatusFailed
	asset.Attempts = 3
	asset.LastError = "download failed"

	if err := env.store.Save(context.Background(), asset); err != nil {
		t.Fatalf("save: %v", err)
	}

	res := env.svc.ProcessAsset(context.Background(), asset.ID, "")
	if res.Success || !res.ExceededRetries {
		t.Errorf("result = %+v, want exceeded retries", res)
	}

	if res.Err != "download failed" || res.Attempts != 3 {
		t.Errorf("result = %+v, want last error and attempts carried", res)
	}
}

// TestProcessClaimLost 测试已被其他 worker 持有的资产视为成功.
func TestProcessClaimLost(t *testing.T) {
	env := newTestEnv(t)

	asset := queueAsset(t, env, model.SourceRemote, "https://img.example.com/a.jpg")
	asset.Status = model.StatusProcessing

	if err := env.store.Save(context.Background(), asset); err != nil {
		t.Fatalf("save: %v", err)
	}

	res := env.svc.ProcessAsset(context.Background(), asset.ID, "")
	if !res.Success {
		t.Errorf("result = %+v, want success on lost claim", res)
	}

	// 状态不被本次调用改动
	got, err := env.store.Get(context.Background(), asset.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.Status != model.StatusProcessing {
		t.Errorf("status = %q, want processing untouched", got.Status)
	}
}

// TestProcessRemote 测试远程资产的完整异步处理.
func TestProcessRemote(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.body = testImage(t)
	ctx := context.Background()

	asset := queueAsset(t, env, model.SourceRemote, "https://img.example.com/a.jpg")

	res := env.svc.ProcessAsset(ctx, asset.ID, "")
	if !res.Success {
		t.Fatalf("result = %+v, want success", res)
	}

	got, err := env.store.Get(ctx, asset.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.Status != model.StatusReady || got.ChecksumSHA1 == "" {
		t.Errorf("asset = %+v, want ready with checksum", got)
	}

	// 异步远程路径不重建 owner 段
	wantKey := fmt.Sprintf("cards/_asset/%d/original.jpg", asset.ID)
	if got.OriginalJPEGKey != wantKey {
		t.Errorf("original key = %q, want %q", got.OriginalJPEGKey, wantKey)
	}

	variants, err := env.store.ListVariantsByAsset(ctx, asset.ID)
	if err != nil || len(variants) != 2 {
		t.Errorf("variants = %v, %v", variants, err)
	}
}

// TestProcessRemoteFailure 测试下载失败置 FAILED 并递增 attempts.
func TestProcessRemoteFailure(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.err = fmt.Errorf("connection refused")
	ctx := context.Background()

	asset := queueAsset(t, env, model.SourceRemote, "https://img.example.com/a.jpg")

	res := env.svc.ProcessAsset(ctx, asset.ID, "")
	if res.Success || res.ExceededRetries {
		t.Errorf("result = %+v, want retryable failure", res)
	}

	got, err := env.store.Get(ctx, asset.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.Status != model.StatusFailed || got.Attempts != 1 || got.LastError == "" {
		t.Errorf("asset = %+v, want failed with attempts=1", got)
	}
}

// TestProcessRetryExhaustion 测试连续失败最终转为死信信号.
func TestProcessRetryExhaustion(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.err = fmt.Errorf("connection refused")
	ctx := context.Background()

	asset := queueAsset(t, env, model.SourceRemote, "https://img.example.com/a.jpg")

	res := env.svc.ProcessAsset(ctx, asset.ID, "")
	for i := 0; i < 2 && !res.ExceededRetries; i++ {
		res = env.svc.ProcessAsset(ctx, asset.ID, "")
	}

	if !res.ExceededRetries {
		t.Errorf("result after exhaustion = %+v, want exceeded retries", res)
	}

	if res.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", res.Attempts)
	}
}

// TestProcessUploadFromSpool 测试本地异步资产从暂存文件处理并清理暂存.
func TestProcessUploadFromSpool(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tempPath, err := env.spool.SaveBytes(testImage(t), "photo.png")
	if err != nil {
		t.Fatalf("save to spool: %v", err)
	}

	asset := queueAsset(t, env, model.SourceUpload, "")

	if err := env.store.CreateOwnerLink(ctx, &model.MediaOwnerLink{
		OwnerType: "Product", OwnerID: 7, Role: "cover", AssetID: asset.ID,
	}); err != nil {
		t.Fatalf("create link: %v", err)
	}

	res := env.svc.ProcessAsset(ctx, asset.ID, tempPath)
	if !res.Success {
		t.Fatalf("result = %+v, want success", res)
	}

	got, err := env.store.Get(ctx, asset.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	// 对象键由最早的 owner 引用重建
	wantKey := fmt.Sprintf("cards/Product/7/%d/original.jpg", asset.ID)
	if got.OriginalJPEGKey != wantKey {
		t.Errorf("original key = %q, want %q", got.OriginalJPEGKey, wantKey)
	}

	if _, statErr := os.Stat(tempPath); !os.IsNotExist(statErr) {
		t.Errorf("spool file %q survived successful processing", tempPath)
	}
}

// TestProcessUploadMissingTempPath 测试本地资产缺少暂存路径时处理失败.
func TestProcessUploadMissingTempPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	asset := queueAsset(t, env, model.SourceUpload, "")

	res := env.svc.ProcessAsset(ctx, asset.ID, "")
	if res.Success {
		t.Fatalf("result = %+v, want failure", res)
	}

	got, err := env.store.Get(ctx, asset.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.Status != model.StatusFailed || got.Attempts != 1 {
		t.Errorf("asset = %+v, want failed attempts=1", got)
	}
}
