package s3

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// TestPutMultipleSuccess 测试批量上传全部成功时没有任何删除发生.
func TestPutMultipleSuccess(t *testing.T) {
	var (
		mu      sync.Mutex
		stored  = map[string]struct{}{}
		deleted []string
	)

	put := func(ctx context.Context, key, contentType string, body []byte) error {
		mu.Lock()
		defer mu.Unlock()

		stored[key] = struct{}{}

		return nil
	}
	del := func(ctx context.Context, key string) error {
		mu.Lock()
		defer mu.Unlock()

		deleted = append(deleted, key)

		return nil
	}

	objects := []Object{
		{Key: "a/1.jpg", ContentType: "image/jpeg", Body: []byte("1")},
		{Key: "a/2.jpg", ContentType: "image/jpeg", Body: []byte("2")},
		{Key: "a/3.jpg", ContentType: "image/jpeg", Body: []byte("3")},
	}

	if err := putMultiple(context.Background(), objects, put, del); err != nil {
		t.Fatalf("putMultiple failed: %v", err)
	}

	if len(stored) != 3 {
		t.Errorf("stored %d objects, want 3", len(stored))
	}

	if len(deleted) != 0 {
		t.Errorf("deleted %v, want none", deleted)
	}
}

// TestPutMultipleRollback 测试任一上传失败时已完成的对象被回滚删除.
func TestPutMultipleRollback(t *testing.T) {
	var (
		mu     sync.Mutex
		stored = map[string]struct{}{}
	)

	put := func(ctx context.Context, key, contentType string, body []byte) error {
		if key == "a/3.jpg" {
			return errors.New("injected failure")
		}

		mu.Lock()
		defer mu.Unlock()

		stored[key] = struct{}{}

		return nil
	}
	del := func(ctx context.Context, key string) error {
		mu.Lock()
		defer mu.Unlock()

		delete(stored, key)

		return nil
	}

	objects := make([]Object, 0, 5)
	for i := 1; i <= 5; i++ {
		objects = append(objects, Object{
			Key:         fmt.Sprintf("a/%d.jpg", i),
			ContentType: "image/jpeg",
			Body:        []byte("x"),
		})
	}

	err := putMultiple(context.Background(), objects, put, del)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var batchErr *BatchUploadError
	if !errors.As(err, &batchErr) {
		t.Fatalf("expected *BatchUploadError, got %T", err)
	}

	if batchErr.Key != "a/3.jpg" {
		t.Errorf("failure key = %q, want a/3.jpg", batchErr.Key)
	}

	if batchErr.Index != 2 {
		t.Errorf("failure index = %d, want 2", batchErr.Index)
	}

	// 原子性：失败后不留下任何新对象
	mu.Lock()
	defer mu.Unlock()

	if len(stored) != 0 {
		t.Errorf("%d objects linger after failed batch, want 0", len(stored))
	}
}

// TestPutMultipleEmpty 测试空批次立即返回.
func TestPutMultipleEmpty(t *testing.T) {
	put := func(ctx context.Context, key, contentType string, body []byte) error {
		t.Error("put should not be called for empty batch")
		return nil
	}
	del := func(ctx context.Context, key string) error { return nil }

	if err := putMultiple(context.Background(), nil, put, del); err != nil {
		t.Fatalf("putMultiple(nil) = %v, want nil", err)
	}
}
