package service_test

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"image"
	"image/png"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/imaging"
	"github.com/yeisme/mediavault/pkg/internal/model"
	"github.com/yeisme/mediavault/pkg/internal/profile"
	"github.com/yeisme/mediavault/pkg/internal/service"
	"github.com/yeisme/mediavault/pkg/internal/spool"
	s3c "github.com/yeisme/mediavault/pkg/internal/storage/s3"
	"github.com/yeisme/mediavault/pkg/internal/store"
	"github.com/yeisme/mediavault/pkg/internal/validate"
)

// fakeObjects 内存对象存储，整批上传模拟全有或全无语义.
type fakeObjects struct {
	mu sync.Mutex
	// stored 键到字节的映射
	stored map[string][]byte
	// failSubstr 非空时，键包含该子串的上传整批失败
	failSubstr string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{stored: map[string][]byte{}}
}

func (f *fakeObjects) Put(ctx context.Context, key, contentType string, body []byte) error {
	return f.PutMultiple(ctx, []s3c.Object{{Key: key, ContentType: contentType, Body: body}})
}

func (f *fakeObjects) PutMultiple(ctx context.Context, objects []s3c.Object) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, o := range objects {
		if f.failSubstr != "" && strings.Contains(o.Key, f.failSubstr) {
			return fmt.Errorf("injected upload failure for %s", o.Key)
		}
	}

	for _, o := range objects {
		f.stored[o.Key] = o.Body
	}

	return nil
}

func (f *fakeObjects) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.stored, key)

	return nil
}

func (f *fakeObjects) PublicURL(key string) string { return "https://cdn.test/" + key }

func (f *fakeObjects) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.stored))
	for k := range f.stored {
		out = append(out, k)
	}

	return out
}

// fakePublisher 记录发布的消息.
type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (p *fakePublisher) Publish(topic string, msgs ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}

	for range msgs {
		p.topics = append(p.topics, topic)
	}

	return nil
}

func (p *fakePublisher) Close() error { return nil }

// fakeFetcher 返回固定字节或错误.
type fakeFetcher struct {
	body []byte
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}

	return f.body, "image/png", nil
}

// testEnv 单个测试用例的完整服务装配.
type testEnv struct {
	svc     *service.MediaService
	store   *store.AssetStore
	objects *fakeObjects
	pub     *fakePublisher
	fetcher *fakeFetcher
	spool   *spool.Spool
}

// newTestEnv 在内存 SQLite 与内存对象存储上装配服务.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	st := store.NewAssetStore(db)
	if err := st.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	engine, err := imaging.NewEngine(&configs.ImageConfig{})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	profiles := profile.NewRegistry(map[string]configs.ProfileConfig{
		"card": {
			Prefix:              "cards",
			KeepOriginal:        true,
			MaxOriginalLongEdge: 1024,
			Variants: map[string]configs.VariantConfig{
				"thumb": {Width: 100, Height: 100, Fit: "cover"},
				"wide":  {Width: 100, Height: 50, Fit: "contain"},
			},
		},
	})

	env := &testEnv{
		objects: newFakeObjects(),
		pub:     &fakePublisher{},
		fetcher: &fakeFetcher{},
		spool:   spool.New(t.TempDir()),
		store:   st,
	}

	env.svc = service.New(
		st,
		env.objects,
		engine,
		profiles,
		env.fetcher,
		env.spool,
		env.pub,
		&configs.MQConfig{Queue: "media.process", RetryMax: 3},
		// 测试不依赖真实 DNS，域名一律解析到公网地址
		service.WithURLValidator(validate.NewURLValidatorWithLookup(publicLookup)),
	)

	return env
}

// publicLookup 把任意域名解析到一个公网地址，内网字面量仍走黑名单拒绝.
func publicLookup(host string) ([]net.IP, error) {
	return []net.IP{net.ParseIP("93.184.216.34")}, nil
}

// testImage 生成一张 400x200 的 PNG.
func testImage(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 400, 200))); err != nil {
		t.Fatalf("encode test png: %v", err)
	}

	return buf.Bytes()
}

// TestUploadLocal 测试同步本地摄取：READY、校验和、变体行与对象键.
func TestUploadLocal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	body := testImage(t)

	asset, err := env.svc.UploadLocal(ctx, body, "card", service.OwnerRef{
		OwnerType: "Product", OwnerID: 7, Role: "cover",
	})
	if err != nil {
		t.Fatalf("UploadLocal failed: %v", err)
	}

	if asset.Status != model.StatusReady {
		t.Errorf("status = %q, want ready", asset.Status)
	}

	sum := sha1.Sum(body)
	if asset.ChecksumSHA1 != hex.EncodeToString(sum[:]) {
		t.Errorf("checksum = %q, want source sha1", asset.ChecksumSHA1)
	}

	baseKey := fmt.Sprintf("cards/Product/7/%d", asset.ID)

	if asset.OriginalJPEGKey != baseKey+"/original.jpg" {
		t.Errorf("original key = %q", asset.OriginalJPEGKey)
	}

	if asset.OriginalWidth != 400 || asset.OriginalHeight != 200 {
		t.Errorf("original size = %dx%d, want 400x200", asset.OriginalWidth, asset.OriginalHeight)
	}

	variants, err := env.store.ListVariantsByAsset(ctx, asset.ID)
	if err != nil {
		t.Fatalf("list variants: %v", err)
	}

	if len(variants) != 2 {
		t.Fatalf("len(variants) = %d, want 2", len(variants))
	}

	// thumb 是 cover 100x100，wide 是 contain 100x50
	byName := map[string]model.MediaVariant{}
	for _, v := range variants {
		byName[v.Variant] = v
	}

	if v := byName["thumb"]; v.Width != 100 || v.Height != 100 || v.ObjectKey != baseKey+"/thumb.jpg" {
		t.Errorf("thumb = %+v", v)
	}

	if v := byName["wide"]; v.Width != 100 || v.Height != 50 || v.ObjectKey != baseKey+"/wide.jpg" {
		t.Errorf("wide = %+v", v)
	}

	if got := len(env.objects.keys()); got != 3 {
		t.Errorf("stored %d objects, want 3 (original + 2 variants)", got)
	}

	links, err := env.store.ListOwnerLinks(ctx, "Product", 7)
	if err != nil || len(links) != 1 {
		t.Errorf("owner links = %v, %v", links, err)
	}
}

// TestUploadLocalRejectsGarbage 测试非图像字节被拒绝且不落库.
func TestUploadLocalRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.svc.UploadLocal(context.Background(), []byte("not an image"), "card", service.OwnerRef{}); err == nil {
		t.Fatal("expected validation error")
	}

	var count int64
	env.store.DB().Model(&model.MediaAsset{}).Count(&count)

	if count != 0 {
		t.Errorf("asset rows = %d, want 0", count)
	}
}

// TestUploadUnknownProfile 测试未知 profile 直接报错.
func TestUploadUnknownProfile(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.UploadLocal(context.Background(), testImage(t), "nope", service.OwnerRef{})
	if err == nil {
		t.Fatal("expected profile error")
	}
}

// TestUploadAtomicity 测试任一上传失败时数据库与对象存储均不留痕迹.
func TestUploadAtomicity(t *testing.T) {
	env := newTestEnv(t)
	env.objects.failSubstr = "thumb.jpg"

	_, err := env.svc.UploadLocal(context.Background(), testImage(t), "card", service.OwnerRef{
		OwnerType: "Product", OwnerID: 7, Role: "cover",
	})
	if err == nil {
		t.Fatal("expected upload failure")
	}

	var assets, variants int64

	env.store.DB().Model(&model.MediaAsset{}).Count(&assets)
	env.store.DB().Model(&model.MediaVariant{}).Count(&variants)

	if assets != 0 || variants != 0 {
		t.Errorf("rows linger after failure: assets=%d variants=%d", assets, variants)
	}

	if got := env.objects.keys(); len(got) != 0 {
		t.Errorf("objects linger after failure: %v", got)
	}
}

// TestUploadLocalWithDedup 测试同内容第二次摄取只追加 owner 引用.
func TestUploadLocalWithDedup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	body := testImage(t)

	first, err := env.svc.UploadLocalWithDedup(ctx, body, "card", service.OwnerRef{
		OwnerType: "Product", OwnerID: 7, Role: "cover",
	})
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}

	objectsAfterFirst := len(env.objects.keys())

	second, err := env.svc.UploadLocalWithDedup(ctx, body, "card", service.OwnerRef{
		OwnerType: "Post", OwnerID: 3, Role: "gallery",
	})
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("dedup missed: first=%d second=%d", first.ID, second.ID)
	}

	if got := len(env.objects.keys()); got != objectsAfterFirst {
		t.Errorf("objects = %d, want unchanged %d", got, objectsAfterFirst)
	}

	var assets int64
	env.store.DB().Model(&model.MediaAsset{}).Count(&assets)

	if assets != 1 {
		t.Errorf("asset rows = %d, want 1", assets)
	}

	for _, owner := range []struct {
		typ string
		id  int64
	}{{"Product", 7}, {"Post", 3}} {
		links, err := env.store.ListOwnerLinks(ctx, owner.typ, owner.id)
		if err != nil || len(links) != 1 || links[0].AssetID != first.ID {
			t.Errorf("links of %s/%d = %v, %v", owner.typ, owner.id, links, err)
		}
	}
}

// TestEnqueueRemote 测试异步远程摄取落库为 QUEUED 并发布处理消息.
func TestEnqueueRemote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	asset, err := env.svc.EnqueueRemote(ctx, "https://img.example.com/a.jpg", "card", service.OwnerRef{
		OwnerType: "Product", OwnerID: 7, Role: "cover",
	})
	if err != nil {
		t.Fatalf("EnqueueRemote failed: %v", err)
	}

	if asset.Status != model.StatusQueued || asset.SourceURL != "https://img.example.com/a.jpg" {
		t.Errorf("asset = %+v", asset)
	}

	if len(env.pub.topics) != 1 || env.pub.topics[0] != "media.process" {
		t.Errorf("published topics = %v", env.pub.topics)
	}
}

// TestEnqueueRemotePublishFailure 测试发布失败时资产保持 QUEUED 且调用成功.
func TestEnqueueRemotePublishFailure(t *testing.T) {
	env := newTestEnv(t)
	env.pub.err = fmt.Errorf("broker down")

	asset, err := env.svc.EnqueueRemote(context.Background(), "https://img.example.com/a.jpg", "card", service.OwnerRef{})
	if err != nil {
		t.Fatalf("EnqueueRemote failed: %v", err)
	}

	got, err := env.store.Get(context.Background(), asset.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.Status != model.StatusQueued {
		t.Errorf("status = %q, want queued for republish", got.Status)
	}
}

// TestEnqueueRemoteRejectsSSRF 测试内网目标在入队前即被拒绝.
func TestEnqueueRemoteRejectsSSRF(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.svc.EnqueueRemote(context.Background(), "http://127.0.0.1/x.jpg", "card", service.OwnerRef{}); err == nil {
		t.Fatal("expected validation error")
	}

	var count int64
	env.store.DB().Model(&model.MediaAsset{}).Count(&count)

	if count != 0 {
		t.Errorf("asset rows = %d, want 0", count)
	}
}

// TestEnqueueLocal 测试异步本地摄取写入暂存并携带路径发布.
func TestEnqueueLocal(t *testing.T) {
	env := newTestEnv(t)

	asset, err := env.svc.EnqueueLocal(context.Background(), testImage(t), "photo.png", "card", service.OwnerRef{
		OwnerType: "Product", OwnerID: 7, Role: "cover",
	})
	if err != nil {
		t.Fatalf("EnqueueLocal failed: %v", err)
	}

	if asset.Status != model.StatusQueued {
		t.Errorf("status = %q, want queued", asset.Status)
	}

	if len(env.pub.topics) != 1 {
		t.Errorf("published topics = %v", env.pub.topics)
	}
}

// TestEnqueueLocalRequiresSpool 测试未配置暂存目录时异步本地摄取不可用.
func TestEnqueueLocalRequiresSpool(t *testing.T) {
	env := newTestEnv(t)
	env.svc = service.New(
		env.store, env.objects, mustEngine(t), profile.NewRegistry(nil),
		env.fetcher, spool.New(""), env.pub,
		&configs.MQConfig{Queue: "media.process", RetryMax: 3},
	)

	if _, err := env.svc.EnqueueLocal(context.Background(), testImage(t), "a.png", "card", service.OwnerRef{}); err == nil {
		t.Fatal("expected spool error")
	}
}

// mustEngine 构建默认配置的引擎.
func mustEngine(t *testing.T) *imaging.Engine {
	t.Helper()

	engine, err := imaging.NewEngine(&configs.ImageConfig{})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	return engine
}
