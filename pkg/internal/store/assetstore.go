// Package store 封装媒体资产的数据库访问：CRUD、乐观认领与去重查询.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeisme/mediavault/pkg/internal/model"
)

// ErrNotFound 资产不存在.
var ErrNotFound = errors.New("asset not found")

// ErrClaimLost 认领竞争失败，资产已被其他 worker 持有或已终态.
var ErrClaimLost = errors.New("asset claim lost")

// AssetStore 媒体资产存储.
type AssetStore struct {
	db *gorm.DB
}

// NewAssetStore 构建存储.
func NewAssetStore(db *gorm.DB) *AssetStore {
	return &AssetStore{db: db}
}

// DB 返回底层 gorm 实例.
func (s *AssetStore) DB() *gorm.DB { return s.db }

// Migrate 迁移资产相关表结构.
func (s *AssetStore) Migrate() error {
	if err := s.db.AutoMigrate(
		&model.MediaAsset{},
		&model.MediaVariant{},
		&model.MediaOwnerLink{},
	); err != nil {
		return fmt.Errorf("migrate media tables: %w", err)
	}

	return nil
}

// Transaction 在事务中执行 fn，fn 返回错误时回滚.
func (s *AssetStore) Transaction(ctx context.Context, fn func(tx *AssetStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&AssetStore{db: tx})
	})
}

// Create 插入新资产.
func (s *AssetStore) Create(ctx context.Context, asset *model.MediaAsset) error {
	if err := s.db.WithContext(ctx).Create(asset).Error; err != nil {
		return fmt.Errorf("create asset: %w", err)
	}

	return nil
}

// Get 按 ID 查询资产.
func (s *AssetStore) Get(ctx context.Context, id uint64) (*model.MediaAsset, error) {
	var asset model.MediaAsset

	err := s.db.WithContext(ctx).First(&asset, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: id=%d", ErrNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("get asset %d: %w", id, err)
	}

	return &asset, nil
}

// Save 全量保存资产.
func (s *AssetStore) Save(ctx context.Context, asset *model.MediaAsset) error {
	if err := s.db.WithContext(ctx).Save(asset).Error; err != nil {
		return fmt.Errorf("save asset %d: %w", asset.ID, err)
	}

	return nil
}

// Claim 乐观认领资产：单条条件 UPDATE，仅当状态为 queued 或 failed 时置为
// processing. 恰好更新一行表示认领成功，否则返回 ErrClaimLost.
func (s *AssetStore) Claim(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).
		Model(&model.MediaAsset{}).
		Where("id = ? AND status IN ?", id, []model.AssetStatus{model.StatusQueued, model.StatusFailed}).
		Update("status", model.StatusProcessing)
	if res.Error != nil {
		return fmt.Errorf("claim asset %d: %w", id, res.Error)
	}

	if res.RowsAffected != 1 {
		return fmt.Errorf("%w: id=%d", ErrClaimLost, id)
	}

	return nil
}

// MarkReady 把资产置为 ready 并清空错误信息.
func (s *AssetStore) MarkReady(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).
		Model(&model.MediaAsset{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     model.StatusReady,
			"last_error": "",
		})
	if res.Error != nil {
		return fmt.Errorf("mark asset %d ready: %w", id, res.Error)
	}

	return nil
}

// MarkFailed 把资产置为 failed、递增 attempts 并记录错误.
func (s *AssetStore) MarkFailed(ctx context.Context, id uint64, cause string) error {
	res := s.db.WithContext(ctx).
		Model(&model.MediaAsset{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     model.StatusFailed,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause,
		})
	if res.Error != nil {
		return fmt.Errorf("mark asset %d failed: %w", id, res.Error)
	}

	return nil
}

// FindReadyByChecksum 查找具有相同校验和且已就绪的同 profile 资产，用于去重.
// 无匹配时返回 (nil, nil).
func (s *AssetStore) FindReadyByChecksum(ctx context.Context, sha1hex, profile string) (*model.MediaAsset, error) {
	var asset model.MediaAsset

	err := s.db.WithContext(ctx).
		Where("checksum_sha1 = ? AND profile = ? AND status = ?", sha1hex, profile, model.StatusReady).
		First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("find asset by checksum: %w", err)
	}

	return &asset, nil
}

// FindReadyBySourceURL 查找同来源 URL 且已就绪的同 profile 资产，供异步
// 远程去重使用.无匹配时返回 (nil, nil).
func (s *AssetStore) FindReadyBySourceURL(ctx context.Context, sourceURL, profile string) (*model.MediaAsset, error) {
	var asset model.MediaAsset

	err := s.db.WithContext(ctx).
		Where("source_url = ? AND profile = ? AND status = ?", sourceURL, profile, model.StatusReady).
		First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("find asset by source url: %w", err)
	}

	return &asset, nil
}

// CreateVariant 插入单个渲染结果行.
func (s *AssetStore) CreateVariant(ctx context.Context, v *model.MediaVariant) error {
	if err := s.db.WithContext(ctx).Create(v).Error; err != nil {
		return fmt.Errorf("create variant: %w", err)
	}

	return nil
}

// ListVariantsByAsset 列出资产的全部渲染结果.
func (s *AssetStore) ListVariantsByAsset(ctx context.Context, assetID uint64) ([]model.MediaVariant, error) {
	var variants []model.MediaVariant

	if err := s.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("variant, format").
		Find(&variants).Error; err != nil {
		return nil, fmt.Errorf("list variants of asset %d: %w", assetID, err)
	}

	return variants, nil
}

// CreateOwnerLink 插入 owner 引用，重复引用静默忽略（唯一键冲突跳过）.
func (s *AssetStore) CreateOwnerLink(ctx context.Context, link *model.MediaOwnerLink) error {
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(link).Error; err != nil {
		return fmt.Errorf("create owner link: %w", err)
	}

	return nil
}

// FirstOwnerLink 返回资产最早的 owner 引用，用于构建对象键.
// 无引用时返回 (nil, nil).
func (s *AssetStore) FirstOwnerLink(ctx context.Context, assetID uint64) (*model.MediaOwnerLink, error) {
	var link model.MediaOwnerLink

	err := s.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("id").
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("first owner link of asset %d: %w", assetID, err)
	}

	return &link, nil
}

// ListOwnerLinks 列出指定 owner 的全部资产引用.
func (s *AssetStore) ListOwnerLinks(ctx context.Context, ownerType string, ownerID int64) ([]model.MediaOwnerLink, error) {
	var links []model.MediaOwnerLink

	if err := s.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		Order("role, sort, id").
		Find(&links).Error; err != nil {
		return nil, fmt.Errorf("list owner links: %w", err)
	}

	return links, nil
}

// DeleteAsset 删除资产行，级联删除 variants 与 owner links.
func (s *AssetStore) DeleteAsset(ctx context.Context, id uint64) error {
	return s.Transaction(ctx, func(tx *AssetStore) error {
		// 级联外键是兜底，这里显式删除保证无外键的库也能清理
		if err := tx.db.Where("asset_id = ?", id).Delete(&model.MediaVariant{}).Error; err != nil {
			return fmt.Errorf("delete variants of asset %d: %w", id, err)
		}

		if err := tx.db.Where("asset_id = ?", id).Delete(&model.MediaOwnerLink{}).Error; err != nil {
			return fmt.Errorf("delete owner links of asset %d: %w", id, err)
		}

		if err := tx.db.Delete(&model.MediaAsset{}, id).Error; err != nil {
			return fmt.Errorf("delete asset %d: %w", id, err)
		}

		return nil
	})
}

// FindQueuedOlderThan 查找长时间停留在 queued 的资产，用于消息补发.
func (s *AssetStore) FindQueuedOlderThan(ctx context.Context, olderThan time.Time, limit int) ([]model.MediaAsset, error) {
	var assets []model.MediaAsset

	if err := s.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", model.StatusQueued, olderThan).
		Limit(limit).
		Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("find stale queued assets: %w", err)
	}

	return assets, nil
}

// FindStaleProcessing 查找长时间停留在 processing 的资产，用于孤儿恢复.
func (s *AssetStore) FindStaleProcessing(ctx context.Context, olderThan time.Time, limit int) ([]model.MediaAsset, error) {
	var assets []model.MediaAsset

	if err := s.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", model.StatusProcessing, olderThan).
		Limit(limit).
		Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("find stale processing assets: %w", err)
	}

	return assets, nil
}

// Requeue 把资产重置回 queued，供孤儿恢复任务重新入队.
func (s *AssetStore) Requeue(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).
		Model(&model.MediaAsset{}).
		Where("id = ? AND status = ?", id, model.StatusProcessing).
		Update("status", model.StatusQueued)
	if res.Error != nil {
		return fmt.Errorf("requeue asset %d: %w", id, res.Error)
	}

	return nil
}

// FindFailedOlderThan 查找早于给定时间且已耗尽重试的失败资产，用于定期清理.
func (s *AssetStore) FindFailedOlderThan(ctx context.Context, olderThan time.Time, minAttempts, limit int) ([]model.MediaAsset, error) {
	var assets []model.MediaAsset

	if err := s.db.WithContext(ctx).
		Where("status = ? AND attempts >= ? AND updated_at < ?", model.StatusFailed, minAttempts, olderThan).
		Limit(limit).
		Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("find failed assets: %w", err)
	}

	return assets, nil
}
