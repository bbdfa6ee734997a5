package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/yeisme/mediavault/pkg/internal/store"
)

// DeleteAsset 删除资产及其全部对象存储产物.
//
// 对象删除逐键尽力而为，单键失败只记日志不中断；数据库行删除级联清理
// 渲染结果与 owner 引用.资产不存在视为无操作.
func (s *MediaService) DeleteAsset(ctx context.Context, assetID uint64) error {
	asset, err := s.store.Get(ctx, assetID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}

	if err != nil {
		return err
	}

	keys := asset.OriginalKeys()

	variants, err := s.store.ListVariantsByAsset(ctx, assetID)
	if err != nil {
		return err
	}

	for _, v := range variants {
		keys = append(keys, v.ObjectKey)
	}

	for _, key := range keys {
		if err := s.objects.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Uint64("asset_id", assetID).Msg("删除渲染对象失败")
		}
	}

	return s.store.DeleteAsset(ctx, assetID)
}
