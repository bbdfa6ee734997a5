package service

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/yeisme/mediavault/pkg/internal/model"
	"github.com/yeisme/mediavault/pkg/internal/store"
	"github.com/yeisme/mediavault/pkg/internal/validate"
)

// ProcessResult 单次处理尝试的结构化结果，worker 据此决定 ack/nack/DLQ.
type ProcessResult struct {
	Success         bool
	ExceededRetries bool
	Err             string
	Attempts        int
}

// ProcessAsset 处理一条入队资产.
//
// 决策阶梯：资产不存在或已 READY 直接视为成功（ack 并丢弃）；尝试次数已达
// 上限返回 ExceededRetries；否则乐观认领，认领失败说明其他 worker 已持有，
// 同样视为成功.认领后按来源分派渲染，失败时置 FAILED 并递增 attempts.
func (s *MediaService) ProcessAsset(ctx context.Context, assetID uint64, tempFilePath string) ProcessResult {
	asset, err := s.store.Get(ctx, assetID)
	if errors.Is(err, store.ErrNotFound) {
		return ProcessResult{Success: true}
	}

	if err != nil {
		return ProcessResult{Err: err.Error()}
	}

	if asset.Status == model.StatusReady {
		return ProcessResult{Success: true, Attempts: asset.Attempts}
	}

	if asset.Attempts >= s.retryMax {
		return ProcessResult{
			ExceededRetries: true,
			Err:             asset.LastError,
			Attempts:        asset.Attempts,
		}
	}

	if err := s.store.Claim(ctx, assetID); err != nil {
		if errors.Is(err, store.ErrClaimLost) {
			return ProcessResult{Success: true, Attempts: asset.Attempts}
		}

		return ProcessResult{Err: err.Error(), Attempts: asset.Attempts}
	}

	// 认领成功后重读，拿到其他 worker 可能写入的最新字段
	asset, err = s.store.Get(ctx, assetID)
	if err != nil {
		return s.failProcessing(ctx, assetID, err)
	}

	if err := s.processClaimed(ctx, asset, tempFilePath); err != nil {
		return s.failProcessing(ctx, assetID, err)
	}

	if err := s.store.MarkReady(ctx, assetID); err != nil {
		return s.failProcessing(ctx, assetID, err)
	}

	return ProcessResult{Success: true, Attempts: asset.Attempts}
}

// processClaimed 按来源分派已认领资产的渲染与上传.
func (s *MediaService) processClaimed(ctx context.Context, asset *model.MediaAsset, tempFilePath string) error {
	p, err := s.profiles.Get(asset.Profile)
	if err != nil {
		return err
	}

	switch asset.Source {
	case model.SourceRemote:
		if asset.SourceURL == "" {
			return fmt.Errorf("remote asset %d has no source url", asset.ID)
		}

		body, _, err := s.fetcher.Fetch(ctx, asset.SourceURL)
		if err != nil {
			return err
		}

		if err := validate.ImageBytes(body); err != nil {
			return err
		}

		// owner 可能有多个，异步远程处理不重建 owner 路径
		baseKey := BuildAssetBaseKey(p.Prefix, asset.ID)

		return s.store.Transaction(ctx, func(tx *store.AssetStore) error {
			return s.renderAndUpload(ctx, tx, asset, body, p, baseKey)
		})

	case model.SourceUpload:
		if tempFilePath == "" {
			return fmt.Errorf("upload asset %d has no temp file path", asset.ID)
		}

		body, err := os.ReadFile(tempFilePath)
		if err != nil {
			return fmt.Errorf("read spool file: %w", err)
		}

		if err := validate.ImageBytes(body); err != nil {
			return err
		}

		baseKey, err := s.uploadBaseKey(ctx, asset, p.Prefix)
		if err != nil {
			return err
		}

		if err := s.store.Transaction(ctx, func(tx *store.AssetStore) error {
			return s.renderAndUpload(ctx, tx, asset, body, p, baseKey)
		}); err != nil {
			return err
		}

		// 渲染提交成功后才删暂存文件
		if s.spool != nil {
			s.spool.Delete(tempFilePath)
		}

		return nil

	default:
		return fmt.Errorf("asset %d has unknown source %q", asset.ID, asset.Source)
	}
}

// uploadBaseKey 由资产最早的 owner 引用构建对象键前缀，无引用时退化为
// 无 owner 路径.
func (s *MediaService) uploadBaseKey(ctx context.Context, asset *model.MediaAsset, prefix string) (string, error) {
	link, err := s.store.FirstOwnerLink(ctx, asset.ID)
	if err != nil {
		return "", err
	}

	if link == nil {
		return BuildAssetBaseKey(prefix, asset.ID), nil
	}

	return BuildBaseKey(prefix, link.OwnerType, link.OwnerID, asset.ID), nil
}

// failProcessing 把处理失败落库并构建结构化结果.
func (s *MediaService) failProcessing(ctx context.Context, assetID uint64, cause error) ProcessResult {
	if err := s.store.MarkFailed(ctx, assetID, cause.Error()); err != nil {
		log.Error().Err(err).Uint64("asset_id", assetID).Msg("写入失败状态出错")
	}

	attempts := 0
	if asset, err := s.store.Get(ctx, assetID); err == nil {
		attempts = asset.Attempts
	}

	return ProcessResult{
		ExceededRetries: attempts >= s.retryMax,
		Err:             cause.Error(),
		Attempts:        attempts,
	}
}
