package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/yeisme/mediavault/pkg/internal/model"
	"github.com/yeisme/mediavault/pkg/internal/store"
	"github.com/yeisme/mediavault/pkg/internal/validate"
	"github.com/yeisme/mediavault/pkg/queue"
)

// UploadLocal 同步摄取本地上传字节：校验、落库、渲染上传、置 READY，
// 全程单事务，任一失败整体回滚.
func (s *MediaService) UploadLocal(ctx context.Context, body []byte, profileName string, owner OwnerRef) (*model.MediaAsset, error) {
	if err := validate.ImageBytes(body); err != nil {
		return nil, err
	}

	return s.uploadValidated(ctx, body, profileName, owner, model.SourceUpload, "")
}

// UploadRemote 同步摄取远程图像：SSRF 校验后下载，余下与 UploadLocal 一致.
func (s *MediaService) UploadRemote(ctx context.Context, rawURL, profileName string, owner OwnerRef) (*model.MediaAsset, error) {
	if err := s.urlCheck.URL(rawURL); err != nil {
		return nil, err
	}

	body, _, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if err := validate.ImageBytes(body); err != nil {
		return nil, err
	}

	return s.uploadValidated(ctx, body, profileName, owner, model.SourceRemote, rawURL)
}

// uploadValidated 同步摄取的公共主体，body 已通过校验.
func (s *MediaService) uploadValidated(
	ctx context.Context,
	body []byte,
	profileName string,
	owner OwnerRef,
	source model.AssetSource,
	sourceURL string,
) (*model.MediaAsset, error) {
	p, err := s.profiles.Get(profileName)
	if err != nil {
		return nil, err
	}

	asset := &model.MediaAsset{
		Profile:   profileName,
		Source:    source,
		SourceURL: sourceURL,
		Status:    model.StatusProcessing,
	}

	err = s.store.Transaction(ctx, func(tx *store.AssetStore) error {
		// 先插入拿到 ID 才能构建对象键
		if err := tx.Create(ctx, asset); err != nil {
			return err
		}

		baseKey := BuildBaseKey(p.Prefix, owner.OwnerType, owner.OwnerID, asset.ID)

		if err := s.renderAndUpload(ctx, tx, asset, body, p, baseKey); err != nil {
			return err
		}

		asset.Status = model.StatusReady

		if err := tx.Save(ctx, asset); err != nil {
			return err
		}

		return tx.CreateOwnerLink(ctx, &model.MediaOwnerLink{
			OwnerType: owner.OwnerType,
			OwnerID:   owner.OwnerID,
			Role:      owner.Role,
			AssetID:   asset.ID,
			Sort:      owner.Sort,
		})
	})
	if err != nil {
		return nil, err
	}

	return asset, nil
}

// EnqueueRemote 异步摄取远程图像：SSRF 校验后落库为 QUEUED 并发布处理消息.
// 发布发生在事务提交之后；发布失败时资产保持 QUEUED，由补发任务恢复.
func (s *MediaService) EnqueueRemote(ctx context.Context, rawURL, profileName string, owner OwnerRef) (*model.MediaAsset, error) {
	if err := s.urlCheck.URL(rawURL); err != nil {
		return nil, err
	}

	if _, err := s.profiles.Get(profileName); err != nil {
		return nil, err
	}

	asset := &model.MediaAsset{
		Profile:   profileName,
		Source:    model.SourceRemote,
		SourceURL: rawURL,
		Status:    model.StatusQueued,
	}

	if err := s.persistQueued(ctx, asset, owner); err != nil {
		return nil, err
	}

	if err := queue.PublishProcessAsset(s.publisher, s.queueName, queue.ProcessAssetPayload{AssetID: asset.ID}); err != nil {
		log.Warn().Err(err).Uint64("asset_id", asset.ID).Msg("处理消息发布失败，资产保持 QUEUED 待补发")
	}

	return asset, nil
}

// EnqueueLocal 异步摄取本地上传字节：校验后写入暂存目录、落库为 QUEUED、
// 发布携带暂存路径的处理消息.仅在配置了暂存目录时可用.
func (s *MediaService) EnqueueLocal(ctx context.Context, body []byte, originalName, profileName string, owner OwnerRef) (*model.MediaAsset, error) {
	if s.spool == nil || !s.spool.Enabled() {
		return nil, fmt.Errorf("async local upload requires temp.upload_dir")
	}

	if err := validate.ImageBytes(body); err != nil {
		return nil, err
	}

	if _, err := s.profiles.Get(profileName); err != nil {
		return nil, err
	}

	tempPath, err := s.spool.SaveBytes(body, originalName)
	if err != nil {
		return nil, err
	}

	asset := &model.MediaAsset{
		Profile: profileName,
		Source:  model.SourceUpload,
		Status:  model.StatusQueued,
	}

	if err := s.persistQueued(ctx, asset, owner); err != nil {
		// 落库失败时不留下孤儿暂存文件
		s.spool.Delete(tempPath)

		return nil, err
	}

	payload := queue.ProcessAssetPayload{AssetID: asset.ID, TempFilePath: tempPath}
	if err := queue.PublishProcessAsset(s.publisher, s.queueName, payload); err != nil {
		log.Warn().Err(err).Uint64("asset_id", asset.ID).Msg("处理消息发布失败，资产保持 QUEUED 待补发")
	}

	return asset, nil
}

// persistQueued 在单事务里插入 QUEUED 资产与 owner 引用.
func (s *MediaService) persistQueued(ctx context.Context, asset *model.MediaAsset, owner OwnerRef) error {
	return s.store.Transaction(ctx, func(tx *store.AssetStore) error {
		if err := tx.Create(ctx, asset); err != nil {
			return err
		}

		return tx.CreateOwnerLink(ctx, &model.MediaOwnerLink{
			OwnerType: owner.OwnerType,
			OwnerID:   owner.OwnerID,
			Role:      owner.Role,
			AssetID:   asset.ID,
			Sort:      owner.Sort,
		})
	})
}
