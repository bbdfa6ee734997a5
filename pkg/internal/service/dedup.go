package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"

	"github.com/yeisme/mediavault/pkg/internal/model"
	"github.com/yeisme/mediavault/pkg/internal/validate"
)

// FindDuplicate 按内容校验和查找同 profile 的已就绪资产，无匹配返回 nil.
func (s *MediaService) FindDuplicate(ctx context.Context, sha1hex, profileName string) (*model.MediaAsset, error) {
	return s.store.FindReadyByChecksum(ctx, sha1hex, profileName)
}

// UploadLocalWithDedup 带内容去重的同步本地摄取：字节校验后计算 SHA-1，
// 命中已有资产时不重渲染，只插入指向它的新 owner 引用.
func (s *MediaService) UploadLocalWithDedup(ctx context.Context, body []byte, profileName string, owner OwnerRef) (*model.MediaAsset, error) {
	if err := validate.ImageBytes(body); err != nil {
		return nil, err
	}

	if existing, err := s.linkIfDuplicate(ctx, body, profileName, owner); existing != nil || err != nil {
		return existing, err
	}

	return s.uploadValidated(ctx, body, profileName, owner, model.SourceUpload, "")
}

// UploadRemoteWithDedup 带内容去重的同步远程摄取.
func (s *MediaService) UploadRemoteWithDedup(ctx context.Context, rawURL, profileName string, owner OwnerRef) (*model.MediaAsset, error) {
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

	if existing, err := s.linkIfDuplicate(ctx, body, profileName, owner); existing != nil || err != nil {
		return existing, err
	}

	return s.uploadValidated(ctx, body, profileName, owner, model.SourceRemote, rawURL)
}

// EnqueueLocalWithDedup 带内容去重的异步本地摄取：命中时完全跳过入队.
func (s *MediaService) EnqueueLocalWithDedup(ctx context.Context, body []byte, originalName, profileName string, owner OwnerRef) (*model.MediaAsset, error) {
	if err := validate.ImageBytes(body); err != nil {
		return nil, err
	}

	if existing, err := s.linkIfDuplicate(ctx, body, profileName, owner); existing != nil || err != nil {
		return existing, err
	}

	return s.EnqueueLocal(ctx, body, originalName, profileName, owner)
}

// EnqueueRemoteWithDedup 带去重的异步远程摄取.入队时拿不到字节，改按
// 来源 URL 查重：同 URL 同 profile 已有就绪资产时只追加 owner 引用.
func (s *MediaService) EnqueueRemoteWithDedup(ctx context.Context, rawURL, profileName string, owner OwnerRef) (*model.MediaAsset, error) {
	if err := s.urlCheck.URL(rawURL); err != nil {
		return nil, err
	}

	existing, err := s.store.FindReadyBySourceURL(ctx, rawURL, profileName)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		link := &model.MediaOwnerLink{
			OwnerType: owner.OwnerType,
			OwnerID:   owner.OwnerID,
			Role:      owner.Role,
			AssetID:   existing.ID,
			Sort:      owner.Sort,
		}
		if err := s.store.CreateOwnerLink(ctx, link); err != nil {
			return nil, err
		}

		return existing, nil
	}

	return s.EnqueueRemote(ctx, rawURL, profileName, owner)
}

// linkIfDuplicate 计算校验和并查重；命中时插入新的 owner 引用并返回已有
// 资产，未命中返回 (nil, nil).
func (s *MediaService) linkIfDuplicate(ctx context.Context, body []byte, profileName string, owner OwnerRef) (*model.MediaAsset, error) {
	sum := sha1.Sum(body)
	sha1hex := hex.EncodeToString(sum[:])

	existing, err := s.FindDuplicate(ctx, sha1hex, profileName)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		return nil, nil
	}

	link := &model.MediaOwnerLink{
		OwnerType: owner.OwnerType,
		OwnerID:   owner.OwnerID,
		Role:      owner.Role,
		AssetID:   existing.ID,
		Sort:      owner.Sort,
	}
	if err := s.store.CreateOwnerLink(ctx, link); err != nil {
		return nil, err
	}

	return existing, nil
}
