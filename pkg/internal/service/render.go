package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"github.com/yeisme/mediavault/pkg/internal/imaging"
	"github.com/yeisme/mediavault/pkg/internal/model"
	"github.com/yeisme/mediavault/pkg/internal/profile"
	s3c "github.com/yeisme/mediavault/pkg/internal/storage/s3"
	"github.com/yeisme/mediavault/pkg/internal/store"
)

// renderAndUpload 渲染全部输出并批量上传，随后写入渲染结果行并保存资产.
//
// 上传批次是全有或全无的：任一上传失败时已完成部分会被批量层回滚，错误
// 原样上抛，外层事务回滚后数据库不留任何痕迹.校验和在渲染成功后总是写入
// 资产（即使 keepOriginal 为假），保证后续去重能命中.
func (s *MediaService) renderAndUpload(
	ctx context.Context,
	tx *store.AssetStore,
	asset *model.MediaAsset,
	body []byte,
	p *profile.Profile,
	baseKey string,
) error {
	sum := sha1.Sum(body)
	sha1hex := hex.EncodeToString(sum[:])

	var (
		batch   []s3c.Object
		pending []model.MediaVariant
	)

	// 原图输出
	var original *imaging.OriginalResult

	if p.KeepOriginal {
		var err error

		original, err = s.engine.RenderOriginal(body, p.MaxOriginalLongEdge, p.Codecs)
		if err != nil {
			return err
		}

		for _, f := range p.Codecs {
			origBody := original.Body(f)
			if origBody == nil {
				continue
			}

			batch = append(batch, s3c.Object{
				Key:         fmt.Sprintf("%s/original.%s", baseKey, f.Ext()),
				ContentType: f.ContentType(),
				Body:        origBody,
			})
		}
	}

	// 已存在的渲染结果行，幂等重跑只补缺失的行
	existing, err := tx.ListVariantsByAsset(ctx, asset.ID)
	if err != nil {
		return err
	}

	existingSet := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		existingSet[v.Variant+"/"+v.Format] = struct{}{}
	}

	// 变体输出，资产内串行渲染
	for _, vname := range p.VariantNames {
		vdef := p.Variants[vname]

		for _, f := range p.Codecs {
			if !s.engine.Supports(f) {
				continue
			}

			res, err := s.engine.RenderVariant(
				body,
				vdef.Width, vdef.Height,
				vdef.Fit == profile.FitCover,
				f,
				s.engine.QualityFor(f),
			)
			if err != nil {
				return err
			}

			key := fmt.Sprintf("%s/%s.%s", baseKey, vname, f.Ext())

			batch = append(batch, s3c.Object{
				Key:         key,
				ContentType: res.ContentType,
				Body:        res.Body,
			})

			if _, ok := existingSet[vname+"/"+string(f)]; !ok {
				pending = append(pending, model.MediaVariant{
					AssetID:   asset.ID,
					Variant:   vname,
					Format:    string(f),
					ObjectKey: key,
					Width:     res.Width,
					Height:    res.Height,
					Size:      int64(len(res.Body)),
				})
			}
		}
	}

	if err := s.objects.PutMultiple(ctx, batch); err != nil {
		return err
	}

	// 原图键与校验和；校验和无条件写入
	asset.ChecksumSHA1 = sha1hex

	if p.KeepOriginal && original != nil {
		asset.OriginalWidth = original.Width
		asset.OriginalHeight = original.Height

		for _, f := range p.Codecs {
			if original.Body(f) == nil {
				continue
			}

			key := fmt.Sprintf("%s/original.%s", baseKey, f.Ext())

			switch f {
			case imaging.FormatJPEG:
				asset.OriginalJPEGKey = key
			case imaging.FormatWebP:
				asset.OriginalWebPKey = key
			case imaging.FormatAVIF:
				asset.OriginalAVIFKey = key
			case imaging.FormatPNG:
				asset.OriginalPNGKey = key
			}
		}
	}

	for i := range pending {
		if err := tx.CreateVariant(ctx, &pending[i]); err != nil {
			return err
		}
	}

	return tx.Save(ctx, asset)
}
