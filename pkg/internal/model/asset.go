// Package model 定义媒体资产的持久化模型.
package model

import (
	"time"
)

// AssetStatus 资产生命周期状态.
type AssetStatus string

const (
	StatusQueued     AssetStatus = "queued"     // 等待 worker 处理
	StatusProcessing AssetStatus = "processing" // 已被某个 worker 认领
	StatusReady      AssetStatus = "ready"      // 全部渲染结果已提交
	StatusFailed     AssetStatus = "failed"     // 最近一次处理失败
)

// AssetSource 资产来源类型.
type AssetSource string

const (
	SourceUpload AssetSource = "upload" // 本地上传字节
	SourceRemote AssetSource = "remote" // 远程URL下载
)

// MediaAsset 一张逻辑图片及其派生渲染结果的聚合根.
//
// 状态机：QUEUED/FAILED -claim-> PROCESSING -> READY|FAILED.
// attempts 单调不减，仅在处理失败时递增；checksum_sha1 在首次成功渲染时写入.
type MediaAsset struct {
	ID      uint64      `gorm:"primaryKey"           json:"id"`
	Profile string      `gorm:"size:128;not null"    json:"profile"`
	Source  AssetSource `gorm:"size:16;not null"     json:"source"`
	// SourceURL 仅 remote 来源非空.
	SourceURL string `gorm:"size:2048" json:"source_url,omitempty"`
	// 原图对象键，按编码各一列；keep_original=false 时保持为空.
	OriginalJPEGKey string `gorm:"size:1024" json:"original_jpeg_key,omitempty"`
	OriginalWebPKey string `gorm:"size:1024" json:"original_webp_key,omitempty"`
	OriginalAVIFKey string `gorm:"size:1024" json:"original_avif_key,omitempty"`
	OriginalPNGKey  string `gorm:"size:1024" json:"original_png_key,omitempty"`
	OriginalWidth   int    `json:"original_width,omitempty"`
	OriginalHeight  int    `json:"original_height,omitempty"`
	// ChecksumSHA1 源字节的 40 位十六进制 SHA-1，渲染成功后写入，用于去重.
	ChecksumSHA1 string      `gorm:"size:40;index"        json:"checksum_sha1,omitempty"`
	Status       AssetStatus `gorm:"size:16;index"        json:"status"`
	Attempts     int         `gorm:"not null;default:0"   json:"attempts"`
	LastError    string      `gorm:"type:text"            json:"last_error,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`

	Variants   []MediaVariant   `gorm:"foreignKey:AssetID;constraint:OnDelete:CASCADE" json:"variants,omitempty"`
	OwnerLinks []MediaOwnerLink `gorm:"foreignKey:AssetID;constraint:OnDelete:CASCADE" json:"owner_links,omitempty"`
}

// TableName 指定表名.
func (MediaAsset) TableName() string { return "media_asset" }

// OriginalKeys 收集已写入的原图对象键.
func (a *MediaAsset) OriginalKeys() []string {
	keys := make([]string, 0, 4)

	for _, k := range []string{a.OriginalJPEGKey, a.OriginalWebPKey, a.OriginalAVIFKey, a.OriginalPNGKey} {
		if k != "" {
			keys = append(keys, k)
		}
	}

	return keys
}

// MediaVariant 资产的一个具体渲染结果，(asset_id, variant, format) 唯一.
// 幂等重跑只插入缺失的行，从不原地更新.
type MediaVariant struct {
	ID        uint64    `gorm:"primaryKey"                                        json:"id"`
	AssetID   uint64    `gorm:"not null;uniqueIndex:idx_asset_variant_format"     json:"asset_id"`
	Variant   string    `gorm:"size:128;not null;uniqueIndex:idx_asset_variant_format" json:"variant"`
	Format    string    `gorm:"size:16;not null;uniqueIndex:idx_asset_variant_format"  json:"format"`
	ObjectKey string    `gorm:"size:1024;not null"                                json:"object_key"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名.
func (MediaVariant) TableName() string { return "media_variant" }

// MediaOwnerLink 外部实体到资产的多态引用，(owner_type, owner_id, role, asset_id) 唯一.
// 同一资产可被多个 owner 引用（去重的收益所在），不建跨表外键.
type MediaOwnerLink struct {
	ID        uint64    `gorm:"primaryKey"                                                          json:"id"`
	OwnerType string    `gorm:"size:128;not null;index:idx_owner;uniqueIndex:idx_owner_role_asset"  json:"owner_type"`
	OwnerID   int64     `gorm:"not null;index:idx_owner;uniqueIndex:idx_owner_role_asset"           json:"owner_id"`
	Role      string    `gorm:"size:128;not null;uniqueIndex:idx_owner_role_asset"                  json:"role"`
	AssetID   uint64    `gorm:"not null;index;uniqueIndex:idx_owner_role_asset"                     json:"asset_id"`
	Sort      int       `gorm:"not null;default:0"                                                  json:"sort"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名.
func (MediaOwnerLink) TableName() string { return "media_owner_link" }
