// Package jobs 负责注册与实现业务定时任务（基于 scheduler）。
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/service"
	"github.com/yeisme/mediavault/pkg/internal/spool"
	"github.com/yeisme/mediavault/pkg/log"
	"github.com/yeisme/mediavault/pkg/queue"
	"github.com/yeisme/mediavault/pkg/scheduler"
)

// staleBatchLimit 单次补发/清理处理的资产上限.
const staleBatchLimit = 500

// RegisterCronJobs 配置业务定时任务：
//   - 每天 04:00 清理超龄暂存文件
//   - 每 10 分钟补发滞留 QUEUED 的处理消息并回收 PROCESSING 孤儿
//   - 每周日 05:00 删除耗尽重试且超龄的失败资产
func RegisterCronJobs(sched *scheduler.Scheduler, svc *service.MediaService, sp *spool.Spool) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	if svc == nil {
		return fmt.Errorf("media service is nil")
	}

	baseCtx := context.Background()

	if sp != nil && sp.Enabled() {
		_ = sched.AddCron(JobSpoolCleanup, CronSpoolCleanup, func(ctx context.Context) {
			runSpoolCleanup(ctx, sp)
		}, baseCtx)
	}

	_ = sched.AddCron(JobStaleRepublish, CronStaleRepublish, func(ctx context.Context) {
		runStaleRepublish(ctx, svc)
	}, baseCtx)

	_ = sched.AddCron(JobFailedPurge, CronFailedPurge, func(ctx context.Context) {
		runFailedPurge(ctx, svc)
	}, baseCtx)

	return nil
}

// runSpoolCleanup 删除超过 temp.max_age_hours 的暂存文件.
func runSpoolCleanup(_ context.Context, sp *spool.Spool) {
	l := log.Logger().With().Str("job", JobSpoolCleanup).Logger()

	maxAge := time.Duration(configs.GetConfig().Temp.MaxAgeHours) * time.Hour

	removed, err := sp.Cleanup(time.Now().Add(-maxAge))
	if err != nil {
		l.Error().Err(err).Msg("spool cleanup failed")
		return
	}

	if removed > 0 {
		l.Info().Int("removed", removed).Msg("spool cleaned")
	}
}

// runStaleRepublish 为滞留 QUEUED 的资产补发处理消息（覆盖提交后发布失败
// 的已接受失败模式），并把滞留 PROCESSING 的孤儿重置回 QUEUED.
func runStaleRepublish(ctx context.Context, svc *service.MediaService) {
	l := log.Logger().With().Str("job", JobStaleRepublish).Logger()
	cfg := configs.GetConfig()
	st := svc.Store()

	queuedCutoff := time.Now().Add(-time.Duration(cfg.Worker.StaleQueuedMinutes) * time.Minute)

	stale, err := st.FindQueuedOlderThan(ctx, queuedCutoff, staleBatchLimit)
	if err != nil {
		l.Error().Err(err).Msg("find stale queued failed")
		return
	}

	for _, asset := range stale {
		payload := queue.ProcessAssetPayload{AssetID: asset.ID}
		if err := queue.PublishProcessAsset(svc.Publisher(), cfg.MQ.Queue, payload); err != nil {
			l.Error().Err(err).Uint64("asset_id", asset.ID).Msg("republish failed")
			continue
		}

		l.Info().Uint64("asset_id", asset.ID).Msg("republished stale queued asset")
	}

	// PROCESSING 孤儿：持有它的 worker 已消失，重置回 QUEUED 等下一轮补发
	processingCutoff := time.Now().Add(-time.Duration(cfg.Worker.StaleRequeueMinutes) * time.Minute)

	orphans, err := st.FindStaleProcessing(ctx, processingCutoff, staleBatchLimit)
	if err != nil {
		l.Error().Err(err).Msg("find stale processing failed")
		return
	}

	for _, asset := range orphans {
		if err := st.Requeue(ctx, asset.ID); err != nil {
			l.Error().Err(err).Uint64("asset_id", asset.ID).Msg("requeue failed")
			continue
		}

		l.Warn().Uint64("asset_id", asset.ID).Msg("requeued orphaned processing asset")
	}
}

// runFailedPurge 经由完整删除路径清理耗尽重试且超龄的失败资产.
func runFailedPurge(ctx context.Context, svc *service.MediaService) {
	l := log.Logger().With().Str("job", JobFailedPurge).Logger()
	cfg := configs.GetConfig()

	cutoff := time.Now().AddDate(0, 0, -cfg.Worker.PurgeFailedDays)

	assets, err := svc.Store().FindFailedOlderThan(ctx, cutoff, cfg.MQ.RetryMax, staleBatchLimit)
	if err != nil {
		l.Error().Err(err).Msg("find failed assets failed")
		return
	}

	for _, asset := range assets {
		if err := svc.DeleteAsset(ctx, asset.ID); err != nil {
			l.Error().Err(err).Uint64("asset_id", asset.ID).Msg("purge failed")
			continue
		}

		l.Info().Uint64("asset_id", asset.ID).Int("attempts", asset.Attempts).Msg("purged failed asset")
	}
}
