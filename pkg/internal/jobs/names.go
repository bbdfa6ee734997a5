package jobs

// 任务名称.
const (
	JobSpoolCleanup   = "spool.cleanup"
	JobStaleRepublish = "asset.stale_republish"
	JobFailedPurge    = "asset.failed_purge"
)

// cron 表达式.
const (
	CronSpoolCleanup   = "0 4 * * *"    // 每天 04:00
	CronStaleRepublish = "*/10 * * * *" // 每 10 分钟
	CronFailedPurge    = "0 5 * * 0"    // 每周日 05:00
)
