// Package app 提供应用程序的初始化与 worker 进程的运行循环.
package app

import (
	contextPkg "context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/context"
	"github.com/yeisme/mediavault/pkg/internal/fetch"
	"github.com/yeisme/mediavault/pkg/internal/imaging"
	"github.com/yeisme/mediavault/pkg/internal/jobs"
	"github.com/yeisme/mediavault/pkg/internal/model"
	"github.com/yeisme/mediavault/pkg/internal/profile"
	"github.com/yeisme/mediavault/pkg/internal/service"
	"github.com/yeisme/mediavault/pkg/internal/spool"
	"github.com/yeisme/mediavault/pkg/internal/storage"
	"github.com/yeisme/mediavault/pkg/internal/storage/db"
	"github.com/yeisme/mediavault/pkg/internal/store"
	"github.com/yeisme/mediavault/pkg/internal/worker"
	"github.com/yeisme/mediavault/pkg/log"
	"github.com/yeisme/mediavault/pkg/scheduler"
)

// App 聚合 worker 进程的全部运行时组件.
type App struct {
	// ctx 携带存储管理器，是消费循环的父上下文
	ctx     contextPkg.Context
	config  *configs.AppConfig
	manager *storage.Manager
	service *service.MediaService
	worker  *worker.Worker
	sched   *scheduler.Scheduler
	spool   *spool.Spool
}

// NewApp 初始化配置、日志与存储，装配服务与 worker.
// 任一初始化失败直接以退出码 1 终止进程.
func NewApp(configPath string) *App {
	ctx := contextPkg.Background()

	// 初始化配置
	if err := configs.InitConfig(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}

	log.Init()

	// 注册数据库方言
	db.RegisterPostgresDialector()
	db.RegisterMySQLDialector()
	db.RegisterSQLiteDialector()

	config := configs.GetConfig()

	manager, err := storage.Init(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing storage: %v\n", err)
		os.Exit(1)
	}

	ctx = context.WithStorageManager(ctx, manager)

	// 表结构必须先行迁移，缺表直接退出
	if !manager.GetDBClient().Migrator().HasTable(&model.MediaAsset{}) {
		fmt.Fprintln(os.Stderr, "Error: database schema missing, run `mediavault db migrate` first")
		os.Exit(1)
	}

	engine, err := imaging.NewEngine(&config.Image)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing image engine: %v\n", err)
		os.Exit(1)
	}

	assetStore := store.NewAssetStore(manager.GetDBClient().GetDB())
	profiles := profile.NewRegistry(config.Profiles)
	downloader := fetch.NewDownloader(&config.HTTP)
	sp := spool.New(config.Temp.UploadDir)

	svc := service.New(
		assetStore,
		manager.GetS3Client(),
		engine,
		profiles,
		downloader,
		sp,
		manager.GetMQClient().Publisher(),
		&config.MQ,
	)

	w := worker.New(
		manager.GetMQClient(),
		manager.GetMQClient().Publisher(),
		svc,
		config.MQ.Queue,
		config.MQ.DLQ,
	)

	sched, err := scheduler.NewScheduler()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing scheduler: %v\n", err)
		os.Exit(1)
	}

	if err := jobs.RegisterCronJobs(sched, svc, sp); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering cron jobs: %v\n", err)
		os.Exit(1)
	}

	return &App{
		ctx:     ctx,
		config:  config,
		manager: manager,
		service: svc,
		worker:  w,
		sched:   sched,
		spool:   sp,
	}
}

// Run 启动定时任务与消费循环，阻塞到收到终止信号.
// 停止是协作式的：取消订阅上下文后等 worker 处理完当前消息才返回.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(a.ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.sched.Start()

	// 启动行写到 stdout，给进程管理器一个可检测的就绪信号
	fmt.Printf("mediavault worker consuming %q on %s (%s)\n",
		a.config.MQ.Queue, a.config.MQ.Endpoint(), a.config.MQ.Type)

	err := a.worker.Run(ctx)

	if stopErr := a.sched.Stop(); stopErr != nil {
		log.Logger().Error().Err(stopErr).Msg("scheduler stop failed")
	}

	if closeErr := a.manager.Close(); closeErr != nil {
		log.Logger().Error().Err(closeErr).Msg("storage close failed")
	}

	return err
}

// Migrate 连接数据库并迁移资产相关表结构，供 db migrate 子命令使用.
func Migrate(configPath string) error {
	if err := configs.InitConfig(configPath); err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	log.Init()

	db.RegisterPostgresDialector()
	db.RegisterMySQLDialector()
	db.RegisterSQLiteDialector()

	client, err := db.New(contextPkg.Background(), &configs.GetConfig().DB)
	if err != nil {
		return err
	}

	return store.NewAssetStore(client.GetDB()).Migrate()
}
