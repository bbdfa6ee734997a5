// Package configs 管理应用程序配置，包括数据库、对象存储、消息队列、下载器、
// 图像引擎与渲染 profile 的配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.MQ.Queue)
package configs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/yeisme/mediavault/pkg/rule"
)

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		DB       DBConfig                 `mapstructure:"db"`       // 数据库配置
		S3       S3Config                 `mapstructure:"s3"`       // 对象存储配置
		MQ       MQConfig                 `mapstructure:"mq"`       // 消息队列配置
		HTTP     HTTPConfig               `mapstructure:"http"`     // 远程下载配置
		Image    ImageConfig              `mapstructure:"image"`    // 图像引擎配置
		Temp     TempConfig               `mapstructure:"temp"`     // 本地上传暂存配置
		Profiles map[string]ProfileConfig `mapstructure:"profiles"` // 渲染 profile 配置
		Worker   WorkerConfig             `mapstructure:"worker"`   // 维护任务配置
		Server   ServerConfig             `mapstructure:"server"`   // 调试、热重载等
		Log      LogConfig                `mapstructure:"log"`      // 日志相关配置
		Metrics  MetricsConfig            `mapstructure:"metrics"`  // 指标相关配置
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
)

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv)并启用热重载.
// path 可以是配置文件路径，也可以是包含 config.* 的目录.
func InitConfig(path string) error {
	appViper = viper.New()
	// 设置默认值
	setAllDefaults(appViper)

	// 检查path是否是文件
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		// 是文件，使用SetConfigFile，Viper会自动检测类型
		appViper.SetConfigFile(path)
	} else {
		// 是目录，设置配置名和路径
		appViper.SetConfigName("config")
		appViper.AddConfigPath(path)
		appViper.AddConfigPath(path + "/configs")

		exts := []string{"yaml", "yml", "json", "toml", "env", "dotenv"}

		for _, ext := range exts {
			cfg := filepath.Join(path, "config."+ext)
			if _, err := os.Stat(cfg); err == nil {
				appViper.SetConfigFile(cfg)

				break
			}
		}
	}

	appViper.AutomaticEnv()
	appViper.SetEnvPrefix("MEDIAVAULT")

	// 读取配置
	if err := appViper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	// 解析到全局配置
	if err := appViper.Unmarshal(&globalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 按 rule 标签校验配置
	if err := rule.ValidateStruct(globalConfig); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	reloadConfigs(appViper, globalConfig.Server.ReloadConfig)

	return nil
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var (
		serverConfig  ServerConfig
		dbConfig      DBConfig
		s3Config      S3Config
		mqConfig      MQConfig
		httpConfig    HTTPConfig
		imageConfig   ImageConfig
		tempConfig    TempConfig
		workerConfig  WorkerConfig
		logConfig     LogConfig
		metricsConfig MetricsConfig
	)

	serverConfig.setDefaults(v)
	dbConfig.setDefaults(v)
	s3Config.setDefaults(v)
	mqConfig.setDefaults(v)
	httpConfig.setDefaults(v)
	imageConfig.setDefaults(v)
	tempConfig.setDefaults(v)
	workerConfig.setDefaults(v)
	logConfig.setDefaults(v)
	metricsConfig.setDefaults(v)
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload {
		return
	}
	// 启用配置热重载
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)
		fmt.Println("Reloading configuration...")

		if err := v.Unmarshal(&globalConfig); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
		}
	})
	v.WatchConfig()
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	return &globalConfig
}

func GetViper() *viper.Viper {
	return appViper
}
