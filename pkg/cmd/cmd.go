// Package cmd contains the command line applications for the project.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath 配置来源：--config 标志 → BOOTSTRAP_PATH 环境变量 → 当前目录.
	configPath string

	debug bool

	rootCmd = &cobra.Command{
		Use:   "mediavault",
		Short: "媒体资产摄取与转码管线",
		Long:  "mediavault 接收本地上传或远程图像，按 profile 渲染多尺寸多编码的结果并持久化到对象存储.",
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// resolveConfigPath 解析配置路径：标志 → BOOTSTRAP_PATH 环境变量 → 当前目录.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}

	if env := os.Getenv("BOOTSTRAP_PATH"); env != "" {
		return env
	}

	return "./"
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file or directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable verbose output")

	registerWorkerCommands()
	registerConfigsCommands()
	registerDBCommands()
	registerMQCommands()
	registerProfileCommands()
}
