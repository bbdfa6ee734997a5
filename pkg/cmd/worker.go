package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yeisme/mediavault/pkg/app"
)

var workerCmd = &cobra.Command{
	Use:   "worker [config-path]",
	Short: "run the media processing worker",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// argv[1] 优先于标志与环境变量
		path := resolveConfigPath()
		if len(args) == 1 {
			path = args[0]
		}

		return app.NewApp(path).Run()
	},
}

// registerWorkerCommands 注册 worker 命令.
func registerWorkerCommands() {
	rootCmd.AddCommand(workerCmd)
}
