package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/mediavault/pkg/internal/storage/mq"
)

var (
	mqCmd = &cobra.Command{
		Use:   "mq",
		Short: "Message queue related commands",
	}

	mqListCmd = &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "list all registered mq types",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered mq types:")
			for _, t := range mq.GetRegisteredMQTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), " - "+t)
			}
		},
	}
)

// registerMQCommands 注册 MQ 相关命令.
func registerMQCommands() {
	rootCmd.AddCommand(mqCmd)
	mqCmd.AddCommand(mqListCmd)
}
