package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/profile"
)

var (
	profileCmd = &cobra.Command{
		Use:   "profile",
		Short: "Rendering profile commands",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configs.InitConfig(resolveConfigPath())
		},
	}

	profileListCmd = &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "list parsed rendering profiles",
		Run: func(cmd *cobra.Command, args []string) {
			registry := profile.NewRegistry(configs.GetConfig().Profiles)

			for _, name := range registry.Names() {
				p, err := registry.Get(name)
				if err != nil {
					continue
				}

				codecs := make([]string, 0, len(p.Codecs))
				for _, c := range p.Codecs {
					codecs = append(codecs, string(c))
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", p.Name)
				fmt.Fprintf(cmd.OutOrStdout(), "  prefix: %s\n", p.Prefix)
				fmt.Fprintf(cmd.OutOrStdout(), "  keep_original: %v (max long edge %d)\n", p.KeepOriginal, p.MaxOriginalLongEdge)
				fmt.Fprintf(cmd.OutOrStdout(), "  codecs: %s\n", strings.Join(codecs, ", "))

				for _, vname := range p.VariantNames {
					v := p.Variants[vname]
					fmt.Fprintf(cmd.OutOrStdout(), "  variant %s: %dx%d %s\n", vname, v.Width, v.Height, v.Fit)
				}
			}
		},
	}
)

// registerProfileCommands 注册 profile 相关命令.
func registerProfileCommands() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileListCmd)
}
