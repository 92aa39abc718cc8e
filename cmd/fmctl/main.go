// fmctl 运维命令行：执行迁移、查看和重放 outbox 事件
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	env       string
	configDir string
}

func rootCmd() *cobra.Command {
	var g globalFlags

	cmd := &cobra.Command{
		Use:           "fmctl",
		Short:         "Operations tool for the foundermatch backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&g.env, "env", "", "Config environment (defaults to APP_ENV)")
	cmd.PersistentFlags().StringVar(&g.configDir, "config-dir", "config", "Directory holding base.yaml and <env>.yaml")

	cmd.AddCommand(migrateCmd(&g), outboxCmd(&g))
	return cmd
}
