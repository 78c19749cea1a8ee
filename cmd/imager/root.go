package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag, levelFlag, formatFlag string

	ctx := newCommandContext(&configFlag, &levelFlag, &formatFlag)

	rootCmd := &cobra.Command{
		Use:           "imager",
		Short:         "Planar YUV 4:2:0 frame tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&levelFlag, "log-level", "", "Log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "log-format", "", "Log format override (console, json)")

	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newConvertCommand(ctx))
	rootCmd.AddCommand(newVideoCommand(ctx))
	rootCmd.AddCommand(newRawCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
