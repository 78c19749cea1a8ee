package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"imager/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print build information",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return nil
		},
	}
}
