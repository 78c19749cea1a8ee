package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"imager/internal/framesource"
	"imager/internal/imageformat"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <dir>",
		Short: "Show the numbered image files of a frame directory in playback order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := framesource.ListIndexed(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No indexed files")
				return nil
			}

			var total uint64
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				size := "?"
				if info, err := os.Stat(e.Path); err == nil {
					size = humanize.Bytes(uint64(info.Size()))
					total += uint64(info.Size())
				}
				format := "unknown"
				if f, ok := imageformat.InferFromFile(e.Path); ok {
					format = f.String()
				}
				rows = append(rows, []string{
					strconv.FormatUint(e.Index, 10),
					filepath.Base(e.Path),
					format,
					size,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Index", "File", "Format", "Size"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
			))
			fmt.Fprintf(out, "%d files, %s\n", len(entries), humanize.Bytes(total))
			return nil
		},
	}
}
