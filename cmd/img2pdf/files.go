package main

import (
	"github.com/spf13/cobra"

	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/pkg/converter"
)

func newFilesCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "files -o <output_folder> <file>...",
		Short: "Converts an explicit list of images.",
		Long: `Converts the given image files in the order given: one PDF per file, or a
single PDF with --merge (named by --name, default Merged_<timestamp>).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConversion(cmd, rf, converter.ModeFiles, args)
		},
	}
}
