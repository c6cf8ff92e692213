package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/internal/cli"
	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/internal/cli/config"
	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/internal/cli/prompt"
	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/pkg/converter"
)

var (
	// These are set during build time using -ldflags
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootFlags are the values of the persistent flags shared by all commands.
type rootFlags struct {
	cfgFile     string
	profileName string
	verbose     bool
}

// newRootCmd builds the command tree: the root command converts a folder,
// the files subcommand converts an explicit list.
func newRootCmd() *cobra.Command {
	rf := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:   "img2pdf [input_folder] [output_folder]",
		Short: "Converts images into PDF documents.",
		Long: `img2pdf turns a folder of images into PDFs.

Every image directly inside the input folder becomes its own PDF, and every
subfolder becomes one PDF with a page per image in name order. Results are
written to a dated folder (YYYY-MM-DD) inside the output folder; existing
files are never overwritten.

Supported formats: PNG, JPEG, GIF, BMP, TIFF, and HEIC when a decoder
is available.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:    cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if len(args) > 0 && !flags.Changed("input") {
				if err := flags.Set("input", args[0]); err != nil {
					return err
				}
			}
			if len(args) > 1 && !flags.Changed("output") {
				if err := flags.Set("output", args[1]); err != nil {
					return err
				}
			}
			return runConversion(cmd, rf, converter.ModeFolder, nil)
		},
	}

	rootCmd.PersistentFlags().StringVar(&rf.cfgFile, "config", "", "Configuration file path (default is search ., $HOME/.config/img2pdf/, $HOME/.img2pdf/)")
	rootCmd.PersistentFlags().StringVar(&rf.profileName, "profile", "", "Name of configuration profile to use")
	rootCmd.PersistentFlags().BoolVarP(&rf.verbose, "verbose", "v", false, "Enable verbose (debug) logging output (disables TUI)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output folder; PDFs go into a dated subfolder")
	rootCmd.PersistentFlags().Bool("merge", converter.DefaultMerge, "Combine all images into a single PDF")
	rootCmd.PersistentFlags().String("name", "", "Base name of the merged PDF (default Merged_<timestamp>)")
	rootCmd.PersistentFlags().Bool("no-tui", false, "Disable interactive Terminal UI even if in a TTY")
	rootCmd.PersistentFlags().String("output-format", string(converter.DefaultOutputFormat), `Final summary format ("text", "json", "yaml", "toml")`)
	rootCmd.PersistentFlags().String("template", "", "Path to a custom Go template file for the text summary")
	rootCmd.PersistentFlags().Bool("no-lock", false, "Do not lock the output folder against concurrent runs")
	rootCmd.PersistentFlags().Bool("no-verify", false, "Skip reading written PDFs back to check their page count")

	rootCmd.Flags().StringP("input", "i", "", "Input folder of images and subfolders")

	rootCmd.SetVersionTemplate(`{{.Name}} version {{.Version}}` + "\n")
	rootCmd.AddCommand(newFilesCmd(rf))
	return rootCmd
}

// runConversion loads configuration for mode and runs it with signal-aware
// cancellation.
func runConversion(cmd *cobra.Command, rf *rootFlags, mode converter.Mode, files []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var ask config.PromptFunc
	if mode == converter.ModeFolder && prompt.StdinIsTTY() {
		ask = prompt.NewStdio().WithDefault
	}

	opts, logger, err := config.LoadAndValidate(config.LoadParams{
		ConfigFile: rf.cfgFile,
		Profile:    rf.profileName,
		AppVersion: version,
		Verbose:    rf.verbose,
		Flags:      cmd.Flags(),
		Mode:       mode,
		Files:      files,
		Prompt:     ask,
		LogOutput:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	// Configuration is valid; later failures are run failures, not usage errors.
	cmd.SilenceUsage = true

	return cli.RunWithStreams(ctx, opts, logger, cli.Streams{
		Out:      cmd.OutOrStdout(),
		Err:      cmd.ErrOrStderr(),
		Terminal: term.IsTerminal(int(os.Stderr.Fd())),
	})
}

// Execute runs the root command with the process arguments.
func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}
