// Package cli wires the conversion engine to the terminal: the output lock,
// the progress front end and the final summary.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/internal/cli/hooks"
	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/internal/cli/lock"
	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/internal/cli/ui"
	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/pkg/converter"
	tmplhelper "github.com/MomoPi-Dark/CONVERT-IMG-PDF/pkg/converter/template"
)

// Streams are the terminal endpoints a run writes to.
type Streams struct {
	Out io.Writer
	Err io.Writer
	// Terminal reports whether Err is an interactive terminal.
	Terminal bool
}

// Run executes one conversion with validated options and prints the summary
// to stdout. It returns an error only for fatal or cancelled runs; unit
// failures are reported in the summary.
func Run(ctx context.Context, opts converter.Options, logger *slog.Logger) error {
	return RunWithStreams(ctx, opts, logger, Streams{
		Out:      os.Stdout,
		Err:      os.Stderr,
		Terminal: term.IsTerminal(int(os.Stderr.Fd())),
	})
}

// RunWithStreams is Run with explicit output streams.
func RunWithStreams(ctx context.Context, opts converter.Options, logger *slog.Logger, s Streams) error {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}

	if opts.LockEnabled {
		l, err := lock.Acquire(opts.Fs, opts.OutputPath)
		if err != nil {
			logger.Error("Could not lock output folder", slog.String("output", opts.OutputPath), slog.String("error", err.Error()))
			return fmt.Errorf("output folder %s: %w", opts.OutputPath, err)
		}
		defer func() {
			if err := l.Release(); err != nil {
				logger.Warn("Failed to release output lock", slog.String("error", err.Error()))
			}
		}()
	}

	var (
		report converter.Report
		runErr error
	)
	if opts.TuiEnabled && !opts.Verbose && s.Terminal {
		report, runErr = runWithTUI(ctx, opts, logger, s)
	} else {
		var bar hooks.ProgressBar
		if s.Terminal && !opts.Verbose {
			bar = hooks.NewProgressBar(s.Err)
		}
		opts.Reporter = hooks.NewCLIReporter(logger, false, opts.Verbose, nil, bar)
		report, runErr = convert(ctx, opts)
	}

	if err := WriteSummary(s.Out, opts, report); err != nil {
		logger.Error("Failed to write summary", slog.String("error", err.Error()))
		if runErr == nil {
			return err
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			logger.Warn("Conversion interrupted", slog.Int("converted", report.Summary.SucceededCount))
		} else {
			logger.Error("Conversion failed", slog.String("error", runErr.Error()))
		}
		return runErr
	}
	return nil
}

// runWithTUI runs the engine beside the bubbletea program. Quitting the UI
// cancels the engine; the engine's completion quits the UI. A UI failure is
// returned when the engine itself succeeded.
func runWithTUI(ctx context.Context, opts converter.Options, logger *slog.Logger, s Streams) (converter.Report, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := ui.NewModel(opts.AppVersion, cancel)
	program := tea.NewProgram(&model, tea.WithAltScreen(), tea.WithOutput(s.Err), tea.WithContext(ctx))

	// Library logs would tear the alternate screen.
	opts.Logger = slog.NewTextHandler(io.Discard, nil)
	opts.Reporter = hooks.NewCLIReporter(logger, true, false, program, nil)

	var (
		report converter.Report
		runErr error
	)
	g := new(errgroup.Group)
	g.Go(func() error {
		_, err := program.Run()
		cancel()
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("terminal UI failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		report, runErr = convert(runCtx, opts)
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error("Terminal UI stopped unexpectedly", slog.String("error", err.Error()))
		if runErr == nil {
			runErr = err
		}
	}
	return report, runErr
}

func convert(ctx context.Context, opts converter.Options) (converter.Report, error) {
	if opts.Mode == converter.ModeFiles {
		return converter.ConvertFiles(ctx, opts, opts.Files)
	}
	return converter.ConvertFolder(ctx, opts)
}

// WriteSummary prints the run summary in the configured output format.
func WriteSummary(w io.Writer, opts converter.Options, report converter.Report) error {
	switch opts.OutputFormat {
	case converter.OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case converter.OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	case converter.OutputFormatTOML:
		return toml.NewEncoder(w).Encode(report)
	default:
		return tmplhelper.NewGoTemplateExecutor().Execute(w, opts.Template, SummaryData(report))
	}
}

// SummaryData maps a report onto the data summary templates render.
func SummaryData(report converter.Report) *tmplhelper.SummaryData {
	s := report.Summary
	data := &tmplhelper.SummaryData{
		RunID:           s.RunID,
		Mode:            string(report.Mode),
		OutputDirectory: s.OutputDirectory,
		SucceededCount:  s.SucceededCount,
		SkippedCount:    s.SkippedCount,
		FailedCount:     s.FailedCount,
		Cancelled:       s.Cancelled,
		FatalError:      s.FatalError,
		Duration:        time.Duration(report.DurationSeconds * float64(time.Second)),
		StartedAt:       s.StartedAt,
	}
	for _, e := range report.Entries {
		switch e.Status {
		case converter.StatusConverted:
			data.Converted = append(data.Converted, tmplhelper.OutputItem{Name: e.Name, Path: e.OutputPath, Pages: e.Pages})
		case converter.StatusSkipped:
			data.Skipped = append(data.Skipped, tmplhelper.IssueItem{Name: e.Name, Reason: e.Reason})
		case converter.StatusFailed:
			data.Failed = append(data.Failed, tmplhelper.IssueItem{Name: e.Name, Reason: e.ErrorMessage})
		}
	}
	for _, skip := range report.SkippedFiles() {
		data.Skipped = append(data.Skipped, tmplhelper.IssueItem{Name: filepath.Base(skip.Path), Reason: skip.Reason})
	}
	return data
}
