package hooks

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/schollz/progressbar/v3"

	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/pkg/converter"
)

// --- TUI Message Types ---

// ProgressMsg carries one converter progress event to the TUI.
type ProgressMsg struct {
	Processed int
	Total     int
	Label     string
}

// UnitDoneMsg carries a finished unit to the TUI.
type UnitDoneMsg struct{ Entry converter.LedgerEntry }

// StateChangeMsg carries a pipeline state transition to the TUI.
type StateChangeMsg struct{ State converter.State }

// RunCompleteMsg tells the TUI the run is over.
type RunCompleteMsg struct{ Report converter.Report }

// TUIProgram is the part of *tea.Program the reporter needs.
type TUIProgram interface {
	Send(msg tea.Msg)
}

// ProgressBar is the part of a terminal progress bar the reporter drives.
type ProgressBar interface {
	Set(num int) error
	ChangeMax(newMax int)
	Describe(description string)
	Finish() error
}

// NoOpTUIProgram discards messages.
type NoOpTUIProgram struct{}

// Send implements TUIProgram.
func (n *NoOpTUIProgram) Send(msg tea.Msg) {}

// NoOpProgressBar draws nothing.
type NoOpProgressBar struct{}

func (n *NoOpProgressBar) Set(int) error   { return nil }
func (n *NoOpProgressBar) ChangeMax(int)   {}
func (n *NoOpProgressBar) Describe(string) {}
func (n *NoOpProgressBar) Finish() error   { return nil }

// NewProgressBar creates a bar on w for runs without the TUI.
func NewProgressBar(w io.Writer) ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionOnCompletion(func() { fmt.Fprint(w, "\n") }),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// CLIReporter forwards converter events to whichever presentation the CLI
// chose: the TUI, a progress bar, or the log.
type CLIReporter struct {
	logger         *slog.Logger
	tuiEnabled     bool
	verboseEnabled bool
	tuiProgram     TUIProgram
	progressBar    ProgressBar

	mu        sync.Mutex // guards the bar and lastTotal
	lastTotal int
	hasBar    bool
}

var (
	_ converter.Reporter           = (*CLIReporter)(nil)
	_ converter.UnitReporter       = (*CLIReporter)(nil)
	_ converter.StateReporter      = (*CLIReporter)(nil)
	_ converter.CompletionReporter = (*CLIReporter)(nil)
)

// NewCLIReporter creates a reporter. A nil progBar means progress is logged.
func NewCLIReporter(logger *slog.Logger, tuiEnabled, verboseEnabled bool, tuiProg TUIProgram, progBar ProgressBar) *CLIReporter {
	if tuiProg == nil {
		tuiProg = &NoOpTUIProgram{}
	}
	hasBar := progBar != nil
	if progBar == nil {
		progBar = &NoOpProgressBar{}
	}
	return &CLIReporter{
		logger:         logger,
		tuiEnabled:     tuiEnabled,
		verboseEnabled: verboseEnabled,
		tuiProgram:     tuiProg,
		progressBar:    progBar,
		hasBar:         hasBar,
	}
}

// Notify implements converter.Reporter.
func (h *CLIReporter) Notify(processed, total int, label string) {
	if h.tuiEnabled {
		h.tuiProgram.Send(ProgressMsg{Processed: processed, Total: total, Label: label})
		return
	}
	if h.hasBar {
		h.mu.Lock()
		defer h.mu.Unlock()
		if total != h.lastTotal {
			h.progressBar.ChangeMax(total)
			h.lastTotal = total
		}
		h.progressBar.Describe(label)
		_ = h.progressBar.Set(processed)
		return
	}
	if h.verboseEnabled {
		h.logger.Debug(label, slog.Int("processed", processed), slog.Int("total", total))
	}
}

// OnUnitDone implements converter.UnitReporter.
func (h *CLIReporter) OnUnitDone(entry converter.LedgerEntry) {
	if h.tuiEnabled {
		h.tuiProgram.Send(UnitDoneMsg{Entry: entry})
		return
	}
	attrs := []any{
		slog.String("unit", entry.Name),
		slog.String("kind", string(entry.Kind)),
	}
	switch entry.Status {
	case converter.StatusConverted:
		if h.verboseEnabled || !h.hasBar {
			h.logger.Info("PDF written", append(attrs, slog.String("path", entry.OutputPath), slog.Int("pages", entry.Pages))...)
		}
	case converter.StatusSkipped:
		if h.verboseEnabled || !h.hasBar {
			h.logger.Info("Unit skipped", append(attrs, slog.String("reason", entry.Reason))...)
		}
	case converter.StatusFailed:
		h.logger.Error("Unit failed", append(attrs, slog.String("error", entry.ErrorMessage))...)
	}
}

// OnStateChange implements converter.StateReporter.
func (h *CLIReporter) OnStateChange(state converter.State) {
	if h.tuiEnabled {
		h.tuiProgram.Send(StateChangeMsg{State: state})
		return
	}
	if h.verboseEnabled {
		h.logger.Debug("Pipeline state changed", slog.String("state", string(state)))
	}
}

// OnRunComplete implements converter.CompletionReporter.
func (h *CLIReporter) OnRunComplete(report converter.Report) {
	if h.tuiEnabled {
		h.tuiProgram.Send(RunCompleteMsg{Report: report})
		return
	}
	if h.hasBar {
		h.mu.Lock()
		_ = h.progressBar.Finish()
		h.mu.Unlock()
	}
	if h.verboseEnabled {
		h.logger.Debug("Run complete",
			slog.Int("converted", report.Summary.SucceededCount),
			slog.Int("skipped", report.Summary.SkippedCount),
			slog.Int("failed", report.Summary.FailedCount),
		)
	}
}
