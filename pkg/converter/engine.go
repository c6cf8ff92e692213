package converter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/pkg/converter/imageio"
	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/pkg/converter/pdf"
	"github.com/spf13/afero"
)

// Engine runs one conversion: classify, convert every unit sequentially,
// finalize. An Engine is single use.
type Engine struct {
	opts     *Options
	logger   *slog.Logger
	fs       afero.Fs
	reporter Reporter
	proc     *processor
	now      func() time.Time
	ctx      context.Context

	mu    sync.Mutex
	state State
	ran   bool
}

// NewEngine validates opts and fills in default dependencies.
func NewEngine(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("%w: Logger implementation (slog.Handler) cannot be nil", ErrConfigValidation)
	}
	logger := slog.New(opts.Logger).With(slog.String("component", "engine"))

	if opts.Mode == "" {
		opts.Mode = DefaultMode
	}
	switch opts.Mode {
	case ModeFolder:
		if opts.InputPath == "" {
			return nil, fmt.Errorf("%w: %w: input path cannot be empty", ErrConfigValidation, ErrNoInput)
		}
	case ModeFiles:
		if len(opts.Files) == 0 {
			return nil, fmt.Errorf("%w: %w: no files given", ErrConfigValidation, ErrNoInput)
		}
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrConfigValidation, opts.Mode)
	}
	if opts.OutputPath == "" {
		return nil, fmt.Errorf("%w: output path cannot be empty", ErrConfigValidation)
	}

	if opts.Reporter == nil {
		opts.Reporter = NoOpReporter{}
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Loader == nil {
		caps := imageio.DetectCapabilities()
		opts.Loader = imageio.NewLoader(opts.Fs, caps, opts.Logger)
		logger.Debug("Loader not provided, using default", slog.Bool("heicCodec", caps.HEICCodec))
	}
	if opts.Encoder == nil {
		opts.Encoder = pdf.NewEncoder()
	}
	if opts.VerifyOutput && opts.Verifier == nil {
		opts.Verifier = pdf.NewInspector()
	}
	var verifier PageCounter
	if opts.VerifyOutput {
		verifier = opts.Verifier
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	if ctx == nil {
		ctx = context.Background()
	}

	return &Engine{
		opts:     &opts,
		logger:   logger,
		fs:       opts.Fs,
		reporter: opts.Reporter,
		proc:     newProcessor(opts.Fs, opts.Loader, opts.Encoder, verifier, opts.Logger),
		now:      now,
		ctx:      ctx,
		state:    StateIdle,
	}, nil
}

// State returns the current pipeline state. Safe for concurrent use.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Run executes the pipeline. The returned Report is always populated, even
// when err is non-nil. err wraps ErrFatalRun when the input could not be
// listed or the output folder not created, and is the context error when
// the run was cancelled.
func (e *Engine) Run() (Report, error) {
	e.mu.Lock()
	if e.ran {
		e.mu.Unlock()
		return Report{}, fmt.Errorf("engine has already run")
	}
	e.ran = true
	e.mu.Unlock()

	start := e.now()
	dateDir := filepath.Join(e.opts.OutputPath, start.Format(DateDirLayout))
	ledger := NewLedger(dateDir, start)
	log := e.logger.With(slog.String("runId", ledger.RunID()))

	e.setState(StateClassifying)
	units, runErr := e.plan(log, start)
	if runErr == nil {
		if err := e.fs.MkdirAll(dateDir, 0o755); err != nil {
			runErr = fmt.Errorf("%w: %w: %s: %w", ErrFatalRun, ErrMkdirFailed, dateDir, err)
			units = nil
		}
	}
	if runErr != nil {
		log.Error("Run aborted before conversion", slog.String("error", runErr.Error()))
	}

	e.setState(StateConverting)
	if cancelErr := e.convert(log, units, ledger, dateDir); cancelErr != nil {
		runErr = cancelErr
	}

	e.setState(StateFinalizing)
	ledger.Seal()
	report := Report{
		SchemaVersion:   ReportSchemaVersion,
		Mode:            e.opts.Mode,
		InputPath:       e.opts.InputPath,
		Summary:         Finalize(ledger),
		Entries:         ledger.Entries(),
		DurationSeconds: time.Since(start).Seconds(),
	}
	if runErr != nil && !report.Summary.Cancelled {
		report.Summary.FatalError = runErr.Error()
	}
	log.Info("Conversion run finished",
		slog.Int("converted", report.Summary.SucceededCount),
		slog.Int("skipped", report.Summary.SkippedCount),
		slog.Int("failed", report.Summary.FailedCount),
		slog.Bool("cancelled", report.Summary.Cancelled),
		slog.String("outputDirectory", dateDir),
	)

	e.setState(StateDone)
	e.runComplete(report)
	return report, runErr
}

func (e *Engine) plan(log *slog.Logger, now time.Time) ([]Unit, error) {
	if e.opts.Mode == ModeFiles {
		log.Info("Starting file list conversion",
			slog.Int("files", len(e.opts.Files)),
			slog.Bool("merge", e.opts.Merge),
			slog.String("output", e.opts.OutputPath),
		)
		return PlanFileUnits(e.opts.Files, e.opts.Merge, e.opts.MergeName, now), nil
	}

	c, err := Classify(e.fs, e.opts.InputPath)
	if err != nil {
		return nil, err
	}
	log.Info("Starting folder conversion",
		slog.String("input", e.opts.InputPath),
		slog.String("output", e.opts.OutputPath),
		slog.Int("rootImages", len(c.Files)),
		slog.Int("subfolders", len(c.Folders)),
		slog.Bool("merge", e.opts.Merge),
	)
	return PlanFolderUnits(c, e.opts.Merge, e.opts.MergeName, now), nil
}

// convert processes units in order, checking for cancellation between them.
func (e *Engine) convert(log *slog.Logger, units []Unit, ledger *Ledger, outDir string) error {
	total := len(units)
	for i, u := range units {
		if err := e.ctx.Err(); err != nil {
			ledger.MarkCancelled()
			log.Warn("Run cancelled; remaining units not processed", slog.Int("remaining", total-i))
			return err
		}

		var entry LedgerEntry
		if u.merges() {
			e.notify(0, MergeProgressTotal, "Merging: "+u.Label)
			entry = e.proc.process(u, outDir, e.notify)
			e.notify(MergeProgressTotal, MergeProgressTotal, outcomeLabel(entry))
		} else {
			e.notify(i, total, startLabel(u))
			entry = e.proc.process(u, outDir, nil)
			e.notify(i+1, total, outcomeLabel(entry))
		}

		if err := ledger.Append(entry); err != nil {
			log.Error("Could not record unit outcome", slog.String("unit", u.ID), slog.String("error", err.Error()))
		}
		log.Debug("Unit finished",
			slog.String("unit", u.ID),
			slog.String("kind", string(u.Kind)),
			slog.String("status", string(entry.Status)),
			slog.String("output", entry.OutputPath),
		)
		e.unitDone(entry)
	}
	return nil
}

func startLabel(u Unit) string {
	if u.Kind == UnitFolderGroup {
		return "Processing folder: " + u.Label
	}
	return "Converting: " + u.Label
}

func outcomeLabel(entry LedgerEntry) string {
	switch entry.Status {
	case StatusConverted:
		if entry.Kind == UnitSingleFile || entry.Kind == UnitFileListSeparate {
			return "✓ " + entry.Name
		}
		return fmt.Sprintf("✓ %s (%d images)", entry.Name, entry.Pages)
	case StatusSkipped:
		if entry.Reason == SkipReasonNoImages {
			return "⊘ " + entry.Name + " (no images)"
		}
		return "⊘ " + entry.Name + " (no pages decoded)"
	default:
		if detail := failureDetail(entry); detail != "" {
			return fmt.Sprintf("✗ %s (%s)", entry.Name, detail)
		}
		return "✗ " + entry.Name
	}
}

// failureDetail prefers the short ledger reason over the full error text.
func failureDetail(entry LedgerEntry) string {
	if entry.Reason != "" {
		return entry.Reason
	}
	return entry.ErrorMessage
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
	if sr, ok := e.reporter.(StateReporter); ok {
		e.safeCall("OnStateChange", func() { sr.OnStateChange(s) })
	}
}

func (e *Engine) notify(processed, total int, label string) {
	e.safeCall("Notify", func() { e.reporter.Notify(processed, total, label) })
}

func (e *Engine) unitDone(entry LedgerEntry) {
	if ur, ok := e.reporter.(UnitReporter); ok {
		e.safeCall("OnUnitDone", func() { ur.OnUnitDone(entry) })
	}
}

func (e *Engine) runComplete(report Report) {
	if cr, ok := e.reporter.(CompletionReporter); ok {
		e.safeCall("OnRunComplete", func() { cr.OnRunComplete(report) })
	}
}

// safeCall shields the pipeline from reporter panics.
func (e *Engine) safeCall(hook string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("Reporter panicked; event dropped", slog.String("hook", hook), slog.Any("panic", r))
		}
	}()
	fn()
}
